package middleware

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"varistock/internal/pkg/cache"
	"varistock/internal/pkg/logger"
)

// RateLimiter limita requisições por IP numa janela fixa, com o contador guardado no cache.
// O contador nasce no INCR e recebe o TTL da janela logo em seguida; se o TTL não puder ser
// gravado a chave é apagada, para nunca existir contador sem expiração.
// Falhas do cache não bloqueiam a requisição.
func RateLimiter(client cache.Client, limit int, window time.Duration, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			key := "rate-limit:" + ip
			ctx := r.Context()

			count, err := client.Incr(ctx, key)
			if err != nil {
				log.Warn("Rate limit indisponível; requisição liberada.", map[string]interface{}{"ip": ip, "error": err.Error()})
				next.ServeHTTP(w, r)
				return
			}
			if count == 1 {
				if err := client.Expire(ctx, key, window); err != nil {
					log.Warn("Falha ao iniciar janela de rate limit.", map[string]interface{}{"ip": ip, "error": err.Error()})
					if delErr := client.Delete(ctx, key); delErr != nil {
						log.Warn("Falha ao descartar contador sem TTL.", map[string]interface{}{"ip": ip, "error": delErr.Error()})
					}
				}
			}

			if count > int64(limit) {
				writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Limite de requisições excedido.")
				return
			}

			remaining := limit - int(count)
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			next.ServeHTTP(w, r)
		})
	}
}
