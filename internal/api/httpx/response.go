package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"varistock/internal/domain"
	apperror "varistock/internal/errors"
	"varistock/internal/pkg/logger"
)

// MaxBodyBytes limita o corpo JSON aceito pelos handlers.
const MaxBodyBytes = 1 << 20

// Respond envia a resposta padronizada: data com successStatus, ou o erro traduzido para HTTP.
func Respond(w http.ResponseWriter, r *http.Request, log logger.Logger, data interface{}, err error, successStatus int) {
	if err == nil {
		if data == nil {
			w.WriteHeader(successStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(successStatus)
		if jsonErr := json.NewEncoder(w).Encode(data); jsonErr != nil {
			log.Error("Falha ao codificar JSON de resposta", jsonErr)
		}
		return
	}

	// TRATAMENTO DE ERROS
	status, category, message := apperror.MapToHTTPStatus(err)
	if status >= 500 {
		log.Error(fmt.Sprintf("Erro de Servidor: %s", category), err)
	} else {
		log.Debug(fmt.Sprintf("Requisição rejeitada com status %d. Categoria: %s", status, category), map[string]interface{}{"path": r.URL.Path})
	}

	body := domain.ErrorResponse{Code: status, Category: category, Message: message}
	var insufficient *apperror.InsufficientStockError
	if errors.As(err, &insufficient) {
		available := insufficient.Available
		body.Available = &available
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// DecodeJSON lê o corpo da requisição em dst, rejeitando campos desconhecidos.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperror.NewValidationError("Corpo da requisição vazio.")
		}
		return apperror.NewValidationError("Payload inválido. Verifique o formato JSON.")
	}
	return nil
}

// QueryInt lê um inteiro da query string; ausente devolve def.
func QueryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.NewValidationError(fmt.Sprintf("O parâmetro %s deve ser um número inteiro.", key))
	}
	return n, nil
}
