package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	// Infraestrutura e utilitários
	"varistock/config"
	"varistock/internal/domain"
	"varistock/internal/pkg/cache"
	"varistock/internal/pkg/database"
	"varistock/internal/pkg/logger"
	"varistock/internal/pkg/token"

	// Camadas para Injeção de Dependências
	"varistock/internal/api/product"
	"varistock/internal/api/router"
	"varistock/internal/api/stock"
	"varistock/internal/api/transfer"
	"varistock/internal/api/user"
	"varistock/internal/api/variant"
	"varistock/internal/api/warehouse"
	"varistock/internal/repository/attributerepo"
	"varistock/internal/repository/memstore"
	"varistock/internal/repository/productrepo"
	"varistock/internal/repository/transferrepo"
	"varistock/internal/repository/userrepo"
	"varistock/internal/repository/warehouserepo"
	"varistock/internal/service/productservice"
	"varistock/internal/service/stockservice"
	"varistock/internal/service/transferservice"
	"varistock/internal/service/userservice"
	"varistock/internal/service/variantservice"
	"varistock/internal/service/warehouseservice"
)

// defaultWarehouseID é o mesmo ID semeado pela migração 00006.
const defaultWarehouseID = "00000000-0000-0000-0000-000000000001"

// stores reúne os repositórios do backend escolhido em STORAGE.
type stores struct {
	products   productservice.ProductRepository
	warehouses warehouseservice.WarehouseRepository
	attributes variantservice.AttributeCatalog
	entities   stockservice.EntityStore
	transfers  transferservice.Store
	users      userservice.UserRepository
	close      func()
}

func main() {
	log.Println("⚡ Inicializando serviço VariStock...")
	// O .env é opcional: em Docker as variáveis vêm do ambiente.
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ Aviso: Arquivo .env não encontrado ou erro de leitura. Carregando configs apenas do ambiente do sistema.")
	}

	cfg := config.LoadConfig()
	appLog := logger.NewLogger(cfg.LogLevel)
	appLog.Info("Configurações carregadas.", map[string]interface{}{"env": cfg.Environment, "storage": cfg.Storage})

	// 1. Cache (Redis), opcional
	var cacheClient cache.Client = cache.NopClient{}
	if cfg.CacheEnabled() {
		redisClient, err := cache.NewRedisClient(cfg.RedisAddr, cfg.CacheTimeout)
		if err != nil {
			appLog.Warn("Redis indisponível; seguindo sem cache e sem rate limiting.", map[string]interface{}{"addr": cfg.RedisAddr, "error": err.Error()})
		} else {
			defer redisClient.Close()
			cacheClient = redisClient
			appLog.Info("Conexão Redis estabelecida.", map[string]interface{}{"addr": cfg.RedisAddr})
		}
	}

	// 2. Repositórios
	var st stores
	switch cfg.Storage {
	case config.StorageMemory:
		st = memoryStores(appLog)
	default:
		st = postgresStores(cfg, cacheClient, appLog)
	}
	defer st.close()

	// 3. Serviços
	tokenSvc := token.NewService(cfg.JWTSecretKey, cfg.TokenExpiry)
	warehouseSvc := warehouseservice.NewService(st.warehouses, appLog)
	productSvc := productservice.NewService(st.products, st.warehouses, appLog)
	variantSvc := variantservice.NewService(st.attributes, st.products, st.warehouses, appLog)
	stockSvc := stockservice.NewService(st.entities, st.warehouses, appLog)
	transferSvc := transferservice.NewService(st.transfers, st.warehouses, appLog)
	userSvc := userservice.NewService(st.users, tokenSvc, appLog)

	if cfg.AdminEmail != "" {
		if err := userSvc.EnsureAdmin(context.Background(), cfg.AdminEmail, cfg.AdminPassword); err != nil {
			appLog.Fatal("Falha ao criar administrador inicial.", err)
		}
	}

	// 4. Handlers e Roteador
	handlers := router.Handlers{
		Product:   product.NewHandler(productSvc, appLog),
		Variant:   variant.NewHandler(variantSvc, appLog),
		Stock:     stock.NewHandler(stockSvc, appLog),
		Transfer:  transfer.NewHandler(transferSvc, appLog),
		Warehouse: warehouse.NewHandler(warehouseSvc, appLog),
		User:      user.NewHandler(userSvc, appLog),
	}
	rl := router.RateLimit{}
	if _, limited := cacheClient.(*cache.RedisClient); limited {
		rl = router.RateLimit{Limit: cfg.RateLimitMaxRequests, Window: cfg.RateLimitPeriod}
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router.NewRouter(handlers, tokenSvc, cacheClient, rl, appLog),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 5. Execução e Graceful Shutdown
	go func() {
		appLog.Info("Servidor VariStock ouvindo na porta", map[string]interface{}{"port": cfg.Port})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal("Servidor falhou.", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	appLog.Info("Sinal de encerramento recebido. Desligando servidor...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		appLog.Error("Desligamento do servidor forçado.", err)
	}

	appLog.Info("Servidor encerrado com sucesso.", nil)
}

func postgresStores(cfg *config.Config, cacheClient cache.Client, appLog logger.Logger) stores {
	db, err := database.NewPostgresDB(cfg.DatabaseURL, cfg.DBTimeout, database.DefaultPool)
	if err != nil {
		appLog.Fatal("Falha ao conectar ao banco de dados.", err)
	}
	appLog.Info("Conexão PostgreSQL estabelecida.", nil)

	productRepo := productrepo.NewProductRepository(db, cacheClient, cfg.DBTimeout, cfg.CacheTTL, appLog)
	return stores{
		products:   productRepo,
		warehouses: warehouserepo.NewWarehouseRepository(db, cfg.DBTimeout, productRepo, appLog),
		attributes: attributerepo.NewAttributeRepository(db, cfg.DBTimeout, appLog),
		entities:   productRepo,
		transfers:  transferrepo.NewTransferRepository(db, productRepo, cfg.DBTimeout, appLog),
		users:      userrepo.NewUserRepository(db, cfg.DBTimeout, appLog),
		close: func() {
			if err := db.Close(); err != nil {
				appLog.Error("Falha ao fechar conexão com o DB.", err)
			}
		},
	}
}

// memoryStores monta o backend em memória (dados somem ao reiniciar) já com o armazém padrão.
func memoryStores(appLog logger.Logger) stores {
	store := memstore.NewStore(appLog)
	if _, err := store.CreateWarehouse(context.Background(), domain.Warehouse{ID: defaultWarehouseID, Name: "Armazém Principal"}); err != nil {
		appLog.Fatal("Falha ao semear armazém padrão em memória.", err)
	}
	appLog.Warn("Usando armazenamento em memória; os dados não sobrevivem a reinícios.", nil)

	return stores{
		products:   store,
		warehouses: store,
		attributes: store,
		entities:   store,
		transfers:  store,
		users:      store,
		close:      func() {},
	}
}
