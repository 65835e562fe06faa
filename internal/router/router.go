package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"purse/config"
	"purse/internal/handler"
	"purse/internal/ledger"
	"purse/internal/middleware"
	"purse/internal/repository"
	"purse/internal/service"
	"purse/pkg/gateway"
	"purse/pkg/reference"
)

func Setup(cfg *config.Config, db *gorm.DB, log *zap.Logger) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.RateLimit(middleware.NewInMemoryRateLimiter(100, 60*time.Second)))

	// Stores
	txManager := repository.NewTxManager(db)
	userRepo := repository.NewUserRepository(db)
	walletRepo := repository.NewWalletRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)

	// Services
	refs := reference.NewGenerator()
	ledgerSvc := ledger.NewService(txManager, walletRepo, transactionRepo, userRepo, refs, log)
	authSvc := service.NewAuthService(cfg, txManager, userRepo, walletRepo, log)
	provider := gateway.NewSimulated(cfg.Gateway.SettleTimeout)

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc)
	walletHandler := handler.NewWalletHandler(ledgerSvc, provider, log)

	authMw := middleware.AuthRequired(&cfg.JWT)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "message": "Purse wallet service is running"})
	})

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
		}

		wallet := api.Group("/wallet")
		wallet.Use(authMw)
		{
			wallet.GET("/balance", walletHandler.GetBalance)
			wallet.POST("/fund", walletHandler.Fund)
			wallet.POST("/withdraw", walletHandler.Withdraw)
			wallet.POST("/transfer", walletHandler.Transfer)
			wallet.GET("/transactions", walletHandler.ListTransactions)
		}
	}

	return r
}
