package main

import (
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Vinton777/remnawave-STEALTHNET-Bot/config"
	"github.com/Vinton777/remnawave-STEALTHNET-Bot/database"
	"github.com/Vinton777/remnawave-STEALTHNET-Bot/handlers"
	"github.com/Vinton777/remnawave-STEALTHNET-Bot/logging"
	"github.com/Vinton777/remnawave-STEALTHNET-Bot/middleware"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ .env file not found, using system environment")
	} else {
		fmt.Println("✅ .env file loaded and applied")
	}
	cfg := config.Load()

	if err := logging.InitLogger(cfg.Env == "release"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логгера: %v", err)
	}
	defer logging.Sync()

	if err := database.InitDB(cfg); err != nil {
		log.Fatalf("❌ Ошибка подключения к БД: %v", err)
	}
	defer database.CloseDB()

	handlers.Init(cfg)

	if cfg.Env == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.SetTrustedProxies(cfg.TrustedProxies)
	r.Use(middleware.SetupCORS(cfg))

	// ========== ПУБЛИЧНЫЕ МАРШРУТЫ ==========
	r.GET("/api/health", handlers.HealthHandler)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Callbacks платёжных провайдеров и панели: всегда без авторизации
	webhooks := r.Group("/api/webhooks")
	{
		webhooks.POST("/platega", handlers.PlategaWebhookHandler)
		webhooks.POST("/remna", handlers.RemnaWebhookHandler)
	}

	api := r.Group("/api")
	{
		api.POST("/auth/login", middleware.LoginRateLimit(10, time.Minute), handlers.LoginHandler)
		api.POST("/auth/refresh", handlers.RefreshHandler)

		api.GET("/tariffs", handlers.ListTariffsHandler)
		api.POST("/clients", handlers.RegisterClientHandler)
		api.POST("/payments", handlers.CreatePaymentHandler)
	}

	// ========== АДМИНСКИЕ API ==========
	admin := r.Group("/api/admin")
	admin.Use(middleware.AdminAuth(cfg))
	{
		admin.POST("/auth/password", handlers.ChangePasswordHandler)

		admin.GET("/clients/:id", handlers.GetClientHandler)
		admin.GET("/clients/:id/payments", handlers.ListClientPaymentsHandler)
		admin.GET("/clients/:id/referral-credits", handlers.ListReferralCreditsHandler)
		admin.GET("/clients/:id/subscription-qr", handlers.SubscriptionQRHandler)
		admin.POST("/clients/:id/trial", handlers.ActivateTrialHandler)
		admin.POST("/clients/:id/purchase", handlers.PurchaseFromBalanceHandler)

		admin.POST("/payments/:id/mark-paid", handlers.AdminMarkPaidHandler)

		admin.POST("/tariffs", handlers.CreateTariffHandler)

		admin.GET("/settings", handlers.GetSettingsHandler)
		admin.PUT("/settings", handlers.UpdateSettingHandler)

		// Прокси к панели Remna
		admin.GET("/nodes", handlers.ListNodesHandler)
		admin.POST("/nodes/:uuid/enable", handlers.EnableNodeHandler)
		admin.POST("/nodes/:uuid/disable", handlers.DisableNodeHandler)
		admin.POST("/nodes/:uuid/restart", handlers.RestartNodeHandler)

		admin.GET("/remote-users", handlers.ListRemoteUsersHandler)
		admin.POST("/remote-users/:uuid/enable", handlers.EnableRemoteUserHandler)
		admin.POST("/remote-users/:uuid/disable", handlers.DisableRemoteUserHandler)
		admin.POST("/remote-users/:uuid/revoke", handlers.RevokeRemoteUserHandler)
		admin.POST("/remote-users/:uuid/reset-traffic", handlers.ResetRemoteUserTrafficHandler)
		admin.POST("/remote-users/bulk/squads", handlers.BulkUpdateSquadsHandler)

		admin.GET("/squads", handlers.ListSquadsHandler)
		admin.POST("/squads/:uuid/add-users", handlers.AddUsersToSquadHandler)
		admin.DELETE("/squads/:uuid/remove-users", handlers.RemoveUsersFromSquadHandler)

		admin.GET("/system/stats", handlers.SystemStatsHandler)
	}

	port := ":" + cfg.Port
	baseURL := "http://localhost:" + cfg.Port

	fmt.Printf("\n============================================================\n")
	fmt.Printf("   🚀 STEALTHNET Back-Office\n")
	fmt.Printf("============================================================\n\n")
	fmt.Printf("   📡 Health            %s/api/health\n", baseURL)
	fmt.Printf("   📡 Метрики           %s/metrics\n", baseURL)
	fmt.Printf("   💳 Webhook Platega   %s/api/webhooks/platega\n", baseURL)
	fmt.Printf("   💳 Webhook Remna     %s/api/webhooks/remna\n", baseURL)
	fmt.Printf("   🔐 Вход              %s/api/auth/login\n", baseURL)
	fmt.Printf("   ⚙️  Админские API    %s/api/admin/...\n\n", baseURL)
	fmt.Printf("   ⚙️  Конфигурация: порт=%s, режим=%s, БД=%s\n", cfg.Port, cfg.Env, cfg.DBName)
	fmt.Printf("   🔒 SKIP_AUTH=%v\n", cfg.SkipAuth)
	fmt.Printf("============================================================\n")

	log.Printf("🚀 Сервер запущен на порту %s", port)
	r.Run(port)
}
