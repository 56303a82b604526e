package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"fruitbox_backend/internal/controller"
	"fruitbox_backend/internal/middleware"
	"fruitbox_backend/internal/model"
	"fruitbox_backend/pkg/checkout"
	"fruitbox_backend/pkg/config"
	jobs "fruitbox_backend/pkg/cron"
	"fruitbox_backend/pkg/database"
	"fruitbox_backend/pkg/email"
	"fruitbox_backend/pkg/logger"
	"fruitbox_backend/pkg/payment"
	"fruitbox_backend/pkg/seed"
	"fruitbox_backend/pkg/selection"
	"fruitbox_backend/pkg/subscription"
	"fruitbox_backend/pkg/utils/jwt"
	"fruitbox_backend/pkg/utils/storage"
)

func setupRoutes(app *fiber.App) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })

	api := app.Group("/api")

	// Auth
	auth := api.Group("/auth")
	auth.Post("/register", controller.Register)
	auth.Post("/login", controller.Login)

	// Catálogo público
	api.Get("/products", controller.ListProducts)
	api.Get("/products/:slug", controller.GetProduct)
	api.Get("/plans", controller.ListPlans)
	api.Get("/plans/:slug", controller.GetPlan)
	api.Post("/plans/:slug/validate", controller.ValidatePlanSelection)

	// Seleção em andamento (cookie)
	api.Get("/selection", controller.GetSelection)
	api.Put("/selection", controller.SaveSelection)
	api.Delete("/selection", controller.ClearSelection)

	// Retorno do gateway e webhook
	api.Get("/checkout/success", controller.CheckoutSuccess)
	api.Post("/webhook", controller.HandleStripeWebhook)

	protected := api.Group("", middleware.AuthMiddleware())
	protected.Get("/me", controller.GetMe)
	protected.Put("/me", controller.UpdateProfile)

	protected.Post("/checkout/subscription", controller.CreateSubscriptionCheckout)
	protected.Post("/checkout/order", controller.CreateOrderCheckout)

	subs := protected.Group("/subscriptions")
	subs.Get("/my", controller.GetMySubscriptions)
	subs.Get("/:id", controller.GetSubscription)
	subs.Post("/:id/cancel", controller.CancelSubscription)
	subs.Post("/:id/pause", controller.PauseSubscription)
	subs.Post("/:id/resume", controller.ResumeSubscription)

	orders := protected.Group("/orders")
	orders.Get("/my", controller.GetMyOrders)
	orders.Get("/:id", controller.GetOrder)

	// Admin
	admin := protected.Group("/admin", middleware.RequireAdmin())
	admin.Get("/products", controller.AdminListProducts)
	admin.Post("/products", controller.CreateProduct)
	admin.Put("/products/:id", controller.UpdateProduct)
	admin.Delete("/products/:id", controller.DeleteProduct)
	admin.Post("/products/:id/image", controller.UploadProductImage)

	admin.Post("/plans", controller.CreatePlan)
	admin.Put("/plans/:id", controller.UpdatePlan)
	admin.Delete("/plans/:id", controller.DeletePlan)
	admin.Post("/plans/:id/image", controller.UploadPlanImage)

	admin.Get("/subscriptions", controller.AdminListSubscriptions)
	admin.Get("/orders", controller.AdminListOrders)
	admin.Put("/orders/:id/status", controller.UpdateOrderStatus)

	admin.Get("/users", controller.AdminListUsers)
	admin.Put("/users/:id/role", controller.AdminUpdateUserRole)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger ainda não configurado, usa o padrão
		log.Fatal().Err(err).Msg("Could not load configuration")
	}
	logger.Init(cfg.Log.Level, cfg.Log.Pretty)
	jwt.Configure(cfg.JWT.Secret, cfg.JWT.TTL)

	loc, err := cfg.Store.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid store timezone")
	}

	if err := database.InitDB(cfg.Database); err != nil {
		log.Fatal().Err(err).Msg("Could not connect to database")
	}
	db := database.GetDB()
	if err := database.MigrateDatabase(db, model.AllModels()...); err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
	if err := seed.SeedCatalog(db); err != nil {
		log.Warn().Err(err).Msg("Catalog seed failed")
	}

	ctx := context.Background()

	redisClient, err := selection.Connect(ctx, cfg.Redis.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not connect to Redis")
	}
	defer redisClient.Close()

	if err := email.InitEmailService(cfg.Email); err != nil {
		log.Fatal().Err(err).Msg("Could not initialize email service")
	}
	notifier := email.NewNotifier(db, email.GlobalEmailService)

	gw := payment.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret, payment.BreakerConfig{
		FailureThreshold: cfg.Stripe.BreakerFailures,
		OpenTimeout:      cfg.Stripe.BreakerOpenDelay,
	})

	resolver := checkout.NewResolver(db, gw,
		checkout.WithLocation(loc),
		checkout.WithNotifier(notifier),
	)
	manager := subscription.NewManager(db, gw, subscription.WithNotifier(notifier))

	var images storage.ImageStore
	r2, err := storage.NewR2Store(ctx, cfg.R2)
	switch {
	case errors.Is(err, storage.ErrNotConfigured):
		log.Warn().Msg("R2 not configured, image upload disabled")
	case err != nil:
		log.Fatal().Err(err).Msg("Could not initialize R2 storage")
	default:
		images = r2
	}

	controller.InitSelectionController(selection.NewStore(redisClient, cfg.Redis.SelectionTTL))
	controller.InitCheckoutController(gw, resolver, cfg.Server.AppBaseURL, cfg.Store.Currency)
	controller.InitSubscriptionController(manager)
	controller.InitUploadController(images)

	scheduler := cron.New(cron.WithLocation(loc))
	if err := jobs.InitDeliveryCron(scheduler, db, loc); err != nil {
		log.Fatal().Err(err).Msg("Could not schedule delivery job")
	}
	if err := jobs.InitLowStockCron(scheduler, db, email.GlobalEmailService, cfg.Store.LowStockThreshold); err != nil {
		log.Fatal().Err(err).Msg("Could not schedule low stock job")
	}
	scheduler.Start()

	app := fiber.New(fiber.Config{
		BodyLimit: 12 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			if code >= fiber.StatusInternalServerError {
				log.Error().Err(err).Str("path", c.Path()).Msg("Request failed")
				return c.Status(code).JSON(fiber.Map{"error": "Erro interno, tente novamente", "code": "internal_error"})
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(recover.New())
	app.Use(middleware.RequestLogger())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.Server.AllowedOrigins, ","),
		AllowCredentials: true,
	}))

	setupRoutes(app)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit

		log.Info().Msg("Shutting down")
		<-scheduler.Stop().Done()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error().Err(err).Msg("Shutdown failed")
		}
	}()

	log.Info().Str("port", cfg.Server.Port).Msg("Server is running")
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}
