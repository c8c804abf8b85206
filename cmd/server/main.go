package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/launchsignal/api/internal/client"
	"github.com/launchsignal/api/internal/config"
	"github.com/launchsignal/api/internal/handler"
	"github.com/launchsignal/api/internal/middleware"
	"github.com/launchsignal/api/internal/model"
	"github.com/launchsignal/api/internal/service"
	"github.com/launchsignal/api/internal/store"
	"github.com/launchsignal/api/internal/worker"
	ws "github.com/launchsignal/api/internal/websocket"
)

// @title          LaunchSignal API
// @version        1.0
// @description    Backend API for LaunchSignal — product-launch detection and outreach.
// @host           localhost:8000
// @BasePath       /
// @schemes        http https
// @securityDefinitions.apikey BearerAuth
// @in             header
// @name           Authorization
// @description    Enter your bearer token in the format **Bearer &lt;token&gt;**
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test Redis connection
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
	}

	// Initialize Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Initialize external clients
	apifyClient := client.NewApifyClient(&cfg.Apify)
	claudeClient := client.NewClaudeClient(&cfg.Claude)
	sesClient := client.NewSESClient(&cfg.AWS)
	if !sesClient.IsConfigured() {
		log.Println("Info: SES fallback not configured, delegated providers only")
	}

	mailers := map[model.ProviderKind]client.OAuthMailer{
		model.ProviderGoogle:    client.NewGmailClient(&cfg.Google),
		model.ProviderMicrosoft: client.NewGraphClient(&cfg.Microsoft),
	}

	// Initialize stores
	userStore := store.NewUserStore(redisClient)
	profileStore := store.NewProfileStore(redisClient)
	companyStore := store.NewCompanyStore(redisClient)
	postStore := store.NewPostStore(redisClient)
	emailStore := store.NewEmailStore(redisClient)
	templateStore := store.NewTemplateStore(redisClient)
	jobStore := store.NewJobStore(redisClient)
	providerStore := store.NewProviderStore(redisClient)
	stateStore := store.NewStateStore(redisClient)
	campaignStore := store.NewCampaignStore(redisClient)

	// Initialize services
	jobService := service.NewJobService(jobStore)
	authService := service.NewAuthService(userStore, cfg.JWT)
	profileService := service.NewProfileService(profileStore, jobService, asynqClient)
	companyService := service.NewCompanyService(companyStore, jobService, asynqClient)
	postService := service.NewPostService(postStore, jobService, asynqClient)
	templateService := service.NewTemplateService(templateStore)
	emailService := service.NewEmailService(emailStore, postStore, profileStore, templateStore, jobService, asynqClient)
	oauthService := service.NewOAuthService(providerStore, stateStore, mailers)
	campaignService := service.NewCampaignService(campaignStore, postStore, profileStore, templateStore, jobService, asynqClient)
	dashboardService := service.NewDashboardService(companyStore, postStore)

	if err := templateService.SeedDefaults(ctx); err != nil {
		log.Printf("Warning: failed to seed default templates: %v", err)
	}

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService, validate)
	profileHandler := handler.NewProfileHandler(profileService, validate)
	companyHandler := handler.NewCompanyHandler(companyService, validate)
	postHandler := handler.NewPostHandler(postService, validate)
	emailHandler := handler.NewEmailHandler(emailService, validate)
	templateHandler := handler.NewTemplateHandler(templateService, validate)
	jobHandler := handler.NewJobHandler(jobService)
	oauthHandler := handler.NewOAuthHandler(oauthService)
	campaignHandler := handler.NewCampaignHandler(campaignService, validate)
	dashboardHandler := handler.NewDashboardHandler(dashboardService)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	isDebug := strings.EqualFold(cfg.Server.LogLevel, "debug")
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if isDebug {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams}\n"
		log.Println("Debug logging enabled")
	}
	app.Use(logger.New(logger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Base URL - timestamp
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"timestamp": time.Now().Unix(),
		})
	})

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"redis": redisClient.Ping(c.Context()).Err() == nil,
				"ses":   sesClient.IsConfigured(),
			},
		})
	})

	// Public auth routes
	app.Post("/api/auth/register", authHandler.Register)
	app.Post("/api/auth/login", authHandler.Login)

	// OAuth callback is hit by the provider's browser redirect, so it
	// cannot carry a bearer token. The one-time state authenticates it.
	app.Get("/api/oauth/callback", oauthHandler.Callback)

	// API routes
	api := app.Group("/api", authMiddleware.Authenticate())

	// Profile routes
	profiles := api.Group("/profiles")
	profiles.Post("/", profileHandler.Add)
	profiles.Get("/", profileHandler.List)
	profiles.Post("/scrape", rateLimiter.ScrapeLimit(cfg.RateLimit.ScrapePerHour), profileHandler.Scrape)
	profiles.Get("/:id", profileHandler.Get)
	profiles.Delete("/:id", profileHandler.Delete)

	// Company routes
	companies := api.Group("/companies")
	companies.Post("/", companyHandler.Add)
	companies.Get("/", companyHandler.List)
	companies.Get("/:id", companyHandler.Get)
	companies.Post("/:id/scrape-posts", rateLimiter.ScrapeLimit(cfg.RateLimit.ScrapePerHour), companyHandler.ScrapePosts)

	// Post routes
	posts := api.Group("/posts")
	posts.Get("/", postHandler.List)
	posts.Get("/launches", postHandler.Launches)
	posts.Post("/analyze", rateLimiter.AnalyzeLimit(cfg.RateLimit.AnalyzePerHour), postHandler.Analyze)
	posts.Get("/:id", postHandler.Get)
	posts.Delete("/:id", postHandler.Delete)

	// Email routes
	emails := api.Group("/emails")
	emails.Get("/", emailHandler.List)
	emails.Post("/generate", rateLimiter.EmailLimit(cfg.RateLimit.EmailPerHour), emailHandler.Generate)
	emails.Post("/send", rateLimiter.EmailLimit(cfg.RateLimit.EmailPerHour), emailHandler.Send)
	emails.Get("/:id", emailHandler.Get)
	emails.Delete("/:id", emailHandler.Delete)

	// Template routes
	templates := api.Group("/templates")
	templates.Post("/", templateHandler.Create)
	templates.Get("/", templateHandler.List)
	templates.Get("/:id", templateHandler.Get)
	templates.Put("/:id", templateHandler.Update)
	templates.Delete("/:id", templateHandler.Delete)

	// Campaign routes
	campaigns := api.Group("/campaigns")
	campaigns.Post("/", campaignHandler.Create)
	campaigns.Get("/", campaignHandler.List)
	campaigns.Get("/:id", campaignHandler.Get)
	campaigns.Delete("/:id", campaignHandler.Delete)
	campaigns.Post("/:id/add-profiles", campaignHandler.AddProfiles)
	campaigns.Delete("/:id/profiles/:profileId", campaignHandler.RemoveProfile)
	campaigns.Post("/:id/generate-emails", rateLimiter.EmailLimit(cfg.RateLimit.EmailPerHour), campaignHandler.GenerateEmails)
	campaigns.Post("/:id/send-emails", rateLimiter.EmailLimit(cfg.RateLimit.EmailPerHour), campaignHandler.SendEmails)

	// Dashboard routes
	api.Get("/dashboard/stats", dashboardHandler.Stats)

	// Job routes
	jobs := api.Group("/jobs")
	jobs.Get("/", jobHandler.List)
	jobs.Get("/:id", jobHandler.Get)

	// OAuth routes
	oauth := api.Group("/oauth")
	oauth.Get("/providers", oauthHandler.List)
	oauth.Delete("/providers/:id", oauthHandler.Disconnect)
	oauth.Get("/:provider/authorize", oauthHandler.Authorize)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		jobID := c.Params("jobId")
		hub.HandleConnection(c, jobID)
	}))

	// Start Asynq worker server
	go startWorkerServer(cfg, jobService, oauthService, apifyClient, claudeClient, mailers, sesClient,
		profileStore, postStore, companyStore, emailStore, templateStore, userStore, campaignStore, hub)

	// Stale-job reaper
	reaper := service.NewReaper(jobService, cfg.Worker.StaleAfter)
	if err := reaper.Start(); err != nil {
		log.Printf("Warning: reaper not started: %v", err)
	}
	defer reaper.Stop()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func startWorkerServer(
	cfg *config.Config,
	jobService *service.JobService,
	oauthService *service.OAuthService,
	apifyClient *client.ApifyClient,
	claudeClient *client.ClaudeClient,
	mailers map[model.ProviderKind]client.OAuthMailer,
	sesClient *client.SESClient,
	profileStore *store.ProfileStore,
	postStore *store.PostStore,
	companyStore *store.CompanyStore,
	emailStore *store.EmailStore,
	templateStore *store.TemplateStore,
	userStore *store.UserStore,
	campaignStore *store.CampaignStore,
	hub *ws.Hub,
) {
	asynqLogLevel := asynq.InfoLevel
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		asynqLogLevel = asynq.DebugLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "warn") {
		asynqLogLevel = asynq.WarnLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "error") {
		asynqLogLevel = asynq.ErrorLevel
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: cfg.Worker.Concurrency,
			Queues: map[string]int{
				service.QueueScrape:  4,
				service.QueueAnalyze: 3,
				service.QueueEmail:   3,
			},
			LogLevel: asynqLogLevel,
		},
	)

	outreach := &worker.StoreOutreach{
		Profiles:  profileStore,
		Posts:     postStore,
		Companies: companyStore,
		Templates: templateStore,
		Users:     userStore,
	}

	scrapeWorker := worker.NewScrapeWorker(jobService, profileStore, postStore, companyStore, apifyClient, hub, cfg.Worker)
	analyzeWorker := worker.NewAnalyzeWorker(jobService, postStore, claudeClient, hub, cfg.Worker)
	emailWorker := worker.NewEmailWorker(jobService, emailStore, outreach, oauthService, campaignStore, mailers, sesClient, hub, cfg.Worker)

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypeProfileScrape, scrapeWorker.ProcessProfileTask)
	mux.HandleFunc(service.TaskTypeCompanyPostScrape, scrapeWorker.ProcessCompanyPostTask)
	mux.HandleFunc(service.TaskTypePostAnalysis, analyzeWorker.ProcessTask)
	mux.HandleFunc(service.TaskTypeEmailGeneration, emailWorker.ProcessGenerationTask)
	mux.HandleFunc(service.TaskTypeEmailSend, emailWorker.ProcessSendTask)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
