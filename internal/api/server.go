package api

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/naperu/leadlens/internal/service"
	"github.com/naperu/leadlens/pkg/config"
	"github.com/naperu/leadlens/pkg/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthCheck probes one backing dependency
type HealthCheck func(ctx context.Context) error

type Server struct {
	app       *fiber.App
	cfg       *config.Config
	services  *service.Services
	validator *validator.Validate
	checks    map[string]HealthCheck
	log       logger.Logger
}

func NewServer(cfg *config.Config, services *service.Services, checks map[string]HealthCheck, log logger.Logger) *Server {
	if log == nil {
		log = logger.NewNop()
	}
	app := fiber.New(fiber.Config{
		AppName:               "LeadLens",
		DisableStartupMessage: !cfg.IsDevelopment(),
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"success": false,
				"error":   err.Error(),
			})
		},
	})

	app.Use(recover.New())
	app.Use(Metrics())
	if cfg.IsDevelopment() {
		app.Use(fiberlogger.New(fiberlogger.Config{
			Format:     "${time} | ${status} | ${latency} | ${method} ${path}\n",
			TimeFormat: "15:04:05",
		}))
	}

	app.Use(helmet.New(helmet.Config{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}))

	// Dashboard loads are expensive; 120 per minute per IP is plenty for a UI.
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"error":   "too many requests, please slow down",
			})
		},
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/health" || c.Path() == "/metrics"
		},
	}))

	corsOrigins := "http://localhost:3000,http://localhost:8080"
	if cfg.IsProduction() && len(cfg.CORSOrigins) > 0 {
		corsOrigins = strings.Join(cfg.CORSOrigins, ",")
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: true,
	}))

	server := &Server{
		app:       app,
		cfg:       cfg,
		services:  services,
		validator: validator.New(),
		checks:    checks,
		log:       log.With("component", "http"),
	}

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	s.app.Get("/health", s.handleHealth)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := s.app.Group("/api", s.authMiddleware)

	dashboard := api.Group("/dashboard")
	dashboard.Get("/", s.handleDashboard)
	dashboard.Get("/panels", s.handleGetPanels)
	dashboard.Get("/summary", s.handleSummary)
	dashboard.Get("/sources", s.handleSources)
	dashboard.Get("/agents", s.handleAgents)
	dashboard.Get("/daily", s.handleDaily)
	dashboard.Get("/today", s.handleToday)
	dashboard.Get("/response-times", s.handleResponseTimes)
	dashboard.Post("/refresh", s.adminMiddleware, s.handleRefresh)

	api.Get("/leads/:id/attribution", s.handleLeadAttribution)
}

// App exposes the fiber app, mostly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	deps := fiber.Map{}
	status := "ok"
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			deps[name] = err.Error()
			status = "degraded"
			continue
		}
		deps[name] = "ok"
	}

	code := fiber.StatusOK
	if status != "ok" {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(fiber.Map{
		"status":       status,
		"time":         time.Now(),
		"dependencies": deps,
	})
}

func (s *Server) authMiddleware(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		authHeader = c.Cookies("auth-token")
	}

	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "Unauthorized",
		})
	}

	claims, err := s.services.Auth.ValidateToken(token, s.cfg.JWTSecret)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid token",
		})
	}

	c.Locals("claims", claims)
	c.Locals("user_id", claims.UserID)
	c.Locals("account_id", claims.AccountID)
	return c.Next()
}

func (s *Server) adminMiddleware(c *fiber.Ctx) error {
	claims := c.Locals("claims").(*service.JWTClaims)
	if !claims.IsAdmin() {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"error":   "Forbidden: admin access required",
		})
	}
	return c.Next()
}

func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) ShutdownWithTimeout(timeout time.Duration) error {
	return s.app.ShutdownWithTimeout(timeout)
}
