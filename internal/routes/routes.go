package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/faceatm/faceatm/internal/config"
	"github.com/faceatm/faceatm/internal/enrollment"
	"github.com/faceatm/faceatm/internal/extractor"
	"github.com/faceatm/faceatm/internal/facematch"
	"github.com/faceatm/faceatm/internal/ledger"
	"github.com/faceatm/faceatm/internal/middleware"
	"github.com/faceatm/faceatm/internal/notification"
	"github.com/faceatm/faceatm/internal/session"
)

// Deps aggregates shared dependencies required to wire routes. Extractor
// may be pre-built (tests do this); when nil it is derived from config.
type Deps struct {
	Cfg       config.Config
	DB        *pgxpool.Pool
	Cache     *redis.Client
	Logger    *slog.Logger
	Extractor extractor.Extractor
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// In-memory fallbacks are a development convenience only.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	ext := d.Extractor
	if ext == nil {
		if d.Cfg.ExtractorURL != "" {
			ext = extractor.NewHTTPExtractor(d.Cfg.ExtractorURL, d.Cfg.ExtractTimeout)
		} else {
			ext = extractor.NewStaticExtractor(nil)
		}
	}

	var ledgerBackend ledger.Ledger
	if d.DB != nil {
		ledgerBackend = ledger.NewPostgresLedger(d.DB)
	} else {
		ledgerBackend = ledger.NewInMemory()
	}

	var enrollRepo enrollment.Repository
	if d.DB != nil {
		enrollRepo = enrollment.NewPostgresRepository(d.DB)
	} else {
		enrollRepo = enrollment.NewMemoryRepository()
	}

	var sessionStore session.Store
	if d.Cache != nil {
		sessionStore = session.NewRedisStore(d.Cache, d.Cfg.SessionTTL)
	} else {
		sessionStore = session.NewMemoryStore()
	}

	enrollSvc := enrollment.NewService(enrollRepo, ext, ledgerBackend, d.Cfg.EmbeddingDim)
	matcher := facematch.New(enrollRepo, d.Cfg.MatchThreshold)
	sessionSvc := session.NewService(sessionStore, ext, matcher, enrollSvc, d.Cfg.ExtractRetries)
	notifier := notification.NewLoggerNotifier(d.Logger)
	ledgerSvc := ledger.NewService(ledgerBackend, notifier)

	enrollHandler := enrollment.NewHandler(enrollSvc)
	sessionHandler := session.NewHandler(sessionSvc)
	ledgerHandler := ledger.NewHandler(ledgerSvc)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterEnrollmentRoutes(api, enrollHandler)

	pinLimiter := middleware.PinRateLimit(d.Cache, d.Cfg.PinAttemptsMin)
	RegisterSessionRoutes(api, sessionHandler, pinLimiter)

	var idem fiber.Handler
	if d.Cache != nil {
		idem = middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)
	}
	gated := api.Group("/accounts/:identityID", middleware.SessionAuth(sessionStore), middleware.IdentityGate())
	RegisterAccountRoutes(gated, ledgerHandler, idem)

	return nil
}
