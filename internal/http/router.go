// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging, panic recovery, metrics, compression,
// CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/pvidalis/go-bookstore-backend/internal/config"
	"github.com/pvidalis/go-bookstore-backend/internal/domain"
	"github.com/pvidalis/go-bookstore-backend/internal/http/handlers"
	"github.com/pvidalis/go-bookstore-backend/internal/http/middleware"
	"github.com/pvidalis/go-bookstore-backend/internal/repo"
	"github.com/pvidalis/go-bookstore-backend/internal/services"
)

// The shims below adapt the repository free functions to the store interfaces
// the services consume. They keep the services decoupled from the concrete
// repo package while reusing the existing functions.

type bookStoreShim struct{}

// Get proxies repo.GetBook.
func (bookStoreShim) Get(ctx context.Context, db *gorm.DB, id string) (*domain.Book, error) {
	return repo.GetBook(ctx, db, id)
}

// Save proxies repo.SaveBook.
func (bookStoreShim) Save(ctx context.Context, db *gorm.DB, b *domain.Book) error {
	return repo.SaveBook(ctx, db, b)
}

// DecrementInventoryIfAvailable proxies the atomic conditional debit.
func (bookStoreShim) DecrementInventoryIfAvailable(ctx context.Context, db *gorm.DB, id string, qty int) (bool, error) {
	return repo.DecrementInventoryIfAvailable(ctx, db, id, qty)
}

// IncrementInventory proxies repo.IncrementInventory.
func (bookStoreShim) IncrementInventory(ctx context.Context, db *gorm.DB, id string, qty int) error {
	return repo.IncrementInventory(ctx, db, id, qty)
}

type userStoreShim struct{}

// Get proxies repo.GetUser.
func (userStoreShim) Get(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	return repo.GetUser(ctx, db, id)
}

type historyStoreShim struct{}

// Append proxies repo.AppendPurchase.
func (historyStoreShim) Append(ctx context.Context, db *gorm.DB, rec *domain.PurchaseRecord) error {
	return repo.AppendPurchase(ctx, db, rec)
}

// ListByUser proxies repo.ListPurchasesByUser.
func (historyStoreShim) ListByUser(ctx context.Context, db *gorm.DB, userID string) ([]domain.PurchaseRecord, error) {
	return repo.ListPurchasesByUser(ctx, db, userID)
}

// ListUserIDsWithHistory proxies repo.ListUserIDsWithHistory.
func (historyStoreShim) ListUserIDsWithHistory(ctx context.Context, db *gorm.DB) ([]string, error) {
	return repo.ListUserIDsWithHistory(ctx, db)
}

// DistinctBookIDs proxies repo.DistinctBookIDsByUser.
func (historyStoreShim) DistinctBookIDs(ctx context.Context, db *gorm.DB, userID string) (map[string]struct{}, error) {
	return repo.DistinctBookIDsByUser(ctx, db, userID)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), idempotency and rate
// limiting, compression, CORS and security headers, health and metrics
// endpoints, and then mounts the versioned public API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured request logs
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Gzip compression
//  7. Metrics
//  8. Idempotency validator (before rate limiter to allow bypass on replay)
//  9. Rate limiter (per user/IP, bypass on replay)
//  10. CORS and security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured request logging
	r.Use(middleware.Logger())

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Compress responses; /metrics stays plain for scrapers
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
		},
		func(ctx context.Context, userID, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, userID, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	// 9) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 10) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist.
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// API docs (optional)
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db
	checkoutSvc := services.NewCheckoutService(db, bookStoreShim{}, userStoreShim{}, historyStoreShim{})
	recSvc := services.NewRecommendationService(db, userStoreShim{}, historyStoreShim{})
	if cfg.RecommendLimit > 0 {
		recSvc.MaxResults = cfg.RecommendLimit
	}
	h := handlers.New(
		services.NewCatalogService(db),
		services.NewUserService(db),
		services.NewCartService(db, checkoutSvc),
		checkoutSvc,
		recSvc,
	)
	h.IdempotencyTTL = cfg.IdempotencyTTL

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		// Catalog
		api.POST("/books", h.CreateBook)
		api.GET("/books", h.ListBooks)
		api.GET("/books/search", h.SearchBooks)
		api.GET("/books/filter/price", h.FilterBooksByPrice)
		api.GET("/books/filter/inventory", h.FilterBooksByInventory)
		api.GET("/books/:id", h.GetBook)
		api.PUT("/books/:id", h.UpdateBook)
		api.DELETE("/books/:id", h.DeleteBook)

		// Users
		api.POST("/users", h.CreateUser)
		api.GET("/users", h.ListUsers)
		api.GET("/users/:id", h.GetUser)
		api.PUT("/users/:id", h.UpdateUser)
		api.DELETE("/users/:id", h.DeleteUser)

		// Cart
		api.GET("/cart", h.GetCart)
		api.POST("/cart/items", h.AddCartItem)
		api.DELETE("/cart/items/:bookId", h.RemoveCartItem)
		api.DELETE("/cart", h.ClearCart)
		api.POST("/cart/checkout", h.CheckoutCart)

		// Purchases
		api.POST("/checkout", h.Checkout)
		api.GET("/purchases", h.ListPurchases)
		api.GET("/purchases/:id", h.GetPurchase)

		// Recommendations
		api.GET("/recommendations", h.Recommendations)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
