package cli

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"library-backend/internal/cellar/producers"
	"library-backend/internal/cellar/regions"
	"library-backend/internal/cellar/wines"
	"library-backend/internal/library/authors"
	"library-backend/internal/library/books"
	"library-backend/internal/library/borrowing"
	"library-backend/internal/library/labels"
	"library-backend/internal/platform/apidocs"
	"library-backend/internal/platform/apperr"
	"library-backend/internal/platform/auth"
	"library-backend/internal/platform/clock"
	"library-backend/internal/platform/config"
	"library-backend/internal/platform/db"
	"library-backend/internal/platform/ids"
	"library-backend/internal/platform/metrics"
	"library-backend/internal/platform/middleware"
)

// app holds every service built from one config and one connection pool.
type app struct {
	cfg  *config.Config
	log  *zap.Logger
	conn *sqlx.DB

	authors   *authors.Service
	books     *books.Service
	borrowing *borrowing.Service
	labels    *labels.Service
	regions   *regions.Service
	producers *producers.Service
	wines     *wines.Service
	auth      *auth.Service

	limiter *middleware.RateLimiter
}

func newApp(cfg *config.Config, log *zap.Logger, conn *sqlx.DB, clk clock.Clock) *app {
	tx := db.NewTransactor(conn)
	gen := ids.NewULID()

	a := &app{cfg: cfg, log: log, conn: conn}
	a.authors = authors.NewService(authors.NewStore(conn), clk, gen, log)
	a.books = books.NewService(books.NewStore(conn), a.authors, tx, clk, gen, log)
	a.borrowing = borrowing.NewService(borrowing.NewStore(conn), a.books, tx, clk, gen, log, borrowing.Options{
		LoanPeriodDays: cfg.Library.LoanPeriodDays,
		MaxActive:      cfg.Library.MaxActiveBorrowings,
	})
	a.labels = labels.NewService(labels.NewStore(conn), tx, clk, log)

	a.regions = regions.NewService(regions.NewStore(conn), clk, gen, log)
	a.producers = producers.NewService(producers.NewStore(conn), a.regions, tx, clk, gen, log)
	a.wines = wines.NewService(wines.NewStore(conn), a.producers, a.regions, tx, clk, gen, log)

	a.auth = auth.NewService(auth.NewStore(conn), []byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL, clk, log.Named("auth"))
	a.limiter = middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	return a
}

func (a *app) router() *gin.Engine {
	if a.cfg.Mode == config.ModeRelease {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.AccessLog(a.log), middleware.Recovery(a.log), middleware.Metrics())
	_ = r.SetTrustedProxies(nil)

	if a.cfg.Mode == config.ModeDev {
		// CORS is only needed in development
		r.Use(cors.New(cors.Config{
			AllowOrigins:     a.cfg.CORS.AllowOrigins,
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.HeaderRequestID},
			ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "Location", "X-Label-Count"},
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowCredentials: true,
		}))
		apidocs.RegisterRoutes(r)
	}

	// health
	r.GET("/healthz", a.healthz)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api", a.limiter.Handler())
	authors.RegisterRoutes(api, a.authors)
	labels.RegisterRoutes(api, a.labels)
	books.RegisterRoutes(api, a.books)
	borrowing.RegisterRoutes(api, a.borrowing)

	staff := api.Group("", auth.RequireAuth(a.auth.Secret()))
	borrowing.RegisterMaintenance(staff, a.borrowing)
	admin := staff.Group("", auth.RequireRole(auth.RoleAdmin))
	auth.RegisterRoutes(api, admin, a.auth)

	v1 := api.Group("/v1")
	regions.RegisterRoutes(v1, a.regions)
	producers.RegisterRoutes(v1, a.producers)
	wines.RegisterRoutes(v1, a.wines)

	r.NoRoute(func(c *gin.Context) {
		apperr.Respond(c, apperr.NotFoundBy("Route", "path", c.Request.URL.Path))
	})
	return r
}

func (a *app) healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := a.conn.PingContext(ctx); err != nil {
		a.log.Warn("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
