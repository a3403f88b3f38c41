package server

import (
	"context"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Skufu/rxguard/internal/analysis"
	"github.com/Skufu/rxguard/internal/store"
)

// Repository is the read side of storage used directly by handlers.
type Repository interface {
	Ping(ctx context.Context) error
	ReportsForPatient(ctx context.Context, patientID string) ([]store.Report, error)
	SearchDrugs(ctx context.Context, query string) ([]store.Drug, error)
}

type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (analysis.Result, error)
}

type Authenticator interface {
	Register(ctx context.Context, username, password string) error
	Login(ctx context.Context, username, password string) (string, error)
}

type Options struct {
	Repo         Repository
	Analyzer     Analyzer
	Auth         Authenticator
	Logger       zerolog.Logger
	UploadDir    string
	MaxBodyBytes int64
	StaticRoot   string
	CORSOrigins  []string
}

type handlers struct {
	repo      Repository
	analyzer  Analyzer
	auth      Authenticator
	logger    zerolog.Logger
	uploadDir string
}

func NewRouter(opts Options) *gin.Engine {
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 20 << 20
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router := gin.New()
	router.MaxMultipartMemory = maxBody
	router.Use(
		RequestID(),
		Logger(opts.Logger),
		Recovery(opts.Logger),
		limitBodySize(maxBody),
		cors.New(cors.Config{
			AllowOrigins:  origins,
			AllowMethods:  []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", requestIDHeader},
			ExposeHeaders: []string{requestIDHeader},
			MaxAge:        12 * time.Hour,
		}),
	)

	h := &handlers{
		repo:      opts.Repo,
		analyzer:  opts.Analyzer,
		auth:      opts.Auth,
		logger:    opts.Logger,
		uploadDir: opts.UploadDir,
	}

	if opts.StaticRoot != "" {
		router.StaticFile("/", filepath.Join(opts.StaticRoot, "index.html"))
		router.StaticFile("/styles.css", filepath.Join(opts.StaticRoot, "styles.css"))
		router.StaticFile("/app.js", filepath.Join(opts.StaticRoot, "app.js"))
		router.StaticFile("/config.js", filepath.Join(opts.StaticRoot, "config.js"))
		router.Static("/static", opts.StaticRoot)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/readyz", h.readyz)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.POST("/register", h.register)
	api.POST("/login", h.login)
	api.GET("/history", h.history)
	api.GET("/drugs", h.drugs)
	api.POST("/analyze", h.analyze)

	return router
}

func (h *handlers) readyz(c *gin.Context) {
	if h.repo == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "disabled"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.repo.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "degraded",
			"db":     "unhealthy: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "ok"})
}
