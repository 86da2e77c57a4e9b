package api

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"runtime/debug"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mandimonitor/core/internal/metrics"
	"github.com/mandimonitor/core/internal/storage"
	"github.com/mandimonitor/core/pkg/models"
)

// ErrorResponse is the JSON body returned for any non-2xx response.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// MetricsResponse is the Admin Reader's integer-count surface (spec.md §6).
type MetricsResponse struct {
	Users             int `json:"users"`
	WatchCreators     int `json:"watch_creators"`
	LiveWatches       int `json:"live_watches"`
	Clicks            int `json:"clicks"`
	ScrapeObservations int `json:"scrape_observations"`
}

// Server is the Admin Reader HTTP API: two read-only operations (metrics
// counts and the prices CSV export) gated by Basic Auth, plus an ungated
// health check that never touches the database, a readiness probe, and a
// Prometheus scrape endpoint.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	logger     *slog.Logger

	users        *storage.UserStore
	watches      *storage.WatchStore
	clicks       *storage.ClickStore
	observations *storage.PriceObservationStore

	adminUser string
	adminPass string

	host string
	port int

	ready atomic.Bool
}

// Option configures the server
type Option func(*Server)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithHost sets the server host
func WithHost(host string) Option {
	return func(s *Server) { s.host = host }
}

// WithPort sets the server port
func WithPort(port int) Option {
	return func(s *Server) { s.port = port }
}

// New creates the Admin Reader API server over the given stores, gated by
// adminUser/adminPass Basic Auth credentials.
func New(
	users *storage.UserStore,
	watches *storage.WatchStore,
	clicks *storage.ClickStore,
	observations *storage.PriceObservationStore,
	adminUser, adminPass string,
	opts ...Option,
) *Server {
	s := &Server{
		logger:       slog.Default(),
		users:        users,
		watches:      watches,
		clicks:       clicks,
		observations: observations,
		adminUser:    adminUser,
		adminPass:    adminPass,
		host:         "0.0.0.0",
		port:         8080,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.setupRouter()
	return s
}

// SetReady sets the server readiness state
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
	s.logger.Info("server readiness changed", slog.Bool("ready", ready))
}

// IsReady returns whether the server is ready to accept traffic
func (s *Server) IsReady() bool {
	return s.ready.Load()
}

func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(s.requestIDMiddleware())
	router.Use(s.metricsMiddleware())
	router.Use(s.loggingMiddleware())
	router.Use(s.recoveryMiddleware())

	// Health never touches the database (spec.md §6).
	router.GET("/healthz", s.handleHealth)
	router.GET("/ready", s.handleReady)

	// Prometheus scrape endpoint.
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	admin := router.Group("/admin")
	admin.Use(gin.BasicAuth(gin.Accounts{s.adminUser: s.adminPass}))
	{
		admin.GET("/metrics", s.handleAdminMetrics)
		admin.GET("/prices.csv", s.handlePricesCSV)
	}

	s.router = router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	s.logger.Info("starting API server", slog.String("addr", addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	return s.httpServer.Shutdown(ctx)
}

// Router returns the Gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Handlers

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleReady(c *gin.Context) {
	if !s.IsReady() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) handleAdminMetrics(c *gin.Context) {
	ctx := c.Request.Context()

	users, err := s.users.CountUsers(ctx)
	if err != nil {
		s.internalError(c, err)
		return
	}
	creators, err := s.users.CountWatchCreators(ctx)
	if err != nil {
		s.internalError(c, err)
		return
	}
	live, err := s.watches.CountLive(ctx)
	if err != nil {
		s.internalError(c, err)
		return
	}
	clicks, err := s.clicks.CountAll(ctx)
	if err != nil {
		s.internalError(c, err)
		return
	}
	scraped, err := s.observations.CountBySource(ctx, models.SourceScrape)
	if err != nil {
		s.internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, MetricsResponse{
		Users:              users,
		WatchCreators:      creators,
		LiveWatches:        live,
		Clicks:             clicks,
		ScrapeObservations: scraped,
	})
}

// handlePricesCSV streams the Price Observations table in insertion order,
// never buffering the full result set in memory.
func (s *Server) handlePricesCSV(c *gin.Context) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="price_observations.csv"`)

	w := csv.NewWriter(c.Writer)
	if err := w.Write([]string{"id", "watch_id", "asin", "price", "source", "fetched_at"}); err != nil {
		s.internalError(c, err)
		return
	}

	err := s.observations.StreamAll(c.Request.Context(), func(obs models.PriceObservation) error {
		return w.Write([]string{
			strconv.FormatInt(obs.ID, 10),
			obs.WatchID,
			obs.ASIN,
			strconv.FormatInt(int64(obs.Price), 10),
			string(obs.Source),
			obs.FetchedAt.UTC().Format(time.RFC3339),
		})
	})
	if err != nil {
		s.logger.Error("prices csv stream failed", slog.String("error", err.Error()))
	}
	w.Flush()
}

func (s *Server) internalError(c *gin.Context, err error) {
	s.logger.Error("admin handler failed", slog.String("error", err.Error()), slog.String("request_id", c.GetString("request_id")))
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:     "internal server error",
		RequestID: c.GetString("request_id"),
	})
}

// Middleware

var validRequestIDRegex = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,128}$`)

func isValidRequestID(id string) bool {
	return id != "" && validRequestIDRegex.MatchString(id)
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if !isValidRequestID(requestID) {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

func (s *Server) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		duration := time.Since(start)
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method

		metrics.RecordHTTPRequest(method, path, status, duration)
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		s.logger.Info("request completed",
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.Int("status", status),
			slog.Duration("latency", latency),
			slog.String("request_id", c.GetString("request_id")),
			slog.String("client_ip", c.ClientIP()))
	}
}

func (s *Server) recoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				stack := string(debug.Stack())
				s.logger.Error("panic recovered",
					slog.Any("error", err),
					slog.String("stack", stack),
					slog.String("request_id", c.GetString("request_id")))

				c.JSON(http.StatusInternalServerError, ErrorResponse{
					Error:     "internal server error",
					RequestID: c.GetString("request_id"),
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}
