// Package api exposes lookups, scans and the stored leads over HTTP for
// the dashboard.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ppiankov/leadmaster/internal/model"
	"github.com/ppiankov/leadmaster/internal/permits"
	"github.com/ppiankov/leadmaster/internal/store"
)

// Pipeline runs lookups and scans; *pipeline.Pipeline satisfies it
type Pipeline interface {
	ManualSearch(ctx context.Context, company string) (*model.LookupResult, error)
	NationalScan(ctx context.Context, progress model.ProgressFunc) *model.ScanReport
}

// Store is the read and user-action side of the store; *store.Store
// satisfies it
type Store interface {
	Ping(ctx context.Context) error
	ListClients(ctx context.Context, f store.ClientFilter) ([]model.Client, error)
	GetClient(ctx context.Context, name string) (*model.Client, error)
	SetStatus(ctx context.Context, name string, next model.Status) error
	ListSignals(ctx context.Context, f store.SignalFilter) ([]model.Signal, error)
	MarkRead(ctx context.Context, id uint) error
}

// PermitSource lists permit notices; *permits.Fetcher satisfies it
type PermitSource interface {
	Fetch(ctx context.Context, maxPerFeed int) []permits.Permit
}

// Server holds the handlers' collaborators
type Server struct {
	pipeline Pipeline
	store    Store
	permits  PermitSource
	scans    *scanRegistry
	timeout  time.Duration
}

// Options configure a Server
type Options struct {
	// Progress also receives every scan update, e.g. a NATS publisher
	Progress model.ProgressFunc
	// LookupTimeout bounds a synchronous lookup request
	LookupTimeout time.Duration
}

// NewServer creates a server. Scans started through it run on ctx and
// are cancelled when ctx ends.
func NewServer(ctx context.Context, p Pipeline, st Store, ps PermitSource, opts Options) *Server {
	if opts.LookupTimeout <= 0 {
		opts.LookupTimeout = 2 * time.Minute
	}
	return &Server{
		pipeline: p,
		store:    st,
		permits:  ps,
		scans:    newScanRegistry(ctx, p, opts.Progress),
		timeout:  opts.LookupTimeout,
	}
}

// WaitScans blocks until running scans have returned. Call it after the
// server context is cancelled and before closing the store.
func (s *Server) WaitScans() {
	s.scans.wait()
}

// Router builds the gin engine with every route registered
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/health", s.handleHealth)

	g := r.Group("/api")
	g.GET("/lookup", s.handleLookup)
	g.POST("/scans", s.handleStartScan)
	g.GET("/scans/:id", s.handleGetScan)
	g.DELETE("/scans/:id", s.handleCancelScan)
	g.GET("/clients", s.handleListClients)
	g.GET("/clients/:name", s.handleGetClient)
	g.PUT("/clients/:name/status", s.handleSetStatus)
	g.GET("/signals", s.handleListSignals)
	g.POST("/signals/:id/read", s.handleMarkRead)
	g.GET("/permits", s.handlePermits)

	return r
}

// requestLogger logs each request through zap instead of gin's writer
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		zap.L().Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
