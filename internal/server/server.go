// Package server exposes the roast flow over HTTP: server-rendered pages for
// browsers and a small JSON API for the CLI.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/dyike/fupanxia/config"
	"github.com/dyike/fupanxia/internal/analysis"
	"github.com/dyike/fupanxia/internal/intake"
	"github.com/dyike/fupanxia/internal/logging"
	"github.com/dyike/fupanxia/internal/views"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	SessionCookie = "fupanxia_session"
	shutdownGrace = 10 * time.Second
)

type Server struct {
	cfg      *config.Config
	analyzer analysis.Analyzer
	intake   *intake.Intake
	sessions *SessionStore
	logger   *zap.Logger
	engine   *gin.Engine

	// analyses outlive the upload request, so they run on baseCtx
	baseCtx  context.Context
	inflight sync.WaitGroup
}

func New(cfg *config.Config, analyzer analysis.Analyzer, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	tmpl, err := template.New("pages").Funcs(templateFuncs()).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery(), logging.GinMiddleware(logger.Named("http")))
	engine.SetHTMLTemplate(tmpl)
	if cfg.MaxUploadBytes > 0 {
		// multipart parts above this spill to temp files instead of memory
		engine.MaxMultipartMemory = cfg.MaxUploadBytes
	}

	s := &Server{
		cfg:      cfg,
		analyzer: analyzer,
		intake:   intake.New(cfg.MaxUploadBytes),
		sessions: NewSessionStore(cfg.SessionTTL),
		logger:   logger,
		engine:   engine,
		baseCtx:  context.Background(),
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.engine.GET("/", s.handleIndex)
	s.engine.POST("/upload", s.handleUpload)
	s.engine.POST("/reset", s.handleReset)
	s.engine.GET("/healthz", s.handleHealth)

	api := s.engine.Group("/api")
	{
		api.GET("/state", s.handleState)
		api.POST("/analyze", s.handleAnalyze)
		api.POST("/reset", s.handleAPIReset)
	}
}

func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) Sessions() *SessionStore { return s.sessions }

// Wait blocks until every background analysis has applied its outcome.
func (s *Server) Wait() { s.inflight.Wait() }

// Run serves on cfg.Addr until ctx is cancelled, then drains connections
// and in-flight analyses.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.baseCtx = ctx
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening", zap.String("addr", ln.Addr().String()), zap.String("provider", s.analyzer.Name()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		s.sessions.RunJanitor(gctx, janitorInterval(s.cfg.SessionTTL), func(n int) {
			s.logger.Debug("evicted idle sessions", zap.Int("count", n))
		})
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		s.inflight.Wait()
		s.logger.Info("server stopped")
		return nil
	})
	return g.Wait()
}

func janitorInterval(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return time.Minute
	}
	if iv := ttl / 4; iv > time.Second {
		return iv
	}
	return time.Second
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"issue": views.IssueLabel,
		"band":  func(score int) string { return string(views.ScoreBand(score)) },
	}
}
