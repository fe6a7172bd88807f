// Package api serves the local REST API that controls the service and
// collects UI log messages.
package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"uploadsvc/internal/logger"
	"uploadsvc/internal/pacs"
	"uploadsvc/internal/platform"
	"uploadsvc/internal/servicectl"
)

const shutdownTimeout = 5 * time.Second

type Options struct {
	Addr       string
	Controller servicectl.Controller
	// Install is used by POST /api/install.
	Install servicectl.InstallOptions
	// Uploader is optional; without it /api/upload answers 503.
	Uploader *pacs.Uploader
	// IsAdmin defaults to platform.IsAdmin.
	IsAdmin     func() bool
	LogCapacity int
}

type Server struct {
	opts     Options
	ctrl     servicectl.Controller
	logs     *LogRing
	metrics  *Collector
	registry *prometheus.Registry
	engine   *gin.Engine

	connected atomic.Bool

	// Uploads outlive the request that started them and end with Run.
	mu   sync.Mutex
	base context.Context
}

func New(opts Options) *Server {
	if opts.IsAdmin == nil {
		opts.IsAdmin = platform.IsAdmin
	}
	s := &Server{
		opts:     opts,
		ctrl:     opts.Controller,
		logs:     NewLogRing(opts.LogCapacity),
		metrics:  NewMetricsCollector(),
		registry: prometheus.NewRegistry(),
	}
	s.base = context.Background()
	s.registry.MustRegister(s.metrics)

	if u := opts.Uploader; u != nil {
		prev := u.OnDone
		u.OnDone = func(req pacs.Request, res pacs.Result) {
			s.recordUpload(res)
			if prev != nil {
				prev(req, res)
			}
		}
	}
	s.engine = s.router()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Logs returns the UI log ring.
func (s *Server) Logs() *LogRing { return s.logs }

// Notifier appends uploader messages to the UI log in process.
func (s *Server) Notifier() pacs.Notifier {
	return pacs.NotifierFunc(func(msg, color string) {
		s.appendLog(LogEntry{Message: msg, Source: pacs.Source, Color: color})
	})
}

func (s *Server) baseContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.base
}

func (s *Server) appendLog(e LogEntry) LogEntry {
	s.metrics.uiLogEntries.Inc()
	return s.logs.Append(e)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.mu.Lock()
	s.base = ctx
	s.mu.Unlock()
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Service API running on http://%s (service %s)", s.opts.Addr, s.ctrl.Name())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down service API")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	if s.opts.Uploader != nil {
		s.opts.Uploader.Wait()
	}
	return nil
}

func (s *Server) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	v := r.Group("/api")
	{
		v.GET("/status", s.status)
		v.POST("/start", s.start)
		v.POST("/stop", s.stop)
		v.POST("/restart", s.restart)
		v.POST("/force-stop", s.forceStop)
		v.POST("/install", s.install)
		v.POST("/uninstall", s.uninstall)
		v.POST("/connect", s.connect)
		v.POST("/disconnect", s.disconnect)
		v.POST("/reconnect", s.reconnect)
		v.GET("/ui-log", s.listLogs)
		v.POST("/ui-log", s.postLog)
		v.POST("/upload", s.upload)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "Not Found"})
	})
	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("%s %s %d %v", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
