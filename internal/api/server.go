// Package api exposes backtests and the run journal over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/whiterabbit74/stonks-sub003/journal"
)

// Store is the part of the journal the API reads and writes.
type Store interface {
	RecordRun(ctx context.Context, run journal.Run) error
	ListRuns(ctx context.Context, limit int) ([]journal.RunRecord, error)
	LoadRun(ctx context.Context, runID string) (journal.Run, error)
}

type Server struct {
	store   Store
	log     logrus.FieldLogger
	origins []string
	router  *gin.Engine
}

type Option func(*Server)

// WithStore enables journaling and the /runs endpoints.
func WithStore(s Store) Option {
	return func(srv *Server) { srv.store = s }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(srv *Server) {
		if l != nil {
			srv.log = l
		}
	}
}

// WithOrigins restricts CORS to the given origins.
func WithOrigins(origins ...string) Option {
	return func(srv *Server) { srv.origins = origins }
}

func NewServer(opts ...Option) *Server {
	s := &Server{log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(s)
	}

	r := gin.New()
	r.Use(CORS(s.origins))
	r.Use(Logger(s.log))
	r.Use(ErrorHandler(s.log))

	r.GET("/health", s.health)
	v1 := r.Group("/api/v1")
	{
		v1.POST("/backtest", s.runBacktest)
		v1.GET("/runs", s.listRuns)
		v1.GET("/runs/:id", s.getRun)
	}
	r.NoRoute(func(c *gin.Context) {
		abort(c, http.StatusNotFound, "NOT_FOUND", "no route for "+c.Request.URL.Path)
	})
	s.router = r
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("api listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
