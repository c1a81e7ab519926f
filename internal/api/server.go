// Package api is the HTTP trigger and status surface of the pipeline.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"fouani/storesync/internal/config"
	"fouani/storesync/internal/domain"
	"fouani/storesync/internal/state"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

// Runner executes one pipeline run
type Runner interface {
	Run(ctx context.Context) (*domain.RunReport, error)
}

// MenuSource returns the last built category tree
type MenuSource interface {
	LoadMenu() (*domain.Tree, error)
}

type Server struct {
	router  *gin.Engine
	server  *http.Server
	tracker *state.Tracker
	runner  Runner
	menu    MenuSource

	// runs outlive the request that started them
	runCtx context.Context
	runs   sync.WaitGroup
}

// NewServer wires the routes. Runs started through the API use ctx, so
// cancelling it interrupts an active run.
func NewServer(ctx context.Context, cfg config.ServerConfig, tracker *state.Tracker, runner Runner, menu MenuSource) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		router:  gin.New(),
		tracker: tracker,
		runner:  runner,
		menu:    menu,
		runCtx:  ctx,
	}

	s.router.Use(recoveryMiddleware(), loggerMiddleware())
	s.routes()

	s.server = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.router.GET("/", s.home)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.router.Group("/api")
	api.GET("/menu", s.getMenu)
	api.GET("/scrape", s.startScrape)
	api.POST("/scrape", s.startScrape)
	api.GET("/status", s.getStatus)
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down and waits for an active run.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Infof("🚀 Listening on %s", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("🛑 Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}

	s.Wait()
	return nil
}

// Wait blocks until the background run started through the API, if any, returns.
func (s *Server) Wait() {
	s.runs.Wait()
}

func (s *Server) home(c *gin.Context) {
	c.String(http.StatusOK, "Fouani Store API is running!")
}

func (s *Server) getMenu(c *gin.Context) {
	tree, err := s.menu.LoadMenu()
	if errors.Is(err, os.ErrNotExist) {
		c.JSON(http.StatusNotFound, gin.H{"error": "category tree has not been built yet"})
		return
	}
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load category tree"})
		return
	}
	c.JSON(http.StatusOK, tree)
}

func (s *Server) startScrape(c *gin.Context) {
	if !s.tracker.TryStart() {
		c.JSON(http.StatusConflict, gin.H{
			"message": "Scraping already in progress",
			"status":  s.tracker.Snapshot(),
		})
		return
	}

	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		_, err := s.runner.Run(s.runCtx)
		s.tracker.Finish(err)
	}()

	c.JSON(http.StatusOK, gin.H{
		"message": "Scraping process started",
		"status":  s.tracker.Snapshot(),
	})
}

func (s *Server) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.tracker.Snapshot())
}
