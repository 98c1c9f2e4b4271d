// package devserver runs an in-memory BookLister ingest API for local development and integration tests.
//
// It groups uploaded files into books the way the production backend does: by the folder_info map first, then by the
// leading segment of the part filename, and finally into "General". Errors use the backend's JSON body:
//
//	{"error": true, "detail": "...", "status_code": 400}
package devserver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/desertthunder/booklister/internal/shared"
)

// MaxFilesPerRequest caps the number of file parts in one upload.
const MaxFilesPerRequest = 100

// Options configures a [Server].
type Options struct {
	Store    *Store
	Logger   *log.Logger
	MaxFiles int
	// Delay is added before each upload response to make client progress visible.
	Delay time.Duration
}

// Server is the development backend.
type Server struct {
	echo     *echo.Echo
	store    *Store
	logger   *log.Logger
	maxFiles int
	delay    time.Duration
}

// New builds a server with routes and middleware registered.
func New(opts Options) *Server {
	if opts.Store == nil {
		opts.Store = NewStore()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(io.Discard)
	}
	if opts.MaxFiles <= 0 {
		opts.MaxFiles = MaxFilesPerRequest
	}

	s := &Server{
		echo:     echo.New(),
		store:    opts.Store,
		logger:   opts.Logger,
		maxFiles: opts.MaxFiles,
		delay:    opts.Delay,
	}

	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.HTTPErrorHandler = s.errorHandler

	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.logger.Info("request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	s.routes()
	return s
}

func (s *Server) routes() {
	ingest := s.echo.Group("/ingest")
	ingest.POST("/upload", s.handleUpload)
	ingest.GET("/upload-status", s.handleUploadStatus)

	s.echo.GET("/queue", s.handleQueue)
	s.echo.GET("/book/:id", s.handleBook)
	s.echo.PUT("/book/:id", s.handleUpdateBook)
	s.echo.GET("/images/:book/:file", s.handleImage)
	s.echo.GET("/health", s.handleHealth)
}

// Handler returns the server as an [http.Handler].
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Store returns the backing store.
func (s *Server) Store() *Store {
	return s.store
}

// Start listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("dev server listening", "addr", addr)
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.logger.Info("dev server shutting down")
	return s.echo.Shutdown(shutdownCtx)
}
