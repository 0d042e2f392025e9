// Package httpcontroller serves the JSON API, the live event stream and the
// audio level websocket.
package httpcontroller

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	gocache "github.com/patrickmn/go-cache"

	"github.com/jtoivola/fretwatch-go/internal/conf"
	"github.com/jtoivola/fretwatch-go/internal/datastore"
	"github.com/jtoivola/fretwatch-go/internal/logging"
	"github.com/jtoivola/fretwatch-go/internal/myaudio"
	"github.com/jtoivola/fretwatch-go/internal/observability"
)

const shutdownTimeout = 5 * time.Second

// Server bundles the echo instance with the stores and hubs the handlers
// need.
type Server struct {
	Echo     *echo.Echo
	DS       datastore.Interface
	Settings *conf.Settings
	Hub      *EventHub
	Levels   *LevelHub

	metrics *observability.Metrics
	cache   *gocache.Cache
	logger  *slog.Logger
}

// New builds the API server. ds and m may be nil; audioLevelChan may be nil
// when level reporting is disabled.
func New(settings *conf.Settings, ds datastore.Interface, audioLevelChan <-chan myaudio.AudioLevelData, m *observability.Metrics) *Server {
	logger := logging.ForService("http")
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		Echo:     echo.New(),
		DS:       ds,
		Settings: settings,
		Hub:      NewEventHub(m),
		Levels:   NewLevelHub(audioLevelChan, m),
		metrics:  m,
		cache:    gocache.New(30*time.Second, time.Minute),
		logger:   logger,
	}

	s.Echo.HideBanner = true
	s.Echo.HidePort = true
	s.Echo.IPExtractor = echo.ExtractIPFromXFFHeader()
	s.Echo.Use(middleware.Recover())
	s.Echo.Use(s.metricsMiddleware())

	s.initRoutes()
	return s
}

// metricsMiddleware records request counts and latency per route.
func (s *Server) metricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if s.metrics != nil {
				status := c.Response().Status
				if err != nil {
					var httpErr *echo.HTTPError
					if errors.As(err, &httpErr) {
						status = httpErr.Code
					}
				}
				s.metrics.HTTP.RecordRequest(c.Request().Method, c.Path(),
					status, time.Since(start))
			}
			return err
		}
	}
}

// Start launches the listener and the level pump, and shuts both down when
// quitChan closes.
func (s *Server) Start(wg *sync.WaitGroup, quitChan <-chan struct{}) {
	s.Levels.Start(wg, quitChan)

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.logger.Info("http server starting", "listen", s.Settings.Realtime.API.Listen)
		if err := s.Echo.Start(s.Settings.Realtime.API.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server failed", "error", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-quitChan
		s.Hub.Close()

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.Echo.Shutdown(ctx); err != nil {
			s.logger.Error("http server shutdown failed", "error", err)
		} else {
			s.logger.Info("http server stopped")
		}
	}()
}
