package httpcontroller

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jtoivola/fretwatch-go/internal/datastore"
)

const (
	defaultRecentLimit = 20
	maxRecentLimit     = 200
)

func (s *Server) initRoutes() {
	s.Echo.GET("/healthz", s.handleHealth)

	v1 := s.Echo.Group("/api/v1")
	v1.GET("/state", s.handleState)
	v1.GET("/detections/recent", s.handleRecentDetections)
	v1.GET("/stats/notes", s.handleNoteStats)
	v1.GET("/events", s.serveSSE)

	s.Echo.GET("/ws/levels", s.serveLevelSocket)
}

// handleHealth reports liveness.
// API: GET /healthz
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// stateResponse describes the running configuration.
type stateResponse struct {
	Name        string   `json:"name"`
	Tuning      []string `json:"tuning"`
	LowestNote  string   `json:"lowest_note"`
	HighestNote string   `json:"highest_note"`
	Database    bool     `json:"database"`
	EventsDay   int64    `json:"events_last_24h"`
}

// handleState returns the node configuration and a 24 hour event count.
// API: GET /api/v1/state
func (s *Server) handleState(c echo.Context) error {
	resp := stateResponse{
		Name:        s.Settings.Main.Name,
		Tuning:      s.Settings.Guitar.Tuning,
		LowestNote:  s.Settings.Detection.LowestNote,
		HighestNote: s.Settings.Detection.HighestNote,
		Database:    s.DS != nil,
	}

	if s.DS != nil {
		count, err := s.DS.CountEventsSince(time.Now().Add(-24 * time.Hour))
		if err != nil {
			s.logger.Error("failed to count events", "error", err)
		} else {
			resp.EventsDay = count
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// handleRecentDetections returns the newest events, most recent first.
// API: GET /api/v1/detections/recent?limit=N
func (s *Server) handleRecentDetections(c echo.Context) error {
	if s.DS == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "no database configured")
	}

	limit := defaultRecentLimit
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxRecentLimit {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be between 1 and 200")
		}
		limit = parsed
	}

	events, err := s.DS.GetRecentEvents(limit)
	if err != nil {
		s.logger.Error("failed to query recent events", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "query failed")
	}
	return c.JSON(http.StatusOK, events)
}

// handleNoteStats returns highlight counts per note, cached briefly to keep
// dashboard polling off the database.
// API: GET /api/v1/stats/notes
func (s *Server) handleNoteStats(c echo.Context) error {
	if s.DS == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "no database configured")
	}

	const cacheKey = "stats/notes"
	if cached, found := s.cache.Get(cacheKey); found {
		return c.JSON(http.StatusOK, cached.([]datastore.NoteCount))
	}

	counts, err := s.DS.CountByNote()
	if err != nil {
		s.logger.Error("failed to query note stats", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "query failed")
	}
	s.cache.SetDefault(cacheKey, counts)
	return c.JSON(http.StatusOK, counts)
}
