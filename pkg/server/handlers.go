package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"dtplanner/pkg/logx"
	"dtplanner/pkg/persistence"
	"dtplanner/pkg/pipeline"
	"dtplanner/pkg/version"
)

// maxLogEntries caps the /api/v1/logs response to the newest lines.
const maxLogEntries = 1000

// RunDetail is the GET /api/v1/runs/:id response.
type RunDetail struct {
	Run    *persistence.Run          `json:"run"`
	Stages []*persistence.StageEvent `json:"stages"`
	State  json.RawMessage           `json:"state,omitempty"`
}

// Health reports liveness.
// (GET /healthz)
func (s *Server) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": version.Version})
}

// ListRuns returns the most recent runs.
// (GET /api/v1/runs?limit=N)
func (s *Server) ListRuns(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a non-negative integer")
		}
		limit = n
	}

	runs, err := s.store.ListRuns(c.Request().Context(), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if runs == nil {
		runs = []*persistence.Run{}
	}
	return c.JSON(http.StatusOK, runs)
}

// GetRun returns a run with its stage history and latest state snapshot.
// (GET /api/v1/runs/:id)
func (s *Server) GetRun(c echo.Context) error {
	ctx := c.Request().Context()
	run, err := s.loadRun(c)
	if err != nil {
		return err
	}

	events, err := s.store.StageEvents(ctx, run.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if events == nil {
		events = []*persistence.StageEvent{}
	}

	detail := RunDetail{Run: run, Stages: events}
	if run.StateJSON != "" {
		detail.State = json.RawMessage(run.StateJSON)
	}
	return c.JSON(http.StatusOK, detail)
}

// GetRunMarkdown renders one section of a run's latest snapshot.
// (GET /api/v1/runs/:id/markdown/:section)
func (s *Server) GetRunMarkdown(c echo.Context) error {
	section := c.Param("section")
	if section != pipeline.SectionReport && !slices.Contains(pipeline.Sections, section) {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown section "+strconv.Quote(section))
	}

	run, err := s.loadRun(c)
	if err != nil {
		return err
	}
	state, err := run.State()
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	md, err := state.Markdown(section)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.Blob(http.StatusOK, "text/markdown; charset=utf-8", []byte(md))
}

// Logs returns recent in-memory log entries.
// (GET /api/v1/logs?component=pipeline&since=RFC3339)
func (s *Server) Logs(c echo.Context) error {
	var since time.Time
	if raw := c.QueryParam("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			s.logger.Warn("invalid since parameter: %s", raw)
			return echo.NewHTTPError(http.StatusBadRequest, "invalid since parameter (use RFC3339)")
		}
		since = t
	}

	logs := logx.GetRecentLogEntries(c.QueryParam("component"), since)
	if len(logs) > maxLogEntries {
		logs = logs[len(logs)-maxLogEntries:]
	}
	return c.JSON(http.StatusOK, logs)
}

func (s *Server) loadRun(c echo.Context) (*persistence.Run, error) {
	run, err := s.store.GetRun(c.Request().Context(), c.Param("id"))
	if errors.Is(err, persistence.ErrRunNotFound) {
		return nil, echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return run, nil
}
