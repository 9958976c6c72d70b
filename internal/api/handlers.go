package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/whiterabbit74/stonks-sub003/backtest"
	"github.com/whiterabbit74/stonks-sub003/internal/runner"
	"github.com/whiterabbit74/stonks-sub003/journal"
	"github.com/whiterabbit74/stonks-sub003/market"
	"github.com/whiterabbit74/stonks-sub003/pkg/id"
	"github.com/whiterabbit74/stonks-sub003/strategy"
)

const defaultRunLimit = 20

func abort(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: ErrorDetail{Code: code, Message: msg}})
}

// fail maps engine and journal errors to a status and error code.
func (s *Server) fail(c *gin.Context, err error) {
	var cfgErr *strategy.ConfigurationError
	var dataErr *market.DataValidityError
	switch {
	case errors.As(err, &cfgErr):
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: ErrorDetail{
			Code:    "INVALID_CONFIG",
			Message: err.Error(),
			Details: map[string]any{"field": cfgErr.Field},
		}})
	case errors.As(err, &dataErr):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, ErrorResponse{Error: ErrorDetail{
			Code:    "INVALID_DATA",
			Message: err.Error(),
			Details: map[string]any{"instrument": dataErr.Instrument, "date": dataErr.Date.Format("2006-01-02")},
		}})
	case errors.Is(err, backtest.ErrNoBars):
		abort(c, http.StatusUnprocessableEntity, "NO_BARS", err.Error())
	case errors.Is(err, journal.ErrNotFound):
		abort(c, http.StatusNotFound, "RUN_NOT_FOUND", err.Error())
	default:
		s.log.WithError(err).Error("request failed")
		abort(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "journal": s.store != nil})
}

// runBacktest handles POST /api/v1/backtest
func (s *Server) runBacktest(c *gin.Context) {
	var req BacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if req.Record && s.store == nil {
		abort(c, http.StatusBadRequest, "JOURNAL_DISABLED", "server has no journal to record into")
		return
	}
	cfg, err := req.StrategyConfig()
	if err != nil {
		abort(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	overlay, err := req.OverlayConfig()
	if err != nil {
		abort(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	sets, err := req.BarSets()
	if err != nil {
		abort(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	out, err := runner.Run(runner.Job{Strategy: cfg, Sets: sets, Overlay: overlay, Log: s.log})
	if err != nil {
		s.fail(c, err)
		return
	}
	resp := BacktestResponse{Outcome: out}
	if req.Record {
		run, err := journal.NewRun(req.Name, out.Config, out.Result, out.Summary)
		if err != nil {
			s.fail(c, err)
			return
		}
		if err := s.store.RecordRun(c.Request.Context(), run); err != nil {
			s.fail(c, err)
			return
		}
		resp.RunID = run.Record.RunID
	}
	c.JSON(http.StatusOK, resp)
}

// listRuns handles GET /api/v1/runs?limit=N
func (s *Server) listRuns(c *gin.Context) {
	if s.store == nil {
		abort(c, http.StatusServiceUnavailable, "JOURNAL_DISABLED", "server has no journal")
		return
	}
	limit := defaultRunLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			abort(c, http.StatusBadRequest, "INVALID_REQUEST", "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	runs, err := s.store.ListRuns(c.Request.Context(), limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	if runs == nil {
		runs = []journal.RunRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// getRun handles GET /api/v1/runs/:id
func (s *Server) getRun(c *gin.Context) {
	if s.store == nil {
		abort(c, http.StatusServiceUnavailable, "JOURNAL_DISABLED", "server has no journal")
		return
	}
	runID := c.Param("id")
	if !id.Valid(runID) {
		abort(c, http.StatusBadRequest, "INVALID_RUN_ID", "malformed run id "+strconv.Quote(runID))
		return
	}
	run, err := s.store.LoadRun(c.Request.Context(), runID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, RunResponse{Run: run, Config: run.Record.Config})
}
