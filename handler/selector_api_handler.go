// ABOUTME: This file implements the HTTP API the dashboard front-end calls
// ABOUTME: Exposes selector operations, config updates, health and metrics

package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"period-selector-sidecar/models"
	"period-selector-sidecar/service"
	"period-selector-sidecar/utils"
)

// SelectorOperations is the selector surface the API exposes
type SelectorOperations interface {
	Snapshot() service.SelectorSnapshot
	SelectPeriod(unit models.PeriodUnit)
	PickPrevious()
	PickNext()
	PickToday()
	ToggleCompare() bool
	SetStartDate(start time.Time)
	SetEndDate(end time.Time)
	SetDateRange(start, end time.Time)
	ApplyConfig(cfg models.SelectorConfig) error
	Config() models.SelectorConfig
}

// SelectorAPIHandler serves the selector HTTP API
type SelectorAPIHandler struct {
	selector SelectorOperations
	monitor  *utils.Monitor
	logger   *slog.Logger
}

// ErrorResponse is the API error envelope
type ErrorResponse struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// NewSelectorAPIHandler creates the API handler
func NewSelectorAPIHandler(selector SelectorOperations, monitor *utils.Monitor, logger *slog.Logger) *SelectorAPIHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SelectorAPIHandler{
		selector: selector,
		monitor:  monitor,
		logger:   logger,
	}
}

// RegisterRoutes attaches all API routes to the echo instance
func (h *SelectorAPIHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/v1/health", h.GetHealth)
	e.GET("/v1/metrics", h.GetMetrics)

	e.GET("/v1/selector", h.GetSelector)
	e.POST("/v1/selector/period", h.PostPeriod)
	e.POST("/v1/selector/previous", h.PostPrevious)
	e.POST("/v1/selector/next", h.PostNext)
	e.POST("/v1/selector/today", h.PostToday)
	e.POST("/v1/selector/compare", h.PostCompare)
	e.PUT("/v1/selector/dates", h.PutDates)
	e.PUT("/v1/config", h.PutConfig)
}

// GetHealth reports liveness
func (h *SelectorAPIHandler) GetHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// GetMetrics returns the monitor's counter snapshot
func (h *SelectorAPIHandler) GetMetrics(c echo.Context) error {
	if h.monitor == nil {
		return c.JSON(http.StatusOK, map[string]float64{})
	}
	return c.JSON(http.StatusOK, h.monitor.Snapshot())
}

// GetSelector returns the current selector snapshot
func (h *SelectorAPIHandler) GetSelector(c echo.Context) error {
	return c.JSON(http.StatusOK, h.selector.Snapshot())
}

type periodRequest struct {
	Period string `json:"period"`
}

// PostPeriod switches the symbolic period
func (h *SelectorAPIHandler) PostPeriod(c echo.Context) error {
	var req periodRequest
	if err := c.Bind(&req); err != nil {
		return h.badRequest(c, "malformed request body")
	}

	unit, err := models.ParsePeriodUnit(req.Period)
	if err != nil {
		return h.badRequest(c, err.Error())
	}

	h.selector.SelectPeriod(unit)
	return c.JSON(http.StatusOK, h.selector.Snapshot())
}

// PostPrevious triggers a debounced step backward
func (h *SelectorAPIHandler) PostPrevious(c echo.Context) error {
	h.selector.PickPrevious()
	return c.JSON(http.StatusAccepted, h.selector.Snapshot())
}

// PostNext triggers a debounced step forward
func (h *SelectorAPIHandler) PostNext(c echo.Context) error {
	h.selector.PickNext()
	return c.JSON(http.StatusAccepted, h.selector.Snapshot())
}

// PostToday re-anchors the current period to today
func (h *SelectorAPIHandler) PostToday(c echo.Context) error {
	h.selector.PickToday()
	return c.JSON(http.StatusOK, h.selector.Snapshot())
}

// PostCompare toggles compare mode
func (h *SelectorAPIHandler) PostCompare(c echo.Context) error {
	compare := h.selector.ToggleCompare()
	return c.JSON(http.StatusOK, map[string]bool{"compare": compare})
}

type datesRequest struct {
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}

// PutDates applies user-picked custom range dates
func (h *SelectorAPIHandler) PutDates(c echo.Context) error {
	var req datesRequest
	if err := c.Bind(&req); err != nil {
		return h.badRequest(c, "malformed request body")
	}
	if req.StartDate == "" && req.EndDate == "" {
		return h.badRequest(c, "start_date or end_date is required")
	}

	var start, end time.Time
	if req.StartDate != "" {
		var err error
		if start, err = parseAPIDate(req.StartDate); err != nil {
			return h.badRequest(c, "start_date: "+err.Error())
		}
	}
	if req.EndDate != "" {
		var err error
		if end, err = parseAPIDate(req.EndDate); err != nil {
			return h.badRequest(c, "end_date: "+err.Error())
		}
	}

	// Both dates arrive together from the range picker; applying them as one
	// commit avoids a double refresh and a double entity push.
	switch {
	case req.StartDate != "" && req.EndDate != "":
		h.selector.SetDateRange(start, end)
	case req.StartDate != "":
		h.selector.SetStartDate(start)
	default:
		h.selector.SetEndDate(end)
	}

	return c.JSON(http.StatusOK, h.selector.Snapshot())
}

// PutConfig applies a new selector configuration. Schema validation failures
// are the one fatal error path and surface as 400 responses.
func (h *SelectorAPIHandler) PutConfig(c echo.Context) error {
	var cfg models.SelectorConfig
	if err := c.Bind(&cfg); err != nil {
		return h.badRequest(c, "malformed config body")
	}

	if err := h.selector.ApplyConfig(cfg); err != nil {
		if errors.Is(err, models.ErrInvalidConfig) {
			return h.badRequest(c, err.Error())
		}
		h.logger.Error("Failed to apply selector config", "error", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Status:    "error",
			Message:   "failed to apply config",
			Timestamp: time.Now(),
		})
	}

	return c.JSON(http.StatusOK, h.selector.Config())
}

func (h *SelectorAPIHandler) badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{
		Status:    "error",
		Message:   message,
		Timestamp: time.Now(),
	})
}

// parseAPIDate accepts RFC 3339 timestamps or plain dates
func parseAPIDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02", value, time.Local)
}
