package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/haatos/nightly/internal"
	"github.com/haatos/nightly/internal/service"
	"github.com/haatos/nightly/internal/store"
	"github.com/labstack/echo/v4"
)

const defaultRunListLimit = 50

func NewRunHandler(history store.RunStore, outputDir string) *RunHandler {
	return &RunHandler{history: history, outputDir: outputDir}
}

type RunHandler struct {
	history   store.RunStore
	outputDir string
}

func SetupRunRoutes(e *echo.Echo, h *RunHandler) {
	e.GET("/api/runs", h.ListRuns)
	e.GET("/api/runs/:timestamp", h.GetRun)
	e.GET("/api/runs/:timestamp/log", h.GetRunLog)
	e.Static("/downloads", h.outputDir)
}

func (h *RunHandler) ListRuns(c echo.Context) error {
	limit := int64(defaultRunListLimit)
	if raw := c.QueryParam("limit"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 1 {
			return newError(err, http.StatusBadRequest, "invalid limit")
		}
		limit = v
	}

	runs, err := h.history.ListRuns(c.Request().Context(), limit)
	if err != nil {
		return newError(err, http.StatusInternalServerError, "unable to list runs")
	}
	return c.JSON(http.StatusOK, runs)
}

func (h *RunHandler) GetRun(c echo.Context) error {
	timestamp, err := runTimestamp(c)
	if err != nil {
		return err
	}

	rec, err := service.ReadRecord(
		filepath.Join(h.outputDir, timestamp+internal.RecordExt),
	)
	if err != nil {
		if os.IsNotExist(err) {
			return newError(err, http.StatusNotFound, "run not found")
		}
		return newError(err, http.StatusInternalServerError, "unable to read run record")
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *RunHandler) GetRunLog(c echo.Context) error {
	timestamp, err := runTimestamp(c)
	if err != nil {
		return err
	}

	if _, err := h.history.ReadRunByTimestamp(
		c.Request().Context(), timestamp,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return newError(err, http.StatusNotFound, "run not found")
		}
		return newError(err, http.StatusInternalServerError, "unable to read run")
	}
	return c.File(filepath.Join(h.outputDir, timestamp+internal.LogExt))
}

// runTimestamp validates the :timestamp path param. Record and log files are
// served straight off the filesystem, so anything but a plain timestamp is
// rejected.
func runTimestamp(c echo.Context) (string, error) {
	timestamp := c.Param("timestamp")
	if len(timestamp) != len(internal.TimestampLayout) {
		return "", newError(nil, http.StatusBadRequest, "invalid run timestamp")
	}
	for _, r := range timestamp {
		if r < '0' || r > '9' {
			return "", newError(nil, http.StatusBadRequest, "invalid run timestamp")
		}
	}
	return timestamp, nil
}
