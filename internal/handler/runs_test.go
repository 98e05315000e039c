package handler

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/haatos/nightly/internal/service"
	"github.com/haatos/nightly/internal/store"
	"github.com/haatos/nightly/testutil"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRunContext(path string, paramNames, paramValues []string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames(paramNames...)
	c.SetParamValues(paramValues...)
	return c, rec
}

func TestRunHandler_ListRuns(t *testing.T) {
	t.Run("success - runs listed as json", func(t *testing.T) {
		// arrange
		tag := "0.9.5"
		expected := []store.Run{
			{Timestamp: "20240102000000", Branch: "master", Tag: &tag, Success: true},
			{Timestamp: "20240101000000", Branch: "master", Success: false},
		}
		mockStore := new(testutil.MockRunStore)
		mockStore.On("ListRuns", context.Background(), int64(50)).Return(expected, nil)
		h := NewRunHandler(mockStore, t.TempDir())
		c, rec := newRunContext("/api/runs", nil, nil)

		// act
		err := h.ListRuns(c)

		// assert
		assert.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "20240102000000")
		assert.Contains(t, body, "0.9.5")
		mockStore.AssertExpectations(t)
	})
	t.Run("success - limit query param is honored", func(t *testing.T) {
		// arrange
		mockStore := new(testutil.MockRunStore)
		mockStore.On("ListRuns", context.Background(), int64(5)).Return([]store.Run{}, nil)
		h := NewRunHandler(mockStore, t.TempDir())
		c, rec := newRunContext("/api/runs?limit=5", nil, nil)

		// act
		err := h.ListRuns(c)

		// assert
		assert.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
		mockStore.AssertExpectations(t)
	})
	t.Run("failure - invalid limit", func(t *testing.T) {
		// arrange
		h := NewRunHandler(new(testutil.MockRunStore), t.TempDir())
		c, _ := newRunContext("/api/runs?limit=nope", nil, nil)

		// act
		err := h.ListRuns(c)

		// assert
		require.Error(t, err)
		httpErr, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusBadRequest, httpErr.Code)
	})
}

func TestRunHandler_GetRun(t *testing.T) {
	t.Run("success - record served from the output dir", func(t *testing.T) {
		// arrange
		outputDir := t.TempDir()
		record := &service.Record{
			Timestamp: "20240101030000",
			Branch:    "master",
			Tag:       "0.9.5",
			Success:   true,
		}
		require.NoError(t, record.Write(outputDir))
		h := NewRunHandler(new(testutil.MockRunStore), outputDir)
		c, rec := newRunContext(
			"/api/runs/20240101030000",
			[]string{"timestamp"}, []string{"20240101030000"},
		)

		// act
		err := h.GetRun(c)

		// assert
		assert.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"tag":"0.9.5"`)
	})
	t.Run("failure - unknown run returns 404", func(t *testing.T) {
		// arrange
		h := NewRunHandler(new(testutil.MockRunStore), t.TempDir())
		c, _ := newRunContext(
			"/api/runs/20240101030000",
			[]string{"timestamp"}, []string{"20240101030000"},
		)

		// act
		err := h.GetRun(c)

		// assert
		require.Error(t, err)
		httpErr, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusNotFound, httpErr.Code)
	})
	t.Run("failure - malformed timestamp is rejected", func(t *testing.T) {
		// arrange
		h := NewRunHandler(new(testutil.MockRunStore), t.TempDir())
		c, _ := newRunContext(
			"/api/runs/..%2Fsecrets",
			[]string{"timestamp"}, []string{"../secrets"},
		)

		// act
		err := h.GetRun(c)

		// assert
		require.Error(t, err)
		httpErr, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusBadRequest, httpErr.Code)
	})
}

func TestRunHandler_GetRunLog(t *testing.T) {
	t.Run("success - log file served", func(t *testing.T) {
		// arrange
		outputDir := t.TempDir()
		require.NoError(t, os.WriteFile(
			filepath.Join(outputDir, "20240101030000.log"),
			[]byte("\"Checkout\" finished with code 0\n"),
			0o644,
		))
		mockStore := new(testutil.MockRunStore)
		mockStore.On("ReadRunByTimestamp", context.Background(), "20240101030000").
			Return(&store.Run{Timestamp: "20240101030000"}, nil)
		h := NewRunHandler(mockStore, outputDir)
		c, rec := newRunContext(
			"/api/runs/20240101030000/log",
			[]string{"timestamp"}, []string{"20240101030000"},
		)

		// act
		err := h.GetRunLog(c)

		// assert
		assert.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "finished with code 0")
	})
	t.Run("failure - unknown run returns 404", func(t *testing.T) {
		// arrange
		mockStore := new(testutil.MockRunStore)
		mockStore.On("ReadRunByTimestamp", context.Background(), "20240101030000").
			Return(nil, sql.ErrNoRows)
		h := NewRunHandler(mockStore, t.TempDir())
		c, _ := newRunContext(
			"/api/runs/20240101030000/log",
			[]string{"timestamp"}, []string{"20240101030000"},
		)

		// act
		err := h.GetRunLog(c)

		// assert
		require.Error(t, err)
		httpErr, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusNotFound, httpErr.Code)
	})
}
