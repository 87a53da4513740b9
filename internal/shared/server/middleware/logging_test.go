package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggingIncludesRequiredFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)
	t.Cleanup(zap.ReplaceGlobals(zap.New(core)))

	router := gin.New()
	router.Use(RequestID(), Identity(), Logging())
	router.GET("/api/v1/analyses/:id", func(c *gin.Context) {
		c.Set("analysisId", "analysis-1")
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analyses/analysis-1", nil)
	req.Header.Set(UserIDHeader, "founder-1")
	req.Header.Set("X-Request-Id", "req-42")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	entries := logs.FilterMessage("request.complete").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-42", fields["request_id"])
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "/api/v1/analyses/:id", fields["route"])
	assert.EqualValues(t, http.StatusOK, fields["status"])
	assert.Equal(t, "founder-1", fields["user_id"])
	assert.Equal(t, "analysis-1", fields["analysis_id"])
	assert.Contains(t, fields, "duration_ms")
	assert.Equal(t, "req-42", resp.Header().Get("X-Request-Id"))
}

func TestLoggingSkipsOptions(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)
	t.Cleanup(zap.ReplaceGlobals(zap.New(core)))

	router := gin.New()
	router.Use(Logging(), CORS(nil))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/analyze", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	assert.Empty(t, logs.FilterMessage("request.complete").All())
}
