package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/MLH-TTU/MLH-website-sub002/internal/service"
	"github.com/MLH-TTU/MLH-website-sub002/pkg/response"
)

func TestWriteServiceError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.ErrorLevel)
	logger := zap.New(core)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantReason service.Reason
	}{
		{"wrapped conflict", fmt.Errorf("submit: %w", service.ErrAlreadyAttended), http.StatusConflict, service.ReasonAlreadyAttended},
		{"expired challenge", service.ErrChallengeExpired, http.StatusGone, service.ReasonChallengeExpired},
		{"throttled", service.ErrTooManyRequests, http.StatusTooManyRequests, service.ReasonTooManyRequests},
		{"disabled", service.ErrUserDisabled, http.StatusForbidden, service.ReasonUserDisabled},
		{"store failure", errors.New("pq: connection refused"), http.StatusInternalServerError, service.ReasonInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			writeServiceError(c, logger, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			var body response.APIResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, string(tt.wantReason), body.Reason)
			assert.NotContains(t, body.Message, "pq:")
		})
	}
	assert.Equal(t, 1, logs.FilterMessage("request failed").Len())
}

func TestWriteServiceErrorThrottled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

	writeServiceError(c, zap.NewNop(), &service.ThrottledError{RetryAfter: 1500 * time.Millisecond})

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), string(service.ReasonTooManyRequests))
}

func TestEveryReasonHasStatus(t *testing.T) {
	for _, r := range []service.Reason{
		service.ReasonOf(service.ErrInvalidDomain),
		service.ReasonOf(service.ErrNoPendingVerification),
		service.ReasonOf(service.ErrCodeConflict),
		service.ReasonOf(service.ErrCodeGenerationFailed),
		service.ReasonOf(service.ErrLinkSameProvider),
		service.ReasonOf(service.ErrTokenExpired),
	} {
		_, ok := reasonStatus[r]
		assert.True(t, ok, "no status for %s", r)
	}
}
