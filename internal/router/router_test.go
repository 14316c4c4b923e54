package router_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"scoreparse/internal/auth"
	"scoreparse/internal/config"
	"scoreparse/internal/domain"
	"scoreparse/internal/handler"
	"scoreparse/internal/router"
	"scoreparse/internal/service"
	"scoreparse/mocks"
)

type okPinger struct{}

func (okPinger) PingContext(context.Context) error { return nil }

func TestSetup_Routes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	validator, err := auth.NewTokenValidator(&config.JWTConfig{Secret: "s", Issuer: "scoreparse"})
	require.NoError(t, err)
	token, err := validator.Issue("grader-1", "", time.Hour)
	require.NoError(t, err)

	svc := new(mocks.MockParseService)
	svc.On("GetSession", mock.Anything, "grader-1", "sess-9").
		Return(&domain.ParseSession{ID: "sess-9", OwnerID: "grader-1"}, nil)
	svc.On("ListRecords", mock.Anything, "grader-1", "sess-9", service.RecordQuery{Keyword: "bo"}).
		Return([]domain.NormalizedRecord{domain.NewRecord("Bob", nil, nil)}, nil)

	r := router.Setup(validator, nil,
		handler.NewParseHandler(svc, 0),
		handler.NewRecordsHandler(nil),
		handler.NewHealthHandler(okPinger{}),
	)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/parse/sessions/sess-9", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/parse/sessions/sess-9", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"sess-9"`)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/parse/sessions/sess-9/records?q=bo", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"entity_name":"Bob"`)
	svc.AssertExpectations(t)
}
