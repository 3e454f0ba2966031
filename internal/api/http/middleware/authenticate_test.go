package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	httpctx "github.com/brewops/brewops-server/internal/api/http/context"
	"github.com/brewops/brewops-server/internal/mocks"
	"github.com/brewops/brewops-server/internal/model"
	"github.com/brewops/brewops-server/internal/testutil"
)

func TestAuthenticate_Handle(t *testing.T) {
	userID := uuid.New()

	tests := []struct {
		name       string
		headers    map[string]string
		setup      func(a *mocks.Authenticator)
		wantStatus int
		wantBody   string
	}{
		{
			name:       "missing token",
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"success":false,"message":"No token, authorization denied"}`,
		},
		{
			name:       "non bearer scheme",
			headers:    map[string]string{"Authorization": "Basic dXNlcjpwYXNz"},
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"success":false,"message":"No token, authorization denied"}`,
		},
		{
			name:    "invalid token",
			headers: map[string]string{"Authorization": "Bearer bad"},
			setup: func(a *mocks.Authenticator) {
				a.On("Authenticate", mock.Anything, "bad").Return(uuid.Nil, model.ErrInvalidCredentials)
			},
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"success":false,"message":"Token is not valid"}`,
		},
		{
			name:    "store failure",
			headers: map[string]string{"Authorization": "Bearer tok"},
			setup: func(a *mocks.Authenticator) {
				a.On("Authenticate", mock.Anything, "tok").Return(uuid.Nil, errors.New("db down"))
			},
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"success":false,"message":"Server error","error":"db down"}`,
		},
		{
			name:    "bearer token",
			headers: map[string]string{"Authorization": "Bearer tok"},
			setup: func(a *mocks.Authenticator) {
				a.On("Authenticate", mock.Anything, "tok").Return(userID, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   userID.String(),
		},
		{
			name:    "legacy header",
			headers: map[string]string{"x-auth-token": "tok"},
			setup: func(a *mocks.Authenticator) {
				a.On("Authenticate", mock.Anything, "tok").Return(userID, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   userID.String(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authenticator := mocks.NewAuthenticator(t)
			if tt.setup != nil {
				tt.setup(authenticator)
			}
			ctxMgr := httpctx.NewManager()
			mw := NewAuthenticate(authenticator, ctxMgr, testutil.MakeNoopLogger())

			engine := gin.New()
			engine.GET("/", mw.Handle(), func(c *gin.Context) {
				id, _ := ctxMgr.UserIDFromContext(c.Request.Context())
				c.String(http.StatusOK, id.String())
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := serve(engine, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			} else {
				assert.JSONEq(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(context.Background())
	req.Header.Set("Authorization", "bearer   abc ")
	assert.Equal(t, "abc", bearerToken(req))
}
