package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/coursemap-backend/internal/platform/apierr"
	"github.com/yungbote/coursemap-backend/internal/platform/logger"
	"github.com/yungbote/coursemap-backend/internal/services"
	"github.com/yungbote/coursemap-backend/internal/types"
)

type stubAuthService struct {
	user *types.User
}

func (s *stubAuthService) RequestLogin(context.Context, string) (*services.RequestLoginResult, error) {
	return nil, nil
}

func (s *stubAuthService) VerifyLogin(context.Context, string) (*services.VerifyLoginResult, error) {
	return nil, nil
}

func (s *stubAuthService) UserFromToken(_ context.Context, token string) (*types.User, error) {
	if token == "good" && s.user != nil {
		return s.user, nil
	}
	return nil, apierr.Unauthorized(nil)
}

func newAuthTestRouter(t *testing.T, auth services.AuthService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}

	r := gin.New()
	r.Use(NewAuthMiddleware(log, auth).RequireAuth())
	r.GET("/whoami", func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, user.ID.String())
	})
	return r
}

func TestRequireAuth(t *testing.T) {
	t.Parallel()

	user := &types.User{ID: uuid.New(), Email: "u@example.com"}
	r := newAuthTestRouter(t, &stubAuthService{user: user})

	cases := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer bad", http.StatusUnauthorized},
		{"valid token", "Bearer good", http.StatusOK},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tc.authHeader != "" {
				req.Header.Set("Authorization", tc.authHeader)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("unexpected status: got=%d want=%d body=%s", rec.Code, tc.wantStatus, rec.Body.String())
			}
			if tc.wantStatus == http.StatusOK && rec.Body.String() != user.ID.String() {
				t.Fatalf("handler saw the wrong user: got=%q", rec.Body.String())
			}
		})
	}
}
