package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"cafezao-backend-go/internal/models"
)

type stubDirectory struct {
	users map[string]*models.User
}

func (d *stubDirectory) GetUser(_ context.Context, userID string) (*models.User, error) {
	if u, ok := d.users[userID]; ok {
		return u, nil
	}
	return nil, errors.New("user not found")
}

func newAuthTestRouter(dir UserDirectory) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	mw := &AuthMiddleware{users: dir}
	router.GET("/me", mw.VerifyToken(), func(c *gin.Context) {
		userID, _ := GetUserID(c)
		c.JSON(http.StatusOK, gin.H{"userId": userID, "email": c.GetString("userEmail")})
	})
	return router
}

func TestVerifyTokenAcceptsSessionToken(t *testing.T) {
	dir := &stubDirectory{users: map[string]*models.User{
		"user-1": {ID: "user-1", Email: "dev@example.test", UserName: "Dev"},
	}}
	router := newAuthTestRouter(dir)

	// The login endpoint hands back the user document ID as the session
	// token; the middleware must resolve it to the same identity the
	// protected handlers key on.
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer user-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, want := range []string{`"userId":"user-1"`, `"email":"dev@example.test"`} {
		if !strings.Contains(body, want) {
			t.Errorf("body %s missing %s", body, want)
		}
	}
}

func TestVerifyTokenRejectsUnknownCredential(t *testing.T) {
	router := newAuthTestRouter(&stubDirectory{users: map[string]*models.User{}})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-user")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestVerifyTokenRejectsMalformedHeader(t *testing.T) {
	router := newAuthTestRouter(&stubDirectory{users: map[string]*models.User{}})

	cases := []string{"", "user-1", "Basic dXNlcg=="}
	for _, header := range cases {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("header %q: status = %d, want 401", header, rec.Code)
		}
	}
}
