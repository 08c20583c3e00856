package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/mgiordano/clasificados/internal/models"
)

type stubSessions struct {
	sessions map[string]*models.Session
}

func (s *stubSessions) GetSession(_ context.Context, id string) (*models.Session, error) {
	session, ok := s.sessions[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return session, nil
}

func guardRouter(sessions SessionReader, sessionID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if sessionID != "" {
			c.Set(CtxSessionIDKey, sessionID)
			c.Set(CtxUserIDKey, "user-1")
		}
	})
	router.Use(RequireVerified(sessions, []string{"/api/verification", "/api/auth"}))
	handler := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) }
	router.GET("/api/listings", handler)
	router.POST("/api/verification/phone", handler)
	router.POST("/api/auth/logout", handler)
	return router
}

func TestRequireVerifiedBlocksUnverifiedSession(t *testing.T) {
	sessions := &stubSessions{sessions: map[string]*models.Session{
		"sess-1": {ID: "sess-1", TwoFactorVerified: false},
	}}
	router := guardRouter(sessions, "sess-1")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/listings", nil))
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Contains(t, w.Body.String(), "VERIFICATION_REQUIRED")
	require.Contains(t, w.Body.String(), VerificationRedirectPath)
}

func TestRequireVerifiedAllowListedPaths(t *testing.T) {
	sessions := &stubSessions{sessions: map[string]*models.Session{
		"sess-1": {ID: "sess-1", TwoFactorVerified: false},
	}}
	router := guardRouter(sessions, "sess-1")

	// The verification flow itself stays reachable.
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/verification/phone", nil))
	require.Equal(t, http.StatusOK, w.Code)

	// So does session management.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRequireVerifiedPassesVerifiedSession(t *testing.T) {
	sessions := &stubSessions{sessions: map[string]*models.Session{
		"sess-1": {ID: "sess-1", TwoFactorVerified: true},
	}}
	router := guardRouter(sessions, "sess-1")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/listings", nil))
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRequireVerifiedSkipsAnonymousRequests(t *testing.T) {
	router := guardRouter(&stubSessions{}, "")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/listings", nil))
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRequireVerifiedUnknownSession(t *testing.T) {
	router := guardRouter(&stubSessions{}, "ghost")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/listings", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
