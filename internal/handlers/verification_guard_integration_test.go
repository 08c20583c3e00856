package handlers_test

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/mgiordano/clasificados/internal/handlers/testutil"
	"github.com/mgiordano/clasificados/internal/models"
)

func TestGuardRoutesUnverifiedSessionToVerification(t *testing.T) {
	env := testutil.NewEnv(t)
	env.CreateUser("bruno", "pw123")
	token := env.Login("bruno", "pw123")

	// Any guarded endpoint answers 403 with the redirect hint.
	w := env.Request(http.MethodGet, "/api/listings", token, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Contains(t, w.Body.String(), "VERIFICATION_REQUIRED")
	require.Contains(t, w.Body.String(), "/api/verification/phone")

	w = env.Request(http.MethodGet, "/api/profile", token, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	// Anonymous browsing stays open.
	w = env.Request(http.MethodGet, "/api/listings", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	// The verification flow and logout stay reachable.
	w = env.Request(http.MethodPost, "/api/verification/phone", token, gin.H{"phone": "+54 11 5555-0001"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.Request(http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestGuardLiftsAfterPhoneVerification(t *testing.T) {
	env := testutil.NewEnv(t)
	env.CreateUser("bruno", "pw123")
	token := env.Login("bruno", "pw123")

	env.VerifyPhone(token, "+54 11 5555-0001")

	w := env.Request(http.MethodGet, "/api/listings", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.Request(http.MethodGet, "/api/profile", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"phone_verified":true`)
}

func TestGuardIsPerSessionNotPerProfile(t *testing.T) {
	env := testutil.NewEnv(t)
	env.CreateUser("bruno", "pw123")

	// First session verifies the phone.
	first := env.Login("bruno", "pw123")
	env.VerifyPhone(first, "+54 11 5555-0001")

	var profile models.Profile
	require.NoError(t, env.DB.First(&profile, "phone = ?", "+54 11 5555-0001").Error)
	require.True(t, profile.PhoneVerified)

	// A fresh login starts unverified even though the profile phone is
	// verified: the marker lives on the session.
	second := env.Login("bruno", "pw123")
	w := env.Request(http.MethodGet, "/api/listings", second, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Contains(t, w.Body.String(), "VERIFICATION_REQUIRED")

	// The first session is still fine.
	w = env.Request(http.MethodGet, "/api/listings", first, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestPhoneVerificationWrongCodeRetryable(t *testing.T) {
	env := testutil.NewEnv(t)
	env.CreateUser("bruno", "pw123")
	token := env.Login("bruno", "pw123")

	w := env.Request(http.MethodPost, "/api/verification/phone", token, gin.H{"phone": "+54 11 5555-0001"})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.Request(http.MethodPost, "/api/verification/phone/confirm", token, gin.H{"code": "000000"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "INVALID_CODE")

	code := testutil.ExtractCode(t, env.Outbox.Last(t).Body)
	w = env.Request(http.MethodPost, "/api/verification/phone/confirm", token, gin.H{"code": code})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestPhoneConfirmWithoutSubmit(t *testing.T) {
	env := testutil.NewEnv(t)
	env.CreateUser("bruno", "pw123")
	token := env.Login("bruno", "pw123")

	w := env.Request(http.MethodPost, "/api/verification/phone/confirm", token, gin.H{"code": "123456"})
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), "NO_PENDING_VERIFICATION")
}
