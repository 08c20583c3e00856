package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mgiordano/clasificados/internal/models"
	"github.com/mgiordano/clasificados/pkg/errors"
	"github.com/mgiordano/clasificados/pkg/response"
)

// VerificationRedirectPath is the entry point unverified sessions are sent
// to.
const VerificationRedirectPath = "/api/verification/phone"

// SessionReader loads a session by id. Satisfied by auth.SessionService.
type SessionReader interface {
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)
}

// RequireVerified blocks authenticated requests whose session has not
// completed phone verification, answering 403 VERIFICATION_REQUIRED with a
// redirect hint. Paths under an allow-listed prefix pass through so the
// verification flow itself, and session management, stay reachable.
//
// The check reads the per-session two-factor marker, not the profile's
// persisted phone_verified flag: each new login must verify again. The
// middleware never mutates state; denied requests can be retried after
// verifying.
func RequireVerified(sessions SessionReader, allowPrefixes []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetString(CtxSessionIDKey)
		if sessionID == "" {
			// Not authenticated; nothing to guard here.
			c.Next()
			return
		}

		path := c.Request.URL.Path
		for _, prefix := range allowPrefixes {
			if prefix != "" && strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		session, err := sessions.GetSession(c.Request.Context(), sessionID)
		if err != nil {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !session.TwoFactorVerified {
			response.ErrorWithRedirect(c, errors.ErrVerificationRequired, VerificationRedirectPath)
			c.Abort()
			return
		}

		c.Next()
	}
}
