package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	iauth "github.com/mgiordano/clasificados/internal/auth"
	"github.com/mgiordano/clasificados/internal/middleware"
	"github.com/mgiordano/clasificados/internal/services"
	appErrors "github.com/mgiordano/clasificados/pkg/errors"
	"github.com/mgiordano/clasificados/pkg/response"
)

var errCodeExpired = appErrors.New("CODE_EXPIRED", "The verification code has expired, request a new one", http.StatusBadRequest)

// respondServiceError translates service-layer sentinels into the API error
// taxonomy. Unrecognised errors become opaque 500s with the cause attached
// internally.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrPasswordMismatch):
		response.Error(c, appErrors.NewBadRequest("passwords do not match"))
	case errors.Is(err, services.ErrEmailTaken):
		response.Error(c, appErrors.ErrEmailConflict)
	case errors.Is(err, services.ErrUsernameTaken):
		response.Error(c, appErrors.New("USERNAME_CONFLICT", "Username is already taken", http.StatusConflict))
	case errors.Is(err, services.ErrNoPendingRegistration),
		errors.Is(err, services.ErrNoPendingCode):
		response.Error(c, appErrors.ErrNoPendingVerification)
	case errors.Is(err, services.ErrCodeMismatch):
		response.Error(c, appErrors.ErrInvalidCode)
	case errors.Is(err, services.ErrCodeExpired):
		response.Error(c, errCodeExpired)
	case errors.Is(err, services.ErrTooManyAttempts):
		response.Error(c, appErrors.ErrRateLimit)
	case errors.Is(err, services.ErrPhoneRequired):
		response.Error(c, appErrors.NewBadRequest("phone number is required"))
	case errors.Is(err, services.ErrListingNotFound),
		errors.Is(err, services.ErrCategoryNotFound):
		response.Error(c, appErrors.ErrNotFound)
	case errors.Is(err, services.ErrNotListingOwner):
		response.Error(c, appErrors.ErrForbidden)
	case errors.Is(err, services.ErrPhoneUnverified):
		response.ErrorWithRedirect(c, appErrors.ErrVerificationRequired, middleware.VerificationRedirectPath)
	case errors.Is(err, services.ErrInvalidCondition),
		errors.Is(err, services.ErrInvalidRole),
		errors.Is(err, services.ErrCommentEmpty),
		errors.Is(err, services.ErrCommentTooLong),
		errors.Is(err, services.ErrInvalidReportEntity),
		errors.Is(err, services.ErrReportReasonRequired):
		response.Error(c, appErrors.NewBadRequest(err.Error()))
	case errors.Is(err, iauth.ErrAccountInactive):
		response.Error(c, appErrors.New("ACCOUNT_INACTIVE", "Account has not been activated", http.StatusForbidden))
	case errors.Is(err, iauth.ErrInvalidCredentials):
		response.Error(c, appErrors.ErrInvalidCredentials)
	default:
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
	}
}
