package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/mgiordano/clasificados/internal/app"
	iauth "github.com/mgiordano/clasificados/internal/auth"
	"github.com/mgiordano/clasificados/internal/handlers"
	"github.com/mgiordano/clasificados/internal/middleware"
	"github.com/mgiordano/clasificados/internal/monitoring"
	"github.com/mgiordano/clasificados/internal/services"
)

// guardAllowPrefixes lists the paths an authenticated but unverified session
// may still reach: entering and completing verification, and session
// management. Everything else under /api answers 403 VERIFICATION_REQUIRED.
var guardAllowPrefixes = []string{
	"/api/auth/login",
	"/api/auth/logout",
	"/api/auth/refresh",
	"/api/auth/register",
	"/api/verification",
}

// Dependencies bundles the services the router wires into handlers.
type Dependencies struct {
	JWT           *iauth.JWTService
	Provider      *iauth.LocalProvider
	Sessions      *iauth.SessionService
	Registrations *services.RegistrationService
	Verifications *services.PhoneVerificationService
	Profiles      *services.ProfileService
	Listings      *services.ListingService
	Categories    *services.CategoryService
	Comments      *services.CommentService
	Reports       *services.ReportService
}

func (d Dependencies) validate() error {
	switch {
	case d.JWT == nil:
		return fmt.Errorf("jwt service must be provided")
	case d.Provider == nil:
		return fmt.Errorf("auth provider must be provided")
	case d.Sessions == nil:
		return fmt.Errorf("session service must be provided")
	case d.Registrations == nil:
		return fmt.Errorf("registration service must be provided")
	case d.Verifications == nil:
		return fmt.Errorf("verification service must be provided")
	case d.Profiles == nil:
		return fmt.Errorf("profile service must be provided")
	case d.Listings == nil:
		return fmt.Errorf("listing service must be provided")
	case d.Categories == nil:
		return fmt.Errorf("category service must be provided")
	case d.Comments == nil:
		return fmt.Errorf("comment service must be provided")
	case d.Reports == nil:
		return fmt.Errorf("report service must be provided")
	}
	return nil
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(db *gorm.DB, cfg *app.Config, deps Dependencies) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if err := deps.validate(); err != nil {
		return nil, err
	}

	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())

	limit := cfg.Server.RateLimit
	window := limit.Window
	if window <= 0 {
		window = time.Minute
	}
	r.Use(middleware.RateLimit(limit.Requests, window))

	monitor := monitoring.NewManager(monitoring.DatabaseCheck(db))
	r.GET("/health", handlers.Health())
	r.GET("/health/ready", handlers.Readiness(monitor))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// All /api routes see the caller's identity when a valid token is sent,
	// and the verification guard routes unverified sessions to the phone
	// verification entry point.
	api := r.Group("/api")
	api.Use(middleware.OptionalAuth(deps.JWT))
	api.Use(middleware.RequireVerified(deps.Sessions, guardAllowPrefixes))

	registerAuthRoutes(api, db, deps)
	registerVerificationRoutes(api, deps)
	registerCatalogRoutes(api, deps)

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
