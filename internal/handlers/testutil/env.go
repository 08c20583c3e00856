package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mgiordano/clasificados/internal/api"
	"github.com/mgiordano/clasificados/internal/app"
	iauth "github.com/mgiordano/clasificados/internal/auth"
	sharedtestutil "github.com/mgiordano/clasificados/internal/database/testutil"
	"github.com/mgiordano/clasificados/internal/models"
	"github.com/mgiordano/clasificados/internal/services"
	"github.com/mgiordano/clasificados/pkg/crypto"
	"github.com/mgiordano/clasificados/pkg/mail"
	"github.com/mgiordano/clasificados/pkg/sms"
)

// Mailbox records outbound email for assertions.
type Mailbox struct {
	mu       sync.Mutex
	Messages []mail.Message
}

func (m *Mailbox) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, msg)
	return nil
}

// Last returns the most recent message.
func (m *Mailbox) Last(t *testing.T) mail.Message {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.Messages)
	return m.Messages[len(m.Messages)-1]
}

// Outbox records outbound SMS for assertions.
type Outbox struct {
	mu       sync.Mutex
	Messages []sms.Message
}

func (o *Outbox) Send(_ context.Context, msg sms.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Messages = append(o.Messages, msg)
	return nil
}

// Last returns the most recent message.
func (o *Outbox) Last(t *testing.T) sms.Message {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	require.NotEmpty(t, o.Messages)
	return o.Messages[len(o.Messages)-1]
}

// Env encapsulates a fully-wired API instance backed by an in-memory
// database for handler tests.
type Env struct {
	T        *testing.T
	DB       *gorm.DB
	Router   *gin.Engine
	JWT      *iauth.JWTService
	Sessions *iauth.SessionService
	Mailbox  *Mailbox
	Outbox   *Outbox
}

// NewEnv provisions a fresh handler test environment with migrations and
// seed data applied.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithAutoMigrate(), sharedtestutil.WithSeedData())

	cfg := &app.Config{
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{
				Secret: "test-suite-super-secret-key-32-bytes!!",
				Issuer: "test-suite",
				TTL:    time.Hour,
			},
			Session: app.SessionSettings{
				RefreshTTL:    24 * time.Hour,
				RefreshLength: 48,
			},
		},
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	require.NoError(t, err)
	sessionSvc, err := iauth.NewSessionService(db, jwtSvc, cfg.Auth.SessionServiceConfig())
	require.NoError(t, err)
	provider, err := iauth.NewLocalProvider(db)
	require.NoError(t, err)

	mailbox := &Mailbox{}
	outbox := &Outbox{}

	registrations, err := services.NewRegistrationService(db, mailbox)
	require.NoError(t, err)
	verifications, err := services.NewPhoneVerificationService(db, outbox, sessionSvc)
	require.NoError(t, err)
	profiles, err := services.NewProfileService(db)
	require.NoError(t, err)
	listings, err := services.NewListingService(db)
	require.NoError(t, err)
	categories, err := services.NewCategoryService(db)
	require.NoError(t, err)
	comments, err := services.NewCommentService(db)
	require.NoError(t, err)
	reports, err := services.NewReportService(db)
	require.NoError(t, err)

	router, err := api.NewRouter(db, cfg, api.Dependencies{
		JWT:           jwtSvc,
		Provider:      provider,
		Sessions:      sessionSvc,
		Registrations: registrations,
		Verifications: verifications,
		Profiles:      profiles,
		Listings:      listings,
		Categories:    categories,
		Comments:      comments,
		Reports:       reports,
	})
	require.NoError(t, err)

	return &Env{
		T:        t,
		DB:       db,
		Router:   router,
		JWT:      jwtSvc,
		Sessions: sessionSvc,
		Mailbox:  mailbox,
		Outbox:   outbox,
	}
}

// CreateUser inserts an active user with the given password and returns it.
func (e *Env) CreateUser(username, password string) *models.User {
	e.T.Helper()

	hashed, err := crypto.HashPassword(password)
	require.NoError(e.T, err)

	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: hashed,
		IsActive: true,
	}
	require.NoError(e.T, e.DB.Create(user).Error)
	return user
}

// Request performs an HTTP request against the wired router. A non-empty
// token is attached as a bearer token; body may be nil.
func (e *Env) Request(method, path, token string, body any) *httptest.ResponseRecorder {
	e.T.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(e.T, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

// Login performs the login flow and returns the access token of the new,
// unverified session.
func (e *Env) Login(identifier, password string) string {
	e.T.Helper()

	w := e.Request(http.MethodPost, "/api/auth/login", "", gin.H{
		"identifier": identifier,
		"password":   password,
	})
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	var payload struct {
		Data struct {
			Tokens struct {
				AccessToken string `json:"access_token"`
			} `json:"tokens"`
		} `json:"data"`
	}
	require.NoError(e.T, json.Unmarshal(w.Body.Bytes(), &payload))
	require.NotEmpty(e.T, payload.Data.Tokens.AccessToken)
	return payload.Data.Tokens.AccessToken
}

// VerifyPhone completes the phone verification flow for the session behind
// token, returning the phone number used.
func (e *Env) VerifyPhone(token, phone string) {
	e.T.Helper()

	w := e.Request(http.MethodPost, "/api/verification/phone", token, gin.H{"phone": phone})
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	code := extractCode(e.T, e.Outbox.Last(e.T).Body)
	w = e.Request(http.MethodPost, "/api/verification/phone/confirm", token, gin.H{"code": code})
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())
}

func extractCode(t *testing.T, body string) string {
	t.Helper()
	for i := 0; i+6 <= len(body); i++ {
		candidate := body[i : i+6]
		digits := true
		for _, r := range candidate {
			if r < '0' || r > '9' {
				digits = false
				break
			}
		}
		if digits {
			return candidate
		}
	}
	t.Fatalf("no 6-digit code found in %q", body)
	return ""
}

// ExtractCode finds the first 6-digit code in a message body.
func ExtractCode(t *testing.T, body string) string {
	return extractCode(t, body)
}
