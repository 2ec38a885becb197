package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/fisiohome/fisiohome-api/internal/models"
	"github.com/fisiohome/fisiohome-api/internal/service"
	"github.com/fisiohome/fisiohome-api/pkg/response"
)

type stubUserRepo struct {
	user *models.User
}

func (s *stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.user != nil && s.user.Email == email {
		return s.user, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if s.user != nil && s.user.ID == id {
		return s.user, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubUserRepo) Create(ctx context.Context, user *models.User) error {
	user.ID = "usr-1"
	s.user = user
	return nil
}

func (s *stubUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	return nil
}

func newAuthRouter(repo *stubUserRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	auth := service.NewAuthService(repo, &stubAuditWriter{}, nil, nil, service.AuthConfig{
		AccessTokenSecret: "test-secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "fisiohome-test",
	})
	h := NewAuthHandler(auth)

	router := gin.New()
	router.POST("/auth/register", h.Register)
	router.POST("/auth/login", h.Login)
	return router
}

func TestAuthHandlerRegister(t *testing.T) {
	router := newAuthRouter(&stubUserRepo{})

	body := bytes.NewBufferString(`{"email":"ana@example.com","password":"secret123","full_name":"Ana Putri"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/register", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	data := envelope.Data.(map[string]interface{})
	assert.Equal(t, "patient", data["role"])
	assert.NotContains(t, w.Body.String(), "password_hash")
}

func TestAuthHandlerRegister_InvalidPayload(t *testing.T) {
	router := newAuthRouter(&stubUserRepo{})

	body := bytes.NewBufferString(`{"email":"not-an-email","password":"x","full_name":""}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/register", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandlerLogin(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	repo := &stubUserRepo{user: &models.User{
		ID:           "usr-1",
		Email:        "ana@example.com",
		PasswordHash: string(hash),
		FullName:     "Ana Putri",
		Role:         models.RolePatient,
		Active:       true,
	}}
	router := newAuthRouter(repo)

	body := bytes.NewBufferString(`{"email":"ana@example.com","password":"secret123"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	data := envelope.Data.(map[string]interface{})
	assert.NotEmpty(t, data["access_token"])
}

func TestAuthHandlerLogin_BadCredentials(t *testing.T) {
	router := newAuthRouter(&stubUserRepo{})

	body := bytes.NewBufferString(`{"email":"ana@example.com","password":"wrong123"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
