package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fisiohome/fisiohome-api/internal/models"
	appErrors "github.com/fisiohome/fisiohome-api/pkg/errors"
)

type mockTherapistRepo struct {
	therapists []models.Therapist
	upserted   *models.TherapistProfile
}

func (m *mockTherapistRepo) FindByID(ctx context.Context, id string) (*models.Therapist, error) {
	for i := range m.therapists {
		if m.therapists[i].ID == id {
			return &m.therapists[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockTherapistRepo) List(ctx context.Context, filter models.TherapistFilter) ([]models.Therapist, int, error) {
	return m.therapists, len(m.therapists), nil
}

func (m *mockTherapistRepo) FindProfile(ctx context.Context, userID string) (*models.TherapistProfile, error) {
	return nil, sql.ErrNoRows
}

func (m *mockTherapistRepo) UpsertProfile(ctx context.Context, profile *models.TherapistProfile) error {
	m.upserted = profile
	return nil
}

type mockUserReader struct {
	user *models.User
}

func (m *mockUserReader) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.user == nil || m.user.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.user, nil
}

func TestTherapistGet_NotFound(t *testing.T) {
	svc := NewTherapistService(&mockTherapistRepo{}, &mockUserReader{}, nil, nil)

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTherapistUpsertProfile(t *testing.T) {
	repo := &mockTherapistRepo{}
	users := &mockUserReader{user: &models.User{ID: "th-1", Role: models.RoleTherapist}}
	svc := NewTherapistService(repo, users, nil, nil)

	req := UpsertProfileRequest{Specialization: "Ortopedi", HourlyRate: 200000, Available: true}

	profile, err := svc.UpsertProfile(context.Background(), models.Actor{UserID: "th-1", Role: models.RoleTherapist}, "th-1", req)
	require.NoError(t, err)
	assert.Equal(t, "th-1", profile.UserID)
	assert.Equal(t, 200000.0, profile.HourlyRate)
	require.NotNil(t, repo.upserted)
}

func TestTherapistUpsertProfile_OtherTherapistForbidden(t *testing.T) {
	users := &mockUserReader{user: &models.User{ID: "th-1", Role: models.RoleTherapist}}
	svc := NewTherapistService(&mockTherapistRepo{}, users, nil, nil)

	req := UpsertProfileRequest{Specialization: "Ortopedi", HourlyRate: 200000}
	_, err := svc.UpsertProfile(context.Background(), models.Actor{UserID: "th-2", Role: models.RoleTherapist}, "th-1", req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestTherapistUpsertProfile_TargetMustBeTherapist(t *testing.T) {
	users := &mockUserReader{user: &models.User{ID: "pat-1", Role: models.RolePatient}}
	svc := NewTherapistService(&mockTherapistRepo{}, users, nil, nil)

	req := UpsertProfileRequest{Specialization: "Ortopedi", HourlyRate: 200000}
	_, err := svc.UpsertProfile(context.Background(), models.Actor{UserID: "adm-1", Role: models.RoleAdmin}, "pat-1", req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
