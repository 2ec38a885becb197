package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/fisiohome/fisiohome-api/internal/models"
	appErrors "github.com/fisiohome/fisiohome-api/pkg/errors"
)

type therapistRepository interface {
	FindByID(ctx context.Context, id string) (*models.Therapist, error)
	List(ctx context.Context, filter models.TherapistFilter) ([]models.Therapist, int, error)
	FindProfile(ctx context.Context, userID string) (*models.TherapistProfile, error)
	UpsertProfile(ctx context.Context, profile *models.TherapistProfile) error
}

type userReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// UpsertProfileRequest sets billing and availability info for a therapist.
type UpsertProfileRequest struct {
	Specialization string  `json:"specialization" validate:"required"`
	HourlyRate     float64 `json:"hourly_rate" validate:"required,gt=0"`
	Available      bool    `json:"available"`
	Bio            string  `json:"bio"`
}

// TherapistService exposes the therapist directory and profile management.
type TherapistService struct {
	repo      therapistRepository
	users     userReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTherapistService instantiates TherapistService.
func NewTherapistService(repo therapistRepository, users userReader, validate *validator.Validate, logger *zap.Logger) *TherapistService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TherapistService{repo: repo, users: users, validator: validate, logger: logger}
}

// List returns the therapist directory.
func (s *TherapistService) List(ctx context.Context, filter models.TherapistFilter) ([]models.Therapist, *models.Pagination, error) {
	therapists, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list therapists")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return therapists, pagination, nil
}

// Get returns a single therapist with profile.
func (s *TherapistService) Get(ctx context.Context, id string) (*models.Therapist, error) {
	therapist, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "therapist not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load therapist")
	}
	return therapist, nil
}

// UpsertProfile creates or updates a therapist's profile. Therapists may
// only edit their own; admins may edit any.
func (s *TherapistService) UpsertProfile(ctx context.Context, actor models.Actor, therapistID string, req UpsertProfileRequest) (*models.TherapistProfile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}
	if !IsAuthorized(actor, ActionTherapistProfileManage, therapistID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot manage another therapist's profile")
	}

	user, err := s.users.FindByID(ctx, therapistID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "therapist not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if user.Role != models.RoleTherapist {
		return nil, appErrors.Clone(appErrors.ErrValidation, "user is not a therapist")
	}

	profile := models.TherapistProfile{
		UserID:         therapistID,
		Specialization: req.Specialization,
		HourlyRate:     req.HourlyRate,
		Available:      req.Available,
		Bio:            req.Bio,
	}
	if err := s.repo.UpsertProfile(ctx, &profile); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save therapist profile")
	}
	return &profile, nil
}
