package projects

import (
	"context"

	"github.com/google/uuid"

	pkgerrors "github.com/decorlyhq/decorly-backend/pkg/errors"
)

// Service resolves project facts other domains depend on.
type Service struct {
	repo Repository
}

// NewService builds a projects service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// FeeEstimate returns the project's design fee estimate in cents. ok is
// false when the project is unknown or carries no estimate.
func (s *Service) FeeEstimate(ctx context.Context, projectID uuid.UUID) (int, bool, error) {
	project, err := s.repo.FindByID(ctx, projectID)
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	if project.FeeEstimateCents <= 0 {
		return 0, false, nil
	}
	return project.FeeEstimateCents, true, nil
}
