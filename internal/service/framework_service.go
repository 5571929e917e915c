package service

import (
	"context"
	"fmt"

	"complianceiq/internal/model"
	"complianceiq/internal/repository"
)

// FrameworkService handles framework CRUD operations. Frameworks are
// validated on the way in so malformed definitions are rejected at load
// time, never discovered mid-assessment.
type FrameworkService struct {
	frameworkRepo repository.FrameworkRepo
}

// NewFrameworkService creates a new framework service
func NewFrameworkService(frameworkRepo repository.FrameworkRepo) *FrameworkService {
	return &FrameworkService{
		frameworkRepo: frameworkRepo,
	}
}

// Create validates and stores a new framework
func (s *FrameworkService) Create(ctx context.Context, fw *model.Framework) (string, error) {
	if err := fw.Validate(); err != nil {
		return "", fmt.Errorf("invalid framework: %w", err)
	}
	return s.frameworkRepo.Create(ctx, fw)
}

// GetByID retrieves a framework by ID
func (s *FrameworkService) GetByID(ctx context.Context, id string) (*model.Framework, error) {
	return s.frameworkRepo.GetByID(ctx, id)
}

// List retrieves all frameworks
func (s *FrameworkService) List(ctx context.Context) ([]*model.Framework, error) {
	return s.frameworkRepo.List(ctx)
}

// Update validates and replaces an existing framework
func (s *FrameworkService) Update(ctx context.Context, fw *model.Framework) error {
	if err := fw.Validate(); err != nil {
		return fmt.Errorf("invalid framework: %w", err)
	}
	return s.frameworkRepo.Update(ctx, fw)
}

// Delete deletes a framework
func (s *FrameworkService) Delete(ctx context.Context, id string) error {
	return s.frameworkRepo.Delete(ctx, id)
}
