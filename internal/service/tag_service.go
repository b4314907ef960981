package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	apperrors "newsdesk/internal/errors"
	"newsdesk/internal/model"
	"newsdesk/internal/repository"
)

// TagService handles explicit tag operations.
type TagService interface {
	List(ctx context.Context) ([]model.Tag, error)
	Create(ctx context.Context, name string) (*model.Tag, error)
}

type tagService struct {
	tagRepo repository.TagRepository
}

// NewTagService creates a new tag service.
func NewTagService(tagRepo repository.TagRepository) TagService {
	return &tagService{tagRepo: tagRepo}
}

func (s *tagService) List(ctx context.Context) ([]model.Tag, error) {
	return s.tagRepo.List(ctx)
}

// Create makes a new tag with the trimmed name. Unlike the get-or-create
// path on article writes, an existing name is a conflict here.
func (s *tagService) Create(ctx context.Context, name string) (*model.Tag, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		verr := apperrors.NewValidationError()
		verr.Add("name", "Name cannot be empty.")
		return nil, verr
	}
	if utf8.RuneCountInString(trimmed) > maxTagNameLength {
		verr := apperrors.NewValidationError()
		verr.Add("name", fmt.Sprintf("Ensure this field has no more than %d characters.", maxTagNameLength))
		return nil, verr
	}

	tag := &model.Tag{Name: trimmed}
	if err := s.tagRepo.Create(ctx, tag); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrTagAlreadyExists
		}
		return nil, fmt.Errorf("create tag: %w", err)
	}
	return tag, nil
}
