package service

import (
	"context"
	"strings"

	"bloh/internal/models"
	"bloh/internal/policy"
	"bloh/internal/repository"
	"bloh/internal/validation"
)

// TagService manages the shared tag vocabulary. Writes are admin-only.
type TagService struct {
	tags repository.TagRepository
}

type TagInput struct {
	Name  *string
	Slug  *string
	Color *string
}

func NewTagService(tags repository.TagRepository) *TagService {
	return &TagService{tags: tags}
}

func (s *TagService) List(ctx context.Context) ([]models.Tag, error) {
	return s.tags.List(ctx)
}

func (s *TagService) Get(ctx context.Context, id uint) (*models.Tag, error) {
	return s.tags.GetByID(ctx, id)
}

func (s *TagService) Create(ctx context.Context, id policy.Identity, in TagInput) (*models.Tag, error) {
	if err := policy.AdminWrite.Check(id, policy.Write, 0); err != nil {
		return nil, err
	}
	tag := &models.Tag{}
	if in.Name == nil {
		return nil, models.NewFieldValidationError("name", "name is required")
	}
	if err := s.apply(ctx, tag, in); err != nil {
		return nil, err
	}
	if err := s.tags.Create(ctx, tag); err != nil {
		return nil, err
	}
	return tag, nil
}

func (s *TagService) Update(ctx context.Context, id policy.Identity, tagID uint, in TagInput) (*models.Tag, error) {
	if err := policy.AdminWrite.Check(id, policy.Write, 0); err != nil {
		return nil, err
	}
	tag, err := s.tags.GetByID(ctx, tagID)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, tag, in); err != nil {
		return nil, err
	}
	if err := s.tags.Update(ctx, tag); err != nil {
		return nil, err
	}
	return tag, nil
}

// Delete detaches the tag from every post and removes it.
func (s *TagService) Delete(ctx context.Context, id policy.Identity, tagID uint) error {
	if err := policy.AdminWrite.Check(id, policy.Write, 0); err != nil {
		return err
	}
	if _, err := s.tags.GetByID(ctx, tagID); err != nil {
		return err
	}
	return s.tags.Delete(ctx, tagID)
}

func (s *TagService) apply(ctx context.Context, tag *models.Tag, in TagInput) error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if err := validation.ValidateText("name", name, validation.MaxNameLength); err != nil {
			return models.NewFieldValidationError("name", err.Error())
		}
		if tag.Name != name && in.Slug == nil {
			tag.Slug = models.TagSlug(name)
		}
		tag.Name = name
	}
	if in.Slug != nil {
		tag.Slug = models.TagSlug(*in.Slug)
	}
	if tag.Slug == "" {
		tag.Slug = models.TagSlug(tag.Name)
	}
	if tag.Slug == "" {
		return models.NewFieldValidationError("slug", "slug must contain letters or digits")
	}
	if in.Color != nil {
		color := strings.TrimSpace(*in.Color)
		if color != "" {
			if err := validation.ValidateHexColor(color); err != nil {
				return models.NewFieldValidationError("color", err.Error())
			}
		}
		tag.Color = color
	}

	taken, err := s.tags.Exists(ctx, tag.Name, tag.Slug, tag.ID)
	if err != nil {
		return err
	}
	if taken {
		return models.NewFieldValidationError("name", "A tag with this name or slug already exists")
	}
	return nil
}
