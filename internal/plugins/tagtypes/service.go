package tagtypes

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/buhurtdb/buhurtdb/internal/apperror"
)

// namePattern restricts tag type names to lowercase slugs.
var namePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{1,49}$`)

// cacheTTL bounds how stale a lookup can be on a replica that did not
// perform the write. Writes through this service flush immediately.
const cacheTTL = 5 * time.Minute

// TagTypeService defines the business logic contract for the registry.
// The tag engine and the voting workflow resolve types through it.
type TagTypeService interface {
	List(ctx context.Context, includeInactive bool) ([]TagType, error)
	GetByID(ctx context.Context, id int) (*TagType, error)

	// GetByName resolves an active tag type by name. Lookups are cached.
	GetByName(ctx context.Context, name string) (*TagType, error)

	Create(ctx context.Context, req CreateTagTypeRequest) (*TagType, error)
	Update(ctx context.Context, id int, req UpdateTagTypeRequest) (*TagType, error)
	Deactivate(ctx context.Context, id int) error
}

// tagTypeService implements TagTypeService with an in-process read cache.
type tagTypeService struct {
	repo  TagTypeRepository
	cache *cache.Cache
}

// NewTagTypeService creates a new TagTypeService.
func NewTagTypeService(repo TagTypeRepository) TagTypeService {
	return &tagTypeService{
		repo:  repo,
		cache: cache.New(cacheTTL, 2*cacheTTL),
	}
}

// List returns tag types in display order.
func (s *tagTypeService) List(ctx context.Context, includeInactive bool) ([]TagType, error) {
	types, err := s.repo.List(ctx, includeInactive)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing tag types: %w", err))
	}
	return types, nil
}

// GetByID retrieves a tag type by ID, active or not.
func (s *tagTypeService) GetByID(ctx context.Context, id int) (*TagType, error) {
	key := "id:" + strconv.Itoa(id)
	if cached, ok := s.cache.Get(key); ok {
		tt := cached.(TagType)
		return &tt, nil
	}

	tt, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, *tt, cache.DefaultExpiration)
	return tt, nil
}

// GetByName resolves an active tag type by name. Inactive types are
// reported as not found so no new tags can be attached to them.
func (s *tagTypeService) GetByName(ctx context.Context, name string) (*TagType, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	key := "name:" + name
	if cached, ok := s.cache.Get(key); ok {
		tt := cached.(TagType)
		return &tt, nil
	}

	tt, err := s.repo.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if !tt.IsActive {
		return nil, apperror.NewNotFound("tag type not found")
	}
	s.cache.Set(key, *tt, cache.DefaultExpiration)
	return tt, nil
}

// Create registers a new admin-defined tag type.
func (s *tagTypeService) Create(ctx context.Context, req CreateTagTypeRequest) (*TagType, error) {
	name := strings.ToLower(strings.TrimSpace(req.Name))
	if !namePattern.MatchString(name) {
		return nil, apperror.NewValidation("name must be 2-50 lowercase letters, digits or underscores, starting with a letter")
	}
	if req.DisplayOrder < 0 {
		return nil, apperror.NewValidation("display order must not be negative")
	}

	tt := &TagType{
		Name:         name,
		IsPrivileged: req.IsPrivileged,
		IsParent:     req.IsParent,
		DisplayOrder: req.DisplayOrder,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, tt); err != nil {
		return nil, err
	}
	s.cache.Flush()

	slog.Info("tag type created", slog.Int("tag_type_id", tt.ID), slog.String("name", tt.Name))
	return tt, nil
}

// Update applies a partial update. Well-known types keep their name and
// flags because the hierarchy rules and the voting workflow are keyed on them.
func (s *tagTypeService) Update(ctx context.Context, id int, req UpdateTagTypeRequest) (*TagType, error) {
	tt, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	wellKnown := IsWellKnown(tt.Name)

	if req.Name != nil {
		name := strings.ToLower(strings.TrimSpace(*req.Name))
		if name != tt.Name {
			if wellKnown {
				return nil, apperror.NewValidation(fmt.Sprintf("tag type %q cannot be renamed", tt.Name))
			}
			if !namePattern.MatchString(name) {
				return nil, apperror.NewValidation("name must be 2-50 lowercase letters, digits or underscores, starting with a letter")
			}
			tt.Name = name
		}
	}
	if req.IsParent != nil && *req.IsParent != tt.IsParent {
		if wellKnown {
			return nil, apperror.NewValidation(fmt.Sprintf("tag type %q cannot change its parent flag", tt.Name))
		}
		tt.IsParent = *req.IsParent
	}
	if req.IsPrivileged != nil && *req.IsPrivileged != tt.IsPrivileged {
		if wellKnown {
			return nil, apperror.NewValidation(fmt.Sprintf("tag type %q cannot change its privileged flag", tt.Name))
		}
		tt.IsPrivileged = *req.IsPrivileged
	}
	if req.DisplayOrder != nil {
		if *req.DisplayOrder < 0 {
			return nil, apperror.NewValidation("display order must not be negative")
		}
		tt.DisplayOrder = *req.DisplayOrder
	}

	if err := s.repo.Update(ctx, tt); err != nil {
		return nil, err
	}
	s.cache.Flush()
	return tt, nil
}

// Deactivate soft-deletes an admin-defined tag type.
func (s *tagTypeService) Deactivate(ctx context.Context, id int) error {
	tt, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if IsWellKnown(tt.Name) {
		return apperror.NewValidation(fmt.Sprintf("tag type %q cannot be deactivated", tt.Name))
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return apperror.NewInternal(err)
	}
	s.cache.Flush()

	slog.Info("tag type deactivated", slog.Int("tag_type_id", id), slog.String("name", tt.Name))
	return nil
}
