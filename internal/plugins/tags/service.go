package tags

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/buhurtdb/buhurtdb/internal/apperror"
	"github.com/buhurtdb/buhurtdb/internal/metrics"
	"github.com/buhurtdb/buhurtdb/internal/plugins/tagtypes"
)

// TagService defines the business logic contract for fight tags.
type TagService interface {
	// Add attaches a non-supercategory tag to a fight.
	Add(ctx context.Context, fightID int, req AddTagRequest) (*Tag, error)

	// Update changes the value of a non-privileged tag in place.
	Update(ctx context.Context, fightID, tagID int, req UpdateTagRequest) (*Tag, error)

	// Deactivate switches a tag and its whole subtree off.
	Deactivate(ctx context.Context, fightID, tagID int) (*Tag, error)

	// Delete hard-deletes a tag that has no active children.
	Delete(ctx context.Context, fightID, tagID int) error

	ListForFight(ctx context.Context, fightID int, includeInactive bool) ([]Tag, error)
	Get(ctx context.Context, tagID int) (*Tag, error)
	List(ctx context.Context, filter ListFilter) ([]Tag, error)
}

// tagService implements TagService.
type tagService struct {
	repo    TagRepository
	types   tagtypes.TagTypeService
	metrics *metrics.Metrics
}

// NewTagService creates a new TagService.
func NewTagService(repo TagRepository, types tagtypes.TagTypeService, m *metrics.Metrics) TagService {
	return &tagService{repo: repo, types: types, metrics: m}
}

// Add validates and inserts a tag. The first failing check decides the
// error: tag type, fight, structure, value, then singular-type duplicate.
func (s *tagService) Add(ctx context.Context, fightID int, req AddTagRequest) (*Tag, error) {
	tt, err := s.types.GetByName(ctx, req.TagTypeName)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewValidation("tag type not found")
		}
		return nil, err
	}

	var created *Tag
	err = s.repo.WithinFight(ctx, fightID, func(store TreeStore) error {
		p, err := Place(ctx, store, fightID, tt, req.Value, req.ParentTagID)
		if err != nil {
			return err
		}

		if !tt.AllowsMultiple() {
			existing, err := store.FindActiveByType(ctx, fightID, tt.ID)
			if err != nil {
				return err
			}
			if existing != nil {
				return apperror.NewConflict(fmt.Sprintf("fight already has an active %s tag", tt.Name))
			}
		}

		tag := &Tag{
			FightID:      fightID,
			TagTypeID:    tt.ID,
			TagTypeName:  tt.Name,
			ParentTagID:  p.ParentTagID,
			Value:        p.Value,
			typeIsParent: tt.IsParent,
		}
		if err := store.Insert(ctx, tag); err != nil {
			return err
		}
		created = tag
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("tag added",
		slog.Int("fight_id", fightID),
		slog.Int("tag_id", created.ID),
		slog.String("tag_type", tt.Name),
	)
	return created, nil
}

// Update re-validates and overwrites a non-privileged tag's value.
// Privileged values change only through an accepted change request.
func (s *tagService) Update(ctx context.Context, fightID, tagID int, req UpdateTagRequest) (*Tag, error) {
	var updated *Tag
	err := s.repo.WithinFight(ctx, fightID, func(store TreeStore) error {
		tag, err := findScoped(ctx, store, fightID, tagID)
		if err != nil {
			return err
		}
		if tag.TagTypeName == tagtypes.NameSupercategory {
			return apperror.NewValidation("supercategory tags cannot be updated")
		}

		tt, err := s.types.GetByID(ctx, tag.TagTypeID)
		if err != nil {
			return err
		}
		if tt.IsPrivileged {
			return apperror.NewValidation(fmt.Sprintf("%s tags must be changed through a change request", tt.Name))
		}
		if !tag.IsActive {
			return apperror.NewValidation("inactive tags cannot be updated")
		}

		p, err := Place(ctx, store, fightID, tt, req.Value, tag.ParentTagID)
		if err != nil {
			return err
		}
		if p.Value != tag.Value {
			if err := store.SetValue(ctx, tag.ID, p.Value); err != nil {
				return err
			}
			tag.Value = p.Value
		}
		updated = tag
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Deactivate switches the tag off and cascades to all its descendants in
// the same transaction. Deactivating an inactive tag is a no-op.
func (s *tagService) Deactivate(ctx context.Context, fightID, tagID int) (*Tag, error) {
	var (
		tag     *Tag
		changed int
	)
	err := s.repo.WithinFight(ctx, fightID, func(store TreeStore) error {
		var err error
		tag, err = findScoped(ctx, store, fightID, tagID)
		if err != nil {
			return err
		}
		if tag.TagTypeName == tagtypes.NameSupercategory {
			return apperror.NewValidation("supercategory tags are only deactivated with their fight")
		}
		changed, err = store.DeactivateSubtree(ctx, tag.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	tag.IsActive = false

	if changed > 0 {
		s.metrics.TagsDeactivated.Add(float64(changed))
		slog.Info("tag deactivated",
			slog.Int("fight_id", fightID),
			slog.Int("tag_id", tagID),
			slog.Int("deactivated", changed),
		)
	}
	return tag, nil
}

// Delete removes a tag permanently. It refuses while any child is active.
func (s *tagService) Delete(ctx context.Context, fightID, tagID int) error {
	err := s.repo.WithinFight(ctx, fightID, func(store TreeStore) error {
		tag, err := findScoped(ctx, store, fightID, tagID)
		if err != nil {
			return err
		}
		if tag.TagTypeName == tagtypes.NameSupercategory {
			return apperror.NewValidation("supercategory tags cannot be deleted")
		}

		children, err := store.ActiveChildren(ctx, tag.ID)
		if err != nil {
			return err
		}
		if len(children) > 0 {
			return apperror.NewValidation("cannot delete tag with active children")
		}
		return store.Delete(ctx, tag.ID)
	})
	if err != nil {
		return err
	}

	slog.Info("tag deleted", slog.Int("fight_id", fightID), slog.Int("tag_id", tagID))
	return nil
}

// ListForFight returns the fight's tags in display order.
func (s *tagService) ListForFight(ctx context.Context, fightID int, includeInactive bool) ([]Tag, error) {
	exists, err := s.repo.FightExists(ctx, fightID)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	if !exists {
		return nil, apperror.NewNotFound("fight not found")
	}

	tags, err := s.repo.List(ctx, ListFilter{FightID: fightID, IncludeInactive: includeInactive})
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	return tags, nil
}

// Get returns a tag by ID.
func (s *tagService) Get(ctx context.Context, tagID int) (*Tag, error) {
	return s.repo.FindByID(ctx, tagID)
}

// List returns tags across fights.
func (s *tagService) List(ctx context.Context, filter ListFilter) ([]Tag, error) {
	tags, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	return tags, nil
}

// findScoped loads a tag addressed through a fight. A tag belonging to a
// different fight is reported exactly like a missing one.
func findScoped(ctx context.Context, store TreeStore, fightID, tagID int) (*Tag, error) {
	tag, err := store.FindByID(ctx, tagID)
	if err != nil {
		return nil, err
	}
	if tag.FightID != fightID {
		return nil, apperror.NewNotFound("tag not found")
	}
	return tag, nil
}
