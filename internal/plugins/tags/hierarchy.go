package tags

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/buhurtdb/buhurtdb/internal/apperror"
	"github.com/buhurtdb/buhurtdb/internal/fightrules"
	"github.com/buhurtdb/buhurtdb/internal/plugins/tagtypes"
	"github.com/buhurtdb/buhurtdb/internal/sanitize"
)

const (
	// MaxDepth caps the number of tags on any root-to-leaf path.
	MaxDepth = 8

	// MaxValueLength bounds free-text tag values, in characters.
	MaxValueLength = 100
)

// Placement is a validated tag value and the parent it attaches to.
type Placement struct {
	Value       string
	ParentTagID *int
}

// Place validates a value for a tag of type tt on the fight and resolves its
// parent. Checks run in order: fight (its supercategory tag must be active),
// structure (implied or explicit parent), then value. Singular-type
// uniqueness is left to the caller.
//
// Category tags always attach to the supercategory tag and weapon, league
// and ruleset tags to the active category tag; parentID may only repeat the
// implied parent for them. Other types attach to parentID, or to nothing.
func Place(ctx context.Context, store TreeStore, fightID int, tt *tagtypes.TagType, value string, parentID *int) (*Placement, error) {
	root, err := store.FindActiveByType(ctx, fightID, tagtypes.IDSupercategory)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, apperror.NewNotFound("fight not found")
	}

	switch tt.Name {
	case tagtypes.NameSupercategory:
		return nil, apperror.NewValidation("supercategory is set when the fight is created and cannot be changed")

	case tagtypes.NameCategory:
		if err := requireImpliedParent(parentID, root.ID, "category tags attach to the fight's supercategory tag"); err != nil {
			return nil, err
		}
		sc, err := fightrules.ParseSupercategory(root.Value)
		if err != nil {
			return nil, err
		}
		c, err := fightrules.ValidateCategory(sc, value)
		if err != nil {
			return nil, err
		}
		return &Placement{Value: string(c), ParentTagID: &root.ID}, nil

	case tagtypes.NameWeapon, tagtypes.NameLeague, tagtypes.NameRuleset:
		cat, err := store.FindActiveByType(ctx, fightID, tagtypes.IDCategory)
		if err != nil {
			return nil, err
		}
		if cat == nil {
			return nil, apperror.NewValidation(fmt.Sprintf("a %s tag requires an active category tag on the fight", tt.Name))
		}
		if err := requireImpliedParent(parentID, cat.ID, fmt.Sprintf("%s tags attach to the fight's category tag", tt.Name)); err != nil {
			return nil, err
		}
		c, err := fightrules.ParseCategory(cat.Value)
		if err != nil {
			return nil, err
		}
		v, err := fightrules.ValidateChild(c, fightrules.ChildKind(tt.Name), value)
		if err != nil {
			return nil, err
		}
		return &Placement{Value: v, ParentTagID: &cat.ID}, nil
	}

	if parentID != nil {
		if err := checkExplicitParent(ctx, store, fightID, *parentID); err != nil {
			return nil, err
		}
	}

	if tt.Name == tagtypes.NameGender {
		g, err := fightrules.ParseGender(value)
		if err != nil {
			return nil, err
		}
		return &Placement{Value: string(g), ParentTagID: parentID}, nil
	}

	v, err := FreeText(value)
	if err != nil {
		return nil, err
	}
	return &Placement{Value: v, ParentTagID: parentID}, nil
}

// FreeText sanitizes a custom tag value and checks its length.
func FreeText(value string) (string, error) {
	v := sanitize.Text(value)
	if v == "" {
		return "", apperror.NewValidation("value is required")
	}
	if utf8.RuneCountInString(v) > MaxValueLength {
		return "", apperror.NewValidation(fmt.Sprintf("value must be at most %d characters", MaxValueLength))
	}
	return v, nil
}

func requireImpliedParent(parentID *int, implied int, message string) error {
	if parentID != nil && *parentID != implied {
		return apperror.NewValidation(message)
	}
	return nil
}

// checkExplicitParent verifies a caller-chosen parent: same fight, active,
// of a parent type, and shallow enough that one more level fits under
// MaxDepth. The ancestor walk also refuses to follow a cycle.
func checkExplicitParent(ctx context.Context, store TreeStore, fightID, parentID int) error {
	parent, err := store.FindByID(ctx, parentID)
	if apperror.IsNotFound(err) || (err == nil && parent.FightID != fightID) {
		return apperror.NewValidation("parent tag not found on this fight")
	}
	if err != nil {
		return err
	}
	if !parent.IsActive {
		return apperror.NewValidation("parent tag is not active")
	}
	if !parent.typeIsParent {
		return apperror.NewValidation(fmt.Sprintf("%s tags cannot have children", parent.TagTypeName))
	}

	depth := 1
	seen := map[int]bool{parent.ID: true}
	for cur := parent; cur.ParentTagID != nil; {
		depth++
		if depth >= MaxDepth {
			return apperror.NewValidation(fmt.Sprintf("tag hierarchy cannot be deeper than %d levels", MaxDepth))
		}
		next := *cur.ParentTagID
		if seen[next] {
			return apperror.NewValidation("tag hierarchy contains a cycle")
		}
		seen[next] = true
		if cur, err = store.FindByID(ctx, next); err != nil {
			return err
		}
	}
	return nil
}

// CreateSupercategoryTag inserts the root tag of a newly created fight. It
// runs inside the fight-creation transaction.
func CreateSupercategoryTag(ctx context.Context, store TreeStore, fightID int, value string) (*Tag, error) {
	sc, err := fightrules.ParseSupercategory(value)
	if err != nil {
		return nil, err
	}
	tag := &Tag{
		FightID:      fightID,
		TagTypeID:    tagtypes.IDSupercategory,
		TagTypeName:  tagtypes.NameSupercategory,
		Value:        string(sc),
		typeIsParent: true,
	}
	if err := store.Insert(ctx, tag); err != nil {
		return nil, err
	}
	return tag, nil
}

// ApplyValue makes value the live value of the fight's tag of type tt. The
// existing active tag is updated in place; when there is none a tag is
// created under its implied parent. A category change also deactivates
// weapon, league and ruleset children the new category does not allow.
// Returns the live tag and how many tags were deactivated.
func ApplyValue(ctx context.Context, store TreeStore, fightID int, tt *tagtypes.TagType, value string) (*Tag, int, error) {
	live, err := store.FindActiveByType(ctx, fightID, tt.ID)
	if err != nil {
		return nil, 0, err
	}
	p, err := Place(ctx, store, fightID, tt, value, nil)
	if err != nil {
		return nil, 0, err
	}

	if live == nil {
		tag := &Tag{
			FightID:     fightID,
			TagTypeID:   tt.ID,
			TagTypeName: tt.Name,
			ParentTagID: p.ParentTagID,
			Value:       p.Value,
		}
		if err := store.Insert(ctx, tag); err != nil {
			return nil, 0, err
		}
		return tag, 0, nil
	}

	if live.Value == p.Value {
		return live, 0, nil
	}
	if err := store.SetValue(ctx, live.ID, p.Value); err != nil {
		return nil, 0, err
	}
	live.Value = p.Value

	if tt.Name != tagtypes.NameCategory {
		return live, 0, nil
	}
	pruned, err := pruneChildren(ctx, store, live.ID, fightrules.Category(p.Value))
	if err != nil {
		return nil, 0, err
	}
	return live, pruned, nil
}

// pruneChildren deactivates the category tag's weapon, league and ruleset
// children whose value is not allowed under c.
func pruneChildren(ctx context.Context, store TreeStore, categoryTagID int, c fightrules.Category) (int, error) {
	children, err := store.ActiveChildren(ctx, categoryTagID)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, child := range children {
		if !fightrules.IsChildKind(child.TagTypeName) {
			continue
		}
		if _, err := fightrules.ValidateChild(c, fightrules.ChildKind(child.TagTypeName), child.Value); err == nil {
			continue
		}
		n, err := store.DeactivateSubtree(ctx, child.ID)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
