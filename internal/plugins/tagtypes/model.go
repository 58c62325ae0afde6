// Package tagtypes is the registry of tag categories. Each TagType says
// whether changes to its tags must be voted on (privileged) and whether its
// tags may parent other tags. The seven well-known types are seeded by
// migration with fixed IDs and are what the tag hierarchy rules key on;
// admins may add further free-text types.
package tagtypes

import "time"

// Well-known tag type names.
const (
	NameSupercategory = "supercategory"
	NameCategory      = "category"
	NameGender        = "gender"
	NameWeapon        = "weapon"
	NameLeague        = "league"
	NameRuleset       = "ruleset"
	NameCustom        = "custom"
)

// Well-known tag type IDs, fixed by migration 000003.
const (
	IDSupercategory = 1
	IDCategory      = 2
	IDGender        = 3
	IDWeapon        = 4
	IDLeague        = 5
	IDRuleset       = 6
	IDCustom        = 7
)

// wellKnownIDs maps each seeded name to its fixed ID.
var wellKnownIDs = map[string]int{
	NameSupercategory: IDSupercategory,
	NameCategory:      IDCategory,
	NameGender:        IDGender,
	NameWeapon:        IDWeapon,
	NameLeague:        IDLeague,
	NameRuleset:       IDRuleset,
	NameCustom:        IDCustom,
}

// IsWellKnown reports whether name is one of the seeded tag types.
func IsWellKnown(name string) bool {
	_, ok := wellKnownIDs[name]
	return ok
}

// TagType is a named category of tag.
type TagType struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	IsPrivileged bool      `json:"is_privileged"`
	IsParent     bool      `json:"is_parent"`
	DisplayOrder int       `json:"display_order"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// AllowsMultiple reports whether a fight may carry several active tags of
// this type at once. Only custom tags may; every other type is singular.
func (t *TagType) AllowsMultiple() bool {
	return t.Name == NameCustom
}

// --- Request DTOs (bound from HTTP requests) ---

// CreateTagTypeRequest holds the data submitted when registering a tag type.
type CreateTagTypeRequest struct {
	Name         string `json:"name"`
	IsPrivileged bool   `json:"is_privileged"`
	IsParent     bool   `json:"is_parent"`
	DisplayOrder int    `json:"display_order"`
}

// UpdateTagTypeRequest holds a partial update; nil fields are left as-is.
type UpdateTagTypeRequest struct {
	Name         *string `json:"name"`
	IsPrivileged *bool   `json:"is_privileged"`
	IsParent     *bool   `json:"is_parent"`
	DisplayOrder *int    `json:"display_order"`
}
