// Package tags is the tag hierarchy engine. Every fight carries a tree of
// tags rooted at its supercategory tag: a category hangs off the
// supercategory, weapon/league/ruleset tags hang off the category, and
// gender, custom and admin-defined tags stand alone unless given an explicit
// parent. The package enforces the tree's structural rules, validates values
// against the fightrules matrix, and cascades deactivation down the tree.
//
// All mutations of one fight's tree run through a TreeStore bound to a
// transaction that holds the fight's row lock, so concurrent writers on the
// same fight are serialized and readers never see a half-cascaded tree.
package tags

import "time"

// Tag is a single classification value attached to a fight.
type Tag struct {
	ID          int       `json:"id"`
	FightID     int       `json:"fight_id"`
	TagTypeID   int       `json:"tag_type_id"`
	TagTypeName string    `json:"tag_type"`
	ParentTagID *int      `json:"parent_tag_id"`
	Value       string    `json:"value"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`

	// typeIsParent mirrors tag_types.is_parent for the tag's type.
	typeIsParent bool
}

// ListFilter narrows the flat tag listing. Zero values mean "any".
type ListFilter struct {
	FightID         int
	TagTypeName     string
	IncludeInactive bool
}

// --- Request DTOs (bound from HTTP requests) ---

// AddTagRequest holds the data submitted when attaching a tag to a fight.
type AddTagRequest struct {
	TagTypeName string `json:"tag_type_name"`
	Value       string `json:"value"`
	ParentTagID *int   `json:"parent_tag_id"`
}

// UpdateTagRequest holds a new value for a non-privileged tag.
type UpdateTagRequest struct {
	Value string `json:"value"`
}
