// Package fightrules is the static rule book for fight classification. It
// answers which categories a supercategory admits, how large each side of a
// category may be, and which weapons, leagues and rulesets a category
// accepts. Everything here is a pure function over enums; there is no state
// and no I/O, so tags, votes and fights can all consult it freely.
//
// Categories are a closed enum. Every per-category table is a switch over
// that enum and TestCategoryTablesAreExhaustive fails when a new Category is
// added without an entry, so an unknown category can never fall through to
// an empty allow-list.
package fightrules

import (
	"fmt"
	"slices"
	"strings"

	"github.com/buhurtdb/buhurtdb/internal/apperror"
)

// Supercategory is the top-level fight format, fixed when the fight is created.
type Supercategory string

const (
	Singles Supercategory = "singles"
	Melee   Supercategory = "melee"
)

// Supercategories lists every supercategory in display order.
var Supercategories = []Supercategory{Singles, Melee}

// Category is the finer fight classification that hangs under a supercategory.
type Category string

const (
	Duel       Category = "duel"
	Profight   Category = "profight"
	Threes     Category = "3s"
	Fives      Category = "5s"
	Tens       Category = "10s"
	Twelves    Category = "12s"
	Sixteens   Category = "16s"
	TwentyOnes Category = "21s"
	Mass       Category = "mass"
)

// Categories lists every category in display order.
var Categories = []Category{Duel, Profight, Threes, Fives, Tens, Twelves, Sixteens, TwentyOnes, Mass}

// Gender is the fixed set of values a gender tag may take.
type Gender string

const (
	Male   Gender = "male"
	Female Gender = "female"
	Mixed  Gender = "mixed"
)

// Genders lists every allowed gender value.
var Genders = []Gender{Male, Female, Mixed}

// ChildKind names the tag types that hang under a category tag.
type ChildKind string

const (
	KindWeapon  ChildKind = "weapon"
	KindLeague  ChildKind = "league"
	KindRuleset ChildKind = "ruleset"
)

// ChildKinds lists the category-dependent tag kinds.
var ChildKinds = []ChildKind{KindWeapon, KindLeague, KindRuleset}

// IsChildKind reports whether a tag type name is one of the category-dependent kinds.
func IsChildKind(name string) bool {
	return slices.Contains(ChildKinds, ChildKind(name))
}

// TeamSize is an inclusive range of fighters per side. Unbounded means the
// range has no upper limit and Max is ignored.
type TeamSize struct {
	Min       int  `json:"min"`
	Max       int  `json:"max,omitempty"`
	Unbounded bool `json:"unbounded,omitempty"`
}

// Contains reports whether n fighters per side fits the range.
func (t TeamSize) Contains(n int) bool {
	if n < t.Min {
		return false
	}
	return t.Unbounded || n <= t.Max
}

// IsOneOnOne reports whether the range is exactly one fighter per side.
func (t TeamSize) IsOneOnOne() bool {
	return t.Min == 1 && t.Max == 1 && !t.Unbounded
}

func (t TeamSize) String() string {
	if t.Unbounded {
		return fmt.Sprintf("%d+", t.Min)
	}
	if t.Min == t.Max {
		return fmt.Sprintf("%d", t.Min)
	}
	return fmt.Sprintf("%d-%d", t.Min, t.Max)
}

// ParseSupercategory converts user input to a Supercategory.
func ParseSupercategory(value string) (Supercategory, error) {
	sc := Supercategory(strings.ToLower(strings.TrimSpace(value)))
	if slices.Contains(Supercategories, sc) {
		return sc, nil
	}
	return "", apperror.NewValidation(fmt.Sprintf("supercategory must be one of: %s", joinValues(Supercategories)))
}

// ParticipantsPerSide returns the fight-level per-side size rule: singles
// fights have exactly one fighter per side, melee fights at least five.
func (s Supercategory) ParticipantsPerSide() TeamSize {
	switch s {
	case Singles:
		return TeamSize{Min: 1, Max: 1}
	case Melee:
		return TeamSize{Min: 5, Unbounded: true}
	}
	return TeamSize{}
}

// Allows reports whether the category may be used under the supercategory.
// Singles admits only one-on-one categories; melee admits only categories
// whose minimum side is at least five.
func (s Supercategory) Allows(c Category) bool {
	size, ok := c.TeamSize()
	if !ok {
		return false
	}
	switch s {
	case Singles:
		return size.IsOneOnOne()
	case Melee:
		return size.Min >= 5
	}
	return false
}

// AllowedCategories lists the categories permitted under the supercategory.
func (s Supercategory) AllowedCategories() []Category {
	var out []Category
	for _, c := range Categories {
		if s.Allows(c) {
			out = append(out, c)
		}
	}
	return out
}

// ParseCategory converts user input to a known Category.
func ParseCategory(value string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := c.TeamSize(); ok {
		return c, nil
	}
	return "", apperror.NewValidation(fmt.Sprintf("unknown category %q", value))
}

// ValidateCategory parses value and checks it against the supercategory.
func ValidateCategory(sc Supercategory, value string) (Category, error) {
	c, err := ParseCategory(value)
	if err != nil {
		return "", err
	}
	if !sc.Allows(c) {
		return "", apperror.NewValidation(fmt.Sprintf(
			"category %q is not allowed for %s fights (allowed: %s)",
			c, sc, joinValues(sc.AllowedCategories()),
		))
	}
	return c, nil
}

// ParseGender converts user input to a Gender.
func ParseGender(value string) (Gender, error) {
	g := Gender(strings.ToLower(strings.TrimSpace(value)))
	if slices.Contains(Genders, g) {
		return g, nil
	}
	return "", apperror.NewValidation(fmt.Sprintf("gender must be one of: %s", joinValues(Genders)))
}

// TeamSize returns the per-side size rule for the category.
func (c Category) TeamSize() (TeamSize, bool) {
	switch c {
	case Duel, Profight:
		return TeamSize{Min: 1, Max: 1}, true
	case Threes:
		return TeamSize{Min: 3, Max: 5}, true
	case Fives:
		return TeamSize{Min: 5, Max: 8}, true
	case Tens:
		return TeamSize{Min: 10, Max: 15}, true
	case Twelves:
		return TeamSize{Min: 12, Max: 20}, true
	case Sixteens:
		return TeamSize{Min: 16, Max: 25}, true
	case TwentyOnes:
		return TeamSize{Min: 21, Max: 30}, true
	case Mass:
		return TeamSize{Min: 5, Unbounded: true}, true
	}
	return TeamSize{}, false
}

// Weapons returns the weapon classes a category accepts. Only duels are
// classified by weapon.
func (c Category) Weapons() []string {
	switch c {
	case Duel:
		return []string{"Longsword", "Sword and Shield", "Sword and Buckler", "Polearm", "Falchion and Shield"}
	case Profight, Threes, Fives, Tens, Twelves, Sixteens, TwentyOnes, Mass:
		return nil
	}
	return nil
}

// Leagues returns the leagues that run the category.
func (c Category) Leagues() []string {
	switch c {
	case Duel:
		return []string{"Battle of the Nations", "IMCF", "HMBIA", "Buhurt League"}
	case Profight:
		return []string{"Buhurt Prime", "M-1 Medieval"}
	case Threes, Fives, Tens, Twelves, Sixteens, TwentyOnes:
		return []string{"Battle of the Nations", "IMCF", "HMBIA", "Buhurt League"}
	case Mass:
		return []string{"Battle of the Nations", "Buhurt League"}
	}
	return nil
}

// Rulesets returns the rulesets a category may be fought under.
func (c Category) Rulesets() []string {
	switch c {
	case Duel:
		return []string{"HMBIA", "IMCF", "Points"}
	case Profight:
		return []string{"Buhurt Prime", "M-1 Medieval"}
	case Threes, Fives, Tens, Twelves, Sixteens, TwentyOnes:
		return []string{"HMBIA", "IMCF", "Last Man Standing"}
	case Mass:
		return []string{"Last Man Standing", "Capture the Flag"}
	}
	return nil
}

// AllowedChildren returns the allow-list for a category-dependent tag kind.
func (c Category) AllowedChildren(kind ChildKind) []string {
	switch kind {
	case KindWeapon:
		return c.Weapons()
	case KindLeague:
		return c.Leagues()
	case KindRuleset:
		return c.Rulesets()
	}
	return nil
}

// ValidateChild checks a weapon/league/ruleset value against the category and
// returns the canonical spelling from the table. Matching ignores case.
func ValidateChild(c Category, kind ChildKind, value string) (string, error) {
	allowed := c.AllowedChildren(kind)
	if len(allowed) == 0 {
		return "", apperror.NewValidation(fmt.Sprintf("%s tags are not used for category %q", kind, c))
	}
	v := strings.TrimSpace(value)
	for _, a := range allowed {
		if strings.EqualFold(a, v) {
			return a, nil
		}
	}
	return "", apperror.NewValidation(fmt.Sprintf(
		"%s %q is not allowed for category %q (allowed: %s)",
		kind, value, c, strings.Join(allowed, ", "),
	))
}

// ValidateSides checks per-side participant counts for a new fight. Both
// sides must be present and each must satisfy the supercategory's rule.
func ValidateSides(sc Supercategory, perSide map[int]int) error {
	rule := sc.ParticipantsPerSide()
	for _, side := range []int{1, 2} {
		n := perSide[side]
		if !rule.Contains(n) {
			return apperror.NewValidation(fmt.Sprintf(
				"%s fights need %s fighter(s) per side, side %d has %d",
				sc, rule, side, n,
			))
		}
	}
	for side := range perSide {
		if side != 1 && side != 2 {
			return apperror.NewValidation(fmt.Sprintf("side must be 1 or 2, got %d", side))
		}
	}
	return nil
}

func joinValues[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}
