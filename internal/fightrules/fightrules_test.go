package fightrules

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buhurtdb/buhurtdb/internal/apperror"
)

func TestCategoryTablesAreExhaustive(t *testing.T) {
	for _, c := range Categories {
		size, ok := c.TeamSize()
		require.Truef(t, ok, "category %s has no team size rule", c)
		assert.Positive(t, size.Min, "category %s", c)
		assert.NotEmptyf(t, c.Leagues(), "category %s has no leagues", c)
		assert.NotEmptyf(t, c.Rulesets(), "category %s has no rulesets", c)
	}
}

func TestWeaponsOnlyForDuel(t *testing.T) {
	for _, c := range Categories {
		if c == Duel {
			assert.Contains(t, c.Weapons(), "Longsword")
			continue
		}
		assert.Emptyf(t, c.Weapons(), "category %s should not take weapons", c)
	}
}

func TestSupercategoryAllows(t *testing.T) {
	cases := []struct {
		sc   Supercategory
		c    Category
		want bool
	}{
		{Singles, Duel, true},
		{Singles, Profight, true},
		{Singles, Fives, false},
		{Singles, Mass, false},
		{Melee, Duel, false},
		{Melee, Threes, false},
		{Melee, Fives, true},
		{Melee, Twelves, true},
		{Melee, Mass, true},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.want, tc.sc.Allows(tc.c), "%s allows %s", tc.sc, tc.c)
	}
}

// 3s sits between the singles and melee sizes, so no supercategory admits
// it until the team-size rules are widened.
func TestThreesHasNoSupercategory(t *testing.T) {
	for _, sc := range Supercategories {
		assert.NotContains(t, sc.AllowedCategories(), Threes)
		_, err := ValidateCategory(sc, "3s")
		assert.True(t, apperror.HasCode(err, http.StatusUnprocessableEntity), "%s accepted 3s", sc)
	}
}

func TestValidateCategory(t *testing.T) {
	c, err := ValidateCategory(Singles, " Duel ")
	require.NoError(t, err)
	assert.Equal(t, Duel, c)

	_, err = ValidateCategory(Singles, "5s")
	assert.True(t, apperror.HasCode(err, http.StatusUnprocessableEntity))

	_, err = ValidateCategory(Melee, "duel")
	assert.True(t, apperror.HasCode(err, http.StatusUnprocessableEntity))

	_, err = ValidateCategory(Melee, "7s")
	assert.True(t, apperror.HasCode(err, http.StatusUnprocessableEntity))
}

func TestValidateChild_CanonicalSpelling(t *testing.T) {
	v, err := ValidateChild(Duel, KindWeapon, "longsword")
	require.NoError(t, err)
	assert.Equal(t, "Longsword", v)

	_, err = ValidateChild(Fives, KindWeapon, "Longsword")
	assert.True(t, apperror.HasCode(err, http.StatusUnprocessableEntity))

	_, err = ValidateChild(Profight, KindLeague, "IMCF")
	assert.True(t, apperror.HasCode(err, http.StatusUnprocessableEntity))

	v, err = ValidateChild(Mass, KindRuleset, "capture the flag")
	require.NoError(t, err)
	assert.Equal(t, "Capture the Flag", v)
}

func TestTeamSize(t *testing.T) {
	size, _ := Twelves.TeamSize()
	assert.False(t, size.Contains(11))
	assert.True(t, size.Contains(12))
	assert.True(t, size.Contains(20))
	assert.False(t, size.Contains(21))
	assert.Equal(t, "12-20", size.String())

	mass, _ := Mass.TeamSize()
	assert.True(t, mass.Contains(500))
	assert.Equal(t, "5+", mass.String())
}

func TestValidateSides(t *testing.T) {
	require.NoError(t, ValidateSides(Singles, map[int]int{1: 1, 2: 1}))
	require.NoError(t, ValidateSides(Melee, map[int]int{1: 5, 2: 12}))

	err := ValidateSides(Singles, map[int]int{1: 1, 2: 2})
	assert.True(t, apperror.HasCode(err, http.StatusUnprocessableEntity))

	err = ValidateSides(Melee, map[int]int{1: 5, 2: 4})
	assert.True(t, apperror.HasCode(err, http.StatusUnprocessableEntity))

	err = ValidateSides(Singles, map[int]int{1: 1})
	assert.True(t, apperror.HasCode(err, http.StatusUnprocessableEntity))

	err = ValidateSides(Singles, map[int]int{1: 1, 2: 1, 3: 1})
	assert.True(t, apperror.HasCode(err, http.StatusUnprocessableEntity))
}

func TestParseGender(t *testing.T) {
	g, err := ParseGender("Female")
	require.NoError(t, err)
	assert.Equal(t, Female, g)

	_, err = ParseGender("other")
	assert.True(t, apperror.HasCode(err, http.StatusUnprocessableEntity))
}

func TestParseSupercategory(t *testing.T) {
	sc, err := ParseSupercategory("MELEE")
	require.NoError(t, err)
	assert.Equal(t, Melee, sc)

	_, err = ParseSupercategory("team")
	assert.True(t, apperror.HasCode(err, http.StatusUnprocessableEntity))
}
