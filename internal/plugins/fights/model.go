// Package fights owns the fight record: its date, location, participants
// and the supercategory that roots its tag tree. Creating a fight writes the
// supercategory tag in the same transaction; deactivating one switches off
// every tag it carries.
package fights

import (
	"time"

	"github.com/buhurtdb/buhurtdb/internal/fightrules"
)

// DateLayout is the wire and storage format of a fight date.
const DateLayout = "2006-01-02"

// MaxLocationLength bounds the sanitized location text.
const MaxLocationLength = 255

// Fight is a single recorded bout.
type Fight struct {
	ID             int                      `json:"id"`
	Date           string                   `json:"date"`
	Location       string                   `json:"location"`
	Supercategory  fightrules.Supercategory `json:"supercategory"`
	IsActive       bool                     `json:"is_active"`
	CreatedAt      time.Time                `json:"created_at"`
	Participations []Participation          `json:"participations"`
}

// Participation places a fighter on one side of a fight, optionally
// representing a team.
type Participation struct {
	FighterID int  `json:"fighter_id"`
	TeamID    *int `json:"team_id"`
	Side      int  `json:"side"`
}

// CreateFightRequest holds the data submitted when recording a fight.
type CreateFightRequest struct {
	Date           string          `json:"date"`
	Location       string          `json:"location"`
	Supercategory  string          `json:"supercategory"`
	Participations []Participation `json:"participations"`
}
