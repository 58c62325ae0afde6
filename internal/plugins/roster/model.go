// Package roster holds the reference entities fights are built from:
// countries, teams and fighters. It is plain CRUD; the fights plugin only
// asks it whether the fighters and teams named in a new fight exist and are
// active.
package roster

import "time"

// Country is a nation fighters and teams represent.
type Country struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Team is a club or national team.
type Team struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	CountryID int       `json:"country_id"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Fighter is an individual athlete.
type Fighter struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	CountryID int       `json:"country_id"`
	TeamID    *int      `json:"team_id"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// --- Request DTOs (bound from HTTP requests) ---

// CreateCountryRequest holds the data submitted when creating a country.
type CreateCountryRequest struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// CreateTeamRequest holds the data submitted when creating a team.
type CreateTeamRequest struct {
	Name      string `json:"name"`
	CountryID int    `json:"country_id"`
}

// CreateFighterRequest holds the data submitted when creating a fighter.
type CreateFighterRequest struct {
	Name      string `json:"name"`
	CountryID int    `json:"country_id"`
	TeamID    *int   `json:"team_id"`
}
