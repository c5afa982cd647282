package model

import (
	"time"

	"github.com/google/uuid"
)

// Movie is a catalog entry screened by showtimes.  Movies carry audit and
// soft-delete fields; deleting a movie does not cascade to showtimes.
//
// Fields:
//  ID              – time-sortable UUIDv7 primary key.
//  Title           – display title.
//  Description     – synopsis shown on detail pages.
//  DurationMinutes – running time in minutes.
//  ReleaseDate     – theatrical release date.
//  PosterURL       – optional poster image URL.
type Movie struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	DurationMinutes int       `json:"duration_minutes"`
	ReleaseDate     time.Time `json:"release_date"`
	PosterURL       *string   `json:"poster_url,omitempty"`
	Audit
	SoftDelete
}
