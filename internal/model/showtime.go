package model

import (
	"time"

	"github.com/google/uuid"
)

// Showtime is one scheduled screening of a movie in an auditorium.  The
// showtime exclusively owns its seat-availability buffer: one byte per seat,
// exactly MaxRows*MaxColumns long at all times, persisted as a raw blob.
// Version is the optimistic concurrency token; the storage layer advances it
// on every persisted mutation and rejects writes carrying a stale value.
//
// Fields:
//  ID           – time-sortable UUIDv7 primary key.
//  MovieID      – screened movie.
//  AuditoriumID – room the screening takes place in.
//  StartTime    – UTC start instant.
//  BasePrice    – price per seat before tier surcharges.
//  SeatState    – raw availability buffer (seatmap.SeatStatus per cell).
//  Version      – optimistic concurrency token, strictly increasing.
type Showtime struct {
	ID           uuid.UUID `json:"id"`
	MovieID      uuid.UUID `json:"movie_id"`
	AuditoriumID uuid.UUID `json:"auditorium_id"`
	StartTime    time.Time `json:"start_time"`
	BasePrice    Money     `json:"base_price"`
	SeatState    []byte    `json:"-"`
	Version      int64     `json:"-"`
	Audit
	SoftDelete
}
