package model

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/hivecinema/hive/internal/seatmap"
)

// Tier is a named set of seats sharing one non-negative surcharge added to
// the showtime base price.  A seat may belong to at most one tier; duplicate
// coordinates across tiers would make pricing undefined and are rejected at
// layout-write time.
type Tier struct {
	TierName       string         `json:"tier_name"`
	PriceSurcharge Money          `json:"price_surcharge"`
	Seats          []seatmap.Seat `json:"seats"`
}

// Layout is the embedded seating document of an auditorium: structural holes
// (disabled seats), wheelchair spots kept for display, and pricing tiers.
// The whole document is stored as one JSON column and read together with its
// auditorium, so the reservation path pays no join fan-out for it.
type Layout struct {
	DisabledSeats   []seatmap.Seat `json:"disabled_seats"`
	WheelchairSeats []seatmap.Seat `json:"wheelchair_seats"`
	Tiers           []Tier         `json:"tiers"`
}

// Validate checks every coordinate against the grid and enforces the layout
// invariants: no out-of-bounds seats, non-negative surcharges, no seat listed
// in more than one tier, and no tier seat that is also disabled.  Layouts are
// validated on every auditorium write, never on the reservation hot path.
func (l Layout) Validate(maxRows, maxCols int) error {
	inRange := func(s seatmap.Seat) bool {
		return s.Row >= 0 && s.Row < maxRows && s.Col >= 0 && s.Col < maxCols
	}
	for _, s := range l.DisabledSeats {
		if !inRange(s) {
			return fmt.Errorf("layout: disabled seat (%d,%d) out of bounds", s.Row, s.Col)
		}
	}
	for _, s := range l.WheelchairSeats {
		if !inRange(s) {
			return fmt.Errorf("layout: wheelchair seat (%d,%d) out of bounds", s.Row, s.Col)
		}
	}
	disabled := make(map[seatmap.Seat]struct{}, len(l.DisabledSeats))
	for _, s := range l.DisabledSeats {
		disabled[s] = struct{}{}
	}
	tiered := make(map[seatmap.Seat]string)
	for _, t := range l.Tiers {
		if t.TierName == "" {
			return fmt.Errorf("layout: tier with empty name")
		}
		if t.PriceSurcharge < 0 {
			return fmt.Errorf("layout: tier %q has negative surcharge", t.TierName)
		}
		for _, s := range t.Seats {
			if !inRange(s) {
				return fmt.Errorf("layout: tier %q seat (%d,%d) out of bounds", t.TierName, s.Row, s.Col)
			}
			if other, dup := tiered[s]; dup {
				return fmt.Errorf("layout: seat (%d,%d) listed in tiers %q and %q", s.Row, s.Col, other, t.TierName)
			}
			if _, dis := disabled[s]; dis {
				return fmt.Errorf("layout: tier %q seat (%d,%d) is disabled", t.TierName, s.Row, s.Col)
			}
			tiered[s] = t.TierName
		}
	}
	return nil
}

// SurchargeMap flattens the tiers into a (row,col) -> surcharge lookup.  The
// map is rebuilt per reservation; its construction cost is dominated by the
// storage round-trip that loaded the layout.
func (l Layout) SurchargeMap() map[seatmap.Seat]Money {
	m := make(map[seatmap.Seat]Money)
	for _, t := range l.Tiers {
		for _, s := range t.Seats {
			m[s] = t.PriceSurcharge
		}
	}
	return m
}

// DisabledSet returns the disabled coordinates as a set for membership tests.
func (l Layout) DisabledSet() map[seatmap.Seat]struct{} {
	m := make(map[seatmap.Seat]struct{}, len(l.DisabledSeats))
	for _, s := range l.DisabledSeats {
		m[s] = struct{}{}
	}
	return m
}

// Auditorium is a physical room with a fixed rectangular seat grid inside a
// cinema.  The auditorium exclusively owns its embedded layout document.
//
// Fields:
//  ID         – time-sortable UUIDv7 primary key.
//  CinemaID   – owning cinema.
//  Name       – room name, unique per cinema by convention.
//  MaxRows    – grid row count; immutable once showtimes exist.
//  MaxColumns – grid column count; immutable once showtimes exist.
//  Layout     – embedded seating document (disabled/wheelchair/tiers).
type Auditorium struct {
	ID         uuid.UUID `json:"id"`
	CinemaID   uuid.UUID `json:"cinema_id"`
	Name       string    `json:"name"`
	MaxRows    int       `json:"max_rows"`
	MaxColumns int       `json:"max_columns"`
	Layout     Layout    `json:"layout"`
	Audit
	SoftDelete
}
