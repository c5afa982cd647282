package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hivecinema/hive/internal/cache"
	"github.com/hivecinema/hive/internal/fault"
	"github.com/hivecinema/hive/internal/model"
	"github.com/hivecinema/hive/internal/seatmap"
)

// MovieGetter is the movie lookup the seat-map view needs.
type MovieGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Movie, error)
}

// CinemaGetter is the cinema lookup the seat-map view needs.
type CinemaGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Cinema, error)
}

// SeatCell is one cell of the rendered seat map, in row-major order.
type SeatCell struct {
	Row    int    `json:"row"`
	Col    int    `json:"col"`
	Status string `json:"status"`
}

// SeatMapView is the denormalized seat-map document served to UIs.
type SeatMapView struct {
	ShowtimeID     uuid.UUID    `json:"showtime_id"`
	MovieTitle     string       `json:"movie_title"`
	CinemaName     string       `json:"cinema_name"`
	AuditoriumName string       `json:"auditorium_name"`
	MaxRows        int          `json:"max_rows"`
	MaxColumns     int          `json:"max_columns"`
	StartTime      time.Time    `json:"start_time"`
	BasePrice      model.Money  `json:"base_price"`
	Layout         model.Layout `json:"layout"`
	Seats          []SeatCell   `json:"seats"`
}

// SeatMapService renders seat maps through a short-TTL cache.  The cache is
// for the UI polling pattern only; the reservation path always re-reads from
// storage.
type SeatMapService struct {
	showtimes ShowtimeStore
	movies    MovieGetter
	cinemas   CinemaGetter
	seatMaps  cache.SeatMapCache
	ttl       time.Duration
	log       *zap.Logger
}

// NewSeatMapService wires the seat-map read service.
func NewSeatMapService(showtimes ShowtimeStore, movies MovieGetter, cinemas CinemaGetter, seatMaps cache.SeatMapCache, ttl time.Duration, log *zap.Logger) *SeatMapService {
	return &SeatMapService{showtimes: showtimes, movies: movies, cinemas: cinemas, seatMaps: seatMaps, ttl: ttl, log: log}
}

// GetSeatMap returns the rendered seat-map document as JSON bytes, serving
// from cache when the entry is fresh.
func (s *SeatMapService) GetSeatMap(ctx context.Context, showtimeID uuid.UUID) ([]byte, error) {
	if payload, hit := s.seatMaps.Get(ctx, showtimeID); hit {
		return payload, nil
	}
	show, aud, err := s.showtimes.GetWithAuditorium(ctx, showtimeID)
	if err != nil {
		return nil, err
	}
	movie, err := s.movies.GetByID(ctx, show.MovieID)
	if err != nil {
		return nil, err
	}
	cinema, err := s.cinemas.GetByID(ctx, aud.CinemaID)
	if err != nil {
		return nil, err
	}
	engine, err := seatmap.New(show.SeatState, aud.MaxRows, aud.MaxColumns)
	if err != nil {
		return nil, fault.Internal("seat buffer does not match auditorium", err)
	}
	cells := make([]SeatCell, 0, aud.MaxRows*aud.MaxColumns)
	for row := 0; row < aud.MaxRows; row++ {
		for col := 0; col < aud.MaxColumns; col++ {
			st, err := engine.Status(row, col)
			if err != nil {
				return nil, fault.Internal("seat state corrupted", err)
			}
			cells = append(cells, SeatCell{Row: row, Col: col, Status: st.String()})
		}
	}
	view := SeatMapView{
		ShowtimeID:     show.ID,
		MovieTitle:     movie.Title,
		CinemaName:     cinema.Name,
		AuditoriumName: aud.Name,
		MaxRows:        aud.MaxRows,
		MaxColumns:     aud.MaxColumns,
		StartTime:      show.StartTime,
		BasePrice:      show.BasePrice,
		Layout:         aud.Layout,
		Seats:          cells,
	}
	payload, err := json.Marshal(view)
	if err != nil {
		return nil, fault.Internal("encode seat map", err)
	}
	s.seatMaps.Set(ctx, showtimeID, payload, s.ttl)
	return payload, nil
}
