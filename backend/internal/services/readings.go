package services

import (
	"context"
	"log/slog"
	"time"

	"smart-led-controller/backend/internal/reading"
	"smart-led-controller/backend/internal/store"
)

const (
	DefaultPageLimit = 100
	MaxPageLimit     = 1000
)

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

type Page struct {
	Readings   []reading.Reading
	Pagination Pagination
}

// ReadingService serves stored history and accepts externally produced readings.
type ReadingService struct {
	l   *slog.Logger
	st  store.Store
	now func() time.Time
}

func NewReadingService(l *slog.Logger, st store.Store) *ReadingService {
	return &ReadingService{
		l:   l.With(slog.String("service", "readings")),
		st:  st,
		now: time.Now,
	}
}

// List returns one page of readings, newest first. Out of range page and limit values
// fall back to their defaults.
func (s *ReadingService) List(ctx context.Context, page, limit int) (Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	limit = min(limit, MaxPageLimit)

	sum, err := s.st.Summarize(ctx, store.Query{})
	if err != nil {
		return Page{}, err
	}
	rs, err := s.st.Query(ctx, store.Query{
		Order:  store.NewestFirst,
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		return Page{}, err
	}
	if rs == nil {
		rs = []reading.Reading{}
	}

	return Page{
		Readings: rs,
		Pagination: Pagination{
			Page:  page,
			Limit: limit,
			Total: sum.Count,
			Pages: (sum.Count + limit - 1) / limit,
		},
	}, nil
}

func (s *ReadingService) Latest(ctx context.Context) (*reading.Reading, error) {
	return store.Latest(ctx, s.st)
}

// Create validates r, recomputes its derived fields and stores it. Unlike the control
// loop, a store failure is returned to the caller.
func (s *ReadingService) Create(ctx context.Context, r reading.Reading) (reading.Reading, error) {
	if err := r.Validate(); err != nil {
		return reading.Reading{}, err
	}

	r = r.Normalize()
	r.ID = 0
	if r.Timestamp.IsZero() {
		r.Timestamp = s.now()
	}

	if err := s.st.Append(ctx, r); err != nil {
		return reading.Reading{}, err
	}
	s.l.Debug("reading created", slog.Time("timestamp", r.Timestamp))
	return r, nil
}
