package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/deliciousroute/delicious-route/internal/logging"
)

// EventStore handles food truck events
type EventStore struct {
	db     *sql.DB
	logger zerolog.Logger
	now    func() time.Time
}

// NewEventStore creates a new event store
func NewEventStore(db *DB) (*EventStore, error) {
	return &EventStore{db: db.Conn(), logger: logging.GetLogger("event-store"), now: db.now}, nil
}

// ListEvents returns all events ordered by start time
func (s *EventStore) ListEvents(ctx context.Context) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, city, schedule_text, starts_at, truck_count
		FROM events
		ORDER BY starts_at, name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var (
			e      Event
			starts string
		)
		if err := rows.Scan(&e.ID, &e.Name, &e.City, &e.ScheduleText, &starts, &e.TruckCount); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if e.StartsAt, err = ParseTime(starts); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// CreateEvent inserts an event
func (s *EventStore) CreateEvent(ctx context.Context, e *Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (id, name, city, schedule_text, starts_at, truck_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Name, e.City, e.ScheduleText, FormatTime(e.StartsAt), e.TruckCount, FormatTime(s.now()))
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", classify(err))
	}
	s.logger.Debug().Str("event_id", e.ID).Str("name", e.Name).Msg("Event created")
	return nil
}
