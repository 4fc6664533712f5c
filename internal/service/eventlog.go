package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"air_monitor/internal/models"
	"air_monitor/internal/repository"
)

// EventLogService serves the /logs history of alerts, faults and resets.
type EventLogService struct {
	events repository.EventRepo
}

func NewEventLogService(events repository.EventRepo) *EventLogService {
	return &EventLogService{events: events}
}

var (
	ErrInvalidTimeRange = errors.New("invalid time range: from must be <= to")
	ErrUnknownEventType = errors.New("unknown event type")
)

var eventTypes = map[string]bool{
	EventAlert:       true,
	EventFault:       true,
	EventReset:       true,
	EventIngestError: true,
}

// logQuery is a LogFilter with bounds in UTC and the type upper-cased.
type logQuery struct {
	from, to time.Time
	typ      string
}

func utcOrZero(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

func parseEventType(s string) (string, error) {
	typ := strings.ToUpper(strings.TrimSpace(s))
	if typ != "" && !eventTypes[typ] {
		return "", ErrUnknownEventType
	}
	return typ, nil
}

func newLogQuery(f LogFilter) (logQuery, error) {
	q := logQuery{from: utcOrZero(f.From), to: utcOrZero(f.To)}
	if !q.from.IsZero() && !q.to.IsZero() && q.from.After(q.to) {
		return logQuery{}, ErrInvalidTimeRange
	}
	typ, err := parseEventType(f.Type)
	if err != nil {
		return logQuery{}, err
	}
	q.typ = typ
	return q, nil
}

// List returns events matching f, oldest first. Invalid filters never reach
// the store.
func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.SensorEvent, error) {
	q, err := newLogQuery(f)
	if err != nil {
		return nil, err
	}
	return s.events.List(ctx, q.from, q.to, q.typ)
}
