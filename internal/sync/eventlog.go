// Package syncx keeps the append-only audit log of test and attempt events.
package syncx

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

const (
	TypeTestCreated      = "TestCreated"
	TypeTestDeleted      = "TestDeleted"
	TypeAttemptSubmitted = "AttemptSubmitted"
)

type Event struct {
	Seq       int64           `json:"seq"`
	SiteID    string          `json:"siteId"`
	Type      string          `json:"type"`
	Key       string          `json:"key"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"createdAt"`
}

type EventRepo struct {
	db     *sql.DB
	sb     sq.StatementBuilderType
	siteID string
}

func NewEventRepo(db *sql.DB, driver, siteID string) *EventRepo {
	ph := sq.PlaceholderFormat(sq.Question)
	if driver == "postgres" {
		ph = sq.Dollar
	}
	if siteID == "" {
		siteID = "local"
	}
	return &EventRepo{db: db, sb: sq.StatementBuilder.PlaceholderFormat(ph), siteID: siteID}
}

// Append records one event; payload is stored as JSON.
func (r *EventRepo) Append(ctx context.Context, typ, key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", typ, err)
	}
	q, args, err := r.sb.Insert("event_log").
		Columns("site_id", "typ", "key", "data", "created_at").
		Values(r.siteID, typ, key, string(data), time.Now().UnixMilli()).ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	return err
}

// Since returns up to limit events with a sequence number greater than seq.
func (r *EventRepo) Since(ctx context.Context, seq int64, limit int) ([]Event, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q, args, err := r.sb.Select("seq", "site_id", "typ", "key", "data", "created_at").
		From("event_log").Where(sq.Gt{"seq": seq}).OrderBy("seq ASC").Limit(uint64(limit)).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Event{}
	for rows.Next() {
		var e Event
		var data string
		var created int64
		if err := rows.Scan(&e.Seq, &e.SiteID, &e.Type, &e.Key, &data, &created); err != nil {
			return nil, err
		}
		e.Data = json.RawMessage(data)
		e.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
