package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// EventRow is one persisted event.
type EventRow struct {
	EventID   int64                  `json:"event_id"`
	Timestamp time.Time              `json:"ts"`
	Level     string                 `json:"level"`
	Event     string                 `json:"event"`
	Message   *string                `json:"msg,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	AgentID   *string                `json:"agent,omitempty"`
}

const (
	defaultQueryLimit = 200
	maxQueryLimit     = 10000
)

// ClampLimit bounds a requested row count to [1, 10000], defaulting to 200.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultQueryLimit
	case limit > maxQueryLimit:
		return maxQueryLimit
	}
	return limit
}

// Append stores one event. Empty msg and agentID are stored as NULL.
func (c *Client) Append(ts time.Time, level, event, msg string, fields map[string]interface{}, agentID string) error {
	if c == nil || c.db == nil {
		return errNotOpen
	}
	var payload []byte
	if fields != nil {
		b, err := json.Marshal(fields)
		if err != nil {
			return fmt.Errorf("failed to marshal fields: %w", err)
		}
		payload = b
	}
	_, err := c.db.Exec(
		`INSERT INTO events (ts, level, event, msg, fields, agent_id) VALUES ($1, $2, $3, $4, $5, $6)`,
		ts, level, event, nullable(msg), payload, nullable(agentID))
	return err
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Query returns up to limit events, newest first. A non-empty agentID
// restricts the result to that agent.
func (c *Client) Query(limit int, agentID string) ([]EventRow, error) {
	if c == nil || c.db == nil {
		return nil, errNotOpen
	}
	rows, err := c.db.Query(`
		SELECT event_id, ts, level, event, msg, fields, agent_id
		FROM events
		WHERE ($1 = '' OR agent_id = $1)
		ORDER BY ts DESC
		LIMIT $2`, agentID, ClampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EventRow
	for rows.Next() {
		row, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func scanEvent(rows *sql.Rows) (EventRow, error) {
	var (
		e          EventRow
		msg, agent sql.NullString
		payload    []byte
	)
	if err := rows.Scan(&e.EventID, &e.Timestamp, &e.Level, &e.Event, &msg, &payload, &agent); err != nil {
		return e, err
	}
	if msg.Valid {
		e.Message = &msg.String
	}
	if agent.Valid {
		e.AgentID = &agent.String
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &e.Fields); err != nil {
			return e, fmt.Errorf("failed to unmarshal fields of event %d: %w", e.EventID, err)
		}
	}
	return e, nil
}
