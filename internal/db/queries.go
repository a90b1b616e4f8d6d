package db

import (
	"database/sql"
	"fmt"
)

// LoopEvent is one row of the loop ledger.
type LoopEvent struct {
	RunID     string `json:"run_id"`
	Iteration int    `json:"iteration"`
	Event     string `json:"event"`
	Mode      string `json:"mode,omitempty"`
	Project   string `json:"project,omitempty"`
	Detail    string `json:"detail,omitempty"`
	Timestamp string `json:"timestamp"`
}

// LogLoopEvent appends a loop event.
func (d *DB) LogLoopEvent(runID string, iteration int, event, mode, project, detail string) error {
	_, err := d.conn.Exec(
		`INSERT INTO loop_events (run_id, iteration, event, mode, project, detail) VALUES (?, ?, ?, ?, ?, ?)`,
		runID, iteration, event, mode, project, detail,
	)
	if err != nil {
		return fmt.Errorf("log loop event: %w", err)
	}
	return nil
}

// LogMissionEvent appends a mission transition.
func (d *DB) LogMissionEvent(runID, mission, project, event, detail string) error {
	_, err := d.conn.Exec(
		`INSERT INTO mission_events (run_id, mission, project, event, detail) VALUES (?, ?, ?, ?, ?)`,
		runID, mission, project, event, detail,
	)
	if err != nil {
		return fmt.Errorf("log mission event: %w", err)
	}
	return nil
}

// LogNotificationEvent appends a notification-processing record.
func (d *DB) LogNotificationEvent(sourceID, author, event, detail string) error {
	_, err := d.conn.Exec(
		`INSERT INTO notification_events (source_id, author, event, detail) VALUES (?, ?, ?, ?)`,
		sourceID, author, event, detail,
	)
	if err != nil {
		return fmt.Errorf("log notification event: %w", err)
	}
	return nil
}

// LoopHistory returns the most recent loop events, newest first.
func (d *DB) LoopHistory(limit int) ([]LoopEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.conn.Query(
		`SELECT run_id, iteration, event, COALESCE(mode,''), COALESCE(project,''), COALESCE(detail,''), timestamp
		 FROM loop_events ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query loop history: %w", err)
	}
	defer rows.Close()

	var events []LoopEvent
	for rows.Next() {
		var e LoopEvent
		if err := rows.Scan(&e.RunID, &e.Iteration, &e.Event, &e.Mode, &e.Project, &e.Detail, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan loop event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// MissionEvent is one row of the mission ledger.
type MissionEvent struct {
	RunID     string `json:"run_id"`
	Mission   string `json:"mission"`
	Project   string `json:"project,omitempty"`
	Event     string `json:"event"`
	Detail    string `json:"detail,omitempty"`
	Timestamp string `json:"timestamp"`
}

// MissionHistory returns the most recent mission transitions, newest first.
func (d *DB) MissionHistory(limit int) ([]MissionEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.conn.Query(
		`SELECT run_id, mission, COALESCE(project,''), event, COALESCE(detail,''), timestamp
		 FROM mission_events ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query mission history: %w", err)
	}
	defer rows.Close()

	var events []MissionEvent
	for rows.Next() {
		var e MissionEvent
		if err := rows.Scan(&e.RunID, &e.Mission, &e.Project, &e.Event, &e.Detail, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan mission event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// LastLoopEvent returns the most recent loop event, or nil when the ledger
// is empty.
func (d *DB) LastLoopEvent() (*LoopEvent, error) {
	row := d.conn.QueryRow(
		`SELECT run_id, iteration, event, COALESCE(mode,''), COALESCE(project,''), COALESCE(detail,''), timestamp
		 FROM loop_events ORDER BY id DESC LIMIT 1`,
	)
	var e LoopEvent
	err := row.Scan(&e.RunID, &e.Iteration, &e.Event, &e.Mode, &e.Project, &e.Detail, &e.Timestamp)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan last loop event: %w", err)
	}
	return &e, nil
}

// NotificationSeen reports whether a source comment identifier already has
// an acknowledged record. This is audit data only; the durable ack marker
// on the source notification remains the restart authority.
func (d *DB) NotificationSeen(sourceID string) (bool, error) {
	var count int
	err := d.conn.QueryRow(
		`SELECT COUNT(*) FROM notification_events WHERE source_id = ? AND event = 'acknowledged'`, sourceID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("query notification: %w", err)
	}
	return count > 0, nil
}
