package logging

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// #region log-verdict
// LogVerdict writes a verdict entry to the verdict_log table.
func LogVerdict(ctx context.Context, db *sql.DB, entry VerdictEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO verdict_log (session_id, tier, fail_count, complete, inputs_json, advice_status, advice, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.SessionID,
		entry.Tier,
		entry.FailCount,
		boolInt(entry.Complete),
		nullIfEmpty(entry.InputsJSON),
		nullIfEmpty(entry.AdviceStatus),
		nullIfEmpty(entry.Advice),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log verdict: %w", err)
	}
	return nil
}
// #endregion log-verdict

// #region list-verdicts
// ListVerdicts returns the verdict rows of sessionID, oldest first.
func ListVerdicts(ctx context.Context, db *sql.DB, sessionID string) ([]VerdictEntry, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT session_id, tier, fail_count, complete, inputs_json, advice_status, advice, created_at
		 FROM verdict_log WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query verdicts: %w", err)
	}
	defer rows.Close()

	var out []VerdictEntry
	for rows.Next() {
		var (
			e                      VerdictEntry
			complete               int
			inputs, status, advice sql.NullString
			created                string
		)
		if err := rows.Scan(&e.SessionID, &e.Tier, &e.FailCount, &complete, &inputs, &status, &advice, &created); err != nil {
			return nil, fmt.Errorf("scan verdict: %w", err)
		}
		e.Complete = complete != 0
		e.InputsJSON = inputs.String
		e.AdviceStatus = status.String
		e.Advice = advice.String
		if e.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("parse verdict time: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
// #endregion list-verdicts

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
// #endregion helpers
