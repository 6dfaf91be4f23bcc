package sqlite

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type Run struct {
	ID            string
	StartedAt     time.Time
	FinishedAt    time.Time
	LiveRows      int
	AllowListSize int
	Matched       int
	PreviousTotal int
	Outcome       string // "reported", "nothing_critical", "unavailable"
	Delivered     bool
	DeliveryError string
	ReportPath    string
}

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id              TEXT PRIMARY KEY,
		started_at      DATETIME NOT NULL,
		finished_at     DATETIME NOT NULL,
		live_rows       INTEGER NOT NULL DEFAULT 0,
		allow_list_size INTEGER NOT NULL DEFAULT 0,
		matched         INTEGER NOT NULL DEFAULT 0,
		previous_total  INTEGER NOT NULL DEFAULT 0,
		outcome         TEXT NOT NULL DEFAULT '',
		delivered       INTEGER NOT NULL DEFAULT 0,
		delivery_error  TEXT DEFAULT '',
		report_path     TEXT DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func InsertRun(db *sql.DB, r Run) error {
	_, err := db.Exec(
		`INSERT INTO runs (id, started_at, finished_at, live_rows, allow_list_size, matched, previous_total, outcome, delivered, delivery_error, report_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.StartedAt.UTC(), r.FinishedAt.UTC(), r.LiveRows, r.AllowListSize, r.Matched,
		r.PreviousTotal, r.Outcome, r.Delivered, r.DeliveryError, r.ReportPath,
	)
	return err
}

func getRunByID(db *sql.DB, id string) (Run, error) {
	var r Run
	err := db.QueryRow(
		`SELECT id, started_at, finished_at, live_rows, allow_list_size, matched, previous_total, outcome, delivered, delivery_error, report_path
		 FROM runs WHERE id = ?`,
		id,
	).Scan(
		&r.ID, &r.StartedAt, &r.FinishedAt, &r.LiveRows, &r.AllowListSize, &r.Matched,
		&r.PreviousTotal, &r.Outcome, &r.Delivered, &r.DeliveryError, &r.ReportPath,
	)
	return r, err
}

// GetRecentRuns returns runs started at or after since, newest first.
func GetRecentRuns(db *sql.DB, since time.Time, limit int) ([]Run, error) {
	rows, err := db.Query(
		`SELECT id, started_at, finished_at, live_rows, allow_list_size, matched, previous_total, outcome, delivered, delivery_error, report_path
		 FROM runs
		 WHERE started_at >= ?
		 ORDER BY started_at DESC
		 LIMIT ?`,
		since.UTC(), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(
			&r.ID, &r.StartedAt, &r.FinishedAt, &r.LiveRows, &r.AllowListSize, &r.Matched,
			&r.PreviousTotal, &r.Outcome, &r.Delivered, &r.DeliveryError, &r.ReportPath,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type DailyTrend struct {
	Day        string
	Runs       int
	MaxMatched int
	Delivered  int
}

// GetDailyTrend summarizes runs per calendar day in loc, newest first.
// Times are stored in UTC, so days are bucketed here rather than in SQL.
func GetDailyTrend(db *sql.DB, since time.Time, loc *time.Location) ([]DailyTrend, error) {
	if loc == nil {
		loc = time.Local
	}
	rows, err := db.Query(
		`SELECT started_at, matched, delivered
		 FROM runs
		 WHERE started_at >= ?
		 ORDER BY started_at DESC`,
		since.UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DailyTrend
	for rows.Next() {
		var (
			started   time.Time
			matched   int
			delivered bool
		)
		if err := rows.Scan(&started, &matched, &delivered); err != nil {
			return nil, err
		}
		day := started.In(loc).Format("2006-01-02")
		if len(out) == 0 || out[len(out)-1].Day != day {
			out = append(out, DailyTrend{Day: day})
		}
		t := &out[len(out)-1]
		t.Runs++
		if matched > t.MaxMatched {
			t.MaxMatched = matched
		}
		if delivered {
			t.Delivered++
		}
	}
	return out, rows.Err()
}
