package report

import (
	"database/sql"
	"fmt"
	"time"

	"pacbayes_lib/pacbayes"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Run is one certified bound stored in the history database.
type Run struct {
	ID      string
	Time    time.Time
	Epochs  int
	Samples int
	Bound   pacbayes.Bound
}

// History keeps every certified bound in a SQLite file so runs of the
// same model can be compared.
type History struct {
	db *sql.DB
}

// OpenHistory opens (or creates) the history database at path. Use
// ":memory:" for a throwaway store.
func OpenHistory(path string) (*History, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	// one connection, so ":memory:" stays a single database
	db.SetMaxOpenConns(1)
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS runs(
			id TEXT PRIMARY KEY,
			ts INTEGER NOT NULL,
			model TEXT NOT NULL,
			epochs INTEGER NOT NULL,
			samples INTEGER NOT NULL,
			kl REAL NOT NULL,
			bre REAL NOT NULL,
			snn_train REAL NOT NULL,
			snn_test REAL NOT NULL,
			pac_bound REAL NOT NULL
		)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create runs table: %w", err)
	}
	return &History{db: db}, nil
}

// Record stores b and returns the new run id.
func (h *History) Record(b *pacbayes.Bound, epochs, samples int) (string, error) {
	id := uuid.New().String()
	_, err := h.db.Exec(
		"INSERT INTO runs(id, ts, model, epochs, samples, kl, bre, snn_train, snn_test, pac_bound) VALUES(?,?,?,?,?,?,?,?,?,?)",
		id, time.Now().UnixNano(), b.Model, epochs, samples, b.KL, b.BRE, b.SNNTrainError, b.SNNTestError, b.PACBound)
	if err != nil {
		return "", fmt.Errorf("record run: %w", err)
	}
	return id, nil
}

// List returns the runs of model, newest first. An empty model lists all.
func (h *History) List(model string) ([]Run, error) {
	q := "SELECT id, ts, model, epochs, samples, kl, bre, snn_train, snn_test, pac_bound FROM runs"
	var args []interface{}
	if model != "" {
		q += " WHERE model = ?"
		args = append(args, model)
	}
	q += " ORDER BY ts DESC"
	rows, err := h.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var ts int64
		if err := rows.Scan(&r.ID, &ts, &r.Bound.Model, &r.Epochs, &r.Samples,
			&r.Bound.KL, &r.Bound.BRE, &r.Bound.SNNTrainError, &r.Bound.SNNTestError, &r.Bound.PACBound); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Time = time.Unix(0, ts)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Best returns the run of model with the smallest PAC-Bayes bound.
func (h *History) Best(model string) (*Run, error) {
	runs, err := h.List(model)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, sql.ErrNoRows
	}
	best := runs[0]
	for _, r := range runs[1:] {
		if r.Bound.PACBound < best.Bound.PACBound {
			best = r
		}
	}
	return &best, nil
}

func (h *History) Close() error { return h.db.Close() }
