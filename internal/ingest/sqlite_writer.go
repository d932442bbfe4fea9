package ingest

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/agentic-research/hydronet/api"
	"github.com/agentic-research/hydronet/internal/join"
	"github.com/agentic-research/hydronet/internal/log"
	"github.com/agentic-research/hydronet/internal/network"
	"github.com/agentic-research/hydronet/internal/traverse"
)

const defaultBatchSize = 10000

// GagesTable is where build stores joined point features.
const GagesTable = "gages"

var reservedTables = map[string]bool{
	"runs":         true,
	"segments":     true,
	"path_lengths": true,
	"traversals":   true,
}

// SQLiteWriter implements ResultSink. Every row it writes carries the run id
// assigned when the writer was opened.
type SQLiteWriter struct {
	db        *sql.DB
	runID     string
	batchSize int
	closed    bool
	mu        sync.Mutex
}

// NewSQLiteWriter opens dbPath, creates the result schema and registers a
// new run.
func NewSQLiteWriter(dbPath string) (*SQLiteWriter, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	// one connection keeps PRAGMAs and transactions on the same handle
	db.SetMaxOpenConns(1)

	// Performance tuning for bulk insert
	if _, err := db.Exec("PRAGMA synchronous = OFF"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode = MEMORY"); err != nil {
		_ = db.Close()
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		created INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS segments (
		run_id TEXT NOT NULL,
		id INTEGER NOT NULL,
		toid INTEGER,
		length REAL NOT NULL,
		divergence INTEGER NOT NULL,
		stream_order INTEGER NOT NULL,
		area REAL NOT NULL,
		divert_to JSON,
		PRIMARY KEY (run_id, id)
	) WITHOUT ROWID;
	CREATE TABLE IF NOT EXISTS path_lengths (
		run_id TEXT NOT NULL,
		id INTEGER NOT NULL,
		pathlength REAL NOT NULL,
		PRIMARY KEY (run_id, id)
	) WITHOUT ROWID;
	CREATE TABLE IF NOT EXISTS traversals (
		run_id TEXT NOT NULL,
		mode TEXT NOT NULL,
		start INTEGER NOT NULL,
		segment_id INTEGER NOT NULL,
		distance REAL NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	w := &SQLiteWriter{
		db:        db,
		runID:     uuid.NewString(),
		batchSize: defaultBatchSize,
	}
	if _, err := db.Exec(`INSERT INTO runs (id, created) VALUES (?, ?)`, w.runID, time.Now().UTC().Unix()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("register run: %w", err)
	}
	return w, nil
}

// RunID identifies the rows written by this writer.
func (w *SQLiteWriter) RunID() string { return w.runID }

// WriteSegments implements ResultSink.
func (w *SQLiteWriter) WriteSegments(n *network.Network) error {
	ids := n.IDs()
	return w.batch(`
		INSERT OR REPLACE INTO segments (run_id, id, toid, length, divergence, stream_order, area, divert_to)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, len(ids), func(i int) ([]any, error) {
		s, err := n.Segment(ids[i])
		if err != nil {
			return nil, err
		}
		var toID, divertTo any
		if !s.IsOutlet() {
			toID = s.ToID
		}
		if len(s.DivertTo) > 0 {
			b, err := json.Marshal(s.DivertTo)
			if err != nil {
				return nil, err
			}
			divertTo = string(b)
		}
		return []any{w.runID, s.ID, toID, s.Length, int(s.Divergence), s.StreamOrder, s.Area, divertTo}, nil
	})
}

// WritePathLengths implements ResultSink. Rows are written in id order.
func (w *SQLiteWriter) WritePathLengths(lengths map[int64]float64) error {
	ids := sortedIDs(lengths)
	return w.batch(`INSERT OR REPLACE INTO path_lengths (run_id, id, pathlength) VALUES (?, ?, ?)`,
		len(ids), func(i int) ([]any, error) {
			return []any{w.runID, ids[i], lengths[ids[i]]}, nil
		})
}

// WriteTraversal implements ResultSink.
func (w *SQLiteWriter) WriteTraversal(r *traverse.Result) error {
	ids := r.IDs()
	return w.batch(`INSERT INTO traversals (run_id, mode, start, segment_id, distance) VALUES (?, ?, ?, ?, ?)`,
		len(ids), func(i int) ([]any, error) {
			d, _ := r.Distance(ids[i])
			return []any{w.runID, r.Mode.Code(), r.Start, ids[i], d}, nil
		})
}

// WriteTable implements ResultSink. The table is created on first use and
// grows a column for every new table column. Missing cells are stored as NULL.
func (w *SQLiteWriter) WriteTable(name string, t *join.Table) error {
	if name == "" || reservedTables[name] {
		return fmt.Errorf("invalid table name %q", name)
	}
	if err := w.ensureTable(name, t.Columns); err != nil {
		return err
	}

	cols := `"run_id"`
	marks := "?"
	for _, c := range t.Columns {
		cols += ", " + quoteIdent(c)
		marks += ", ?"
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quoteIdent(name), cols, marks)

	return w.batch(query, t.Len(), func(i int) ([]any, error) {
		row := t.Rows[i]
		args := make([]any, 0, len(t.Columns)+1)
		args = append(args, w.runID)
		for _, c := range t.Columns {
			v, err := cellValue(row[c])
			if err != nil {
				return nil, fmt.Errorf("%s row %d column %q: %w", name, i, c, err)
			}
			args = append(args, v)
		}
		return args, nil
	})
}

func (w *SQLiteWriter) ensureTable(name string, columns []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.db.Exec(fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s ("run_id" TEXT NOT NULL)`, quoteIdent(name))); err != nil {
		return fmt.Errorf("create table %s: %w", name, err)
	}
	existing, err := w.columns(name)
	if err != nil {
		return err
	}
	for _, c := range columns {
		if existing[c] {
			continue
		}
		if _, err := w.db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", quoteIdent(name), quoteIdent(c))); err != nil {
			return fmt.Errorf("add column %s.%s: %w", name, c, err)
		}
		existing[c] = true
	}
	return nil
}

func (w *SQLiteWriter) columns(table string) (map[string]bool, error) {
	rows, err := w.db.Query(fmt.Sprintf("SELECT * FROM %s LIMIT 0", quoteIdent(table)))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }() // safe to ignore
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(cols))
	for _, c := range cols {
		out[c] = true
	}
	return out, nil
}

// batch runs query once per row inside transactions of at most batchSize rows.
func (w *SQLiteWriter) batch(query string, n int, row func(i int) ([]any, error)) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var (
		tx   *sql.Tx
		stmt *sql.Stmt
	)
	begin := func() error {
		var err error
		if tx, err = w.db.Begin(); err != nil {
			return err
		}
		if stmt, err = tx.Prepare(query); err != nil {
			_ = tx.Rollback()
			return err
		}
		return nil
	}
	commit := func() error {
		_ = stmt.Close()
		return tx.Commit()
	}

	if err := begin(); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		args, err := row(i)
		if err == nil {
			_, err = stmt.Exec(args...)
		}
		if err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return err
		}
		if (i+1)%w.batchSize == 0 {
			if err := commit(); err != nil {
				return err
			}
			log.Debugw("sqlite batch committed", "run", w.runID, "rows", i+1)
			if err := begin(); err != nil {
				return err
			}
		}
	}
	return commit()
}

// Close implements ResultSink.
func (w *SQLiteWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	// Create indices after bulk load for speed
	if _, err := w.db.Exec(`CREATE INDEX IF NOT EXISTS idx_traversal_start ON traversals(run_id, mode, start)`); err != nil {
		log.Warnw("index creation failed", "error", err)
	}
	return w.db.Close()
}

// IsResultDB reports whether dbPath was written by SQLiteWriter and holds a
// network. A database that only ever received traversals is not a source.
func IsResultDB(dbPath string) bool {
	ok, err := HasTables(dbPath, "runs", "segments", "path_lengths")
	if err != nil || !ok {
		return false
	}
	db, err := openExisting(dbPath)
	if err != nil {
		return false
	}
	defer func() { _ = db.Close() }()

	var stored bool
	if err := db.QueryRow(`SELECT EXISTS (SELECT 1 FROM segments)`).Scan(&stored); err != nil {
		return false
	}
	return stored
}

// StoredSchema reads segments back from a database produced by SQLiteWriter.
// Points are read from GagesTable, keyed by the id field of points and the
// normalised segment_id column.
func StoredSchema(points api.PointSource) *api.Schema {
	return &api.Schema{
		Version: "v1",
		Segments: api.SegmentSource{
			Table: "segments",
			Fields: api.SegmentFields{
				ID:          "id",
				ToID:        "toid",
				Length:      "length",
				Divergence:  "divergence",
				StreamOrder: "stream_order",
				Area:        "area",
				DivertTo:    "divert_to",
			},
		},
		Points: api.PointSource{
			Table:     GagesTable,
			ID:        points.ID,
			SegmentID: "segment_id",
		},
	}
}

func cellValue(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case int, int8, int16, int32, int64, uint8, uint16, uint32, float32, float64, string, bool, []byte:
		return x, nil
	default:
		if join.IsMissing(v) {
			return nil, nil
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	}
}

func sortedIDs(m map[int64]float64) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Interface compliance
var _ ResultSink = (*SQLiteWriter)(nil)
