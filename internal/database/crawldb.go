package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/crawlpool/internal/crawler"
)

const (
	// FileName is the name of the database file inside the data directory.
	FileName = "crawlpool.db"

	// timeLayout is fixed-width so that stored times sort as text.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

var (
	// ErrNotFound is returned when a session does not exist.
	ErrNotFound = errors.New("crawl session not found")

	// ErrNilSummary is returned by SaveSummary for a nil summary.
	ErrNilSummary = errors.New("summary is nil")
)

// CrawlDB is the crawl history store.
type CrawlDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures Open.
type Options struct {
	// CreateIfNotExists creates the directory and database file if missing.
	CreateIfNotExists bool

	// EnableWAL turns on write-ahead logging.
	EnableWAL bool
}

// DefaultOptions returns the options used by the CLI.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens the database in dbDir.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	mode := "rw"
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		mode = "rwc"
	} else if _, err := os.Stat(dbPath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s: %w", dbPath, err)
		}
		return nil, fmt.Errorf("failed to check database path: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?mode="+mode+"&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite has a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return cdb, nil
}

// Path returns the database file path.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

// Close closes the database.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

func (cdb *CrawlDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		seed TEXT NOT NULL,
		started_at TEXT NOT NULL,
		elapsed_ns INTEGER NOT NULL,
		visited INTEGER NOT NULL,
		fetched INTEGER NOT NULL,
		discarded INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		termination TEXT NOT NULL,
		config TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_seed ON sessions(seed);
	CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at);

	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		depth INTEGER NOT NULL,
		status_code INTEGER,
		content_type TEXT,
		links INTEGER,
		admitted INTEGER,
		latency_ns INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_pages_session ON pages(session_id);

	CREATE TABLE IF NOT EXISTS failures (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		depth INTEGER NOT NULL,
		reason TEXT NOT NULL,
		status_code INTEGER,
		message TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_failures_session ON failures(session_id);
	CREATE INDEX IF NOT EXISTS idx_failures_reason ON failures(reason);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveSummary stores a crawl session with its pages and failures in one
// transaction.
func (cdb *CrawlDB) SaveSummary(ctx context.Context, s *crawler.Summary) (err error) {
	if s == nil {
		return ErrNilSummary
	}

	cfg, err := json.Marshal(s.Config)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
	INSERT INTO sessions (id, seed, started_at, elapsed_ns, visited, fetched, discarded, failed, termination, config)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		s.SessionID,
		s.Seed,
		s.StartedAt.UTC().Format(timeLayout),
		int64(s.Elapsed),
		s.VisitedCount,
		s.FetchedCount,
		s.DiscardedCount,
		len(s.Failed),
		string(s.Termination),
		string(cfg),
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	pageStmt, err := tx.PrepareContext(ctx, `
	INSERT INTO pages (session_id, url, depth, status_code, content_type, links, admitted, latency_ns)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare page insert: %w", err)
	}
	defer pageStmt.Close()

	for _, p := range s.Pages {
		if _, err = pageStmt.ExecContext(ctx, s.SessionID, p.URL, p.Depth, p.StatusCode, p.ContentType, p.Links, p.Admitted, int64(p.Latency)); err != nil {
			return fmt.Errorf("failed to insert page %s: %w", p.URL, err)
		}
	}

	failStmt, err := tx.PrepareContext(ctx, `
	INSERT INTO failures (session_id, url, depth, reason, status_code, message)
	VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare failure insert: %w", err)
	}
	defer failStmt.Close()

	for _, f := range s.Failed {
		if _, err = failStmt.ExecContext(ctx, s.SessionID, f.URL, f.Depth, f.Reason.String(), f.StatusCode, f.Message); err != nil {
			return fmt.Errorf("failed to insert failure %s: %w", f.URL, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session: %w", err)
	}
	return nil
}

// SessionRecord is a stored session without its pages and failures.
type SessionRecord struct {
	ID          string
	Seed        string
	StartedAt   time.Time
	Elapsed     time.Duration
	Visited     int
	Fetched     int
	Discarded   int
	Failed      int
	Termination crawler.Termination
	Config      crawler.Config
	CreatedAt   time.Time
}

const sessionColumns = `id, seed, started_at, elapsed_ns, visited, fetched, discarded, failed, termination, config, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (SessionRecord, error) {
	var (
		rec                           SessionRecord
		startedAt, createdAt, cfgJSON string
		elapsed                       int64
		termination                   string
	)
	if err := row.Scan(
		&rec.ID,
		&rec.Seed,
		&startedAt,
		&elapsed,
		&rec.Visited,
		&rec.Fetched,
		&rec.Discarded,
		&rec.Failed,
		&termination,
		&cfgJSON,
		&createdAt,
	); err != nil {
		return SessionRecord{}, err
	}

	rec.StartedAt = parseTimestamp(startedAt)
	rec.CreatedAt = parseTimestamp(createdAt)
	rec.Elapsed = time.Duration(elapsed)
	rec.Termination = crawler.Termination(termination)
	if err := json.Unmarshal([]byte(cfgJSON), &rec.Config); err != nil {
		return SessionRecord{}, fmt.Errorf("failed to parse config of session %s: %w", rec.ID, err)
	}
	return rec, nil
}

// ListSessions returns stored sessions, newest first. An empty seed lists
// every session; limit <= 0 means no limit.
func (cdb *CrawlDB) ListSessions(ctx context.Context, seed string, limit int) ([]SessionRecord, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE 1=1`
	args := make([]any, 0, 2)

	if seed != "" {
		query += " AND seed = ?"
		args = append(args, seed)
	}
	query += " ORDER BY started_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	records := make([]SessionRecord, 0)
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetSession returns one stored session record.
func (cdb *CrawlDB) GetSession(ctx context.Context, id string) (*SessionRecord, error) {
	row := cdb.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	rec, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &rec, nil
}

// GetSummary rebuilds the crawl summary of a stored session.
func (cdb *CrawlDB) GetSummary(ctx context.Context, id string) (*crawler.Summary, error) {
	rec, err := cdb.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}

	s := &crawler.Summary{
		SessionID:      rec.ID,
		Seed:           rec.Seed,
		Config:         rec.Config,
		StartedAt:      rec.StartedAt,
		Elapsed:        rec.Elapsed,
		VisitedCount:   rec.Visited,
		FetchedCount:   rec.Fetched,
		DiscardedCount: rec.Discarded,
		Termination:    rec.Termination,
		Pages:          make([]crawler.PageResult, 0, rec.Fetched),
		Failed:         make([]crawler.FailedURL, 0, rec.Failed),
	}

	pageRows, err := cdb.db.QueryContext(ctx, `
	SELECT url, depth, status_code, content_type, links, admitted, latency_ns
	FROM pages WHERE session_id = ? ORDER BY depth, url
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query pages: %w", err)
	}
	defer pageRows.Close()

	for pageRows.Next() {
		var (
			p       crawler.PageResult
			latency int64
		)
		if err := pageRows.Scan(&p.URL, &p.Depth, &p.StatusCode, &p.ContentType, &p.Links, &p.Admitted, &latency); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		p.Latency = time.Duration(latency)
		s.Pages = append(s.Pages, p)
	}
	if err := pageRows.Err(); err != nil {
		return nil, err
	}

	failRows, err := cdb.db.QueryContext(ctx, `
	SELECT url, depth, reason, status_code, message
	FROM failures WHERE session_id = ? ORDER BY url
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query failures: %w", err)
	}
	defer failRows.Close()

	for failRows.Next() {
		var (
			f      crawler.FailedURL
			reason string
		)
		if err := failRows.Scan(&f.URL, &f.Depth, &reason, &f.StatusCode, &f.Message); err != nil {
			return nil, fmt.Errorf("failed to scan failure: %w", err)
		}
		// Reasons written by older versions may be unknown; keep the row.
		f.Reason, _ = crawler.ParseFailureReason(reason) //nolint:errcheck
		s.Failed = append(s.Failed, f)
	}
	return s, failRows.Err()
}

// FailureCounts returns the number of failed URLs per reason for a session.
func (cdb *CrawlDB) FailureCounts(ctx context.Context, id string) (map[crawler.FailureReason]int, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT reason, COUNT(*) FROM failures WHERE session_id = ? GROUP BY reason
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to count failures: %w", err)
	}
	defer rows.Close()

	counts := make(map[crawler.FailureReason]int)
	for rows.Next() {
		var (
			reason string
			n      int
		)
		if err := rows.Scan(&reason, &n); err != nil {
			return nil, fmt.Errorf("failed to scan failure count: %w", err)
		}
		r, _ := crawler.ParseFailureReason(reason) //nolint:errcheck // unknown reasons are counted as ReasonUnknown
		counts[r] += n
	}
	return counts, rows.Err()
}

// DeleteSession removes a session with its pages and failures.
func (cdb *CrawlDB) DeleteSession(ctx context.Context, id string) error {
	res, err := cdb.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// timestampFormats are the layouts SQLite and this package write.
var timestampFormats = []string{
	timeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999",
}

// parseTimestamp returns the zero time when s matches no known layout.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
