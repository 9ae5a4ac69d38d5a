package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/joescharf/adreview/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, no CGO).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one concurrent writer. Limiting to a single connection
	// serializes all DB access through Go's connection pool, preventing
	// "database is locked" errors from concurrent HTTP requests.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Set busy timeout so concurrent writes wait instead of failing immediately
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// boolToInt converts a bool to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// newULID generates a new ULID string.
func newULID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	// Create migrations tracking table
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	// Sort by filename
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		// Check if already applied
		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Analysis history ---

const reportColumns = `id, title, document, official_urls, score, summary, raw_output, fallback, user_email, user_name,
	human_issue_count, user_rating, rated_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*models.ReportRecord, error) {
	r := &models.ReportRecord{}
	var (
		urlsJSON   string
		humanCount sql.NullInt64
		rating     sql.NullString
		ratedAt    sql.NullTime
	)
	if err := row.Scan(&r.ID, &r.Title, &r.Document, &urlsJSON, &r.Score, &r.Summary, &r.RawOutput, &r.Fallback,
		&r.UserEmail, &r.UserName, &humanCount, &rating, &ratedAt, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(urlsJSON), &r.OfficialURLs)
	if humanCount.Valid && rating.Valid {
		n := int(humanCount.Int64)
		g := models.Rating(rating.String)
		r.HumanIssueCount = &n
		r.UserRating = &g
	}
	if ratedAt.Valid {
		r.RatedAt = &ratedAt.Time
	}
	return r, nil
}

func (s *SQLiteStore) SaveReport(ctx context.Context, r *models.ReportRecord) error {
	if r.ID == "" {
		r.ID = newULID()
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now

	urlsJSON, err := json.Marshal(r.OfficialURLs)
	if err != nil {
		urlsJSON = []byte("[]")
	}

	var humanCount, rating any
	if r.Rated() {
		humanCount = *r.HumanIssueCount
		rating = string(*r.UserRating)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO analysis_history (`+reportColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Title, r.Document, string(urlsJSON), r.Score, r.Summary, r.RawOutput, boolToInt(r.Fallback),
		r.UserEmail, r.UserName, humanCount, rating, r.RatedAt, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetReport(ctx context.Context, id string) (*models.ReportRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM analysis_history WHERE id = ?`, id)
	r, err := scanReport(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("report not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	return r, nil
}

func (s *SQLiteStore) ListReports(ctx context.Context, filter ReportListFilter) ([]*models.ReportRecord, error) {
	query := `SELECT ` + reportColumns + ` FROM analysis_history`
	var conditions []string
	var args []any

	if filter.UserEmail != "" {
		conditions = append(conditions, "user_email = ?")
		args = append(args, filter.UserEmail)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		conditions = append(conditions, "(title LIKE ? OR summary LIKE ? OR document LIKE ?)")
		args = append(args, like, like, like)
	}
	if filter.MinScore != nil {
		conditions = append(conditions, "score >= ?")
		args = append(args, *filter.MinScore)
	}
	if filter.MaxScore != nil {
		conditions = append(conditions, "score <= ?")
		args = append(args, *filter.MaxScore)
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, filter.Since.UTC())
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var reports []*models.ReportRecord
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

func (s *SQLiteStore) DeleteReport(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM analysis_history WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("report not found: %s", id)
	}
	return nil
}

// UpdateRating writes the rating and human count together and returns the
// updated record.
func (s *SQLiteStore) UpdateRating(ctx context.Context, id string, rating models.Rating, humanCount int) (*models.ReportRecord, error) {
	rating, err := models.ParseRating(string(rating))
	if err != nil {
		return nil, err
	}
	if humanCount < 0 {
		return nil, fmt.Errorf("human issue count must not be negative: %d", humanCount)
	}

	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		`UPDATE analysis_history SET user_rating=?, human_issue_count=?, rated_at=?, updated_at=? WHERE id=?`,
		string(rating), humanCount, now, now, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update rating: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return nil, fmt.Errorf("report not found: %s", id)
	}
	return s.GetReport(ctx, id)
}

// --- Admin users ---

func (s *SQLiteStore) UpsertAdmin(ctx context.Context, a *models.AdminUser) error {
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO admin_users (user_email, user_name, is_admin, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_email) DO UPDATE SET user_name=excluded.user_name, is_admin=excluded.is_admin, updated_at=excluded.updated_at`,
		a.Email, a.Name, boolToInt(a.IsAdmin), a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert admin: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetAdmin(ctx context.Context, email string) (*models.AdminUser, error) {
	a := &models.AdminUser{}
	err := s.db.QueryRowContext(ctx,
		`SELECT user_email, user_name, is_admin, created_at, updated_at FROM admin_users WHERE user_email = ?`, email,
	).Scan(&a.Email, &a.Name, &a.IsAdmin, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("admin not found: %s", email)
	}
	if err != nil {
		return nil, fmt.Errorf("get admin: %w", err)
	}
	return a, nil
}

func (s *SQLiteStore) ListAdmins(ctx context.Context) ([]*models.AdminUser, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_email, user_name, is_admin, created_at, updated_at FROM admin_users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var admins []*models.AdminUser
	for rows.Next() {
		a := &models.AdminUser{}
		if err := rows.Scan(&a.Email, &a.Name, &a.IsAdmin, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan admin: %w", err)
		}
		admins = append(admins, a)
	}
	return admins, rows.Err()
}

func (s *SQLiteStore) DeleteAdmin(ctx context.Context, email string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM admin_users WHERE user_email = ?", email)
	if err != nil {
		return fmt.Errorf("delete admin: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("admin not found: %s", email)
	}
	return nil
}

func (s *SQLiteStore) CountAdmins(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM admin_users WHERE is_admin = 1").Scan(&n); err != nil {
		return 0, fmt.Errorf("count admins: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) BootstrapAdmin(ctx context.Context, a *models.AdminUser) (bool, error) {
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	a.IsAdmin = true

	// Count and insert in one statement so two first callers cannot both win.
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO admin_users (user_email, user_name, is_admin, created_at, updated_at)
		SELECT ?, ?, 1, ?, ?
		WHERE NOT EXISTS (SELECT 1 FROM admin_users WHERE is_admin = 1)
		ON CONFLICT(user_email) DO UPDATE SET user_name=excluded.user_name, is_admin=1, updated_at=excluded.updated_at`,
		a.Email, a.Name, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("bootstrap admin: %w", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

// --- Login history ---

func (s *SQLiteStore) RecordLogin(ctx context.Context, e *models.LoginEvent) error {
	if e.ID == "" {
		e.ID = newULID()
	}
	if e.LoginAt.IsZero() {
		e.LoginAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO login_history (id, user_email, user_name, user_agent, ip_address, login_at) VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.Email, e.Name, e.UserAgent, e.IPAddress, e.LoginAt,
	)
	if err != nil {
		return fmt.Errorf("record login: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListLogins(ctx context.Context, limit int) ([]*models.LoginEvent, error) {
	query := `SELECT id, user_email, user_name, user_agent, ip_address, login_at FROM login_history ORDER BY login_at DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list logins: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []*models.LoginEvent
	for rows.Next() {
		e := &models.LoginEvent{}
		if err := rows.Scan(&e.ID, &e.Email, &e.Name, &e.UserAgent, &e.IPAddress, &e.LoginAt); err != nil {
			return nil, fmt.Errorf("scan login: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
