package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/elum-utils/moderation/interfaces"
	"github.com/elum-utils/moderation/models"
)

// Dialect selects placeholder and upsert syntax.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
)

// SQLAdapter is a generic SQL term, preference and moderation status store.
type SQLAdapter struct {
	db            *sql.DB
	dialect       Dialect
	termsTable    string
	prefsTable    string
	statusesTable string
}

var (
	_ interfaces.TermSource      = (*SQLAdapter)(nil)
	_ interfaces.PreferenceStore = (*SQLAdapter)(nil)
	_ interfaces.ModerationStore = (*SQLAdapter)(nil)
)

// SQLOptions configures table names and dialect.
type SQLOptions struct {
	TermsTable       string
	PreferencesTable string
	StatusesTable    string
	// Dialect defaults to DialectSQLite.
	Dialect Dialect
}

// NewSQLAdapter creates an adapter over *sql.DB.
func NewSQLAdapter(db *sql.DB, opt SQLOptions) (*SQLAdapter, error) {
	if db == nil {
		return nil, errors.New("storage: db is nil")
	}
	if strings.TrimSpace(opt.TermsTable) == "" {
		opt.TermsTable = "moderation_terms"
	}
	if strings.TrimSpace(opt.PreferencesTable) == "" {
		opt.PreferencesTable = "moderation_preferences"
	}
	if strings.TrimSpace(opt.StatusesTable) == "" {
		opt.StatusesTable = "moderation_statuses"
	}
	switch opt.Dialect {
	case "":
		opt.Dialect = DialectSQLite
	case DialectSQLite, DialectPostgres, DialectMySQL:
	default:
		return nil, fmt.Errorf("storage: unknown sql dialect %q", opt.Dialect)
	}
	return &SQLAdapter{
		db:            db,
		dialect:       opt.Dialect,
		termsTable:    opt.TermsTable,
		prefsTable:    opt.PreferencesTable,
		statusesTable: opt.StatusesTable,
	}, nil
}

func (s *SQLAdapter) placeholder(n int) string {
	if s.dialect == DialectPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

func (s *SQLAdapter) placeholders(n int) string {
	out := make([]string, n)
	for i := range out {
		out[i] = s.placeholder(i + 1)
	}
	return strings.Join(out, ", ")
}

// upsert builds an insert that overwrites cols on key conflict.
func (s *SQLAdapter) upsert(table string, keys, cols []string) string {
	all := append(append([]string{}, keys...), cols...)
	q := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`, table, strings.Join(all, ", "), s.placeholders(len(all)))
	set := make([]string, len(cols))
	for i, c := range cols {
		if s.dialect == DialectMySQL {
			set[i] = fmt.Sprintf("%s = VALUES(%s)", c, c)
		} else {
			set[i] = fmt.Sprintf("%s = excluded.%s", c, c)
		}
	}
	if s.dialect == DialectMySQL {
		return q + " ON DUPLICATE KEY UPDATE " + strings.Join(set, ", ")
	}
	return q + fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s", strings.Join(keys, ", "), strings.Join(set, ", "))
}

// EnsureSchema creates tables if missing.
func (s *SQLAdapter) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (term VARCHAR(255) PRIMARY KEY)`, s.termsTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (user_id VARCHAR(255) PRIMARY KEY, level VARCHAR(16) NOT NULL)`, s.prefsTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	post_id VARCHAR(255) NOT NULL,
	comment_id VARCHAR(255) NOT NULL DEFAULT '',
	is_flagged BOOLEAN NOT NULL,
	flagged_at TIMESTAMP NULL,
	reasons TEXT NOT NULL,
	moderated_by VARCHAR(255) NOT NULL,
	PRIMARY KEY (post_id, comment_id)
)`, s.statusesTable),
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLAdapter) GetTerms(ctx context.Context) ([]string, error) {
	q := fmt.Sprintf(`SELECT term FROM %s`, s.termsTable)
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]string, 0, 256)
	for rows.Next() {
		var term string
		if scanErr := rows.Scan(&term); scanErr != nil {
			return nil, scanErr
		}
		out = append(out, term)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLAdapter) GetLevel(ctx context.Context, userID string) (models.FilterLevel, error) {
	q := fmt.Sprintf(`SELECT level FROM %s WHERE user_id = %s LIMIT 1`, s.prefsTable, s.placeholder(1))
	var level string
	err := s.db.QueryRowContext(ctx, q, userID).Scan(&level)
	if errors.Is(err, sql.ErrNoRows) {
		return "", interfaces.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return models.FilterLevel(level), nil
}

func (s *SQLAdapter) SetLevel(ctx context.Context, userID string, level models.FilterLevel) error {
	q := s.upsert(s.prefsTable, []string{"user_id"}, []string{"level"})
	_, err := s.db.ExecContext(ctx, q, userID, string(level))
	return err
}

// SetStatus stores the status. Posts live outside this database, so it never
// returns ErrNotFound.
func (s *SQLAdapter) SetStatus(ctx context.Context, ref models.ContentRef, status models.ModerationStatus) error {
	reasons := status.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	raw, err := json.Marshal(reasons)
	if err != nil {
		return err
	}
	var flaggedAt sql.NullTime
	if status.FlaggedAt != nil {
		flaggedAt = sql.NullTime{Time: status.FlaggedAt.UTC(), Valid: true}
	}
	q := s.upsert(s.statusesTable,
		[]string{"post_id", "comment_id"},
		[]string{"is_flagged", "flagged_at", "reasons", "moderated_by"})
	_, err = s.db.ExecContext(ctx, q, ref.PostID, ref.CommentID, status.IsFlagged, flaggedAt, string(raw), status.ModeratedBy)
	return err
}

func (s *SQLAdapter) ListByStatus(ctx context.Context, flagged bool) ([]models.ModeratedContent, error) {
	q := fmt.Sprintf(`SELECT post_id, comment_id, is_flagged, flagged_at, reasons, moderated_by FROM %s WHERE is_flagged = %s`,
		s.statusesTable, s.placeholder(1))
	rows, err := s.db.QueryContext(ctx, q, flagged)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ModeratedContent
	for rows.Next() {
		var (
			item      models.ModeratedContent
			flaggedAt sql.NullTime
			reasons   string
		)
		if err := rows.Scan(&item.PostID, &item.CommentID, &item.Status.IsFlagged, &flaggedAt, &reasons, &item.Status.ModeratedBy); err != nil {
			return nil, err
		}
		if flaggedAt.Valid {
			t := flaggedAt.Time.In(time.UTC)
			item.Status.FlaggedAt = &t
		}
		if err := json.Unmarshal([]byte(reasons), &item.Status.Reasons); err != nil {
			return nil, fmt.Errorf("storage: reasons of %s/%s: %w", item.PostID, item.CommentID, err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortNewestFirst(out)
	return out, nil
}
