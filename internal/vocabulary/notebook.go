package vocabulary

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when deleting an id that does not exist
var ErrNotFound = errors.New("vocabulary entry not found")

// DefaultLimit is the page size when a filter sets none
const DefaultLimit = 20

var numbering = regexp.MustCompile(`^\d+\.\s*`)

// Word is one vocabulary item as the server annotates it. Only Word is required.
type Word struct {
	Word            string `json:"word"`
	POS             string `json:"pos,omitempty"`
	DefinitionCN    string `json:"def_cn,omitempty"`
	DefinitionEN    string `json:"definition_en,omitempty"`
	Example         string `json:"example,omitempty"`
	Pronunciation   string `json:"pronunciation,omitempty"`
	DifficultyLevel string `json:"difficulty_level,omitempty"`
}

// Entry is one word in the notebook
type Entry struct {
	ID              int64
	Word            string
	POS             string
	DefinitionCN    string
	DefinitionEN    string
	Example         string
	Pronunciation   string
	DifficultyLevel string
	Frequency       int
	SourceURL       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Filter selects and orders entries for List and Count
type Filter struct {
	Limit      int    // Page size (DefaultLimit when 0)
	Offset     int    // Entries to skip
	Search     string // Substring match on the word or either definition
	Difficulty string // Exact difficulty level, e.g. "B2"
	SortBy     string // created_at, updated_at, word or frequency
	SortOrder  string // asc or desc (default desc)
}

// Stats summarises the notebook
type Stats struct {
	Words       int // Distinct words
	Occurrences int // Sum of all frequencies
	Sources     int // Distinct source pages
	LastWeek    int // Words first seen in the last 7 days

	// Words per difficulty level; unrated words are counted under ""
	ByDifficulty map[string]int
}

// Notebook is a SQLite-backed vocabulary store
type Notebook struct {
	db  *sql.DB
	now func() time.Time
}

// DefaultPath returns the notebook location under the XDG state directory
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "readalong", "vocabulary.db")
}

// Open opens the notebook at path, creating the database if needed
func Open(path string) (*Notebook, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create notebook directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open notebook: %w", err)
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	nb := &Notebook{db: db, now: time.Now}
	if err := nb.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return nb, nil
}

// Close closes the database
func (nb *Notebook) Close() error {
	return nb.db.Close()
}

func (nb *Notebook) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS vocabulary (
			id integer PRIMARY KEY AUTOINCREMENT,
			word text NOT NULL UNIQUE,
			frequency integer NOT NULL DEFAULT 1,
			pos text NOT NULL DEFAULT '',
			definition_cn text NOT NULL DEFAULT '',
			definition_en text NOT NULL DEFAULT '',
			example text NOT NULL DEFAULT '',
			pronunciation text NOT NULL DEFAULT '',
			difficulty_level text NOT NULL DEFAULT '',
			source_url text NOT NULL DEFAULT '',
			created_at timestamp NOT NULL,
			updated_at timestamp NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_vocabulary_created ON vocabulary(created_at)`,
	}

	for _, q := range queries {
		if _, err := nb.db.Exec(q); err != nil {
			return err
		}
	}
	return nb.addMissingColumns()
}

// annotationColumns are the per-word details, in Word field order
var annotationColumns = []string{"pos", "definition_cn", "definition_en", "example", "pronunciation", "difficulty_level"}

// addMissingColumns upgrades notebooks created before words carried annotations
func (nb *Notebook) addMissingColumns() error {
	rows, err := nb.db.Query("PRAGMA table_info(vocabulary)")
	if err != nil {
		return err
	}

	existing := make(map[string]bool)
	for rows.Next() {
		var (
			cid       int
			name      string
			ctype     string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dfltValue, &pk); err != nil {
			rows.Close()
			return err
		}
		existing[name] = true
	}
	if err := rows.Close(); err != nil {
		return err
	}

	for _, col := range annotationColumns {
		if existing[col] {
			continue
		}
		if _, err := nb.db.Exec("ALTER TABLE vocabulary ADD COLUMN " + col + " text NOT NULL DEFAULT ''"); err != nil {
			return fmt.Errorf("failed to add column %s: %w", col, err)
		}
	}
	return nil
}

// CleanWord normalises a vocabulary entry: list numbering such as "1. " is
// stripped and the word is lowercased and trimmed
func CleanWord(word string) string {
	cleaned := numbering.ReplaceAllString(strings.TrimSpace(word), "")
	return strings.TrimSpace(strings.ToLower(cleaned))
}

// Record stores words seen on sourceURL. Known words have their frequency
// incremented, and every non-empty annotation replaces the stored one.
func (nb *Notebook) Record(ctx context.Context, words []Word, sourceURL string) error {
	tx, err := nb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vocabulary (word, pos, definition_cn, definition_en, example,
			pronunciation, difficulty_level, frequency, source_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?, ?)
		ON CONFLICT(word) DO UPDATE SET
			pos = COALESCE(NULLIF(excluded.pos, ''), pos),
			definition_cn = COALESCE(NULLIF(excluded.definition_cn, ''), definition_cn),
			definition_en = COALESCE(NULLIF(excluded.definition_en, ''), definition_en),
			example = COALESCE(NULLIF(excluded.example, ''), example),
			pronunciation = COALESCE(NULLIF(excluded.pronunciation, ''), pronunciation),
			difficulty_level = COALESCE(NULLIF(excluded.difficulty_level, ''), difficulty_level),
			frequency = frequency + 1,
			updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := nb.now().UTC()
	for _, w := range words {
		word := CleanWord(w.Word)
		if word == "" {
			continue
		}
		_, err := stmt.ExecContext(ctx, word,
			strings.TrimSpace(w.POS),
			strings.TrimSpace(w.DefinitionCN),
			strings.TrimSpace(w.DefinitionEN),
			strings.TrimSpace(w.Example),
			strings.TrimSpace(w.Pronunciation),
			strings.TrimSpace(w.DifficultyLevel),
			sourceURL, now, now)
		if err != nil {
			return fmt.Errorf("failed to record %q: %w", word, err)
		}
	}

	return tx.Commit()
}

// List returns the entries matching f
func (nb *Notebook) List(ctx context.Context, f Filter) ([]Entry, error) {
	where, args := f.where()

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT id, word, pos, definition_cn, definition_en, example,
			pronunciation, difficulty_level, frequency, source_url, created_at, updated_at
		FROM vocabulary %s ORDER BY %s LIMIT ? OFFSET ?`, where, f.orderBy())
	args = append(args, limit, offset)

	rows, err := nb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query vocabulary: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		err := rows.Scan(&e.ID, &e.Word, &e.POS, &e.DefinitionCN, &e.DefinitionEN, &e.Example,
			&e.Pronunciation, &e.DifficultyLevel, &e.Frequency, &e.SourceURL, &e.CreatedAt, &e.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vocabulary: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// Count returns the number of entries matching f, ignoring paging
func (nb *Notebook) Count(ctx context.Context, f Filter) (int, error) {
	where, args := f.where()

	var n int
	if err := nb.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM vocabulary "+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count vocabulary: %w", err)
	}
	return n, nil
}

// Stats summarises the notebook
func (nb *Notebook) Stats(ctx context.Context) (*Stats, error) {
	var s Stats
	weekAgo := nb.now().UTC().Add(-7 * 24 * time.Hour)

	err := nb.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(frequency), 0),
			COUNT(DISTINCT NULLIF(source_url, '')),
			COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0)
		FROM vocabulary`, weekAgo).Scan(&s.Words, &s.Occurrences, &s.Sources, &s.LastWeek)
	if err != nil {
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}

	rows, err := nb.db.QueryContext(ctx, `SELECT difficulty_level, COUNT(*) FROM vocabulary GROUP BY difficulty_level`)
	if err != nil {
		return nil, fmt.Errorf("failed to compute difficulty distribution: %w", err)
	}
	defer rows.Close()

	s.ByDifficulty = make(map[string]int)
	for rows.Next() {
		var (
			level string
			n     int
		)
		if err := rows.Scan(&level, &n); err != nil {
			return nil, fmt.Errorf("failed to scan difficulty distribution: %w", err)
		}
		s.ByDifficulty[level] = n
	}

	return &s, rows.Err()
}

// Delete removes the entry with id
func (nb *Notebook) Delete(ctx context.Context, id int64) error {
	res, err := nb.db.ExecContext(ctx, "DELETE FROM vocabulary WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete entry %d: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return nil
}

func (f Filter) where() (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if f.Search != "" {
		term := "%" + f.Search + "%"
		clauses = append(clauses, "(word LIKE ? OR definition_cn LIKE ? OR definition_en LIKE ?)")
		args = append(args, term, term, term)
	}
	if f.Difficulty != "" {
		clauses = append(clauses, "difficulty_level = ?")
		args = append(args, f.Difficulty)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

func (f Filter) orderBy() string {
	column := "created_at"
	switch f.SortBy {
	case "word", "frequency", "updated_at", "created_at":
		column = f.SortBy
	}

	order := "DESC"
	if strings.EqualFold(f.SortOrder, "asc") {
		order = "ASC"
	}

	// id breaks ties between rows written in the same instant
	return column + " " + order + ", id " + order
}
