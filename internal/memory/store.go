package memory

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"recall/internal/config"
	"recall/internal/fixedwidth"
	"recall/internal/identity"
	"recall/internal/logging"
	"recall/internal/normalize"
)

// ErrLocked is returned when another process holds the memory database.
var ErrLocked = errors.New("memory database is locked by another process")

// Parser extracts role-tagged observations from a corrected output file.
// The fixed-width parser is the production implementation; tests may
// substitute their own.
type Parser interface {
	Parse(path string) (fixedwidth.Result, error)
}

// Validator decides whether a raw document string is acceptable and what
// kind it is. The default implementation applies the CNPJ/CPF checksums.
type Validator interface {
	Classify(raw string) (digits string, kind DocumentKind, ok bool)
}

// checksumValidator backs Validator with the official mod-11 algorithms.
type checksumValidator struct{}

func (checksumValidator) Classify(raw string) (string, DocumentKind, bool) {
	digits := normalize.DigitsOnly(raw)
	switch {
	case len(digits) == identity.CNPJLength && identity.ValidCNPJ(digits):
		return digits, DocumentCNPJ, true
	case len(digits) == identity.CPFLength && identity.ValidCPF(digits):
		return digits, DocumentCPF, true
	}
	return "", "", false
}

// Options configures collaborator wiring for Open.
type Options struct {
	Parser    Parser
	Validator Validator
	Logger    *slog.Logger
}

// Store manages the persistent learning memory backed by SQLite.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger

	parser    Parser
	validator Validator

	rules          Rules
	maxDetailLines int

	lock *flock.Flock

	// ingestMu serializes LearnFromFile; the store is the only writer.
	ingestMu sync.Mutex
	snapshot atomic.Pointer[Snapshot]
}

// Open initializes or connects to the memory database, applies migrations,
// upgrades legacy data, and builds the initial lookup snapshot. The data
// directory is guarded by a file lock so only one process writes at a time.
func Open(cfg *config.Config, opts Options) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	lock := flock.New(filepath.Join(cfg.Paths.DataDir, "memory.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire memory lock: %w", err)
	}
	if !locked {
		return nil, ErrLocked
	}

	dbPath := cfg.DatabasePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	store := &Store{
		db:             db,
		path:           dbPath,
		logger:         logging.NewComponentLogger(logger, "memory"),
		parser:         opts.Parser,
		validator:      opts.Validator,
		rules:          rulesFromConfig(cfg.Learning),
		maxDetailLines: cfg.Learning.MaxDetailLines,
		lock:           lock,
	}
	if store.parser == nil {
		store.parser = fixedwidth.NewParser()
	}
	if store.validator == nil {
		store.validator = checksumValidator{}
	}

	ctx := context.Background()
	if err := store.applyMigrations(ctx); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, err
	}
	if err := store.upgradeLegacyData(ctx); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, err
	}
	if err := store.reloadSnapshot(ctx); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, err
	}

	return store, nil
}

// Close releases the database connection and the cross-process lock.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	var firstErr error
	if s.db != nil {
		firstErr = s.db.Close()
	}
	if s.lock != nil {
		if err := s.lock.Unlock(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// DatabasePath returns the path of the underlying SQLite file.
func (s *Store) DatabasePath() string {
	return s.path
}

// upgradeLegacyData brings databases created before the confidence rules
// into compliance: session content hashes are backfilled best-effort and
// every (name_key, role) group is reclassified once. Both steps are
// idempotent and run inside one transaction.
func (s *Store) upgradeLegacyData(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upgrade tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := s.backfillContentHashes(ctx, tx); err != nil {
		return err
	}
	if err := s.reclassifyAll(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upgrade tx: %w", err)
	}
	return nil
}

// backfillContentHashes re-hashes source files of historical sessions that
// predate replay detection. Missing or unreadable files are skipped.
func (s *Store) backfillContentHashes(ctx context.Context, tx *sql.Tx) error {
	rows, err := tx.QueryContext(
		ctx,
		`SELECT id, source_file FROM learn_sessions WHERE content_hash IS NULL OR content_hash = ''`,
	)
	if err != nil {
		return fmt.Errorf("query sessions without hash: %w", err)
	}
	defer rows.Close()

	type pending struct {
		id   int64
		path string
	}
	var sessions []pending
	for rows.Next() {
		var p pending
		var path sql.NullString
		if err := rows.Scan(&p.id, &path); err != nil {
			return fmt.Errorf("scan session: %w", err)
		}
		p.path = path.String
		sessions = append(sessions, p)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate sessions: %w", err)
	}

	for _, session := range sessions {
		if session.path == "" {
			continue
		}
		hash, err := hashFile(session.path)
		if err != nil {
			continue
		}
		if _, err := tx.ExecContext(ctx, `UPDATE learn_sessions SET content_hash = ? WHERE id = ?`, hash, session.id); err != nil {
			return fmt.Errorf("backfill hash for session %d: %w", session.id, err)
		}
	}
	return nil
}

// MemorySummary returns store-wide totals for logs and diagnostics.
func (s *Store) MemorySummary(ctx context.Context) (MemorySummary, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT
            COUNT(*),
            COUNT(DISTINCT name_key),
            COUNT(DISTINCT document),
            COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
        FROM learned_pairs`,
		StatusActive,
		StatusQuarantined,
	)
	summary := MemorySummary{DatabasePath: s.path}
	if err := row.Scan(
		&summary.TotalPairs,
		&summary.TotalNames,
		&summary.TotalDocuments,
		&summary.ActivePairs,
		&summary.QuarantinedPairs,
	); err != nil {
		return MemorySummary{}, fmt.Errorf("memory summary: %w", err)
	}
	return summary, nil
}

// HasDocument reports whether any pair was ever learned for the document,
// regardless of status.
func (s *Store) HasDocument(ctx context.Context, document string) (bool, error) {
	digits := normalize.DigitsOnly(document)
	if digits == "" {
		return false, nil
	}
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM learned_pairs WHERE document = ? LIMIT 1`, digits).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check document: %w", err)
	}
	return true, nil
}

// GetPair fetches one learned pair by its primary key.
func (s *Store) GetPair(ctx context.Context, nameKey, document string, role Role) (*Pair, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+pairColumns+` FROM learned_pairs WHERE name_key = ? AND document = ? AND role = ?`,
		nameKey, document, role,
	)
	pair, err := scanPair(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pair: %w", err)
	}
	return pair, nil
}

// GroupPairs returns every pair of one (name key, role) group ordered by
// document.
func (s *Store) GroupPairs(ctx context.Context, nameKey string, role Role) ([]*Pair, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+pairColumns+` FROM learned_pairs WHERE name_key = ? AND role = ? ORDER BY document`,
		nameKey, role,
	)
	if err != nil {
		return nil, fmt.Errorf("query group: %w", err)
	}
	defer rows.Close()

	var pairs []*Pair
	for rows.Next() {
		pair, err := scanPair(rows)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, pair)
	}
	return pairs, rows.Err()
}

// Sessions returns the most recent ingestion sessions, newest first.
func (s *Store) Sessions(ctx context.Context, limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, source_file, COALESCE(content_hash, ''), processed_at,
            total_records, candidate_pairs, learned, updated, ignored, invalid_lines
        FROM learn_sessions ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		var session Session
		var processedRaw string
		if err := rows.Scan(
			&session.ID,
			&session.SourceFile,
			&session.ContentHash,
			&processedRaw,
			&session.TotalRecords,
			&session.CandidatePairs,
			&session.Learned,
			&session.Updated,
			&session.Ignored,
			&session.InvalidLines,
		); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if processed, err := parseTimeString(processedRaw); err == nil {
			session.ProcessedAt = processed
		}
		sessions = append(sessions, &session)
	}
	return sessions, rows.Err()
}

// SessionItems returns the audit rows of one session in insertion order.
func (s *Store) SessionItems(ctx context.Context, sessionID int64) ([]*SessionItem, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, session_id, role, name_original, name_key, document, document_kind,
            action, occurrences_file, occurrences_total, COALESCE(sample_refs, '')
        FROM learn_session_items WHERE session_id = ? ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query session items: %w", err)
	}
	defer rows.Close()

	var items []*SessionItem
	for rows.Next() {
		var item SessionItem
		var roleRaw, kindRaw string
		if err := rows.Scan(
			&item.ID,
			&item.SessionID,
			&roleRaw,
			&item.NameOriginal,
			&item.NameKey,
			&item.Document,
			&kindRaw,
			&item.Action,
			&item.OccurrencesFile,
			&item.OccurrencesTotal,
			&item.SampleRefs,
		); err != nil {
			return nil, fmt.Errorf("scan session item: %w", err)
		}
		if role, ok := ParseRole(roleRaw); ok {
			item.Role = role
		}
		item.DocumentKind = DocumentKind(kindRaw)
		items = append(items, &item)
	}
	return items, rows.Err()
}

const pairColumns = "name_key, name_original, document, document_kind, role, occurrences, status, status_reason, source_file, first_seen, last_seen"

func scanPair(scanner interface{ Scan(dest ...any) error }) (*Pair, error) {
	var (
		nameKey      string
		nameOriginal string
		document     string
		kindRaw      string
		roleRaw      string
		occurrences  int
		statusRaw    sql.NullString
		statusReason sql.NullString
		sourceFile   sql.NullString
		firstRaw     sql.NullString
		lastRaw      sql.NullString
	)
	if err := scanner.Scan(
		&nameKey,
		&nameOriginal,
		&document,
		&kindRaw,
		&roleRaw,
		&occurrences,
		&statusRaw,
		&statusReason,
		&sourceFile,
		&firstRaw,
		&lastRaw,
	); err != nil {
		return nil, err
	}

	pair := &Pair{
		NameKey:      nameKey,
		NameOriginal: nameOriginal,
		Document:     document,
		DocumentKind: DocumentKind(kindRaw),
		Occurrences:  occurrences,
		Status:       normalizeStatus(statusRaw.String),
		StatusReason: statusReason.String,
		SourceFile:   sourceFile.String,
	}
	if role, ok := ParseRole(roleRaw); ok {
		pair.Role = role
	}
	if first, err := parseTimeString(firstRaw.String); err == nil {
		pair.FirstSeen = first
	}
	if last, err := parseTimeString(lastRaw.String); err == nil {
		pair.LastSeen = last
	}
	return pair, nil
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

// hashFile computes the SHA-256 content hash used for replay detection.
func hashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file for hashing: %w", err)
	}
	defer file.Close()

	digest := sha256.New()
	if _, err := io.Copy(digest, file); err != nil {
		return "", fmt.Errorf("hash file: %w", err)
	}
	return hex.EncodeToString(digest.Sum(nil)), nil
}
