package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"recall/internal/logging"
	"recall/internal/normalize"
)

// sampleRefMaxLength caps the per-pair invoice sample stored for audit
// display.
const sampleRefMaxLength = 120

// pairKey identifies one candidate within an ingestion.
type pairKey struct {
	nameKey  string
	document string
	role     Role
}

// pendingPair accumulates the observations of one candidate pair across a
// file before it is persisted.
type pendingPair struct {
	role         Role
	nameKey      string
	nameOriginal string
	document     string
	kind         DocumentKind
	occurrences  int
	refs         map[string]struct{}

	actionBase     string
	previousStatus Status
}

// LearnFromFile ingests one corrected output file: parse, normalize,
// aggregate, persist, reclassify, and rebuild the lookup snapshot. The call
// is serialized process-wide; ingestion of one file either commits fully or
// leaves the store untouched. Re-ingesting byte-identical content is
// detected via the content hash and returns a replay summary with zero
// mutation.
func (s *Store) LearnFromFile(ctx context.Context, path string) (*LearnSummary, error) {
	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	contentHash, err := hashFile(absPath)
	if err != nil {
		return nil, err
	}

	summary := &LearnSummary{
		RunID:        uuid.NewString(),
		SourceFile:   absPath,
		ContentHash:  contentHash,
		DatabasePath: s.path,
	}
	logger := s.logger.With(
		logging.String(logging.FieldRunID, summary.RunID),
		logging.String(logging.FieldSourceFile, absPath),
	)

	if replayed, err := s.checkReplay(ctx, summary); err != nil {
		return nil, err
	} else if replayed {
		logger.Info("replay detected, nothing to learn",
			logging.Int64("session_id", summary.ReplaySessionID))
		return summary, nil
	}

	result, err := s.parser.Parse(absPath)
	if err != nil {
		return nil, err
	}
	summary.TotalRecords = len(result.Records)
	summary.InvalidLines = result.InvalidLines

	candidates := make(map[pairKey]*pendingPair)
	for _, record := range result.Records {
		ref := strings.TrimSpace(record.InvoiceNumber)
		if ref == "" {
			ref = "N/A"
		}
		observations := []struct {
			role Role
			name string
			doc  string
		}{
			{RoleContractingParty, record.ContractingName, record.ContractingDocument},
			{RoleIssuer, record.IssuerName, record.IssuerDocument},
			{RoleRecipient, record.RecipientName, record.RecipientDocument},
		}
		for _, obs := range observations {
			name := strings.TrimSpace(obs.name)
			nameKey := normalize.NameKey(name)
			if nameKey == "" {
				summary.Ignored++
				continue
			}
			digits, kind, ok := s.validator.Classify(obs.doc)
			if !ok {
				summary.Ignored++
				continue
			}

			key := pairKey{nameKey: nameKey, document: digits, role: obs.role}
			pending, exists := candidates[key]
			if !exists {
				pending = &pendingPair{
					role:         obs.role,
					nameKey:      nameKey,
					nameOriginal: name,
					document:     digits,
					kind:         kind,
					refs:         make(map[string]struct{}),
				}
				candidates[key] = pending
			}
			pending.occurrences++
			pending.nameOriginal = name
			pending.refs[ref] = struct{}{}
		}
	}
	summary.CandidatePairs = len(candidates)

	if err := s.persistLearning(ctx, summary, candidates); err != nil {
		return nil, err
	}
	if err := s.reloadSnapshot(ctx); err != nil {
		return nil, fmt.Errorf("rebuild snapshot: %w", err)
	}

	logger.Info("learn complete",
		logging.Int("total_records", summary.TotalRecords),
		logging.Int("candidates", summary.CandidatePairs),
		logging.Int("new_pairs", summary.NewPairs),
		logging.Int("updated_pairs", summary.UpdatedPairs),
		logging.Int("promoted", summary.Promoted),
		logging.Int("demoted", summary.Demoted),
		logging.Int("ignored", summary.Ignored),
		logging.Int("invalid_lines", summary.InvalidLines))
	return summary, nil
}

// checkReplay looks for a prior session with the same content hash and, if
// found, fills the replay fields of the summary.
func (s *Store) checkReplay(ctx context.Context, summary *LearnSummary) (bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, processed_at, source_file FROM learn_sessions
        WHERE content_hash = ? ORDER BY id DESC LIMIT 1`,
		summary.ContentHash,
	)
	var (
		sessionID    int64
		processedRaw string
		sourceFile   string
	)
	err := row.Scan(&sessionID, &processedRaw, &sourceFile)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check replay: %w", err)
	}

	summary.ReplayDetected = true
	summary.ReplaySessionID = sessionID
	if processed, err := parseTimeString(processedRaw); err == nil {
		summary.ReplayProcessedAt = processed
	}
	summary.Details = append(summary.Details, fmt.Sprintf(
		"[REPLAY] Content already learned (session #%d at %s). No changes applied.",
		sessionID, processedRaw,
	))
	return true, nil
}

// persistLearning writes one session, its pairs, and its audit items in a
// single transaction, and reclassifies every touched group before the
// per-pair outcomes are recorded.
func (s *Store) persistLearning(ctx context.Context, summary *LearnSummary, candidates map[pairKey]*pendingPair) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin learn tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	res, err := tx.ExecContext(
		ctx,
		`INSERT INTO learn_sessions
            (source_file, content_hash, processed_at, total_records,
             candidate_pairs, learned, updated, ignored, invalid_lines)
        VALUES (?, ?, ?, ?, ?, 0, 0, ?, ?)`,
		summary.SourceFile,
		summary.ContentHash,
		now,
		summary.TotalRecords,
		summary.CandidatePairs,
		summary.Ignored,
		summary.InvalidLines,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	sessionID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("session id: %w", err)
	}

	// Stable order keeps replays of equivalent content byte-reproducible in
	// the audit trail.
	ordered := make([]*pendingPair, 0, len(candidates))
	for _, pending := range candidates {
		ordered = append(ordered, pending)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].role != ordered[j].role {
			return ordered[i].role < ordered[j].role
		}
		if ordered[i].nameOriginal != ordered[j].nameOriginal {
			return ordered[i].nameOriginal < ordered[j].nameOriginal
		}
		return ordered[i].document < ordered[j].document
	})

	touched := make(map[pairKey]struct{})
	for _, pending := range ordered {
		if err := s.upsertPair(ctx, tx, pending, summary, now); err != nil {
			return err
		}
		touched[pairKey{nameKey: pending.nameKey, role: pending.role}] = struct{}{}
	}

	for group := range touched {
		if err := s.reclassifyGroup(ctx, tx, group.nameKey, group.role); err != nil {
			return err
		}
	}

	for _, pending := range ordered {
		if err := s.recordSessionItem(ctx, tx, sessionID, pending, summary); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(
		ctx,
		`UPDATE learn_sessions SET learned = ?, updated = ? WHERE id = ?`,
		summary.NewPairs, summary.UpdatedPairs, sessionID,
	); err != nil {
		return fmt.Errorf("update session counts: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit learn tx: %w", err)
	}
	return nil
}

// upsertPair inserts a new quarantined pair or folds this file's
// occurrences into an existing one, remembering the pre-update status for
// the audit label.
func (s *Store) upsertPair(ctx context.Context, tx *sql.Tx, pending *pendingPair, summary *LearnSummary, now string) error {
	row := tx.QueryRowContext(
		ctx,
		`SELECT occurrences, status FROM learned_pairs
        WHERE name_key = ? AND document = ? AND role = ?`,
		pending.nameKey, pending.document, pending.role,
	)
	var (
		occurrences int
		statusRaw   sql.NullString
	)
	err := row.Scan(&occurrences, &statusRaw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO learned_pairs
                (name_key, name_original, document, document_kind, role,
                 occurrences, status, status_reason, source_file, first_seen, last_seen)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			pending.nameKey,
			pending.nameOriginal,
			pending.document,
			pending.kind,
			pending.role,
			pending.occurrences,
			StatusQuarantined,
			ReasonNewPair,
			summary.SourceFile,
			now,
			now,
		); err != nil {
			return fmt.Errorf("insert pair: %w", err)
		}
		pending.actionBase = "NEW"
		pending.previousStatus = StatusQuarantined
		summary.NewPairs++
	case err != nil:
		return fmt.Errorf("lookup pair: %w", err)
	default:
		if _, err := tx.ExecContext(
			ctx,
			`UPDATE learned_pairs
            SET name_original = ?, document_kind = ?, occurrences = ?,
                source_file = ?, last_seen = ?
            WHERE name_key = ? AND document = ? AND role = ?`,
			pending.nameOriginal,
			pending.kind,
			occurrences+pending.occurrences,
			summary.SourceFile,
			now,
			pending.nameKey,
			pending.document,
			pending.role,
		); err != nil {
			return fmt.Errorf("update pair: %w", err)
		}
		pending.actionBase = "UPDATED"
		pending.previousStatus = normalizeStatus(statusRaw.String)
		summary.UpdatedPairs++
	}
	return nil
}

// recordSessionItem reads the post-reclassification outcome of one pair,
// updates the session tallies, and appends the audit row and detail line.
func (s *Store) recordSessionItem(ctx context.Context, tx *sql.Tx, sessionID int64, pending *pendingPair, summary *LearnSummary) error {
	row := tx.QueryRowContext(
		ctx,
		`SELECT occurrences, status FROM learned_pairs
        WHERE name_key = ? AND document = ? AND role = ?`,
		pending.nameKey, pending.document, pending.role,
	)
	var (
		total     int
		statusRaw sql.NullString
	)
	if err := row.Scan(&total, &statusRaw); err != nil {
		return fmt.Errorf("read pair outcome: %w", err)
	}
	finalStatus := normalizeStatus(statusRaw.String)

	if finalStatus == StatusActive {
		summary.ActiveThisSession++
	} else {
		summary.QuarantinedThisSession++
	}
	if pending.previousStatus != StatusActive && finalStatus == StatusActive {
		summary.Promoted++
	} else if pending.previousStatus == StatusActive && finalStatus != StatusActive {
		summary.Demoted++
	}

	action := actionLabel(pending.actionBase, pending.previousStatus, finalStatus)
	refs := joinSampleRefs(pending.refs)

	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO learn_session_items
            (session_id, role, name_original, name_key, document, document_kind,
             action, occurrences_file, occurrences_total, sample_refs)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID,
		pending.role,
		pending.nameOriginal,
		pending.nameKey,
		pending.document,
		pending.kind,
		action,
		pending.occurrences,
		total,
		refs,
	); err != nil {
		return fmt.Errorf("insert session item: %w", err)
	}

	if len(summary.Details) < s.maxDetailLines {
		sample := refs
		if sample == "" {
			sample = "N/A"
		}
		summary.Details = append(summary.Details, fmt.Sprintf(
			"[%s] %s: '%s' -> %s (+%d, total=%d, status=%s, refs=%s)",
			action, pending.role, pending.nameOriginal, pending.document,
			pending.occurrences, total, finalStatus, sample,
		))
	}
	return nil
}

func joinSampleRefs(refs map[string]struct{}) string {
	if len(refs) == 0 {
		return ""
	}
	values := make([]string, 0, len(refs))
	for ref := range refs {
		values = append(values, ref)
	}
	sort.Strings(values)
	joined := strings.Join(values, ",")
	if len(joined) > sampleRefMaxLength {
		joined = joined[:sampleRefMaxLength]
	}
	return joined
}
