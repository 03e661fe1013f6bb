package memory

import (
	"context"
	"fmt"
)

// pairEntry is one cache cell: the display form and the vote count behind
// an indexed key.
type pairEntry struct {
	display     string
	occurrences int
}

// Snapshot is the immutable read model lookups run against. It is built
// from active pairs only and wholly replaced after each successful
// ingestion; readers never observe a partially updated index.
type Snapshot struct {
	nameToDocs map[string]map[string]pairEntry
	docToNames map[string]map[string]pairEntry

	nameToDocsByRole map[Role]map[string]map[string]pairEntry
	docToNamesByRole map[Role]map[string]map[string]pairEntry

	active      int
	quarantined int
}

// ActivePairs returns the number of active pairs backing the snapshot.
func (s *Snapshot) ActivePairs() int { return s.active }

// QuarantinedPairs returns the number of pairs excluded from the indices.
func (s *Snapshot) QuarantinedPairs() int { return s.quarantined }

// reloadSnapshot rebuilds the read model from the store and swaps it in
// atomically.
func (s *Store) reloadSnapshot(ctx context.Context) error {
	snapshot, err := s.buildSnapshot(ctx)
	if err != nil {
		return err
	}
	s.snapshot.Store(snapshot)
	return nil
}

// CurrentSnapshot returns the snapshot lookups are currently served from.
func (s *Store) CurrentSnapshot() *Snapshot {
	return s.snapshot.Load()
}

func (s *Store) buildSnapshot(ctx context.Context) (*Snapshot, error) {
	snapshot := &Snapshot{
		nameToDocs:       make(map[string]map[string]pairEntry),
		docToNames:       make(map[string]map[string]pairEntry),
		nameToDocsByRole: make(map[Role]map[string]map[string]pairEntry),
		docToNamesByRole: make(map[Role]map[string]map[string]pairEntry),
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT name_key, document, role, name_original, occurrences, status FROM learned_pairs`,
	)
	if err != nil {
		return nil, fmt.Errorf("query pairs for snapshot: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			nameKey     string
			document    string
			roleRaw     string
			display     string
			occurrences int
			statusRaw   string
		)
		if err := rows.Scan(&nameKey, &document, &roleRaw, &display, &occurrences, &statusRaw); err != nil {
			return nil, fmt.Errorf("scan pair for snapshot: %w", err)
		}
		role, ok := ParseRole(roleRaw)
		if !ok {
			continue
		}

		if normalizeStatus(statusRaw) != StatusActive {
			snapshot.quarantined++
			continue
		}
		snapshot.active++

		// Role-scoped indices carry the exact per-role counts.
		setEntry(roleScoped(snapshot.nameToDocsByRole, role), nameKey, document, display, occurrences)
		setEntry(roleScoped(snapshot.docToNamesByRole, role), document, nameKey, display, occurrences)

		// Global indices sum occurrences of the same pair across roles and
		// serve lookups without role context.
		addEntry(snapshot.nameToDocs, nameKey, document, display, occurrences)
		addEntry(snapshot.docToNames, document, nameKey, display, occurrences)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pairs for snapshot: %w", err)
	}
	return snapshot, nil
}

func roleScoped(index map[Role]map[string]map[string]pairEntry, role Role) map[string]map[string]pairEntry {
	scoped, ok := index[role]
	if !ok {
		scoped = make(map[string]map[string]pairEntry)
		index[role] = scoped
	}
	return scoped
}

func setEntry(index map[string]map[string]pairEntry, outer, inner, display string, occurrences int) {
	bucket, ok := index[outer]
	if !ok {
		bucket = make(map[string]pairEntry)
		index[outer] = bucket
	}
	bucket[inner] = pairEntry{display: display, occurrences: occurrences}
}

func addEntry(index map[string]map[string]pairEntry, outer, inner, display string, occurrences int) {
	bucket, ok := index[outer]
	if !ok {
		bucket = make(map[string]pairEntry)
		index[outer] = bucket
	}
	entry, ok := bucket[inner]
	if !ok {
		entry = pairEntry{display: display}
	}
	entry.occurrences += occurrences
	bucket[inner] = entry
}

func candidatesFrom(bucket map[string]pairEntry) []candidate {
	if len(bucket) == 0 {
		return nil
	}
	candidates := make([]candidate, 0, len(bucket))
	for key, entry := range bucket {
		candidates = append(candidates, candidate{
			key:         key,
			display:     entry.display,
			occurrences: entry.occurrences,
		})
	}
	return candidates
}
