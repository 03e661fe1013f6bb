package memory

import (
	"context"
	"database/sql"
	"fmt"
)

// reclassifyGroup recomputes the status of every document under one
// (name key, role) group. At most one row leaves active; when the resolver
// finds no winner the whole group is quarantined. Runs inside the caller's
// transaction so a group is never visible in a half-updated state.
func (s *Store) reclassifyGroup(ctx context.Context, tx *sql.Tx, nameKey string, role Role) error {
	rows, err := tx.QueryContext(
		ctx,
		`SELECT document, occurrences FROM learned_pairs WHERE name_key = ? AND role = ?`,
		nameKey, role,
	)
	if err != nil {
		return fmt.Errorf("query group candidates: %w", err)
	}

	var candidates []candidate
	for rows.Next() {
		var c candidate
		if err := rows.Scan(&c.key, &c.occurrences); err != nil {
			rows.Close()
			return fmt.Errorf("scan group candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("iterate group candidates: %w", err)
	}
	rows.Close()

	if len(candidates) == 0 {
		return nil
	}

	winner, ok := s.rules.selectWinner(candidates, role)
	if !ok {
		if _, err := tx.ExecContext(
			ctx,
			`UPDATE learned_pairs SET status = ?, status_reason = ? WHERE name_key = ? AND role = ?`,
			StatusQuarantined, ReasonLowConfidence, nameKey, role,
		); err != nil {
			return fmt.Errorf("quarantine group: %w", err)
		}
		return nil
	}

	if _, err := tx.ExecContext(
		ctx,
		`UPDATE learned_pairs SET status = ?, status_reason = ? WHERE name_key = ? AND role = ? AND document = ?`,
		StatusActive, ReasonSufficientConfidence, nameKey, role, winner.key,
	); err != nil {
		return fmt.Errorf("promote winner: %w", err)
	}
	if _, err := tx.ExecContext(
		ctx,
		`UPDATE learned_pairs SET status = ?, status_reason = ? WHERE name_key = ? AND role = ? AND document <> ?`,
		StatusQuarantined, ReasonConflictLowConfidence, nameKey, role, winner.key,
	); err != nil {
		return fmt.Errorf("quarantine losers: %w", err)
	}
	return nil
}

// reclassifyAll runs one reclassification pass over every group, bringing
// stores created before the confidence rules existed into compliance.
func (s *Store) reclassifyAll(ctx context.Context, tx *sql.Tx) error {
	rows, err := tx.QueryContext(ctx, `SELECT DISTINCT name_key, role FROM learned_pairs`)
	if err != nil {
		return fmt.Errorf("query groups: %w", err)
	}

	type group struct {
		nameKey string
		role    Role
	}
	var groups []group
	for rows.Next() {
		var nameKey, roleRaw string
		if err := rows.Scan(&nameKey, &roleRaw); err != nil {
			rows.Close()
			return fmt.Errorf("scan group: %w", err)
		}
		role, ok := ParseRole(roleRaw)
		if !ok {
			continue
		}
		groups = append(groups, group{nameKey: nameKey, role: role})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("iterate groups: %w", err)
	}
	rows.Close()

	for _, g := range groups {
		if err := s.reclassifyGroup(ctx, tx, g.nameKey, g.role); err != nil {
			return err
		}
	}
	return nil
}
