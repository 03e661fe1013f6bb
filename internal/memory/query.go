package memory

import "recall/internal/normalize"

// FindDocumentByName returns the learned document for a name, if the
// evidence is strong enough to auto-fill. Pass an empty role when no field
// context is known; the lookup then falls back to the unscoped index and
// only the margin rule applies. Read-only against the current snapshot.
func (s *Store) FindDocumentByName(name string, role Role) (string, bool) {
	nameKey := normalize.NameKey(name)
	if nameKey == "" {
		return "", false
	}
	snapshot := s.snapshot.Load()
	if snapshot == nil {
		return "", false
	}

	var bucket map[string]pairEntry
	if role != "" {
		if scoped, ok := snapshot.nameToDocsByRole[role]; ok {
			bucket = scoped[nameKey]
		}
	} else {
		bucket = snapshot.nameToDocs[nameKey]
	}

	winner, ok := s.rules.selectWinner(candidatesFrom(bucket), role)
	if !ok {
		return "", false
	}
	return winner.key, true
}

// FindNameByDocument returns the learned display name for a document.
// Only the margin rule arbitrates between competing names; a single
// candidate wins unconditionally.
func (s *Store) FindNameByDocument(document string) (string, bool) {
	digits := normalize.DigitsOnly(document)
	if digits == "" {
		return "", false
	}
	snapshot := s.snapshot.Load()
	if snapshot == nil {
		return "", false
	}

	winner, ok := s.rules.selectWinner(candidatesFrom(snapshot.docToNames[digits]), "")
	if !ok {
		return "", false
	}
	return winner.display, true
}
