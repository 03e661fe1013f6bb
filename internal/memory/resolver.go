package memory

import (
	"sort"

	"recall/internal/config"
)

// Rules holds the confidence parameters the resolver applies when deciding
// whether a candidate may auto-fill a field.
type Rules struct {
	// ConflictMargin is the minimum occurrence lead over the runner-up.
	ConflictMargin int
	// Thresholds gate name→document resolution per role. Document→name
	// resolution and role-less name lookups carry no role context and are
	// governed by the margin alone.
	Thresholds map[Role]config.RoleThresholds
}

// rulesFromConfig binds the configured learning section to the role enum.
func rulesFromConfig(learning config.Learning) Rules {
	return Rules{
		ConflictMargin: learning.ConflictMargin,
		Thresholds: map[Role]config.RoleThresholds{
			RoleIssuer:           learning.Issuer,
			RoleContractingParty: learning.ContractingParty,
			RoleRecipient:        learning.Recipient,
		},
	}
}

// candidate is one competing observation inside a group: a document under a
// name (display unused) or a name under a document.
type candidate struct {
	key         string
	display     string
	occurrences int
}

// selectWinner ranks the candidates by occurrence count and returns the one
// allowed to win, if any.
//
// The margin rule always applies between two or more candidates: the leader
// must be ahead of the runner-up by at least ConflictMargin or nothing is
// selected. When a role context is present the per-role thresholds are
// additionally enforced, even against a lone candidate, so a one-off
// observation never becomes an auto-fill rule.
func (r Rules) selectWinner(candidates []candidate, role Role) (candidate, bool) {
	if len(candidates) == 0 {
		return candidate{}, false
	}

	ranked := make([]candidate, len(candidates))
	copy(ranked, candidates)
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].occurrences != ranked[j].occurrences {
			return ranked[i].occurrences > ranked[j].occurrences
		}
		return ranked[i].key < ranked[j].key
	})

	top := ranked[0]
	if len(ranked) > 1 && top.occurrences < ranked[1].occurrences+r.ConflictMargin {
		return candidate{}, false
	}

	if role != "" {
		thresholds, ok := r.Thresholds[role]
		if ok {
			total := 0
			for _, c := range ranked {
				total += c.occurrences
			}
			if top.occurrences < thresholds.MinOccurrences {
				return candidate{}, false
			}
			if total > 0 && float64(top.occurrences)/float64(total) < thresholds.MinLeaderShare {
				return candidate{}, false
			}
		}
	}

	return top, true
}
