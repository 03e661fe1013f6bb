package memory

import (
	"strings"
	"time"
)

// Role is the part a legal entity plays on a transport record.
type Role string

const (
	RoleIssuer           Role = "issuer"
	RoleContractingParty Role = "contracting_party"
	RoleRecipient        Role = "recipient"
)

var allRoles = []Role{RoleIssuer, RoleContractingParty, RoleRecipient}

// AllRoles returns the ordered list of known roles.
func AllRoles() []Role {
	cp := make([]Role, len(allRoles))
	copy(cp, allRoles)
	return cp
}

// ParseRole converts free text into a known Role. Normalization here is the
// only text-accepting boundary; everything downstream works with the closed
// enum.
func ParseRole(value string) (Role, bool) {
	normalized := Role(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case RoleIssuer, RoleContractingParty, RoleRecipient:
		return normalized, true
	}
	return "", false
}

// Status is the lifecycle state of a learned pair.
type Status string

const (
	StatusActive      Status = "active"
	StatusQuarantined Status = "quarantined"
)

// normalizeStatus maps stored text onto the closed status set; anything
// unrecognized is treated as quarantined, the safe default.
func normalizeStatus(value string) Status {
	if Status(strings.ToLower(strings.TrimSpace(value))) == StatusActive {
		return StatusActive
	}
	return StatusQuarantined
}

// Status reasons recorded alongside every status change.
const (
	ReasonNewPair               = "new_pair"
	ReasonSufficientConfidence  = "sufficient_confidence"
	ReasonConflictLowConfidence = "conflict_or_low_confidence"
	ReasonLowConfidence         = "low_confidence"
)

// DocumentKind distinguishes the two identifier kinds a pair can carry.
type DocumentKind string

const (
	DocumentCNPJ DocumentKind = "CNPJ"
	DocumentCPF  DocumentKind = "CPF"
)

// Pair is the atomic learned fact: name X was seen with document Y in
// role R. The primary key is (NameKey, Document, Role).
type Pair struct {
	NameKey      string
	NameOriginal string
	Document     string
	DocumentKind DocumentKind
	Role         Role
	Occurrences  int
	Status       Status
	StatusReason string
	SourceFile   string
	FirstSeen    time.Time
	LastSeen     time.Time
}

// Session records one ingestion event for one source file.
type Session struct {
	ID             int64
	SourceFile     string
	ContentHash    string
	ProcessedAt    time.Time
	TotalRecords   int
	CandidatePairs int
	Learned        int
	Updated        int
	Ignored        int
	InvalidLines   int
}

// SessionItem is the per-pair audit row belonging to a session.
type SessionItem struct {
	ID               int64
	SessionID        int64
	Role             Role
	NameOriginal     string
	NameKey          string
	Document         string
	DocumentKind     DocumentKind
	Action           string
	OccurrencesFile  int
	OccurrencesTotal int
	SampleRefs       string
}

// MemorySummary aggregates store-wide totals for diagnostics.
type MemorySummary struct {
	DatabasePath     string
	TotalPairs       int
	TotalNames       int
	TotalDocuments   int
	ActivePairs      int
	QuarantinedPairs int
}

// LearnSummary is the operator-facing outcome of one LearnFromFile call.
type LearnSummary struct {
	RunID        string
	SourceFile   string
	ContentHash  string
	DatabasePath string

	TotalRecords   int
	CandidatePairs int
	NewPairs       int
	UpdatedPairs   int
	Promoted       int
	Demoted        int
	// ActiveThisSession and QuarantinedThisSession count the candidates of
	// this session by their post-reclassification status.
	ActiveThisSession      int
	QuarantinedThisSession int
	Ignored                int
	InvalidLines           int

	ReplayDetected    bool
	ReplaySessionID   int64
	ReplayProcessedAt time.Time

	Details []string
}

// actionLabel combines the upsert kind with the status transition for the
// session audit trail, e.g. "UPDATED_PROMOTED".
func actionLabel(base string, previous, final Status) string {
	switch {
	case previous != StatusActive && final == StatusActive:
		return base + "_PROMOTED"
	case previous == StatusActive && final != StatusActive:
		return base + "_DEMOTED"
	case final == StatusActive:
		return base + "_ACTIVE"
	default:
		return base + "_QUARANTINED"
	}
}
