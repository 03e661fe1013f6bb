package memory_test

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"recall/internal/fixedwidth"
	"recall/internal/memory"
	"recall/internal/normalize"
	"recall/internal/testsupport"
)

const (
	cnpjAcme    = "11222333000181"
	cnpjBravo   = "11444777000161"
	cnpjCaixa   = "34028316000103"
	cpfMaria    = "52998224725"
	cpfJoao     = "12345678909"
	nameAcme    = "TRANSPORTES ACME LTDA"
	nameBravo   = "LOGISTICA BRAVO SA"
	nameMaria   = "MARIA DA SILVA"
	namePortoSA = "PORTO SECO ARMAZENS SA"
)

func fullRecord(invoice string) fixedwidth.Record {
	return testsupport.Record(invoice, nameAcme, cnpjAcme, nameBravo, cnpjBravo, nameMaria, cpfMaria)
}

func TestLearnFromFilePromotesRepeatedPairs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg, memory.Options{})
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "corrected.txt")
	testsupport.WriteRecordsFile(t, path,
		fullRecord("1001"), fullRecord("1002"), fullRecord("1003"))

	summary, err := store.LearnFromFile(ctx, path)
	if err != nil {
		t.Fatalf("LearnFromFile: %v", err)
	}
	if summary.TotalRecords != 3 {
		t.Fatalf("TotalRecords = %d, want 3", summary.TotalRecords)
	}
	if summary.CandidatePairs != 3 || summary.NewPairs != 3 {
		t.Fatalf("CandidatePairs = %d, NewPairs = %d, want 3 and 3", summary.CandidatePairs, summary.NewPairs)
	}
	if summary.Promoted != 3 || summary.ActiveThisSession != 3 {
		t.Fatalf("Promoted = %d, ActiveThisSession = %d, want 3 and 3", summary.Promoted, summary.ActiveThisSession)
	}
	if summary.RunID == "" || summary.ContentHash == "" {
		t.Fatal("expected run id and content hash on summary")
	}

	pair, err := store.GetPair(ctx, normalize.NameKey(nameBravo), cnpjBravo, memory.RoleIssuer)
	if err != nil {
		t.Fatalf("GetPair: %v", err)
	}
	if pair == nil {
		t.Fatal("expected issuer pair to exist")
	}
	if pair.Occurrences != 3 {
		t.Fatalf("Occurrences = %d, want 3", pair.Occurrences)
	}
	if pair.Status != memory.StatusActive || pair.StatusReason != "sufficient_confidence" {
		t.Fatalf("status = %s (%s), want active (sufficient_confidence)", pair.Status, pair.StatusReason)
	}
	if pair.DocumentKind != memory.DocumentCNPJ {
		t.Fatalf("kind = %s, want CNPJ", pair.DocumentKind)
	}

	if doc, ok := store.FindDocumentByName("Transportes Acme Ltda", memory.RoleContractingParty); !ok || doc != cnpjAcme {
		t.Fatalf("FindDocumentByName = %q, %v; want %s, true", doc, ok, cnpjAcme)
	}
	if name, ok := store.FindNameByDocument("529.982.247-25"); !ok || name != nameMaria {
		t.Fatalf("FindNameByDocument = %q, %v; want %s, true", name, ok, nameMaria)
	}
}

func TestLearnFromFileReplayIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg, memory.Options{})
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "corrected.txt")
	testsupport.WriteRecordsFile(t, path, fullRecord("2001"), fullRecord("2002"))

	first, err := store.LearnFromFile(ctx, path)
	if err != nil {
		t.Fatalf("first LearnFromFile: %v", err)
	}
	if first.ReplayDetected {
		t.Fatal("first ingestion should not be a replay")
	}

	second, err := store.LearnFromFile(ctx, path)
	if err != nil {
		t.Fatalf("second LearnFromFile: %v", err)
	}
	if !second.ReplayDetected {
		t.Fatal("expected replay detection on identical content")
	}
	if second.NewPairs != 0 || second.UpdatedPairs != 0 {
		t.Fatalf("replay mutated counts: new=%d updated=%d", second.NewPairs, second.UpdatedPairs)
	}
	if second.ReplaySessionID == 0 {
		t.Fatal("expected replay session id")
	}

	pair, err := store.GetPair(ctx, normalize.NameKey(nameAcme), cnpjAcme, memory.RoleContractingParty)
	if err != nil {
		t.Fatalf("GetPair: %v", err)
	}
	if pair == nil || pair.Occurrences != 2 {
		t.Fatalf("replay changed occurrences: %+v", pair)
	}

	// A renamed copy of the same bytes is still a replay.
	copyPath := filepath.Join(t.TempDir(), "copy.txt")
	testsupport.WriteRecordsFile(t, copyPath, fullRecord("2001"), fullRecord("2002"))
	third, err := store.LearnFromFile(ctx, copyPath)
	if err != nil {
		t.Fatalf("third LearnFromFile: %v", err)
	}
	if !third.ReplayDetected {
		t.Fatal("expected replay detection for identical bytes at a new path")
	}

	sessions, err := store.Sessions(ctx, 10)
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("sessions = %d, want 1", len(sessions))
	}
}

func TestLearnFromFileConflictQuarantinesGroup(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg, memory.Options{})
	ctx := context.Background()

	base := t.TempDir()
	firstPath := filepath.Join(base, "first.txt")
	testsupport.WriteRecordsFile(t, firstPath,
		testsupport.Record("3001", nameAcme, cnpjAcme, nameBravo, cnpjBravo, nameMaria, cpfMaria),
		testsupport.Record("3002", nameAcme, cnpjAcme, nameBravo, cnpjBravo, nameMaria, cpfMaria),
		testsupport.Record("3003", nameAcme, cnpjAcme, nameBravo, cnpjBravo, nameMaria, cpfMaria),
	)
	if _, err := store.LearnFromFile(ctx, firstPath); err != nil {
		t.Fatalf("first LearnFromFile: %v", err)
	}
	if doc, ok := store.FindDocumentByName(nameBravo, memory.RoleIssuer); !ok || doc != cnpjBravo {
		t.Fatalf("issuer lookup before conflict = %q, %v", doc, ok)
	}

	// The same issuer name now arrives twice under a different document.
	// 3 vs 2 is inside the conflict margin, so nobody may win.
	secondPath := filepath.Join(base, "second.txt")
	testsupport.WriteRecordsFile(t, secondPath,
		testsupport.Record("3004", nameAcme, cnpjAcme, nameBravo, cnpjCaixa, nameMaria, cpfMaria),
		testsupport.Record("3005", nameAcme, cnpjAcme, nameBravo, cnpjCaixa, nameMaria, cpfMaria),
	)
	summary, err := store.LearnFromFile(ctx, secondPath)
	if err != nil {
		t.Fatalf("second LearnFromFile: %v", err)
	}
	if summary.NewPairs != 1 || summary.UpdatedPairs != 2 {
		t.Fatalf("new=%d updated=%d, want 1 and 2", summary.NewPairs, summary.UpdatedPairs)
	}

	if _, ok := store.FindDocumentByName(nameBravo, memory.RoleIssuer); ok {
		t.Fatal("contested issuer name must not resolve")
	}

	bravoKey := normalize.NameKey(nameBravo)
	incumbent, err := store.GetPair(ctx, bravoKey, cnpjBravo, memory.RoleIssuer)
	if err != nil {
		t.Fatalf("GetPair incumbent: %v", err)
	}
	if incumbent.Status != memory.StatusQuarantined || incumbent.StatusReason != "low_confidence" {
		t.Fatalf("incumbent = %s (%s), want quarantined (low_confidence)", incumbent.Status, incumbent.StatusReason)
	}
	challenger, err := store.GetPair(ctx, bravoKey, cnpjCaixa, memory.RoleIssuer)
	if err != nil {
		t.Fatalf("GetPair challenger: %v", err)
	}
	if challenger.Status != memory.StatusQuarantined {
		t.Fatalf("challenger status = %s, want quarantined", challenger.Status)
	}

	// Unrelated groups keep their standing.
	if doc, ok := store.FindDocumentByName(nameAcme, memory.RoleContractingParty); !ok || doc != cnpjAcme {
		t.Fatalf("contracting lookup after conflict = %q, %v", doc, ok)
	}
}

func TestLearnFromFileIgnoresUnusableObservations(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg, memory.Options{})
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "corrected.txt")
	testsupport.WriteRecordsFile(t, path,
		// Placeholder contracting name and a checksum-invalid issuer
		// document leave only the recipient usable.
		testsupport.Record("4001", "NOT INFORMED", cnpjAcme, nameBravo, "11111111111111", nameMaria, cpfMaria),
	)

	summary, err := store.LearnFromFile(ctx, path)
	if err != nil {
		t.Fatalf("LearnFromFile: %v", err)
	}
	if summary.CandidatePairs != 1 {
		t.Fatalf("CandidatePairs = %d, want 1", summary.CandidatePairs)
	}
	if summary.Ignored != 2 {
		t.Fatalf("Ignored = %d, want 2", summary.Ignored)
	}
}

func TestLearnFromFileCountsMalformedLines(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg, memory.Options{})
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "corrected.txt")
	testsupport.WriteLinesFile(t, path,
		fixedwidth.EncodeRecord(fullRecord("5001")),
		"TN truncated line",
		"XX something else entirely",
		"",
		fixedwidth.EncodeRecord(fullRecord("5002")),
	)

	summary, err := store.LearnFromFile(ctx, path)
	if err != nil {
		t.Fatalf("LearnFromFile: %v", err)
	}
	if summary.TotalRecords != 2 {
		t.Fatalf("TotalRecords = %d, want 2", summary.TotalRecords)
	}
	if summary.InvalidLines != 1 {
		t.Fatalf("InvalidLines = %d, want 1", summary.InvalidLines)
	}
}

func TestLearnFromFileAuditTrail(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg, memory.Options{})
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "corrected.txt")
	testsupport.WriteRecordsFile(t, path,
		fullRecord("6002"), fullRecord("6001"), fullRecord("6001"))

	summary, err := store.LearnFromFile(ctx, path)
	if err != nil {
		t.Fatalf("LearnFromFile: %v", err)
	}

	sessions, err := store.Sessions(ctx, 5)
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("sessions = %d, want 1", len(sessions))
	}
	session := sessions[0]
	if session.SourceFile != summary.SourceFile {
		t.Fatalf("session source = %q, want %q", session.SourceFile, summary.SourceFile)
	}
	if session.ContentHash != summary.ContentHash {
		t.Fatalf("session hash = %q, want %q", session.ContentHash, summary.ContentHash)
	}
	if session.Learned != 3 || session.TotalRecords != 3 {
		t.Fatalf("session learned=%d total=%d, want 3 and 3", session.Learned, session.TotalRecords)
	}

	items, err := store.SessionItems(ctx, session.ID)
	if err != nil {
		t.Fatalf("SessionItems: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("items = %d, want 3", len(items))
	}
	for _, item := range items {
		if item.Action != "NEW_PROMOTED" {
			t.Fatalf("action = %q, want NEW_PROMOTED", item.Action)
		}
		if item.OccurrencesFile != 3 || item.OccurrencesTotal != 3 {
			t.Fatalf("occurrences file=%d total=%d, want 3 and 3", item.OccurrencesFile, item.OccurrencesTotal)
		}
		if item.SampleRefs != "6001,6002" {
			t.Fatalf("sample refs = %q, want sorted distinct invoices", item.SampleRefs)
		}
	}

	if len(summary.Details) != 3 {
		t.Fatalf("details = %d, want 3", len(summary.Details))
	}
	for _, line := range summary.Details {
		if !strings.Contains(line, "NEW_PROMOTED") {
			t.Fatalf("detail line missing action: %q", line)
		}
	}
}

func TestLearnFromFileSeparatesDocumentKinds(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg, memory.Options{})
	ctx := context.Background()

	// The same recipient name appears with a CPF and with a CNPJ; they are
	// distinct pairs within the same group and the 4-2 split clears margin
	// and the 0.66 share fails the recipient threshold.
	path := filepath.Join(t.TempDir(), "corrected.txt")
	records := make([]fixedwidth.Record, 0, 6)
	for i := 0; i < 4; i++ {
		records = append(records, testsupport.Record(fmt.Sprintf("700%d", i), nameAcme, cnpjAcme, nameBravo, cnpjBravo, namePortoSA, cnpjCaixa))
	}
	for i := 4; i < 6; i++ {
		records = append(records, testsupport.Record(fmt.Sprintf("700%d", i), nameAcme, cnpjAcme, nameBravo, cnpjBravo, namePortoSA, cpfJoao))
	}
	testsupport.WriteRecordsFile(t, path, records...)

	summary, err := store.LearnFromFile(ctx, path)
	if err != nil {
		t.Fatalf("LearnFromFile: %v", err)
	}
	if summary.CandidatePairs != 4 {
		t.Fatalf("CandidatePairs = %d, want 4", summary.CandidatePairs)
	}

	if _, ok := store.FindDocumentByName(namePortoSA, memory.RoleRecipient); ok {
		t.Fatal("0.66 leader share must not clear the recipient threshold")
	}

	pairs, err := store.GroupPairs(ctx, normalize.NameKey(namePortoSA), memory.RoleRecipient)
	if err != nil {
		t.Fatalf("GroupPairs: %v", err)
	}
	if len(pairs) != 2 {
		t.Fatalf("group pairs = %d, want 2", len(pairs))
	}
	kinds := map[memory.DocumentKind]bool{}
	for _, pair := range pairs {
		kinds[pair.DocumentKind] = true
		if pair.Status != memory.StatusQuarantined {
			t.Fatalf("pair %s status = %s, want quarantined", pair.Document, pair.Status)
		}
	}
	if !kinds[memory.DocumentCNPJ] || !kinds[memory.DocumentCPF] {
		t.Fatalf("expected both document kinds in group, got %v", kinds)
	}
}

func TestLearnFromFileMissingFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg, memory.Options{})

	if _, err := store.LearnFromFile(context.Background(), filepath.Join(t.TempDir(), "absent.txt")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
