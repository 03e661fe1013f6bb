package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"recall/internal/fixedwidth"
)

// WriteRecordsFile renders the given records in the fixed-width layout and
// writes them to path, creating parent directories as needed.
func WriteRecordsFile(t testing.TB, path string, records ...fixedwidth.Record) {
	t.Helper()

	lines := make([]string, 0, len(records))
	for _, record := range records {
		lines = append(lines, fixedwidth.EncodeRecord(record))
	}
	WriteLinesFile(t, path, lines...)
}

// WriteLinesFile writes raw lines to path joined by newlines. Useful for
// exercising malformed or mixed content.
func WriteLinesFile(t testing.TB, path string, lines ...string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	content := strings.Join(lines, "\n")
	if len(lines) > 0 {
		content += "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// Record builds a complete fixed-width record with every role populated.
func Record(invoice, contractingName, contractingDoc, issuerName, issuerDoc, recipientName, recipientDoc string) fixedwidth.Record {
	return fixedwidth.Record{
		InvoiceNumber:       invoice,
		InvoiceDate:         "2024-02-01",
		ContractingName:     contractingName,
		ContractingDocument: contractingDoc,
		IssuerName:          issuerName,
		IssuerDocument:      issuerDoc,
		RecipientName:       recipientName,
		RecipientDocument:   recipientDoc,
	}
}
