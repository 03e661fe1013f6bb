package fixedwidth_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"recall/internal/fixedwidth"
)

func writeFile(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corrected.txt")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return path
}

func TestParseRoundTrip(t *testing.T) {
	record := fixedwidth.Record{
		InvoiceNumber:       "123456",
		InvoiceDate:         "01/02/2026",
		ContractingName:     "ACME LTDA",
		ContractingDocument: "11222333000181",
		IssuerName:          "TRANSPORTADORA SAO JOAO",
		IssuerDocument:      "11444777000161",
		RecipientName:       "DEPOSITO CENTRAL SA",
		RecipientDocument:   "34028316000103",
	}
	line := fixedwidth.EncodeRecord(record)
	if got := len([]rune(line)); got != 276 {
		t.Fatalf("encoded line length = %d, want 276", got)
	}

	path := writeFile(t, "EM11222333000181JAN2026000000P1", line)
	result, err := fixedwidth.NewParser().Parse(path)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if result.InvalidLines != 0 {
		t.Fatalf("InvalidLines = %d, want 0", result.InvalidLines)
	}
	if len(result.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(result.Records))
	}
	if result.Records[0] != record {
		t.Fatalf("round-trip mismatch:\n got %#v\nwant %#v", result.Records[0], record)
	}
}

func TestParseCountsMalformedTransportLines(t *testing.T) {
	good := fixedwidth.EncodeRecord(fixedwidth.Record{
		InvoiceNumber:       "1",
		ContractingName:     "ACME LTDA",
		ContractingDocument: "11222333000181",
	})
	path := writeFile(t,
		"TNtruncated line",
		good,
		"",
		"XXunknown section line",
	)

	result, err := fixedwidth.NewParser().Parse(path)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if result.InvalidLines != 1 {
		t.Fatalf("InvalidLines = %d, want 1", result.InvalidLines)
	}
	if len(result.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(result.Records))
	}
}

func TestParseMissingFile(t *testing.T) {
	if _, err := fixedwidth.NewParser().Parse(filepath.Join(t.TempDir(), "absent.txt")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
