package fixedwidth

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Transport record layout. Positions are 1-based inclusive character
// positions within a TN line.
const (
	tnLineType   = "TN"
	tnLineLength = 276

	tnContractingDocStart = 3
	tnContractingDocEnd   = 16
	tnContractingNameStart = 17
	tnContractingNameEnd   = 86
	tnInvoiceNumberStart  = 87
	tnInvoiceNumberEnd    = 96
	tnInvoiceDateStart    = 97
	tnInvoiceDateEnd      = 106
	tnIssuerDocStart      = 107
	tnIssuerDocEnd        = 120
	tnIssuerNameStart     = 121
	tnIssuerNameEnd       = 190
	tnRecipientDocStart   = 191
	tnRecipientDocEnd     = 204
	tnRecipientNameStart  = 205
	tnRecipientNameEnd    = 274
)

// Record is one transport record with the three party slots the learning
// memory observes.
type Record struct {
	InvoiceNumber string
	InvoiceDate   string

	ContractingName     string
	ContractingDocument string
	IssuerName          string
	IssuerDocument      string
	RecipientName       string
	RecipientDocument   string
}

// Result is the outcome of parsing one file.
type Result struct {
	Records      []Record
	InvalidLines int
}

// Parser reads transport records from fixed-width regulatory files.
type Parser struct{}

// NewParser returns a parser for the fixed-width transport layout.
func NewParser() *Parser {
	return &Parser{}
}

// Parse reads the file at path and extracts every well-formed TN record.
func (p *Parser) Parse(path string) (Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open fixed-width file: %w", err)
	}
	defer file.Close()

	var result Result
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !strings.HasPrefix(line, tnLineType) {
			continue
		}
		record, ok := parseTransportLine(line)
		if !ok {
			result.InvalidLines++
			continue
		}
		result.Records = append(result.Records, record)
	}
	if err := scanner.Err(); err != nil {
		return Result{}, fmt.Errorf("read fixed-width file: %w", err)
	}
	return result, nil
}

func parseTransportLine(line string) (Record, bool) {
	runes := []rune(line)
	if len(runes) < tnLineLength {
		return Record{}, false
	}
	return Record{
		InvoiceNumber:       field(runes, tnInvoiceNumberStart, tnInvoiceNumberEnd),
		InvoiceDate:         field(runes, tnInvoiceDateStart, tnInvoiceDateEnd),
		ContractingName:     field(runes, tnContractingNameStart, tnContractingNameEnd),
		ContractingDocument: field(runes, tnContractingDocStart, tnContractingDocEnd),
		IssuerName:          field(runes, tnIssuerNameStart, tnIssuerNameEnd),
		IssuerDocument:      field(runes, tnIssuerDocStart, tnIssuerDocEnd),
		RecipientName:       field(runes, tnRecipientNameStart, tnRecipientNameEnd),
		RecipientDocument:   field(runes, tnRecipientDocStart, tnRecipientDocEnd),
	}, true
}

func field(runes []rune, start, end int) string {
	return strings.TrimSpace(string(runes[start-1 : end]))
}

// EncodeRecord renders a record as a layout-correct TN line. Values longer
// than their field are truncated; shorter values are right-padded with
// spaces. The two trailing pickup/delivery flags are emitted as "P".
func EncodeRecord(record Record) string {
	runes := make([]rune, tnLineLength)
	for i := range runes {
		runes[i] = ' '
	}
	copy(runes[0:], []rune(tnLineType))
	place(runes, tnContractingDocStart, tnContractingDocEnd, record.ContractingDocument)
	place(runes, tnContractingNameStart, tnContractingNameEnd, record.ContractingName)
	place(runes, tnInvoiceNumberStart, tnInvoiceNumberEnd, record.InvoiceNumber)
	place(runes, tnInvoiceDateStart, tnInvoiceDateEnd, record.InvoiceDate)
	place(runes, tnIssuerDocStart, tnIssuerDocEnd, record.IssuerDocument)
	place(runes, tnIssuerNameStart, tnIssuerNameEnd, record.IssuerName)
	place(runes, tnRecipientDocStart, tnRecipientDocEnd, record.RecipientDocument)
	place(runes, tnRecipientNameStart, tnRecipientNameEnd, record.RecipientName)
	runes[tnLineLength-2] = 'P'
	runes[tnLineLength-1] = 'P'
	return string(runes)
}

func place(runes []rune, start, end int, value string) {
	width := end - start + 1
	src := []rune(value)
	if len(src) > width {
		src = src[:width]
	}
	copy(runes[start-1:end], src)
}
