package identity_test

import (
	"testing"

	"recall/internal/identity"
)

func TestValidCNPJ(t *testing.T) {
	valid := []string{"11222333000181", "11444777000161", "34028316000103", "06990590000123"}
	for _, digits := range valid {
		if !identity.ValidCNPJ(digits) {
			t.Errorf("ValidCNPJ(%q) = false, want true", digits)
		}
	}

	invalid := []string{
		"",
		"11222333000182",     // wrong check digit
		"1122233300018",      // 13 digits
		"112223330001811",    // 15 digits
		"00000000000000",     // all zeros
		"11111111111111",     // repeated digits
		"1122233300018a",     // non-digit
		"52998224725",        // CPF length
	}
	for _, digits := range invalid {
		if identity.ValidCNPJ(digits) {
			t.Errorf("ValidCNPJ(%q) = true, want false", digits)
		}
	}
}

func TestValidCPF(t *testing.T) {
	valid := []string{"52998224725", "12345678909", "11144477735"}
	for _, digits := range valid {
		if !identity.ValidCPF(digits) {
			t.Errorf("ValidCPF(%q) = false, want true", digits)
		}
	}

	invalid := []string{
		"",
		"52998224726",  // wrong check digit
		"5299822472",   // 10 digits
		"00000000000",  // repeated digits
		"99999999999",  // repeated digits
		"5299822472a",  // non-digit
	}
	for _, digits := range invalid {
		if identity.ValidCPF(digits) {
			t.Errorf("ValidCPF(%q) = true, want false", digits)
		}
	}
}
