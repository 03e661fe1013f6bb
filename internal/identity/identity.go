package identity

// CNPJLength and CPFLength are the digit counts of the two identifier kinds.
const (
	CNPJLength = 14
	CPFLength  = 11
)

// ValidCNPJ reports whether digits is a checksum-valid 14-digit CNPJ.
// All-identical-digit sequences are rejected even when the checksum holds.
func ValidCNPJ(digits string) bool {
	if len(digits) != CNPJLength || !allDigits(digits) || allSame(digits) {
		return false
	}
	if cnpjCheckDigit(digits[:12]) != int(digits[12]-'0') {
		return false
	}
	return cnpjCheckDigit(digits[:13]) == int(digits[13]-'0')
}

// ValidCPF reports whether digits is a checksum-valid 11-digit CPF.
func ValidCPF(digits string) bool {
	if len(digits) != CPFLength || !allDigits(digits) || allSame(digits) {
		return false
	}
	if cpfCheckDigit(digits[:9], 10) != int(digits[9]-'0') {
		return false
	}
	return cpfCheckDigit(digits[:10], 11) == int(digits[10]-'0')
}

// cnpjCheckDigit computes a CNPJ verifier digit over the given prefix using
// the descending 9..2 weight cycle.
func cnpjCheckDigit(prefix string) int {
	weight := len(prefix) - 7
	sum := 0
	for i := 0; i < len(prefix); i++ {
		sum += int(prefix[i]-'0') * weight
		weight--
		if weight < 2 {
			weight = 9
		}
	}
	rest := sum % 11
	if rest < 2 {
		return 0
	}
	return 11 - rest
}

// cpfCheckDigit computes a CPF verifier digit with weights counting down
// from the given start.
func cpfCheckDigit(prefix string, start int) int {
	sum := 0
	for i := 0; i < len(prefix); i++ {
		sum += int(prefix[i]-'0') * (start - i)
	}
	rest := sum % 11
	if rest < 2 {
		return 0
	}
	return 11 - rest
}

func allDigits(value string) bool {
	for i := 0; i < len(value); i++ {
		if value[i] < '0' || value[i] > '9' {
			return false
		}
	}
	return true
}

func allSame(value string) bool {
	for i := 1; i < len(value); i++ {
		if value[i] != value[0] {
			return false
		}
	}
	return true
}
