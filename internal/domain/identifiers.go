package domain

const (
	NIFLength        = 9
	SSNLength        = 11
	HealthCodeLength = 12
)

// ValidNIF reports whether s has the shape of a doctor tax id: exactly
// nine decimal digits. Malformed ids are rejected before any lookup.
func ValidNIF(s string) bool {
	return len(s) == NIFLength && allDigits(s)
}

// ValidSSN reports whether s has the shape of a patient social-security
// id: exactly eleven decimal digits.
func ValidSSN(s string) bool {
	return len(s) == SSNLength && allDigits(s)
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}
