package provider

import (
	"fmt"
	"strings"
)

const (
	cnpjLength = 14
	cepLength  = 8
)

// NormalizeCNPJ strips punctuation from raw and requires 14 digits.
// Check digits are not verified; the registry answers 404 for unknown ids.
func NormalizeCNPJ(raw string) (string, error) {
	return digits(raw, cnpjLength, "CNPJ")
}

// NormalizeCEP strips punctuation from raw and requires 8 digits.
func NormalizeCEP(raw string) (string, error) {
	return digits(raw, cepLength, "CEP")
}

// FormatCNPJ renders 14 digits as 00.000.000/0000-00.
func FormatCNPJ(d string) string {
	if len(d) != cnpjLength {
		return d
	}
	return d[0:2] + "." + d[2:5] + "." + d[5:8] + "/" + d[8:12] + "-" + d[12:14]
}

func digits(raw string, want int, kind string) (string, error) {
	var b strings.Builder
	b.Grow(want)
	for _, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '/' || r == ' ':
		default:
			return "", fmt.Errorf("%w: %s contains %q", ErrInvalidIdentifier, kind, r)
		}
	}
	if b.Len() != want {
		return "", fmt.Errorf("%w: %s needs %d digits, got %d", ErrInvalidIdentifier, kind, want, b.Len())
	}
	return b.String(), nil
}
