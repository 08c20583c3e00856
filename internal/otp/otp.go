// Package otp generates the numeric one-time codes used by the registration
// and phone verification flows. Codes are short-lived UI tokens, not
// cryptographic secrets; math/rand is deliberate and documented.
package otp

import (
	"math/rand"
	"strconv"
	"strings"
)

const (
	// Min and Max bound the generated codes to six digits.
	Min = 100000
	Max = 999999
)

// Generate returns a uniformly distributed six digit code in [Min, Max].
func Generate() int {
	return Min + rand.Intn(Max-Min+1)
}

// Format renders a code the way it is stored and compared.
func Format(code int) string {
	return strconv.Itoa(code)
}

// Normalize prepares a user-submitted code for comparison.
func Normalize(submitted string) string {
	return strings.TrimSpace(submitted)
}

// Matches reports whether the submitted code equals the issued one after
// string normalization on both sides.
func Matches(issued, submitted string) bool {
	issued = strings.TrimSpace(issued)
	return issued != "" && issued == Normalize(submitted)
}
