// Package auth implements account signup, login and the password lifecycle:
// complexity policy, bcrypt hashing, reuse history and reset tokens.
package auth

import (
	"fmt"
	"strings"
)

// MinPasswordLength is the minimum number of characters in a password
const MinPasswordLength = 8

// PolicyCode identifies one failed password rule
type PolicyCode string

const (
	CodeTooShort         PolicyCode = "too_short"
	CodeMissingUppercase PolicyCode = "missing_uppercase"
	CodeMissingNumber    PolicyCode = "missing_number"
	CodeMissingSpecial   PolicyCode = "missing_special"
)

// PolicyError is returned when a password fails the complexity rules
type PolicyError struct {
	Codes []PolicyCode
}

func (e *PolicyError) Error() string {
	codes := make([]string, len(e.Codes))
	for i, c := range e.Codes {
		codes[i] = string(c)
	}
	return fmt.Sprintf("password does not meet complexity requirements: %s", strings.Join(codes, ", "))
}

// ValidateComplexity returns every failed rule in a fixed order. An empty
// result means the password is acceptable. Length counts characters, not bytes.
func ValidateComplexity(password string) []PolicyCode {
	var (
		codes                        []PolicyCode
		hasUpper, hasDigit, hasOther bool
	)
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= '0' && r <= '9':
			hasDigit = true
		case r >= 'a' && r <= 'z':
		default:
			hasOther = true
		}
	}

	if len([]rune(password)) < MinPasswordLength {
		codes = append(codes, CodeTooShort)
	}
	if !hasUpper {
		codes = append(codes, CodeMissingUppercase)
	}
	if !hasDigit {
		codes = append(codes, CodeMissingNumber)
	}
	if !hasOther {
		codes = append(codes, CodeMissingSpecial)
	}
	return codes
}

// CheckComplexity wraps ValidateComplexity into a *PolicyError
func CheckComplexity(password string) error {
	if codes := ValidateComplexity(password); len(codes) > 0 {
		return &PolicyError{Codes: codes}
	}
	return nil
}

// PolicySummary describes the rules to end users
func PolicySummary(historyLimit int) string {
	summary := fmt.Sprintf("Your password must be at least %d characters long, include at least one uppercase letter (A-Z), one number (0-9), and one special character (for example ! @ # $ %%).", MinPasswordLength)
	if historyLimit > 0 {
		summary += fmt.Sprintf(" You also can't reuse any of your last %d passwords.", historyLimit)
	}
	return summary
}
