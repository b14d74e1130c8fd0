package security

import "regexp"

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IsValidEmail checks the general shape of an email address. Full RFC
// validation is left to the mail provider bouncing the message.
func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// IsValidPassword enforces the registration password policy: 6-100 chars
// with at least one lowercase, one uppercase and one digit.
func IsValidPassword(password string) bool {
	if len(password) < 6 || len(password) > 100 {
		return false
	}
	var lower, upper, digit bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		}
	}
	return lower && upper && digit
}
