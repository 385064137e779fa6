package validation

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

	// PhoneRegex accepts E.164-ish numbers with an optional leading +.
	phoneRegex = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

	uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

	// RFIDTagRegex accepts the hex tag identifiers the readers emit.
	rfidTagRegex = regexp.MustCompile(`^[A-Za-z0-9\-]{4,64}$`)

	// AssetCodeRegex matches business codes like P-58290.
	assetCodeRegex = regexp.MustCompile(`^[A-Z]{1,4}-[0-9]{1,10}$`)
)

// IsValidEmail checks if the string is a valid email format
func IsValidEmail(email string) bool {
	if len(email) > 254 {
		return false
	}
	return emailRegex.MatchString(email)
}

// IsValidPhone checks if the string looks like a phone number
func IsValidPhone(phone string) bool {
	return phoneRegex.MatchString(phone)
}

// IsValidUUID checks if the string is a valid UUID format
func IsValidUUID(id string) bool {
	return uuidRegex.MatchString(id)
}

// IsValidRFIDTag checks if the string is an acceptable tag identifier
func IsValidRFIDTag(tag string) bool {
	return rfidTagRegex.MatchString(tag)
}

// IsValidAssetCode checks if the string matches the business code format
func IsValidAssetCode(code string) bool {
	return assetCodeRegex.MatchString(code)
}

// IsValidPassword checks password strength
func IsValidPassword(password string) (bool, string) {
	if len(password) < 8 {
		return false, "Password must be at least 8 characters"
	}
	if len(password) > 128 {
		return false, "Password must be at most 128 characters"
	}

	var hasLetter, hasNumber bool
	for _, char := range password {
		switch {
		case unicode.IsLetter(char):
			hasLetter = true
		case unicode.IsNumber(char):
			hasNumber = true
		}
	}
	if !hasLetter || !hasNumber {
		return false, "Password must contain both letters and numbers"
	}
	return true, ""
}

// SanitizeString removes potentially dangerous characters for display
func SanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")

	var result strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || !unicode.IsControl(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}
