package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{"user@example.com", true},
		{"user.name+tag@sub.example.co", true},
		{"user@localhost", false},
		{"not-an-email", false},
		{"", false},
		{"@example.com", false},
		{"user@", false},
		{strings.Repeat("a", 250) + "@x.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidEmail(tt.email))
		})
	}
}

func TestIsValidPhone(t *testing.T) {
	tests := []struct {
		phone string
		valid bool
	}{
		{"+491701234567", true},
		{"491701234567", true},
		{"1234567", true},
		{"123456", false},
		{"+12 34 56 78", false},
		{"phone", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidPhone(tt.phone))
		})
	}
}

func TestIsValidUUID(t *testing.T) {
	assert.True(t, IsValidUUID("8a2e9f1c-4b3d-4a5e-9c7f-1d2e3f4a5b6c"))
	assert.False(t, IsValidUUID("8a2e9f1c4b3d4a5e9c7f1d2e3f4a5b6c"))
	assert.False(t, IsValidUUID("not-a-uuid"))
	assert.False(t, IsValidUUID(""))
}

func TestIsValidRFIDTag(t *testing.T) {
	tests := []struct {
		tag   string
		valid bool
	}{
		{"E2000017221101441890", true},
		{"RFID-1234", true},
		{"abc", false},
		{strings.Repeat("A", 65), false},
		{"tag with spaces", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidRFIDTag(tt.tag))
		})
	}
}

func TestIsValidAssetCode(t *testing.T) {
	tests := []struct {
		code  string
		valid bool
	}{
		{"P-58290", true},
		{"ASST-1", true},
		{"p-58290", false},
		{"P58290", false},
		{"TOOLS-1", false},
		{"P-", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidAssetCode(tt.code))
		})
	}
}

func TestIsValidPassword(t *testing.T) {
	t.Run("accepts letters and numbers", func(t *testing.T) {
		ok, msg := IsValidPassword("Password123")
		assert.True(t, ok)
		assert.Empty(t, msg)
	})

	t.Run("too short", func(t *testing.T) {
		ok, _ := IsValidPassword("Pw1")
		assert.False(t, ok)
	})

	t.Run("too long", func(t *testing.T) {
		ok, _ := IsValidPassword(strings.Repeat("a1", 70))
		assert.False(t, ok)
	})

	t.Run("letters only", func(t *testing.T) {
		ok, _ := IsValidPassword("passwordonly")
		assert.False(t, ok)
	})

	t.Run("numbers only", func(t *testing.T) {
		ok, _ := IsValidPassword("1234567890")
		assert.False(t, ok)
	})
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "hello", SanitizeString("hel\x00lo"))
	assert.Equal(t, "line1\nline2", SanitizeString("line1\nline2"))
	assert.Equal(t, "tabhere\t", SanitizeString("tabhere\t"))
	assert.Equal(t, "clean", SanitizeString("cle\x07an"))
}
