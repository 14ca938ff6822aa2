package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePassword(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"Valid", "borscht42", false},
		{"Exactly Min Length", "abcdefg1", false},
		{"Too Short", "abc1", true},
		{"Too Long", strings.Repeat("a", 128) + "1", true},
		{"No Digit", "onlyletters", true},
		{"No Letter", "1234567890", true},
		{"Unicode Letters", "Ångström9", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateUsername(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{"Valid", "chef.anna_1", false},
		{"Too Short", "ab", true},
		{"Illegal Chars", "user@123", true},
		{"Space", "chef anna", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{"Valid", "test@example.com", false},
		{"Invalid Format", "not-an-email", true},
		{"Missing Domain", "user@", true},
		{"Double Dot", "user..x@example.com", true},
		{"Too Long", strings.Repeat("a", 250) + "@x.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateHexColor(t *testing.T) {
	t.Parallel()
	for _, ok := range []string{"", "#fff", "#FF8800"} {
		assert.NoError(t, ValidateHexColor(ok), ok)
	}
	for _, bad := range []string{"fff", "#ffff", "#gg0000", "red"} {
		assert.Error(t, ValidateHexColor(bad), bad)
	}
}

func TestValidateText(t *testing.T) {
	t.Parallel()
	assert.EqualError(t, ValidateText("title", "  ", 10), "title is required")
	assert.EqualError(t, ValidateText("title", "ééééééééééé", 10), "title must not exceed 10 characters")
	assert.NoError(t, ValidateText("title", "éééééééééé", 10))

	neg, zero := -1, 0
	assert.Error(t, ValidateNonNegative("calories", &neg))
	assert.NoError(t, ValidateNonNegative("calories", &zero))
	assert.NoError(t, ValidateNonNegative("calories", nil))
}
