package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExcluded(t *testing.T) {
	prefixes := []string{"/auth", "/health/"}

	assert.True(t, excluded("/auth", prefixes))
	assert.True(t, excluded("/auth/login", prefixes))
	assert.True(t, excluded("/health", prefixes))
	assert.False(t, excluded("/authors", prefixes))
	assert.False(t, excluded("/users", prefixes))
	assert.False(t, excluded("/users", nil))
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer  abc ", "abc", true},
		{"Bearer", "", false},
		{"Bearer ", "", false},
		{"Basic abc", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		token, ok := bearerToken(tt.header)
		assert.Equal(t, tt.ok, ok, tt.header)
		assert.Equal(t, tt.token, token, tt.header)
	}
}
