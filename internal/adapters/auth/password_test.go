package auth

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"festregistration/internal/domain"
)

func TestBcryptHasher_GenerateSalt(t *testing.T) {
	h := NewBcryptHasher(4)
	hexRe := regexp.MustCompile(`^[0-9a-f]{64}$`)

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		salt, err := h.GenerateSalt()
		require.NoError(t, err)
		assert.Regexp(t, hexRe, salt, "salt should be 64 hex characters")
		assert.False(t, seen[salt])
		seen[salt] = true
	}
}

func TestBcryptHasher_Hash_and_Compare(t *testing.T) {
	h := NewBcryptHasher(4)
	salt, err := h.GenerateSalt()
	require.NoError(t, err)

	tests := []struct {
		name     string
		salt     string
		password string
		wantErr  bool
	}{
		{name: "match", salt: salt, password: "festival"},
		{name: "wrong password", salt: salt, password: "festivals", wantErr: true},
		{name: "wrong salt", salt: salt + "x", password: "festival", wantErr: true},
	}
	hash, err := h.Hash(salt, "festival")
	require.NoError(t, err)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.Compare(hash, tt.salt, tt.password)
			if tt.wantErr {
				require.ErrorIs(t, err, domain.ErrUnauthorized)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestBcryptHasher_long_password(t *testing.T) {
	h := NewBcryptHasher(4)
	long := strings.Repeat("a", 100)
	hash, err := h.Hash("salt", long)
	require.NoError(t, err)
	require.NoError(t, h.Compare(hash, "salt", long))
	require.Error(t, h.Compare(hash, "salt", long[:99]+"b"))
}
