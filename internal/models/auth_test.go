package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRefreshTokenUsable(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	assert.True(t, (&RefreshToken{ExpiresAt: now.Add(time.Minute)}).Usable(now))
	assert.False(t, (&RefreshToken{ExpiresAt: now}).Usable(now))
	assert.False(t, (&RefreshToken{ExpiresAt: now.Add(time.Hour), Revoked: true}).Usable(now))

	var missing *RefreshToken
	assert.False(t, missing.Usable(now))
}
