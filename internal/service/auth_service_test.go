package service

import (
	"context"
	"testing"

	"github.com/wowjjang83/ai-style-synthesis/internal/apperr"
	"github.com/wowjjang83/ai-style-synthesis/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_RegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	u, token, err := f.auth.Register(ctx, "user@example.com", "password1")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, domain.RoleUser, u.Role)
	assert.NotEqual(t, "password1", u.PasswordHash)

	_, _, err = f.auth.Register(ctx, "user@example.com", "password2")
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	got, _, err := f.auth.Login(ctx, "user@example.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, _, err = f.auth.Login(ctx, "user@example.com", "wrong-pass")
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
	_, _, err = f.auth.Login(ctx, "nobody@example.com", "password1")
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
}

func TestAuthService_RegisterValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, _, err := f.auth.Register(ctx, "not-an-email", "password1")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	_, _, err = f.auth.Register(ctx, "a@example.com", "short")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestAuthService_LoginWithGoogle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	u, _, isNew, err := f.auth.LoginWithGoogle(ctx, "g-1", "g@example.com")
	require.NoError(t, err)
	assert.True(t, isNew)

	again, _, isNew, err := f.auth.LoginWithGoogle(ctx, "g-1", "g@example.com")
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, u.ID, again.ID)

	// google-only accounts cannot log in with a password
	_, _, err = f.auth.Login(ctx, "g@example.com", "")
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))

	existing, _, err := f.auth.Register(ctx, "link@example.com", "password1")
	require.NoError(t, err)
	linked, _, isNew, err := f.auth.LoginWithGoogle(ctx, "g-2", "link@example.com")
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, existing.ID, linked.ID)
}
