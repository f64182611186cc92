package service

import (
	"context"
	"testing"

	"github.com/wowjjang83/ai-style-synthesis/internal/apperr"
	"github.com/wowjjang83/ai-style-synthesis/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryService_AddValidates(t *testing.T) {
	f := newFixture(t)
	_, err := f.registry.Add(context.Background(), NewBaseModel{Name: " ", ImageURL: "/static/a.png"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	_, err = f.registry.Add(context.Background(), NewBaseModel{Name: "a"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestRegistryService_LifeCycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.registry.Active(ctx)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	a, err := f.registry.Add(ctx, NewBaseModel{Name: "a", ImageURL: "/static/images/a.png", IsActive: true})
	require.NoError(t, err)
	b, err := f.registry.Add(ctx, NewBaseModel{Name: "b", ImageURL: "/static/images/b.png", Prompt: strp("  ")})
	require.NoError(t, err)
	assert.Nil(t, b.Prompt)

	active, err := f.registry.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, a.ID, active.ID)

	_, err = f.registry.Activate(ctx, b.ID)
	require.NoError(t, err)
	active, err = f.registry.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, b.ID, active.ID)

	got, err := f.registry.Update(ctx, a.ID, repository.BaseModelPatch{Name: strp("renamed")})
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
	assert.False(t, got.IsActive)

	_, err = f.registry.Update(ctx, a.ID, repository.BaseModelPatch{Name: strp("")})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = f.registry.Activate(ctx, 404)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	ok, err := f.registry.Delete(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = f.registry.Delete(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.registry.Get(ctx, b.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
