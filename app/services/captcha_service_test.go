package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryChallengeStore(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := NewMemoryChallengeStore(ctx, 0)

	require.NoError(t, store.Set(ctx, "a", 42, time.Minute))

	angle, ok, err := store.Take(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 42, angle)

	_, ok, err = store.Take(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok, "challenge must be consumed")

	require.NoError(t, store.Set(ctx, "b", 10, -time.Second))
	_, ok, err = store.Take(ctx, "b")
	require.NoError(t, err)
	assert.False(t, ok, "expired challenge must not verify")
}

func TestCaptchaServiceRotate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryChallengeStore(ctx, 0)
	svc, err := NewCaptchaServiceRotate(store, time.Minute, 5, 220)
	require.NoError(t, err)

	challenge, err := svc.GenerateRotate(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, challenge.ID)
	assert.NotEmpty(t, challenge.MasterImageBase64)
	assert.NotEmpty(t, challenge.ThumbImageBase64)

	store.mu.Lock()
	target := store.m[challenge.ID].targetAngle
	store.mu.Unlock()

	t.Run("unknown challenge", func(t *testing.T) {
		assert.False(t, svc.VerifyRotate(ctx, "missing", 0))
	})

	t.Run("correct angle verifies once", func(t *testing.T) {
		assert.True(t, svc.VerifyRotate(ctx, challenge.ID, float64(target)))
		assert.False(t, svc.VerifyRotate(ctx, challenge.ID, float64(target)))
	})
}

func TestNewCaptchaServiceRequiresStore(t *testing.T) {
	_, err := NewCaptchaServiceRotate(nil, time.Minute, 5, 160)
	assert.Error(t, err)
}

func TestGenerateRotateBackgrounds(t *testing.T) {
	imgs := generateRotateBackgrounds(2, 120)
	require.Len(t, imgs, 2)
	assert.Equal(t, 120, imgs[0].Bounds().Dx())
	assert.Equal(t, 120, imgs[0].Bounds().Dy())
}
