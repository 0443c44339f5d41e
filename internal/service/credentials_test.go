package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolCurrentLoadsFirstAvailable(t *testing.T) {
	t.Parallel()

	pool := NewCredentialPool(twoKeySource())

	cred, err := pool.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "key-1", cred.Key)

	// Repeated calls return the same credential without reloading.
	again, err := pool.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cred.ID, again.ID)
}

func TestPoolCurrentFailsWhenNoneAvailable(t *testing.T) {
	t.Parallel()

	pool := NewCredentialPool(&fakeCredentialSource{})

	_, err := pool.Current(context.Background())
	assert.ErrorIs(t, err, ErrNoCredential)
}

func TestPoolRetireAndRotate(t *testing.T) {
	t.Parallel()

	source := twoKeySource()
	pool := NewCredentialPool(source)

	_, err := pool.Current(context.Background())
	require.NoError(t, err)

	retiredAt := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, pool.Retire(context.Background(), retiredAt))
	assert.Equal(t, []int{1}, source.retired)

	next, err := pool.Rotate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "key-2", next.Key)
}

func TestPoolRotateFailsWhenExhausted(t *testing.T) {
	t.Parallel()

	source := singleKeySource()
	pool := NewCredentialPool(source)

	_, err := pool.Current(context.Background())
	require.NoError(t, err)
	require.NoError(t, pool.Retire(context.Background(), time.Now()))

	_, err = pool.Rotate(context.Background())
	assert.ErrorIs(t, err, ErrNoCredential)
}

func TestPoolRetireWithoutCurrentIsNoOp(t *testing.T) {
	t.Parallel()

	source := twoKeySource()
	pool := NewCredentialPool(source)

	require.NoError(t, pool.Retire(context.Background(), time.Now()))
	assert.Empty(t, source.retired)
}

func TestStaticPoolServesOverrideKeyOnce(t *testing.T) {
	t.Parallel()

	pool := NewStaticPool("operator-key")

	cred, err := pool.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "operator-key", cred.Key)

	require.NoError(t, pool.Retire(context.Background(), time.Now()))
	_, err = pool.Rotate(context.Background())
	assert.ErrorIs(t, err, ErrNoCredential)
}
