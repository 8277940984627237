package cart

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/elitejewels-backend/pkg/errors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryBlobs struct {
	data   map[string]string
	ttls   map[string]time.Duration
	getErr error
}

func newMemoryBlobs() *memoryBlobs {
	return &memoryBlobs{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryBlobs) Get(_ context.Context, key string) (string, error) {
	if m.getErr != nil {
		return "", m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (m *memoryBlobs) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = ttl
	return nil
}

func (m *memoryBlobs) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryBlobs) CartKey(userID string) string { return "cart:" + userID }

func TestServicePersistsMutations(t *testing.T) {
	ctx := context.Background()
	blobs := newMemoryBlobs()
	svc, err := NewService(blobs, time.Hour, nil)
	require.NoError(t, err)

	_, err = svc.Add(ctx, "u1", ring("R1"))
	require.NoError(t, err)
	view, err := svc.Add(ctx, "u1", ring("R1"))
	require.NoError(t, err)
	assert.Equal(t, 1, view.Count)
	assert.Equal(t, 2, view.TotalQuantity)
	assert.Equal(t, time.Hour, blobs.ttls["cart:u1"])

	view, err = svc.Get(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "RG-R1", view.Items[0].Code)

	view, err = svc.UpdateQuantity(ctx, "u1", "R1", 0)
	require.NoError(t, err)
	assert.Empty(t, view.Items)

	other, err := svc.Get(ctx, "u2")
	require.NoError(t, err)
	assert.Zero(t, other.Count)
}

func TestServiceClearAndRemove(t *testing.T) {
	ctx := context.Background()
	svc, err := NewService(newMemoryBlobs(), time.Hour, nil)
	require.NoError(t, err)

	_, _ = svc.Add(ctx, "u1", ring("R1"))
	_, _ = svc.Add(ctx, "u1", ring("R2"))
	view, err := svc.Remove(ctx, "u1", "R1")
	require.NoError(t, err)
	assert.Equal(t, 1, view.Count)

	require.NoError(t, svc.Clear(ctx, "u1"))
	view, err = svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, view.Count)
}

func TestServiceRequiresUserAndValidProduct(t *testing.T) {
	ctx := context.Background()
	svc, err := NewService(newMemoryBlobs(), time.Hour, nil)
	require.NoError(t, err)

	_, err = svc.Get(ctx, "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	_, err = svc.Add(ctx, "u1", Product{ID: "R1"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestServiceTreatsCorruptBlobAsEmpty(t *testing.T) {
	ctx := context.Background()
	blobs := newMemoryBlobs()
	blobs.data["cart:u1"] = "{not json"
	svc, err := NewService(blobs, time.Hour, nil)
	require.NoError(t, err)

	view, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, view.Count)
}

func TestServiceSurfacesStoreFailures(t *testing.T) {
	blobs := newMemoryBlobs()
	blobs.getErr = errors.New("connection refused")
	svc, err := NewService(blobs, time.Hour, nil)
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), "u1")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}
