package sidestore

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/starmirror/internal/nodeid"
)

func TestSetAndGetJSON(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, ok := s.Get(ctx, "fixture")
	assert.False(t, ok)

	s.SetJSON(ctx, nodeid.New("fixture"), map[string]any{"w": 16.0})

	e, ok := s.Get(ctx, "fixture")
	require.True(t, ok)
	assert.Equal(t, OriginJSON, e.Origin)
	assert.False(t, e.New)
	assert.Equal(t, map[string]any{"w": 16.0}, e.Value)
}

func TestSetFileMarksNewUntilAck(t *testing.T) {
	s := New()
	ctx := context.Background()
	id := nodeid.InRow("ledmap", 1)

	s.SetFile(ctx, id, []any{1.0, 2.0})
	e, ok := s.Get(ctx, "ledmap#1")
	require.True(t, ok)
	assert.True(t, e.New)
	assert.Equal(t, OriginFile, e.Origin)

	acked, ok := s.Ack(ctx, "ledmap#1")
	require.True(t, ok)
	assert.False(t, acked.New)

	e, _ = s.Get(ctx, "ledmap#1")
	assert.False(t, e.New)

	_, ok = s.Ack(ctx, "missing")
	assert.False(t, ok)
}

func TestConcurrentAccess(t *testing.T) {
	s := New()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.SetJSON(ctx, nodeid.New(fmt.Sprintf("n%d", i)), i)
		}(i)
	}
	wg.Wait()
	assert.Len(t, s.Keys(), 50)
}
