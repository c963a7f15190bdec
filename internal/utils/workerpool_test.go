package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tomb "gopkg.in/tomb.v2"
)

func TestWorkerPool_ProcessesTasks(t *testing.T) {
	pool := NewWorkerPool(4)
	var lifecycle tomb.Tomb

	results := make(chan int, 10)
	pool.Setup(&lifecycle, func(_ *tomb.Tomb, task any) error {
		results <- task.(int)
		return nil
	})

	for i := 0; i < 10; i++ {
		pool.AddTask(i)
	}

	seen := make(map[int]bool)
	for i := 0; i < 10; i++ {
		select {
		case v := <-results:
			seen[v] = true
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for tasks")
		}
	}
	assert.Len(t, seen, 10)

	lifecycle.Kill(nil)
	require.NoError(t, lifecycle.Wait())
}

func TestWorkerPool_FatalWorkerError(t *testing.T) {
	pool := NewWorkerPool(1)
	var lifecycle tomb.Tomb

	wantErr := errors.New("boom")
	pool.Setup(&lifecycle, func(_ *tomb.Tomb, _ any) error {
		return wantErr
	})

	pool.AddTask(struct{}{})
	assert.ErrorIs(t, lifecycle.Wait(), wantErr)
}
