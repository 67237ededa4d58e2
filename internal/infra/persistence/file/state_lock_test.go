package file

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateLock_Exclusive(t *testing.T) {
	lock := NewStateLock(filepath.Join(t.TempDir(), "var", "state.lock"))

	release, err := lock.Lock()
	require.NoError(t, err)

	acquired := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r, err := lock.Lock()
		if assert.NoError(t, err) {
			close(acquired)
			r()
		}
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired the lock while it was held")
	case <-time.After(50 * time.Millisecond):
	}

	release()
	release() // idempotent
	wg.Wait()
	<-acquired
}

func TestStateLock_SeparateHandlesExclude(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.lock")
	first, second := NewStateLock(path), NewStateLock(path)

	release, err := first.Lock()
	require.NoError(t, err)

	acquired := make(chan func(), 1)
	go func() {
		r, err := second.Lock()
		if assert.NoError(t, err) {
			acquired <- r
		}
	}()

	select {
	case <-acquired:
		t.Fatal("file lock was granted to a second handle")
	case <-time.After(50 * time.Millisecond):
	}

	release()
	select {
	case r := <-acquired:
		r()
	case <-time.After(5 * time.Second):
		t.Fatal("second handle never acquired the lock")
	}
}
