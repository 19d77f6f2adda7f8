package bundlecache

import (
	"dronelog-backend/internal/archive"
	"dronelog-backend/internal/components/chrono"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCron struct {
	specs     []string
	callbacks []func()
}

func (c *fakeCron) Cron(spec string, callback func()) error {
	c.specs = append(c.specs, spec)
	c.callbacks = append(c.callbacks, callback)
	return nil
}

var files = []archive.File{{Name: "a.csv", Data: []byte("a")}}

func TestTakeIsSingleUse(t *testing.T) {
	clock := chrono.NewFakeTime(time.Date(2025, 10, 24, 12, 0, 0, 0, time.UTC))
	cache := New(clock, time.Minute)

	token := cache.Put(files)
	require.NotEmpty(t, token)

	got, err := cache.Take(token)
	require.NoError(t, err)
	require.Equal(t, files, got)

	_, err = cache.Take(token)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = cache.Take("never-issued")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestExpiry(t *testing.T) {
	clock := chrono.NewFakeTime(time.Date(2025, 10, 24, 12, 0, 0, 0, time.UTC))
	cache := New(clock, 10*time.Minute)

	cache.PutToken("old", files)
	clock.Advance(6 * time.Minute)
	cache.PutToken("new", files)

	clock.Advance(4 * time.Minute)
	_, err := cache.Take("old")
	require.ErrorIs(t, err, ErrNotFound)

	cron := &fakeCron{}
	require.NoError(t, cache.StartSweeper(cron, "@every 1m"))
	require.Equal(t, []string{"@every 1m"}, cron.specs)

	clock.Advance(6 * time.Minute)
	cron.callbacks[0]()
	require.Equal(t, 0, cache.Len())
}

func TestSweepKeepsLiveEntries(t *testing.T) {
	clock := chrono.NewFakeTime(time.Date(2025, 10, 24, 12, 0, 0, 0, time.UTC))
	cache := New(clock, 0)

	cache.PutToken("a", files)
	clock.Advance(DefaultTTL - time.Second)
	cache.PutToken("b", files)
	clock.Advance(time.Second)

	require.Equal(t, 1, cache.Sweep())
	require.Equal(t, 1, cache.Len())
	_, err := cache.Take("b")
	require.NoError(t, err)
}

func TestConcurrentAccess(t *testing.T) {
	clock := chrono.NewFakeTime(time.Date(2025, 10, 24, 12, 0, 0, 0, time.UTC))
	cache := New(clock, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token := cache.Put(files)
			cache.Sweep()
			_, err := cache.Take(token)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	require.Equal(t, 0, cache.Len())
}
