// Package bundlecache holds downloaded files between a bulk download and
// the request that collects them as a zip.
package bundlecache

import (
	"dronelog-backend/internal/archive"
	"dronelog-backend/internal/components/assert"
	"dronelog-backend/internal/components/chrono"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned for tokens that were never issued, were already
// taken or have expired.
var ErrNotFound = errors.New("download bundle not found or expired, please start the download again")

const DefaultTTL = 10 * time.Minute

type entry struct {
	files   []archive.File
	expires time.Time
}

// Cache maps tokens to bundles. Each bundle can be taken exactly once and
// expires after the ttl whether it was taken or not.
type Cache struct {
	time chrono.TimeAPI
	ttl  time.Duration

	mutex   sync.Mutex
	entries map[string]entry
}

func New(timeAPI chrono.TimeAPI, ttl time.Duration) *Cache {
	assert.NotNil(timeAPI)
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		time:    timeAPI,
		ttl:     ttl,
		entries: map[string]entry{},
	}
}

// Put stores files under a new random token.
func (c *Cache) Put(files []archive.File) string {
	token := uuid.NewString()
	c.PutToken(token, files)
	return token
}

// PutToken stores files under token, replacing whatever was there.
func (c *Cache) PutToken(token string, files []archive.File) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.entries[token] = entry{
		files:   files,
		expires: c.time.Now().Add(c.ttl),
	}
}

// Take removes and returns the bundle for token.
func (c *Cache) Take(token string) ([]archive.File, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	e, ok := c.entries[token]
	if !ok {
		return nil, ErrNotFound
	}
	delete(c.entries, token)
	if !c.time.Now().Before(e.expires) {
		return nil, ErrNotFound
	}
	return e.files, nil
}

// Sweep evicts every expired bundle and returns how many there were.
func (c *Cache) Sweep() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.time.Now()
	evicted := 0
	for token, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, token)
			evicted++
		}
	}
	return evicted
}

func (c *Cache) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.entries)
}

// StartSweeper runs Sweep on the given cron spec, ex. "@every 1m".
func (c *Cache) StartSweeper(cron chrono.CronAPI, spec string) error {
	assert.NotNil(cron)
	return cron.Cron(spec, func() {
		c.Sweep()
	})
}
