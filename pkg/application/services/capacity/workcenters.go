package capacity

import (
	"context"
	"sync"

	"github.com/vsinha/mrpcrp/pkg/domain/entities"
	"github.com/vsinha/mrpcrp/pkg/domain/repositories"
)

// workCenterCache memoizes work center lookups for one load pass, misses included
type workCenterCache struct {
	repo repositories.WorkCenterRepository

	mu      sync.Mutex
	entries map[entities.WorkCenterID]workCenterEntry
}

type workCenterEntry struct {
	wc  *entities.WorkCenter
	err error
}

func newWorkCenterCache(repo repositories.WorkCenterRepository) *workCenterCache {
	return &workCenterCache{repo: repo, entries: make(map[entities.WorkCenterID]workCenterEntry)}
}

func (c *workCenterCache) get(ctx context.Context, id entities.WorkCenterID) (*entities.WorkCenter, error) {
	c.mu.Lock()
	if e, ok := c.entries[id]; ok {
		c.mu.Unlock()
		return e.wc, e.err
	}
	c.mu.Unlock()

	wc, err := c.repo.GetWorkCenter(ctx, id)
	c.mu.Lock()
	c.entries[id] = workCenterEntry{wc: wc, err: err}
	c.mu.Unlock()
	return wc, err
}
