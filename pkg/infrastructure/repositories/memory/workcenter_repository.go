package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mrpcrp/pkg/domain/entities"
	"github.com/vsinha/mrpcrp/pkg/domain/repositories"
)

type calendarKey struct {
	workCenter entities.WorkCenterID
	day        time.Time
}

// WorkCenterRepository provides in-memory work centers with per-day calendar overrides
type WorkCenterRepository struct {
	mu          sync.RWMutex
	workCenters map[entities.WorkCenterID]entities.WorkCenter
	overrides   map[calendarKey]decimal.Decimal
}

// NewWorkCenterRepository creates a new in-memory work center repository
func NewWorkCenterRepository() *WorkCenterRepository {
	return &WorkCenterRepository{
		workCenters: make(map[entities.WorkCenterID]entities.WorkCenter),
		overrides:   make(map[calendarKey]decimal.Decimal),
	}
}

// Verify interface compliance
var _ repositories.WorkCenterRepository = (*WorkCenterRepository)(nil)

// LoadWorkCenters loads work centers into the repository
func (r *WorkCenterRepository) LoadWorkCenters(workCenters []*entities.WorkCenter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, wc := range workCenters {
		r.workCenters[wc.ID] = *wc
	}
	return nil
}

// SetCalendarHours overrides the calendar hours of one day, e.g. holidays or overtime
func (r *WorkCenterRepository) SetCalendarHours(id entities.WorkCenterID, day time.Time, hours decimal.Decimal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides[calendarKey{workCenter: id, day: entities.DayOf(day)}] = hours
}

// GetWorkCenter returns a work center by id
func (r *WorkCenterRepository) GetWorkCenter(_ context.Context, id entities.WorkCenterID) (*entities.WorkCenter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	wc, ok := r.workCenters[id]
	if !ok {
		return nil, fmt.Errorf("work center %s: %w", id, entities.ErrNotFound)
	}
	return &wc, nil
}

// ListWorkCenters returns all work centers sorted by id
func (r *WorkCenterRepository) ListWorkCenters(_ context.Context) ([]entities.WorkCenter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]entities.WorkCenter, 0, len(r.workCenters))
	for _, wc := range r.workCenters {
		list = append(list, wc)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

// GetWorkCenterCalendar returns the override for the day, else the standard hours per day
func (r *WorkCenterRepository) GetWorkCenterCalendar(_ context.Context, id entities.WorkCenterID, date time.Time) (decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	wc, ok := r.workCenters[id]
	if !ok {
		return decimal.Zero, fmt.Errorf("work center %s: %w", id, entities.ErrNotFound)
	}
	if hours, ok := r.overrides[calendarKey{workCenter: id, day: entities.DayOf(date)}]; ok {
		return hours, nil
	}
	return wc.HoursPerDay, nil
}
