package exceptions

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/vsinha/mrpcrp/pkg/application/services/shared"
	"github.com/vsinha/mrpcrp/pkg/domain/entities"
)

// Recorder collects the exceptions of one plan run. It is safe for concurrent use.
type Recorder struct {
	planID entities.PlanID
	clock  shared.Clock
	ids    shared.IDGenerator
	logger *zap.Logger

	mu         sync.Mutex
	exceptions []entities.Exception
	keys       map[string]bool
}

// NewRecorder creates a recorder for a plan
func NewRecorder(planID entities.PlanID, clock shared.Clock, ids shared.IDGenerator, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		planID:     planID,
		clock:      clock,
		ids:        ids,
		logger:     logger,
		exceptions: make([]entities.Exception, 0),
		keys:       make(map[string]bool),
	}
}

// Record stores a new exception with the severity fixed for its type
func (r *Recorder) Record(typ entities.ExceptionType, productID entities.ProductID, workCenterID entities.WorkCenterID, format string, args ...any) entities.Exception {
	return r.RecordSuggesting(typ, productID, workCenterID, "", format, args...)
}

// RecordSuggesting stores a new exception carrying a corrective action for the planner
func (r *Recorder) RecordSuggesting(
	typ entities.ExceptionType,
	productID entities.ProductID,
	workCenterID entities.WorkCenterID,
	action string,
	format string,
	args ...any,
) entities.Exception {
	e := entities.Exception{
		ID:              r.ids.NewID(),
		PlanID:          r.planID,
		ProductID:       productID,
		WorkCenterID:    workCenterID,
		Type:            typ,
		Severity:        entities.SeverityOf(typ),
		Message:         fmt.Sprintf(format, args...),
		SuggestedAction: action,
		CreatedAt:       r.clock.Now(),
	}

	r.mu.Lock()
	r.exceptions = append(r.exceptions, e)
	r.mu.Unlock()

	r.logger.Debug("planning exception",
		zap.String("type", typ.String()),
		zap.String("severity", e.Severity.String()),
		zap.String("product", string(productID)),
		zap.String("work_center", string(workCenterID)),
		zap.String("message", e.Message),
	)
	return e
}

// RecordOnce records an exception only the first time the key is seen
func (r *Recorder) RecordOnce(key string, typ entities.ExceptionType, productID entities.ProductID, workCenterID entities.WorkCenterID, format string, args ...any) bool {
	r.mu.Lock()
	if r.keys[key] {
		r.mu.Unlock()
		return false
	}
	r.keys[key] = true
	r.mu.Unlock()

	r.Record(typ, productID, workCenterID, format, args...)
	return true
}

// Resolve marks a recorded exception handled
func (r *Recorder) Resolve(id, resolvedBy, notes string) (entities.Exception, []entities.DomainEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.exceptions {
		if e.ID != id {
			continue
		}
		resolved, events, err := e.Resolve(resolvedBy, notes, r.clock.Now())
		if err != nil {
			return e, nil, err
		}
		r.exceptions[i] = resolved
		return resolved, events, nil
	}
	return entities.Exception{}, nil, fmt.Errorf("exception %s: %w", id, entities.ErrNotFound)
}

// Exceptions returns the recorded exceptions, most severe first
func (r *Recorder) Exceptions() []entities.Exception {
	r.mu.Lock()
	list := append([]entities.Exception(nil), r.exceptions...)
	r.mu.Unlock()
	SortBySeverity(list)
	return list
}

// Count returns how many exceptions of the type were recorded
func (r *Recorder) Count(typ entities.ExceptionType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.exceptions {
		if e.Type == typ {
			n++
		}
	}
	return n
}

// Summary returns the unresolved exception counts by severity
func (r *Recorder) Summary() map[entities.Severity]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Summarize(r.exceptions)
}

// Summarize counts unresolved exceptions by severity; every severity has an entry
func Summarize(list []entities.Exception) map[entities.Severity]int {
	counts := make(map[entities.Severity]int, 4)
	for _, s := range entities.Severities() {
		counts[s] = 0
	}
	for _, e := range list {
		if !e.IsResolved {
			counts[e.Severity]++
		}
	}
	return counts
}

// SortBySeverity orders exceptions most severe first, then by product, type and message
func SortBySeverity(list []entities.Exception) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.Severity != b.Severity {
			return a.Severity > b.Severity
		}
		if a.ProductID != b.ProductID {
			return a.ProductID < b.ProductID
		}
		if a.WorkCenterID != b.WorkCenterID {
			return a.WorkCenterID < b.WorkCenterID
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.Message < b.Message
	})
}
