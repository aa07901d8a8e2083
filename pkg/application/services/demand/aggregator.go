package demand

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mrpcrp/pkg/domain/entities"
)

// Aggregator is the append-only backlog of gross requirements per product.
// Appends may come from several workers at once.
type Aggregator struct {
	mu      sync.Mutex
	backlog map[entities.ProductID][]entities.DemandEntry
}

// NewAggregator creates an empty aggregator
func NewAggregator() *Aggregator {
	return &Aggregator{backlog: make(map[entities.ProductID][]entities.DemandEntry)}
}

// Append adds entries to their products' backlogs. Negative quantities are
// rejected as a whole batch; zero quantities are skipped.
func (a *Aggregator) Append(entries ...entities.DemandEntry) error {
	for _, e := range entries {
		if e.Quantity.IsNegative() {
			return fmt.Errorf("%w: negative demand %s for %s on %s",
				entities.ErrValidation, e.Quantity, e.ProductID, e.Date.Format("2006-01-02"))
		}
		if e.ProductID == "" {
			return fmt.Errorf("%w: demand without product", entities.ErrValidation)
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	for _, e := range entries {
		if e.Quantity.IsZero() {
			continue
		}
		e.Date = entities.DayOf(e.Date)
		a.backlog[e.ProductID] = append(a.backlog[e.ProductID], e)
	}
	return nil
}

// Entries returns a product's backlog ordered by date, source and reference
func (a *Aggregator) Entries(productID entities.ProductID) []entities.DemandEntry {
	a.mu.Lock()
	entries := append([]entities.DemandEntry(nil), a.backlog[productID]...)
	a.mu.Unlock()
	sortEntries(entries)
	return entries
}

// Products returns every product with a backlog, sorted
func (a *Aggregator) Products() []entities.ProductID {
	a.mu.Lock()
	defer a.mu.Unlock()
	ids := make([]entities.ProductID, 0, len(a.backlog))
	for id := range a.backlog {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Ordered returns all entries ordered by product, then date
func (a *Aggregator) Ordered() []entities.DemandEntry {
	all := make([]entities.DemandEntry, 0)
	for _, id := range a.Products() {
		all = append(all, a.Entries(id)...)
	}
	return all
}

// Bucketed is a product's gross requirement per horizon bucket
type Bucketed struct {
	Gross []decimal.Decimal
	// Dropped are entries dated after the horizon end
	Dropped []entities.DemandEntry
}

// Bucket sums entries into the horizon's buckets. Past-due entries count in
// the first bucket; phantom pass-through entries are trace only and never count.
func Bucket(entries []entities.DemandEntry, horizon entities.Horizon) Bucketed {
	result := Bucketed{Gross: zeros(horizon.Len())}
	for _, e := range entries {
		if e.Source == entities.PhantomPassThrough {
			continue
		}
		idx, ok := horizon.BucketIndex(e.Date)
		if !ok {
			result.Dropped = append(result.Dropped, e)
			continue
		}
		result.Gross[idx] = result.Gross[idx].Add(e.Quantity)
	}
	return result
}

// BucketReceipts sums scheduled receipts into the horizon's buckets; receipts
// after the horizon end are ignored
func BucketReceipts(receipts []entities.ScheduledReceipt, horizon entities.Horizon) []decimal.Decimal {
	buckets := zeros(horizon.Len())
	for _, r := range receipts {
		if idx, ok := horizon.BucketIndex(r.Date); ok {
			buckets[idx] = buckets[idx].Add(r.Quantity)
		}
	}
	return buckets
}

func zeros(n int) []decimal.Decimal {
	z := make([]decimal.Decimal, n)
	for i := range z {
		z[i] = decimal.Zero
	}
	return z
}

func sortEntries(entries []entities.DemandEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.Reference != b.Reference {
			return a.Reference < b.Reference
		}
		return a.Quantity.LessThan(b.Quantity)
	})
}
