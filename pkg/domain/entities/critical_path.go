package entities

import (
	"fmt"
	"strings"
)

// LeadTimePath is a chain of components from a product down to a purchased leaf
type LeadTimePath struct {
	Path          []ProductID
	LeadTimes     []int
	TotalLeadTime int
	// Bottleneck is the product with the longest own lead time on the path
	Bottleneck ProductID
}

// String renders the path as A(5) -> B(3) -> C(10) = 18 days
func (p LeadTimePath) String() string {
	if len(p.Path) == 0 {
		return "empty path"
	}
	parts := make([]string, len(p.Path))
	for i, id := range p.Path {
		parts[i] = fmt.Sprintf("%s(%d)", id, p.LeadTimes[i])
	}
	return fmt.Sprintf("%s = %d days", strings.Join(parts, " -> "), p.TotalLeadTime)
}
