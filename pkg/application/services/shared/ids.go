package shared

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator issues identifiers for plans, orders and exceptions
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator issues random UUIDs
type UUIDGenerator struct{}

// NewID returns a new random UUID string
func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

// SequentialGenerator issues prefix-000001, prefix-000002, ... and is safe for concurrent use
type SequentialGenerator struct {
	prefix string
	next   atomic.Int64
}

// NewSequentialGenerator creates a SequentialGenerator
func NewSequentialGenerator(prefix string) *SequentialGenerator {
	return &SequentialGenerator{prefix: prefix}
}

// NewID returns the next identifier in sequence
func (g *SequentialGenerator) NewID() string {
	return fmt.Sprintf("%s-%06d", g.prefix, g.next.Add(1))
}

// WorkerCount returns n when positive, otherwise the number of CPUs
func WorkerCount(n int) int {
	if n > 0 {
		return n
	}
	return runtime.NumCPU()
}
