package nihalloc

import (
	"github.com/dolthub/swiss"
	"golang.org/x/exp/slog"

	"github.com/SiwenZhang/libnih/rawheap"
)

// Allocator owns one reference graph and the heap its blocks come from.
// Objects from different Allocators must never be mixed. An Allocator is not
// safe for concurrent use.
type Allocator struct {
	logger *slog.Logger
	heap   *rawheap.Heap

	dtors    *swiss.Map[uint64, Destructor]
	nextDtor uint64
}

// Options contains optional settings when creating an Allocator. It is valid
// to leave all fields blank.
type Options struct {
	// Logger receives Debug-level traces of public operations. Defaults to
	// slog.Default.
	Logger *slog.Logger

	// Heap is the raw block source, exposed so tests can install
	// fault-injecting hooks on it before handing it over. Defaults to a
	// fresh rawheap.New.
	Heap *rawheap.Heap
}

// New creates an Allocator.
func New(options Options) *Allocator {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	heap := options.Heap
	if heap == nil {
		heap = rawheap.New()
	}

	return &Allocator{
		logger: logger,
		heap:   heap,
		dtors:  swiss.NewMap[uint64, Destructor](42),
	}
}

// Heap returns the rawheap backing this allocator.
func (a *Allocator) Heap() *rawheap.Heap {
	return a.heap
}
