package texnotes

import (
	"errors"
	"runtime"
	"sync"
	"time"
)

// Pool sizing constants.
const (
	// MinPoolSize ensures at least one worker is available.
	MinPoolSize = 1

	// MaxPoolSize caps browser instances to limit memory (~200MB each).
	MaxPoolSize = 8

	// cpuDivisor leaves headroom for Chrome child processes.
	cpuDivisor = 2
)

// ExporterPool shares Exporters across a batch. Each exporter owns its own
// browser, so n exporters print n pages in parallel. Exporters are created
// lazily on first acquire to avoid startup delay.
type ExporterPool struct {
	size      int
	timeout   time.Duration
	exporters []PageExporter
	sem       chan PageExporter
	mu        sync.Mutex
	created   int
	closed    bool
	factory   func() PageExporter
}

// NewExporterPool creates a pool with capacity for n exporters.
func NewExporterPool(n int, timeout time.Duration) *ExporterPool {
	if n < 1 {
		n = 1
	}
	p := &ExporterPool{
		size:      n,
		timeout:   timeout,
		exporters: make([]PageExporter, 0, n),
		sem:       make(chan PageExporter, n),
	}
	p.factory = func() PageExporter { return NewExporter(p.timeout) }
	return p
}

// Acquire gets an exporter from the pool, creating one if needed.
// Blocks if all exporters are in use.
func (p *ExporterPool) Acquire() PageExporter {
	select {
	case e := <-p.sem:
		return e
	default:
	}

	p.mu.Lock()
	if p.created < p.size {
		p.created++
		p.mu.Unlock()

		e := p.factory()

		p.mu.Lock()
		p.exporters = append(p.exporters, e)
		p.mu.Unlock()
		return e
	}
	p.mu.Unlock()

	return <-p.sem
}

// Release returns an exporter to the pool.
// The lock is released before sending to avoid deadlock when the channel is full.
func (p *ExporterPool) Release(e PageExporter) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	p.sem <- e
}

// Close releases all browser resources and joins their errors.
func (p *ExporterPool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.sem)
	exporters := p.exporters
	p.mu.Unlock()

	var errs []error
	for _, e := range exporters {
		if err := e.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Size returns the pool capacity.
func (p *ExporterPool) Size() int {
	return p.size
}

// ResolvePoolSize determines the pool size.
// Priority: explicit workers > GOMAXPROCS-based calculation.
func ResolvePoolSize(workers int) int {
	if workers > 0 {
		return workers
	}

	// GOMAXPROCS is adjusted by automaxprocs for containers.
	n := runtime.GOMAXPROCS(0) / cpuDivisor
	if n < MinPoolSize {
		return MinPoolSize
	}
	if n > MaxPoolSize {
		return MaxPoolSize
	}
	return n
}
