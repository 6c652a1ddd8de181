// Package probe measures the peak heap growth of a call.
package probe

import (
	"runtime"
	"runtime/metrics"
	"sync"
	"time"
)

const heapObjects = "/memory/classes/heap/objects:bytes"

// DefaultInterval is the sampling period used by Start.
const DefaultInterval = time.Millisecond

// Probe samples live heap bytes in the background between Start and Stop.
type Probe struct {
	baseline uint64
	peak     uint64

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// Start collects garbage, records the baseline and begins sampling.
func Start(interval time.Duration) *Probe {
	runtime.GC()
	p := &Probe{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	p.baseline = read()
	p.peak = p.baseline

	go func() {
		defer close(p.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-p.stop:
				return
			case <-ticker.C:
				p.sample()
			}
		}
	}()
	return p
}

// Stop ends sampling and returns the peak heap growth over the baseline in bytes.
func (p *Probe) Stop() uint64 {
	close(p.stop)
	<-p.done
	p.sample()

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.peak - p.baseline
}

func (p *Probe) sample() {
	v := read()
	p.mu.Lock()
	if v > p.peak {
		p.peak = v
	}
	p.mu.Unlock()
}

func read() uint64 {
	s := []metrics.Sample{{Name: heapObjects}}
	metrics.Read(s)
	if s[0].Value.Kind() != metrics.KindUint64 {
		return 0
	}
	return s[0].Value.Uint64()
}

// Measure runs fn under a probe and returns its peak heap growth.
func Measure(fn func() error) (uint64, error) {
	p := Start(DefaultInterval)
	err := fn()
	return p.Stop(), err
}
