// Package parallel runs independent loop iterations on a bounded number of
// goroutines.
package parallel

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Config controls how loops are split.
type Config struct {
	Workers int // Goroutines per loop; 1 or less runs inline.
	MinWork int // Minimum total work (iterations × cost) before splitting.
}

// DefaultConfig uses one worker per schedulable CPU.
func DefaultConfig() Config {
	return Config{
		Workers: runtime.GOMAXPROCS(0),
		MinWork: 1 << 15,
	}
}

// For calls f(i) for every i in [0, n).
//
// cost estimates the work of a single call (roughly, multiply-adds). Loops
// whose total work is below cfg.MinWork run on the calling goroutine.
// Calls for different i must not write to shared memory.
func For(n, cost int, f func(i int), cfg Config) {
	workers := min(cfg.Workers, n)
	if workers <= 1 || n*max(cost, 1) < cfg.MinWork {
		for i := range n {
			f(i)
		}
		return
	}

	chunk := (n + workers - 1) / workers
	var g errgroup.Group
	g.SetLimit(workers)
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		g.Go(func() error {
			for i := start; i < end; i++ {
				f(i)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// ForBatch calls f(b, c) for every sample b in [0, batch) and channel c in
// [0, channels), the iteration pattern of convolution and pooling.
func ForBatch(batch, channels, cost int, f func(b, c int), cfg Config) {
	For(batch*channels, cost, func(k int) {
		f(k/channels, k%channels)
	}, cfg)
}
