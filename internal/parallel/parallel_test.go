package parallel

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFor_VisitsEveryIndexOnce(t *testing.T) {
	tests := []struct {
		name string
		n    int
		cfg  Config
	}{
		{"parallel", 1000, Config{Workers: 4, MinWork: 0}},
		{"uneven chunks", 10, Config{Workers: 3, MinWork: 0}},
		{"more workers than items", 3, Config{Workers: 8, MinWork: 0}},
		{"inline", 100, Config{Workers: 1}},
		{"below min work", 10, Config{Workers: 4, MinWork: 1000}},
		{"empty", 0, DefaultConfig()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits := make([]int32, tt.n)
			For(tt.n, 1, func(i int) {
				atomic.AddInt32(&hits[i], 1)
			}, tt.cfg)
			for i, h := range hits {
				assert.Equal(t, int32(1), h, "index %d", i)
			}
		})
	}
}

func TestFor_CostTriggersSplit(t *testing.T) {
	cfg := Config{Workers: 4, MinWork: 1000}

	// 10 items of cost 100 reach MinWork and are split.
	var split atomic.Int32
	For(10, 100, func(int) { split.Add(1) }, cfg)
	assert.Equal(t, int32(10), split.Load())

	var inline atomic.Int32
	For(10, 1, func(int) { inline.Add(1) }, cfg)
	assert.Equal(t, int32(10), inline.Load())
}

func TestForBatch(t *testing.T) {
	batch, channels := 4, 8
	results := make([][]bool, batch)
	for b := range results {
		results[b] = make([]bool, channels)
	}

	ForBatch(batch, channels, 1<<20, func(b, c int) {
		results[b][c] = true
	}, Config{Workers: 3})

	for b := range batch {
		for c := range channels {
			assert.True(t, results[b][c], "missing result at [%d][%d]", b, c)
		}
	}
}

func BenchmarkFor(b *testing.B) {
	n := 10000
	for _, bc := range []struct {
		name string
		cfg  Config
	}{
		{"parallel", Config{Workers: DefaultConfig().Workers}},
		{"sequential", Config{Workers: 1}},
	} {
		b.Run(bc.name, func(b *testing.B) {
			for range b.N {
				var sum atomic.Int64
				For(n, 1, func(i int) { sum.Add(int64(i)) }, bc.cfg)
			}
		})
	}
}
