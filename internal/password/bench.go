package password

import (
	"context"
	"fmt"
	"time"
)

// BenchResult средняя длительность операций на выбранных параметрах
type BenchResult struct {
	AvgHash   time.Duration
	AvgVerify time.Duration
	Samples   int
}

// Bench замеряет n пар Hash+Verify. Используется для подбора MemoryCost/TimeCost
// под целевую задержку и как регрессионная проверка в тестах
func Bench(ctx context.Context, h *Hasher, n int) (BenchResult, error) {
	if n < 1 {
		return BenchResult{}, fmt.Errorf("%w: samples must be >= 1, got %d", ErrInvalidOption, n)
	}

	const sample = "bench-Password-1"
	var hashTotal, verifyTotal time.Duration

	for i := 0; i < n; i++ {
		start := time.Now()
		record, err := h.Hash(ctx, sample)
		if err != nil {
			return BenchResult{}, fmt.Errorf("hash sample %d: %w", i, err)
		}
		hashTotal += time.Since(start)

		start = time.Now()
		ok, err := h.Verify(ctx, sample, record)
		if err != nil {
			return BenchResult{}, fmt.Errorf("verify sample %d: %w", i, err)
		}
		if !ok {
			return BenchResult{}, fmt.Errorf("verify sample %d: record did not match", i)
		}
		verifyTotal += time.Since(start)
	}

	return BenchResult{
		AvgHash:   hashTotal / time.Duration(n),
		AvgVerify: verifyTotal / time.Duration(n),
		Samples:   n,
	}, nil
}
