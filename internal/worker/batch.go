package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

// BatchProcessor applies fn to every item on a bounded pool. When a
// limiter is set each call first waits on the URL returned by target.
type BatchProcessor[I, R any] struct {
	fn          func(ctx context.Context, item I) R
	concurrency int
	limiter     *Limiter
	target      func(item I) string
}

// NewBatchProcessor creates a processor running at most concurrency calls at once
func NewBatchProcessor[I, R any](fn func(ctx context.Context, item I) R, concurrency int) *BatchProcessor[I, R] {
	return &BatchProcessor[I, R]{fn: fn, concurrency: concurrency}
}

// WithLimiter throttles calls per host of target(item)
func (b *BatchProcessor[I, R]) WithLimiter(l *Limiter, target func(item I) string) *BatchProcessor[I, R] {
	b.limiter = l
	b.target = target
	return b
}

type indexed[R any] struct {
	i int
	r R
}

// Process runs fn over items and returns results in input order. Items not
// started before ctx is cancelled, or whose limiter wait fails, get onErr's
// result.
func (b *BatchProcessor[I, R]) Process(ctx context.Context, items []I, onErr func(item I, err error) R) []R {
	out := make([]R, len(items))
	if len(items) == 0 {
		return out
	}

	pool := NewPool[indexed[R]](ctx, b.concurrency)
	pool.Start()

	done := make([]bool, len(items))
	go func() {
		for i, item := range items {
			ok := pool.Submit(JobFunc[indexed[R]](func(ctx context.Context) indexed[R] {
				if b.limiter != nil && b.target != nil {
					if err := b.limiter.Wait(ctx, b.target(item)); err != nil {
						return indexed[R]{i: i, r: onErr(item, err)}
					}
				}
				return indexed[R]{i: i, r: b.fn(ctx, item)}
			}))
			if !ok {
				break
			}
		}
		pool.Close()
	}()

	for res := range pool.Results() {
		out[res.i] = res.r
		done[res.i] = true
	}

	for i, ok := range done {
		if !ok {
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			out[i] = onErr(items[i], err)
		}
	}
	return out
}

// ReadLines reads non-empty, non-comment lines from a file, deduplicated
// in first-seen order
func ReadLines(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var lines []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}
	return lines, nil
}
