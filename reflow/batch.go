package reflow

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/ByLCY/justext/justify"
)

// Job 是一段独立排版的文本。
type Job struct {
	Name      string
	Text      string
	Budget    float64
	Justifier *justify.Justifier
}

// ComputeFunc 计算一个 Job 的行，可被替换为带缓存的实现。
type ComputeFunc func(ctx context.Context, job Job) ([]justify.Line, error)

// Compute 直接调用 Job 的 Justifier。
func Compute(ctx context.Context, job Job) ([]justify.Line, error) {
	if job.Justifier == nil {
		return nil, fmt.Errorf("reflow: job %q missing justifier", job.Name)
	}
	return job.Justifier.LinesContext(ctx, job.Text, job.Budget)
}

// Batch 并发计算 jobs，结果顺序与 jobs 一致。limit <= 0 时使用 GOMAXPROCS。
func Batch(ctx context.Context, jobs []Job, limit int) ([][]justify.Line, error) {
	return BatchWith(ctx, jobs, limit, Compute)
}

// BatchWith 与 Batch 相同，但使用自定义的 compute。
func BatchWith(ctx context.Context, jobs []Job, limit int, compute ComputeFunc) ([][]justify.Line, error) {
	if len(jobs) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	results := make([][]justify.Line, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(limit, len(jobs)))
	for i, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			lines, err := compute(gctx, job)
			if err != nil {
				return fmt.Errorf("reflow: %s: %w", job.Name, err)
			}
			results[i] = lines
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
