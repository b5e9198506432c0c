// Package reflow 把 justify 接到宿主上：宿主每次布局变化时提交一次重排，
// 同一个输出目标在任意时刻最多只有一个进行中的计算，旧结果不会覆盖新结果。
package reflow

import (
	"context"
	"sync"

	"github.com/ByLCY/justext/justify"
)

// Result 是投递给宿主的一次重排结果。
type Result struct {
	Target     string
	Generation uint64
	Budget     float64
	Text       string
	Lines      []justify.Line
}

// Scheduler 在后台 goroutine 中执行重排，并按目标维护代数。
type Scheduler struct {
	j *justify.Justifier

	mu      sync.Mutex
	targets map[string]*slot
	wg      sync.WaitGroup
	closed  bool
}

type slot struct {
	gen    uint64
	cancel context.CancelFunc
}

// NewScheduler 使用给定的 Justifier 创建调度器。
func NewScheduler(j *justify.Justifier) *Scheduler {
	return &Scheduler{j: j, targets: map[string]*slot{}}
}

// Submit 为 target 提交一次重排。前置条件不满足（宽度非正、文本为空）或调度器已关闭时
// 不做任何事并返回 false。若该 target 仍有进行中的计算，它会被取消；
// deliver 只会收到该 target 最新一代的结果；它在调度器的锁内被调用，不能同步回调 Scheduler。
func (s *Scheduler) Submit(ctx context.Context, target, text string, budget float64, deliver func(Result)) bool {
	return s.SubmitWith(ctx, target, s.j, text, budget, deliver)
}

// SubmitWith 与 Submit 相同，但本次计算使用 j（例如换了种子或细空格）。
func (s *Scheduler) SubmitWith(ctx context.Context, target string, j *justify.Justifier, text string, budget float64, deliver func(Result)) bool {
	if justify.Skip(text, budget) {
		return false
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	sl, ok := s.targets[target]
	if !ok {
		sl = &slot{}
		s.targets[target] = sl
	}
	if sl.cancel != nil {
		sl.cancel()
	}
	sl.gen++
	gen := sl.gen
	jobCtx, cancel := context.WithCancel(ctx)
	sl.cancel = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer cancel()
		lines, err := j.LinesContext(jobCtx, text, budget)
		if err != nil {
			return
		}
		res := Result{
			Target:     target,
			Generation: gen,
			Budget:     budget,
			Text:       justify.Join(lines),
			Lines:      lines,
		}
		// 投递与代数检查在同一把锁内完成，保证较旧的结果不会在较新的之后送达。
		s.mu.Lock()
		defer s.mu.Unlock()
		if cur, ok := s.targets[target]; !ok || cur.gen != gen || jobCtx.Err() != nil {
			return
		}
		s.targets[target].cancel = nil
		deliver(res)
	}()
	return true
}

// Generation 返回 target 当前的代数，从未提交过时为 0。
func (s *Scheduler) Generation(target string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sl, ok := s.targets[target]; ok {
		return sl.gen
	}
	return 0
}

// Forget 取消并移除 target，之后它的进行中结果都不会再投递。
func (s *Scheduler) Forget(target string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sl, ok := s.targets[target]; ok {
		if sl.cancel != nil {
			sl.cancel()
		}
		delete(s.targets, target)
	}
}

// Wait 阻塞直到所有已提交的计算结束。
func (s *Scheduler) Wait() { s.wg.Wait() }

// Close 取消全部进行中的计算并拒绝后续提交。
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	for name, sl := range s.targets {
		if sl.cancel != nil {
			sl.cancel()
		}
		delete(s.targets, name)
	}
	s.mu.Unlock()
	s.wg.Wait()
}
