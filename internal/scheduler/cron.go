package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"perpbot/internal/logger"
)

// Job 是一次定时任务；ctx 在 Stop 时取消。
type Job func(ctx context.Context)

// CronScheduler 按 cron 表达式触发任务，同一任务不会重叠执行。
type CronScheduler struct {
	cron    *cron.Cron
	timeout time.Duration

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// NewCronScheduler 接受 5 段表达式，也接受 "@every 1h" / "@hourly" 写法；
// timeout > 0 时每次执行都带超时。
func NewCronScheduler(timeout time.Duration) *CronScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &CronScheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.DefaultLogger),
			cron.SkipIfStillRunning(cron.DefaultLogger),
		)),
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Register 注册一个命名任务。
func (s *CronScheduler) Register(name, spec string, job Job) error {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return fmt.Errorf("register %s: empty cron spec", name)
	}
	if job == nil {
		return fmt.Errorf("register %s: nil job", name)
	}
	_, err := s.cron.AddFunc(spec, func() {
		ctx := s.baseContext()
		if s.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
		start := time.Now()
		logger.Infof("[scheduler] %s: start", name)
		job(ctx)
		logger.Infof("[scheduler] %s: done in %s", name, time.Since(start).Truncate(time.Millisecond))
	})
	if err != nil {
		return fmt.Errorf("register %s: %w", name, err)
	}
	logger.Infof("[scheduler] registered %s spec=%q", name, spec)
	return nil
}

func (s *CronScheduler) baseContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// Entries 返回已注册任务数量。
func (s *CronScheduler) Entries() int { return len(s.cron.Entries()) }

// Next 返回最近一次触发时间；无任务时为零值。
func (s *CronScheduler) Next() time.Time {
	var next time.Time
	for _, e := range s.cron.Entries() {
		if next.IsZero() || (!e.Next.IsZero() && e.Next.Before(next)) {
			next = e.Next
		}
	}
	return next
}

func (s *CronScheduler) Start() {
	s.cron.Start()
	logger.Infof("[scheduler] started entries=%d", s.Entries())
}

// Run 启动调度并阻塞到 ctx 结束，然后等待进行中的任务退出。
func (s *CronScheduler) Run(ctx context.Context) error {
	s.Start()
	<-ctx.Done()
	s.Stop()
	return nil
}

// Stop 取消进行中任务的 ctx 并等待其返回。
func (s *CronScheduler) Stop() {
	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()
	<-s.cron.Stop().Done()
	logger.Infof("[scheduler] stopped")
}
