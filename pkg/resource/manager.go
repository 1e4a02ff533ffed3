// Package resource keeps the server inside its goroutine and memory budget
// and drains tracked goroutines on shutdown.
package resource

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/opd-ai/go-rocketsim/pkg/config"
	"github.com/opd-ai/go-rocketsim/pkg/logging"
)

// ErrBudgetExceeded is returned by Go when the goroutine budget is spent.
var ErrBudgetExceeded = fmt.Errorf("goroutine budget exceeded")

// Manager tracks goroutines by name against a budget and samples memory
// usage periodically.
type Manager struct {
	maxMemoryMB     int64
	maxGoroutines   int
	shutdownTimeout time.Duration
	checkInterval   time.Duration
	readMemory      func() int64
	logger          *logging.Logger

	mu        sync.Mutex
	byName    map[string]int
	total     int
	memoryMB  int64
	lastCheck time.Time
	running   bool
	closing   bool
	wg        sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(l *logging.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithMemoryReader replaces the runtime heap reading, in MB.
func WithMemoryReader(fn func() int64) Option {
	return func(m *Manager) { m.readMemory = fn }
}

// NewManager creates a manager from the environment limits.
func NewManager(cfg *config.EnvironmentConfig, opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		maxMemoryMB:     cfg.MaxMemoryMB,
		maxGoroutines:   cfg.MaxGoroutines,
		shutdownTimeout: cfg.ShutdownTimeout,
		checkInterval:   cfg.ResourceCheckInterval,
		readMemory:      heapMB,
		byName:          make(map[string]int),
		ctx:             ctx,
		cancel:          cancel,
		done:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = logging.NewLogger()
	}
	if m.checkInterval <= 0 {
		m.checkInterval = 10 * time.Second
	}
	return m
}

func heapMB() int64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return int64(ms.Alloc / 1024 / 1024)
}

// Start begins periodic memory sampling.
func (m *Manager) Start() error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("resource manager already running")
	}
	m.running = true
	m.mu.Unlock()

	go m.monitor()

	m.logger.Info(m.ctx, "Resource manager started",
		"max_memory_mb", m.maxMemoryMB,
		"max_goroutines", m.maxGoroutines,
		"check_interval", m.checkInterval.String(),
	)
	return nil
}

// Go runs fn in a tracked goroutine. The context passed to fn is
// cancelled when ctx is or when the manager shuts down. Panics are
// recovered and logged.
func (m *Manager) Go(ctx context.Context, name string, fn func(context.Context)) error {
	m.mu.Lock()
	if m.closing {
		m.mu.Unlock()
		return fmt.Errorf("resource manager is shutting down")
	}
	if m.maxGoroutines > 0 && m.total >= m.maxGoroutines {
		total := m.total
		m.mu.Unlock()
		m.logger.Warn(ctx, "Goroutine budget exceeded", "current", total, "limit", m.maxGoroutines, "name", name)
		return fmt.Errorf("%w: %d/%d", ErrBudgetExceeded, total, m.maxGoroutines)
	}
	m.total++
	m.byName[name]++
	m.wg.Add(1)
	m.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(m.ctx, cancel)

	go func() {
		defer m.wg.Done()
		defer m.release(name)
		defer stop()
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				m.logger.Error(ctx, "Goroutine panic", fmt.Errorf("panic: %v", r), "name", name)
			}
		}()
		fn(runCtx)
	}()
	return nil
}

func (m *Manager) release(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total--
	if m.byName[name]--; m.byName[name] <= 0 {
		delete(m.byName, name)
	}
}

// CheckMemory samples memory usage and reports whether it is over budget.
func (m *Manager) CheckMemory() error {
	mb := m.readMemory()
	m.mu.Lock()
	m.memoryMB = mb
	m.lastCheck = time.Now()
	m.mu.Unlock()

	if m.maxMemoryMB > 0 && mb > m.maxMemoryMB {
		return fmt.Errorf("memory usage %dMB exceeds limit %dMB", mb, m.maxMemoryMB)
	}
	return nil
}

// Stats is a snapshot of tracked resources.
type Stats struct {
	Goroutines    int            `json:"goroutines"`
	ByName        map[string]int `json:"by_name"`
	MaxGoroutines int            `json:"max_goroutines"`
	MemoryMB      int64          `json:"memory_mb"`
	MaxMemoryMB   int64          `json:"max_memory_mb"`
	LastCheck     time.Time      `json:"last_check"`
}

// Stats returns current usage.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	byName := make(map[string]int, len(m.byName))
	for k, v := range m.byName {
		byName[k] = v
	}
	return Stats{
		Goroutines:    m.total,
		ByName:        byName,
		MaxGoroutines: m.maxGoroutines,
		MemoryMB:      m.memoryMB,
		MaxMemoryMB:   m.maxMemoryMB,
		LastCheck:     m.lastCheck,
	}
}

// Shutdown cancels every tracked goroutine and waits for them to return,
// up to the configured shutdown timeout.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.closing {
		m.mu.Unlock()
		return nil
	}
	m.closing = true
	wasRunning := m.running
	m.running = false
	m.mu.Unlock()

	m.logger.Info(ctx, "Shutting down resource manager")
	m.cancel()

	if m.shutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.shutdownTimeout)
		defer cancel()
	}

	if wasRunning {
		select {
		case <-m.done:
		case <-ctx.Done():
			m.logger.Warn(ctx, "Resource monitoring loop did not stop gracefully")
		}
	}

	drained := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		m.logger.Info(ctx, "All tracked goroutines finished")
		return nil
	case <-ctx.Done():
		remaining := m.Stats().Goroutines
		m.logger.Warn(ctx, "Shutdown timeout exceeded with goroutines still running", "remaining", remaining)
		return fmt.Errorf("shutdown timeout: %d goroutines still running", remaining)
	}
}

func (m *Manager) monitor() {
	defer close(m.done)

	ticker := time.NewTicker(m.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := m.CheckMemory(); err != nil {
				m.logger.Error(m.ctx, "Memory limit exceeded", err)
			}
			st := m.Stats()
			m.logger.Debug(m.ctx, "Resource usage check",
				"goroutines", st.Goroutines,
				"memory_mb", st.MemoryMB,
			)
		case <-m.ctx.Done():
			return
		}
	}
}
