package resource

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/opd-ai/go-rocketsim/pkg/config"
	"github.com/opd-ai/go-rocketsim/pkg/logging"
)

func newTestManager(maxGoroutines int, memMB int64, opts ...Option) *Manager {
	cfg := &config.EnvironmentConfig{
		MaxMemoryMB:           100,
		MaxGoroutines:         maxGoroutines,
		ShutdownTimeout:       time.Second,
		ResourceCheckInterval: 10 * time.Millisecond,
	}
	opts = append([]Option{
		WithLogger(logging.Discard()),
		WithMemoryReader(func() int64 { return memMB }),
	}, opts...)
	return NewManager(cfg, opts...)
}

func TestManager_Go_Budget(t *testing.T) {
	m := newTestManager(3, 10)
	defer m.Shutdown(context.Background())

	release := make(chan struct{})
	for i := 0; i < 3; i++ {
		if err := m.Go(context.Background(), "session", func(ctx context.Context) { <-release }); err != nil {
			t.Fatalf("Go() %d error = %v", i, err)
		}
	}

	err := m.Go(context.Background(), "extra", func(ctx context.Context) {})
	if !errors.Is(err, ErrBudgetExceeded) {
		t.Errorf("Go() over budget error = %v, want ErrBudgetExceeded", err)
	}

	st := m.Stats()
	if st.Goroutines != 3 || st.ByName["session"] != 3 {
		t.Errorf("Stats() = %+v, want 3 session goroutines", st)
	}

	close(release)
	deadline := time.Now().Add(time.Second)
	for m.Stats().Goroutines != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if st := m.Stats(); st.Goroutines != 0 || len(st.ByName) != 0 {
		t.Errorf("Stats() after release = %+v, want empty", st)
	}
}

func TestManager_Go_RecoversPanic(t *testing.T) {
	m := newTestManager(2, 10)
	done := make(chan struct{})
	err := m.Go(context.Background(), "boom", func(ctx context.Context) {
		defer close(done)
		panic("boom")
	})
	if err != nil {
		t.Fatalf("Go() error = %v", err)
	}
	<-done
	if err := m.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestManager_ShutdownCancelsGoroutines(t *testing.T) {
	m := newTestManager(10, 10)
	if err := m.Start(); err != nil {
		t.Fatal(err)
	}
	if err := m.Start(); err == nil {
		t.Error("second Start() should fail")
	}

	var stopped atomic.Int32
	for i := 0; i < 4; i++ {
		m.Go(context.Background(), "loop", func(ctx context.Context) {
			<-ctx.Done()
			stopped.Add(1)
		})
	}

	if err := m.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if got := stopped.Load(); got != 4 {
		t.Errorf("stopped = %d, want 4", got)
	}
	if err := m.Go(context.Background(), "late", func(ctx context.Context) {}); err == nil {
		t.Error("Go() after shutdown should fail")
	}
	if err := m.Shutdown(context.Background()); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}
}

func TestManager_ShutdownTimeout(t *testing.T) {
	cfg := &config.EnvironmentConfig{
		MaxGoroutines:         2,
		ShutdownTimeout:       50 * time.Millisecond,
		ResourceCheckInterval: time.Second,
	}
	m := NewManager(cfg, WithLogger(logging.Discard()))

	stuck := make(chan struct{})
	defer close(stuck)
	m.Go(context.Background(), "stuck", func(ctx context.Context) { <-stuck })

	if err := m.Shutdown(context.Background()); err == nil {
		t.Error("Shutdown() should time out with a stuck goroutine")
	}
}

func TestManager_CheckMemory(t *testing.T) {
	tests := []struct {
		name    string
		usage   int64
		wantErr bool
	}{
		{"under", 50, false},
		{"at_limit", 100, false},
		{"over", 101, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(1, tt.usage)
			err := m.CheckMemory()
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckMemory() error = %v, wantErr %v", err, tt.wantErr)
			}
			st := m.Stats()
			if st.MemoryMB != tt.usage || st.LastCheck.IsZero() {
				t.Errorf("Stats() = %+v", st)
			}
		})
	}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		memory     int64
		goroutines int
		wantErr    bool
	}{
		{"healthy", 10, 1, false},
		{"memory_over", 200, 0, true},
		{"goroutines_over_threshold", 10, 9, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(10, tt.memory)
			release := make(chan struct{})
			var wg sync.WaitGroup
			for i := 0; i < tt.goroutines; i++ {
				wg.Add(1)
				m.Go(context.Background(), "w", func(ctx context.Context) {
					defer wg.Done()
					<-release
				})
			}

			check := NewHealthCheck(m)
			if check.Name() != "resource" {
				t.Errorf("Name() = %q", check.Name())
			}
			err := check.Check(context.Background())
			close(release)
			wg.Wait()
			if (err != nil) != tt.wantErr {
				t.Errorf("Check() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
