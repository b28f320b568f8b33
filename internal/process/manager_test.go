package process

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// waitDone fails the test if the process has not exited within d.
func waitDone(t *testing.T, m *Manager, d time.Duration) {
	t.Helper()
	select {
	case <-m.Done():
	case <-time.After(d):
		t.Fatalf("process %s did not exit within %v", m.Name(), d)
	}
}

func TestNewManager_Defaults(t *testing.T) {
	m := NewManager(Config{Name: "relay", Binary: "/usr/sbin/mosquitto"})

	if m.config.GracefulTimeout != defaultGracefulTimeout {
		t.Errorf("GracefulTimeout = %v, want %v", m.config.GracefulTimeout, defaultGracefulTimeout)
	}
	if m.Name() != "relay" {
		t.Errorf("Name() = %q, want %q", m.Name(), "relay")
	}
}

func TestManager_InitialState(t *testing.T) {
	m := NewManager(Config{Name: "test", Binary: "/bin/true"})

	if m.Status() != StatusStopped {
		t.Errorf("initial Status() = %q, want %q", m.Status(), StatusStopped)
	}
	if m.IsRunning() {
		t.Error("IsRunning() = true, want false")
	}
	if m.PID() != 0 {
		t.Errorf("PID() = %d, want 0", m.PID())
	}
	if m.Uptime() != 0 {
		t.Errorf("Uptime() = %v, want 0", m.Uptime())
	}
	if m.LastError() != nil {
		t.Errorf("LastError() = %v, want nil", m.LastError())
	}
}

func TestManager_StopWhenNotRunning(t *testing.T) {
	m := NewManager(Config{Name: "test", Binary: "/bin/true"})

	if err := m.Stop(); err != nil {
		t.Errorf("Stop() on stopped process error = %v, want nil", err)
	}
}

func TestManager_StartAndStop(t *testing.T) {
	var startedPID atomic.Int64
	var exitErr atomic.Value

	m := NewManager(Config{
		Name:            "test-sleep",
		Binary:          "/bin/sleep",
		Args:            []string{"60"},
		GracefulTimeout: 2 * time.Second,
		OnStart:         func(pid int) { startedPID.Store(int64(pid)) },
		OnExit: func(err error) {
			exitErr.Store(errBox{err})
		},
	})

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	if !m.IsRunning() {
		t.Error("IsRunning() = false after Start()")
	}
	if m.PID() == 0 {
		t.Error("PID() = 0 after Start()")
	}
	if int64(m.PID()) != startedPID.Load() {
		t.Errorf("OnStart pid = %d, want %d", startedPID.Load(), m.PID())
	}
	if m.Uptime() <= 0 {
		t.Errorf("Uptime() = %v while running, want > 0", m.Uptime())
	}

	if err := m.Stop(); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	waitDone(t, m, time.Second)

	if m.Status() != StatusStopped {
		t.Errorf("Status() = %q after Stop(), want %q", m.Status(), StatusStopped)
	}
	if m.Uptime() != 0 {
		t.Errorf("Uptime() = %v after Stop(), want 0", m.Uptime())
	}
	if m.LastError() != nil {
		t.Errorf("LastError() = %v after requested stop, want nil", m.LastError())
	}
	if box, ok := exitErr.Load().(errBox); !ok || box.err != nil {
		t.Errorf("OnExit error = %v, want nil", box.err)
	}
}

type errBox struct{ err error }

func TestManager_StartTwice(t *testing.T) {
	m := NewManager(Config{
		Name:   "test",
		Binary: "/bin/sleep",
		Args:   []string{"10"},
	})

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("first Start() error: %v", err)
	}
	defer m.Stop() //nolint:errcheck // test cleanup

	if err := m.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start() error = %v, want ErrAlreadyStarted", err)
	}
}

func TestManager_StartWithInvalidBinary(t *testing.T) {
	m := NewManager(Config{
		Name:   "bad-binary",
		Binary: "/nonexistent/binary",
	})

	err := m.Start(context.Background())
	if !errors.Is(err, ErrStartFailed) {
		t.Fatalf("Start() error = %v, want ErrStartFailed", err)
	}
	if m.Status() != StatusFailed {
		t.Errorf("Status() = %q, want %q", m.Status(), StatusFailed)
	}
	waitDone(t, m, time.Second)
}

func TestManager_UnexpectedExit(t *testing.T) {
	m := NewManager(Config{Name: "short", Binary: "/bin/true"})

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	waitDone(t, m, 5*time.Second)

	if m.Status() != StatusFailed {
		t.Errorf("Status() = %q, want %q", m.Status(), StatusFailed)
	}
	if !errors.Is(m.LastError(), ErrExited) {
		t.Errorf("LastError() = %v, want ErrExited", m.LastError())
	}
	if m.IsRunning() {
		t.Error("IsRunning() = true after exit")
	}
}

func TestManager_ContextCancelStops(t *testing.T) {
	m := NewManager(Config{
		Name:            "ctx-sleep",
		Binary:          "/bin/sleep",
		Args:            []string{"60"},
		GracefulTimeout: time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	cancel()
	waitDone(t, m, 5*time.Second)

	if m.Status() != StatusStopped {
		t.Errorf("Status() = %q after cancel, want %q", m.Status(), StatusStopped)
	}
}

func TestManager_StopEscalatesToKill(t *testing.T) {
	m := NewManager(Config{
		Name:            "stubborn",
		Binary:          "/bin/sh",
		Args:            []string{"-c", `trap "" TERM; sleep 60`},
		GracefulTimeout: 200 * time.Millisecond,
	})

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	// Give the shell time to install its trap.
	time.Sleep(100 * time.Millisecond)

	start := time.Now()
	if err := m.Stop(); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 200*time.Millisecond {
		t.Errorf("Stop() returned after %v, want at least the graceful timeout", elapsed)
	}
	if m.IsRunning() {
		t.Error("IsRunning() = true after Stop()")
	}
}
