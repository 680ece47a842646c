package ui

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/term"
)

// RawMode wraps golang.org/x/term's raw-mode control of stdin with a
// single cross-platform implementation rather than per-OS termios
// ioctl code. It satisfies mediator.RawModeController so the
// mediator can drop out of raw mode while it prints an approval prompt
// and restore it afterward.
type RawMode struct {
	mu      sync.Mutex
	fd      int
	state   *term.State
	enabled bool
}

// NewRawMode constructs a controller for stdin. If stdin is not a
// terminal, Pause/Resume become no-ops.
func NewRawMode() *RawMode {
	return &RawMode{fd: int(os.Stdin.Fd())}
}

// Enable puts the terminal into raw mode for per-keystroke reads
// (interrupt double-tap detection, paste handling).
func (r *RawMode) Enable() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.enabled || !term.IsTerminal(r.fd) {
		return nil
	}
	state, err := term.MakeRaw(r.fd)
	if err != nil {
		return err
	}
	r.state = state
	r.enabled = true
	return nil
}

// Disable restores the terminal's original mode.
func (r *RawMode) Disable() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.enabled || r.state == nil {
		return nil
	}
	err := term.Restore(r.fd, r.state)
	r.enabled = false
	r.state = nil
	return err
}

// Pause implements mediator.RawModeController: temporarily drop raw
// mode so the approval prompt can use normal line-buffered input.
func (r *RawMode) Pause() {
	_ = r.Disable()
}

// Resume implements mediator.RawModeController: re-enter raw mode after
// an approval prompt completes.
func (r *RawMode) Resume() {
	_ = r.Enable()
}

// doubleTapWindow is how long a second Ctrl+C must follow the first to
// count as a double-tap rather than two unrelated taps.
const doubleTapWindow = 500 * time.Millisecond

// Interrupter listens for Ctrl+C (SIGINT), treating the first tap as
// "interrupt the current run" and a tap repeated within doubleTapWindow
// as "quit the program". It reads no keystrokes, so Esc is not detected.
type Interrupter struct {
	Interrupt chan struct{} // fires once per single tap
	Quit      chan struct{} // fires once on a double tap

	sigCh    chan os.Signal
	raw      *RawMode
	cancel   context.CancelFunc
	lastTap  time.Time
	mu       sync.Mutex
	stopOnce sync.Once
}

// NewInterrupter installs a SIGINT handler. raw is kept on the
// Interrupter, but no key listener is started from it.
func NewInterrupter(raw *RawMode) *Interrupter {
	in := &Interrupter{
		Interrupt: make(chan struct{}, 1),
		Quit:      make(chan struct{}, 1),
		sigCh:     make(chan os.Signal, 1),
		raw:       raw,
	}
	signal.Notify(in.sigCh, syscall.SIGINT)

	ctx, cancel := context.WithCancel(context.Background())
	in.cancel = cancel
	go in.watchSignals(ctx)
	return in
}

func (in *Interrupter) watchSignals(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-in.sigCh:
			in.tap()
		}
	}
}

func (in *Interrupter) tap() {
	in.mu.Lock()
	now := time.Now()
	double := !in.lastTap.IsZero() && now.Sub(in.lastTap) < doubleTapWindow
	in.lastTap = now
	in.mu.Unlock()

	if double {
		select {
		case in.Quit <- struct{}{}:
		default:
		}
		return
	}
	select {
	case in.Interrupt <- struct{}{}:
	default:
	}
}

// Stop tears down the signal handler. Safe to call multiple times.
func (in *Interrupter) Stop() {
	in.stopOnce.Do(func() {
		signal.Stop(in.sigCh)
		in.cancel()
	})
}

// Pause is a no-op kept for symmetry with RawMode's controller shape;
// the signal channel stays registered regardless of raw-mode state.
func (in *Interrupter) Pause() {}

// Resume is a no-op kept for symmetry with RawMode's controller shape.
func (in *Interrupter) Resume() {}
