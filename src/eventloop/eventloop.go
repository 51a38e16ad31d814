package eventloop

import (
	"context"
	"fmt"
	"log"

	"screen-translate/src/config"
	"screen-translate/src/hotkey"
	"screen-translate/src/screenshot"
	"screen-translate/src/singleinstance"
	"screen-translate/src/worker"
)

// Runner is the interaction loop started by hotkeys and delegated requests.
type Runner interface {
	Run(ctx context.Context, region screenshot.Region) int
}

// Loop is the single-threaded coordinator for hotkey, tray and delegated
// start/stop requests. At most one Runner loop is alive at a time.
type Loop struct {
	runner      Runner
	slot        worker.Slot
	srv         singleinstance.Server
	port        int
	startRegion screenshot.Region

	startCh chan screenshot.Region
	stopCh  chan struct{}
	ready   chan struct{}

	// OnRunningChange is called from the loop goroutine or the worker when
	// the interaction loop starts or finishes.
	OnRunningChange func(running bool)
}

// New creates a new event loop with defaults based on config.
func New(cfg *config.Config, runner Runner) *Loop {
	l := &Loop{
		runner:      runner,
		port:        singleinstance.DefaultPort,
		startRegion: screenshot.NewRegion(500, 1000, 0, 1000),
		startCh:     make(chan screenshot.Region, 4),
		stopCh:      make(chan struct{}, 4),
		ready:       make(chan struct{}),
	}
	if cfg != nil {
		r := cfg.StartRegion
		l.startRegion = screenshot.NewRegion(r[0], r[1], r[2], r[3])
		if cfg.SingleInstancePort > 0 {
			l.port = cfg.SingleInstancePort
		}
	}
	return l
}

// BindHotkeys wires the start and stop combinations into the loop.
func (l *Loop) BindHotkeys(listener *hotkey.Listener, start, stop string) error {
	if start != "" {
		if err := listener.Bind(start, l.TriggerStart); err != nil {
			return fmt.Errorf("start hotkey: %w", err)
		}
	}
	if stop != "" {
		if err := listener.Bind(stop, l.TriggerStop); err != nil {
			return fmt.Errorf("stop hotkey: %w", err)
		}
	}
	return nil
}

// TriggerStart requests a loop over the configured start region. Safe to
// call from any goroutine; extra presses beyond the buffer are dropped.
func (l *Loop) TriggerStart() {
	select {
	case l.startCh <- l.startRegion:
	default:
	}
}

// TriggerStop cancels the running loop, if any.
func (l *Loop) TriggerStop() {
	select {
	case l.stopCh <- struct{}{}:
	default:
	}
}

// Running reports whether an interaction loop is alive.
func (l *Loop) Running() bool { return l.slot.Running() }

// Ready is closed once the resident owns its port.
func (l *Loop) Ready() <-chan struct{} { return l.ready }

// Run starts the singleinstance server and processes requests until ctx is
// cancelled. The running interaction loop is stopped on return.
func (l *Loop) Run(ctx context.Context) error {
	l.srv = singleinstance.NewServer(l.port)
	if err := l.srv.Start(ctx); err != nil {
		return err
	}
	defer l.srv.Close()
	log.Printf("Resident listening on 127.0.0.1:%d", l.srv.Port())
	close(l.ready)

	defer func() {
		l.slot.Stop()
		l.slot.Wait()
	}()

	// Accept loop in background to avoid blocking hotkey handling
	reqCh := make(chan singleinstance.Conn, 4)
	go func() {
		defer close(reqCh)
		for {
			conn, err := l.srv.Next(ctx)
			if err != nil {
				return
			}
			reqCh <- conn
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case region := <-l.startCh:
			l.start(ctx, region)
		case <-l.stopCh:
			l.stop()
		case conn, ok := <-reqCh:
			if !ok {
				return nil
			}
			l.handleConn(ctx, conn)
		}
	}
}

func (l *Loop) handleConn(ctx context.Context, conn singleinstance.Conn) {
	defer conn.Close()
	req := conn.Request()

	switch req.Command {
	case singleinstance.CommandStart:
		region := l.startRegion
		if req.Region != "" {
			r, err := config.ParseRegion(req.Region)
			if err != nil {
				_ = conn.RespondError(err.Error())
				return
			}
			region = screenshot.NewRegion(r[0], r[1], r[2], r[3])
		}
		if !l.start(ctx, region) {
			_ = conn.RespondError("busy")
			return
		}
		_ = conn.RespondSuccess("started")

	case singleinstance.CommandStop:
		l.stop()
		_ = conn.RespondSuccess("stopped")
	}
}

// start launches the interaction loop unless one is already alive.
func (l *Loop) start(ctx context.Context, region screenshot.Region) bool {
	started := l.slot.TryStart(ctx, func(ctx context.Context) {
		l.notify(true)
		defer l.notify(false)
		l.runner.Run(ctx, region)
	})
	if !started {
		log.Printf("Eventloop: start ignored, loop already running")
	}
	return started
}

func (l *Loop) stop() {
	if !l.slot.Running() {
		return
	}
	log.Printf("Eventloop: stopping interaction loop")
	l.slot.Stop()
}

func (l *Loop) notify(running bool) {
	if l.OnRunningChange != nil {
		l.OnRunningChange(running)
	}
}
