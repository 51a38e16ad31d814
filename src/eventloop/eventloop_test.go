package eventloop

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"screen-translate/src/config"
	"screen-translate/src/screenshot"
	"screen-translate/src/singleinstance"
)

type blockingRunner struct {
	mu      sync.Mutex
	regions []screenshot.Region
	started chan struct{}
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{started: make(chan struct{}, 8)}
}

func (r *blockingRunner) Run(ctx context.Context, region screenshot.Region) int {
	r.mu.Lock()
	r.regions = append(r.regions, region)
	r.mu.Unlock()
	r.started <- struct{}{}
	<-ctx.Done()
	return 0
}

func (r *blockingRunner) runs() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.regions)
}

func freePort(t *testing.T) int {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("loopback unavailable: %v", err)
	}
	port := lis.Addr().(*net.TCPAddr).Port
	lis.Close()
	return port
}

func startLoop(t *testing.T, runner Runner) (*Loop, int, context.CancelFunc) {
	t.Helper()
	port := freePort(t)
	cfg := &config.Config{StartRegion: [4]int{500, 1000, 0, 1000}, SingleInstancePort: port}
	l := New(cfg, runner)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()

	select {
	case <-l.Ready():
	case err := <-errCh:
		cancel()
		t.Skipf("resident could not start: %v", err)
	case <-time.After(3 * time.Second):
		cancel()
		t.Fatal("resident did not become ready")
	}
	t.Cleanup(func() {
		cancel()
		<-errCh
	})
	return l, port, cancel
}

func waitStarted(t *testing.T, r *blockingRunner) {
	t.Helper()
	select {
	case <-r.started:
	case <-time.After(3 * time.Second):
		t.Fatal("interaction loop did not start")
	}
}

func TestDoubleTriggerStartsOneLoop(t *testing.T) {
	r := newBlockingRunner()
	l, _, _ := startLoop(t, r)

	l.TriggerStart()
	waitStarted(t, r)
	l.TriggerStart()

	// Let the loop goroutine consume the second trigger.
	time.Sleep(100 * time.Millisecond)
	if n := r.runs(); n != 1 {
		t.Fatalf("runs = %d, want 1", n)
	}
	if !l.Running() {
		t.Error("loop should still be running")
	}
	if r.regions[0] != screenshot.NewRegion(500, 1000, 0, 1000) {
		t.Errorf("started with %s", r.regions[0])
	}
}

func TestStopThenStartAgain(t *testing.T) {
	r := newBlockingRunner()
	l, _, _ := startLoop(t, r)

	var mu sync.Mutex
	var changes []bool
	l.OnRunningChange = func(running bool) {
		mu.Lock()
		changes = append(changes, running)
		mu.Unlock()
	}

	l.TriggerStart()
	waitStarted(t, r)
	l.TriggerStop()

	deadline := time.Now().Add(3 * time.Second)
	for l.Running() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if l.Running() {
		t.Fatal("loop did not stop")
	}

	l.TriggerStart()
	waitStarted(t, r)
	if n := r.runs(); n != 2 {
		t.Errorf("runs = %d, want 2", n)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(changes) < 2 || !changes[0] || changes[1] {
		t.Errorf("running changes = %v", changes)
	}
}

func TestDelegatedStartAndBusy(t *testing.T) {
	r := newBlockingRunner()
	_, port, _ := startLoop(t, r)
	client := singleinstance.NewClient(port)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	delegated, err := singleinstance.TryStart(ctx, client, "10,110,20,220")
	if !delegated || err != nil {
		t.Fatalf("first start: delegated=%v err=%v", delegated, err)
	}
	waitStarted(t, r)
	if r.regions[0] != screenshot.NewRegion(10, 110, 20, 220) {
		t.Errorf("delegated region = %s", r.regions[0])
	}

	delegated, err = singleinstance.TryStart(ctx, client, "")
	if !delegated || err == nil || err.Error() != "busy" {
		t.Errorf("second start: delegated=%v err=%v, want busy", delegated, err)
	}

	_, reply, err := client.Send(ctx, singleinstance.Request{Command: singleinstance.CommandStop})
	if err != nil || reply != "stopped" {
		t.Errorf("stop: reply=%q err=%v", reply, err)
	}
}

func TestDelegatedStartBadRegion(t *testing.T) {
	r := newBlockingRunner()
	_, port, _ := startLoop(t, r)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	delegated, err := singleinstance.TryStart(ctx, singleinstance.NewClient(port), "1,2,3")
	if !delegated || err == nil {
		t.Errorf("delegated=%v err=%v, want a region error", delegated, err)
	}
	if r.runs() != 0 {
		t.Error("loop started for a bad region")
	}
}
