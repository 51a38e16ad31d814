package main

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"screen-translate/src/singleinstance"
)

func TestNewRootCmdDefaults(t *testing.T) {
	opts := &stressOptions{}
	cmd := newRootCmd(opts)
	if err := cmd.ParseFlags([]string{}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if opts.n != 50 {
		t.Fatalf("Expected default n=50, got %d", opts.n)
	}
	if opts.port != singleinstance.DefaultPort {
		t.Fatalf("Expected default port, got %d", opts.port)
	}
	if opts.deadline != 5*time.Second {
		t.Fatalf("Expected default deadline=5s, got %v", opts.deadline)
	}
	if !opts.stop {
		t.Fatal("Expected stop=true by default")
	}
}

func TestNewRootCmdCustomFlags(t *testing.T) {
	opts := &stressOptions{}
	cmd := newRootCmd(opts)
	if err := cmd.ParseFlags([]string{"--n", "3", "--region", "0,10,0,10", "--deadline", "7s", "--stop=false"}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if opts.n != 3 || opts.region != "0,10,0,10" || opts.deadline != 7*time.Second || opts.stop {
		t.Fatalf("unexpected options %+v", opts)
	}
}

// firstWins accepts the first START and reports busy afterwards.
type firstWins struct {
	mu      sync.Mutex
	started bool
	absent  bool
}

func (f *firstWins) Send(ctx context.Context, req singleinstance.Request) (bool, string, error) {
	if f.absent {
		return false, "", nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.started {
		return true, "", errors.New("resident error: busy")
	}
	f.started = true
	return true, "started", nil
}

func (f *firstWins) Detect(ctx context.Context) bool { return !f.absent }

func TestBurstCountsOneStart(t *testing.T) {
	res := burst(&firstWins{}, stressOptions{n: 20, deadline: time.Second})
	if res.ok != 1 || res.busy != 19 || res.errs != 0 || res.absent != 0 {
		t.Fatalf("unexpected result %s", res)
	}
}

func TestBurstWithoutResident(t *testing.T) {
	res := burst(&firstWins{absent: true}, stressOptions{n: 5, deadline: time.Second})
	if res.absent != 5 || res.ok != 0 {
		t.Fatalf("unexpected result %s", res)
	}
}
