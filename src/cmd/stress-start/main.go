package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"screen-translate/src/singleinstance"
)

type stressOptions struct {
	n        int
	port     int
	region   string
	deadline time.Duration
	stop     bool
}

type stressResult struct {
	launched int
	ok       int32
	busy     int32
	absent   int32
	errs     int32
}

func (r stressResult) String() string {
	return fmt.Sprintf("launched=%d ok=%d busy=%d absent=%d err=%d", r.launched, r.ok, r.busy, r.absent, r.errs)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	opts := &stressOptions{}
	cmd := newRootCmd(opts)
	return cmd.Execute()
}

func newRootCmd(opts *stressOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stress-start",
		Short:         "Stress test delegated START requests against a resident",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithOptions(*opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVar(&opts.n, "n", 50, "number of clients to launch")
	cmd.Flags().IntVar(&opts.port, "port", singleinstance.DefaultPort, "resident port")
	cmd.Flags().StringVar(&opts.region, "region", "", "region sent with START (x1,x2,y1,y2)")
	cmd.Flags().DurationVar(&opts.deadline, "deadline", 5*time.Second, "per-client timeout")
	cmd.Flags().BoolVar(&opts.stop, "stop", true, "send STOP after the burst")

	return cmd
}

func runWithOptions(opts stressOptions, out io.Writer) error {
	client := singleinstance.NewClient(opts.port)
	start := time.Now()
	res := burst(client, opts)
	fmt.Fprintf(out, "%s elapsed=%s\n", res, time.Since(start))

	if opts.stop {
		ctx, cancel := context.WithTimeout(context.Background(), opts.deadline)
		defer cancel()
		if _, _, err := client.Send(ctx, singleinstance.Request{Command: singleinstance.CommandStop}); err != nil {
			return fmt.Errorf("stop failed: %w", err)
		}
	}
	return nil
}

// burst fires opts.n concurrent START requests. A resident accepts exactly
// one while its loop is running and answers busy to the rest.
func burst(client singleinstance.Client, opts stressOptions) stressResult {
	var wg sync.WaitGroup
	res := stressResult{launched: opts.n}

	for i := 0; i < opts.n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), opts.deadline)
			defer cancel()
			delegated, err := singleinstance.TryStart(ctx, client, opts.region)
			switch {
			case err != nil && strings.Contains(strings.ToLower(err.Error()), "busy"):
				atomic.AddInt32(&res.busy, 1)
			case err != nil:
				atomic.AddInt32(&res.errs, 1)
			case delegated:
				atomic.AddInt32(&res.ok, 1)
			default:
				atomic.AddInt32(&res.absent, 1)
			}
		}()
	}
	wg.Wait()
	return res
}
