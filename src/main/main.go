package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"screen-translate/src/config"
	"screen-translate/src/eventloop"
	"screen-translate/src/hotkey"
	"screen-translate/src/logutil"
	"screen-translate/src/notification"
	"screen-translate/src/runtimeinit"
	"screen-translate/src/screenshot"
	"screen-translate/src/singleinstance"
	"screen-translate/src/tray"
)

type mainOptions struct {
	runOnce    bool
	region     string
	apiKeyPath string
	offline    bool
}

func main() {
	// Ensure DPI awareness before creating any windows or querying metrics
	enableDPIAwareness()

	// systray and the display window both need a stable OS thread.
	runtime.LockOSThread()

	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(normalizeLegacyArgs(os.Args)[1:])
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(opts *mainOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "screen-translate",
		Short:         "Translate Japanese text on screen and overlay the result",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.runOnce {
				return runOnceCommand(*opts)
			}
			return runResident(*opts)
		},
	}

	cmd.Flags().BoolVar(&opts.runOnce, "run-once", false, "Start one interaction loop (delegated to a resident when present) and exit when it ends")
	cmd.Flags().StringVar(&opts.region, "region", "", "Start region as x1,x2,y1,y2 (overrides START_REGION)")
	cmd.Flags().StringVar(&opts.apiKeyPath, "api-key-path", "", "Path to API key file (highest precedence)")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "Skip the online service and translate with local models only")

	return cmd
}

// normalizeLegacyArgs maps single-dash long flags to their GNU form.
func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return []string{"screen-translate"}
	}

	normalized := make([]string, len(args))
	copy(normalized, args)

	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range []string{"run-once", "region", "api-key-path", "offline"} {
			single := "-" + name
			if arg == single || strings.HasPrefix(arg, single+"=") {
				normalized[i] = "-" + arg
				break
			}
		}
	}

	return normalized
}

func loadOptions(opts mainOptions) config.LoadOptions {
	return config.LoadOptions{
		APIKeyPathOverride:  opts.apiKeyPath,
		StartRegionOverride: opts.region,
		ForceOffline:        opts.offline,
	}
}

func runOnceCommand(opts mainOptions) error {
	// Load .env early so SINGLEINSTANCE_PORT is applied before delegation
	cfg, err := config.LoadWithOptions(loadOptions(opts))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	client := singleinstance.NewClient(cfg.SingleInstancePort)
	handleRunOnceWithDelegation(opts.region, client, func() {
		if err := runStandalone(opts); err != nil {
			log.Printf("Standalone run failed: %v", err)
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
	})
	return nil
}

// handleRunOnceWithDelegation asks a resident to start its loop and falls
// back to a standalone loop when none answers.
func handleRunOnceWithDelegation(region string, client singleinstance.Client, fallback func()) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	delegated, err := singleinstance.TryStart(ctx, client, region)
	if err != nil {
		if delegated {
			// The resident answered; its loop is already running.
			log.Printf("Resident refused start: %v", err)
			return
		}
		log.Printf("Delegation error: %v; falling back to standalone", err)
		fallback()
		return
	}
	if delegated {
		log.Printf("Delegated to resident")
		return
	}
	log.Printf("No resident detected (not delegated), running standalone")
	fallback()
}

func runStandalone(opts mainOptions) error {
	cfg, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions:  loadOptions(opts),
		SetupLogging: logutil.Setup,
	})
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	region, err := startRegion(cfg)
	if err != nil {
		return err
	}
	cycles := runtimeinit.NewPipeline(cfg).Run(ctx, region)
	log.Printf("Standalone loop finished after %d cycles", cycles)
	return nil
}

func runResident(opts mainOptions) error {
	// Load .env early so SINGLEINSTANCE_PORT is available for pre-flight
	early, err := config.LoadWithOptions(loadOptions(opts))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := preflight(early.SingleInstancePort); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	cfg, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions:  loadOptions(opts),
		SetupLogging: logutil.Setup,
	})
	if err != nil {
		notification.ShowBlockingError("Screen Translate", fmt.Sprintf("Startup failed: %v", err))
		return err
	}
	logMonitorConfiguration()

	region, err := startRegion(cfg)
	if err != nil {
		notification.ShowBlockingError("Screen Translate", err.Error())
		return err
	}
	cfg.StartRegion = [4]int{region.X1.Value, region.X2.Value, region.Y1.Value, region.Y2.Value}

	log.Printf("Screen Translate initialized")
	log.Printf("Target language: %s, OCR backend: %s", cfg.TargetLanguage, cfg.OCRBackend)
	log.Printf("Hotkeys: start=%s stop=%s", cfg.Hotkey, cfg.StopHotkey)

	ctx, cancel := signalContext()
	defer cancel()

	loop := eventloop.New(cfg, runtimeinit.NewPipeline(cfg))
	idle := fmt.Sprintf("Screen Translate - Press %s to start", cfg.Hotkey)
	loop.OnRunningChange = func(running bool) {
		if running {
			tray.UpdateTooltip(fmt.Sprintf("Screen Translate - running, %s to stop", cfg.StopHotkey))
			return
		}
		tray.UpdateTooltip(idle)
	}

	listener := hotkey.New()
	if err := loop.BindHotkeys(listener, cfg.Hotkey, cfg.StopHotkey); err != nil {
		return err
	}
	listener.Start()
	defer listener.Stop()

	done := make(chan error, 1)
	go func() {
		done <- loop.Run(ctx)
		tray.Quit()
	}()

	select {
	case <-loop.Ready():
	case err := <-done:
		notification.ShowBlockingError("Screen Translate", fmt.Sprintf("Resident failed to start: %v", err))
		return err
	}

	tray.Run(tray.Config{
		Title:   "Screen Translate",
		Tooltip: idle,
		OnStart: loop.TriggerStart,
		OnStop:  loop.TriggerStop,
		OnExit:  cancel,
	})

	cancel()
	if err := <-done; err != nil && err != context.Canceled {
		log.Printf("event loop stopped: %v", err)
	}
	return nil
}

// startRegion returns the configured start region clamped to the desktop.
func startRegion(cfg *config.Config) (screenshot.Region, error) {
	r := cfg.StartRegion
	region, err := screenshot.FitToDisplay(screenshot.NewRegion(r[0], r[1], r[2], r[3]))
	if err != nil {
		return screenshot.NullRegion(), fmt.Errorf("invalid start region: %w", err)
	}
	return region, nil
}

// preflight fails when another resident already owns port.
func preflight(port int) error {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		log.Printf("Pre-flight: port %d busy, resident already exists", port)
		return fmt.Errorf("one is already running on port %d", port)
	}
	// Release it so the event loop can re-bind.
	_ = lis.Close()
	log.Printf("Pre-flight: port %d free", port)
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
