package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"screen-translate/src/clipboard"
	"screen-translate/src/config"
	"screen-translate/src/logutil"
	"screen-translate/src/ocr"
	"screen-translate/src/preview"
	"screen-translate/src/runtimeinit"
)

const (
	maxFileSizeMB = 10
	maxFileSize   = maxFileSizeMB * 1024 * 1024
)

var (
	pngMagic  = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}
	jpegMagic = []byte{0xff, 0xd8, 0xff}
)

type cliOptions struct {
	filePath   string
	outPath    string
	jsonOutput bool
	verbose    bool
	preview    bool
	offline    bool
	apiKeyPath string
}

// processor is satisfied by *pipeline.Pipeline.
type processor interface {
	Process(ctx context.Context, img image.Image) (*image.RGBA, []ocr.Detection, error)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return runWithArgs(normalizeLegacyArgs(os.Args))
}

func runWithArgs(args []string) error {
	if len(args) == 0 {
		args = []string{"translate-tool"}
	}

	opts := &cliOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "translate-tool",
		Short:         "Translate text in images and overlay the captions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.outPath, "out", "", "Write the composited PNG here")
	cmd.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "Output detections as JSON")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output to stderr")
	cmd.PersistentFlags().BoolVar(&opts.preview, "preview", false, "Show the result in a window")
	cmd.PersistentFlags().BoolVar(&opts.offline, "offline", false, "Translate with local models only")
	cmd.PersistentFlags().StringVar(&opts.apiKeyPath, "api-key-path", "", "Path to API key file (highest precedence)")

	imageCmd := &cobra.Command{
		Use:   "image",
		Short: "Translate a PNG or JPEG file (use '-' for stdin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(opts.filePath, cmd.InOrStdin())
			if err != nil {
				return err
			}
			img, err := decodeImage(data)
			if err != nil {
				return err
			}
			return runWithOptions(*opts, img, opts.filePath, cmd.OutOrStdout())
		},
	}
	imageCmd.Flags().StringVar(&opts.filePath, "file", "", "Path to PNG or JPEG file (use '-' for stdin)")
	_ = imageCmd.MarkFlagRequired("file")

	clipboardCmd := &cobra.Command{
		Use:   "clipboard",
		Short: "Translate the image on the clipboard and put the result back",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClipboard(*opts, cmd.OutOrStdout())
		},
	}

	cmd.AddCommand(imageCmd, clipboardCmd)
	return cmd
}

func configureLogging(verbose bool) {
	if !verbose {
		log.SetOutput(io.Discard)
		return
	}
	logutil.SetupStderr()
	fmt.Fprintf(os.Stderr, "[verbose] Starting translate tool\n")
}

func bootstrap(opts cliOptions, withClipboard bool) (processor, error) {
	cfg, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions: config.LoadOptions{
			APIKeyPathOverride: opts.apiKeyPath,
			ForceOffline:       opts.offline,
		},
		InitClipboard: withClipboard,
	})
	if err != nil {
		return nil, err
	}
	if opts.verbose {
		fmt.Fprintf(os.Stderr, "[verbose] Config loaded: Model=%s OCR=%s Target=%s\n", cfg.Model, cfg.OCRBackend, cfg.TargetLanguage)
		if cfg.APIKey != "" {
			fmt.Fprintf(os.Stderr, "[verbose] API key: %s\n", truncateSecret(cfg.APIKey, 8))
		}
	}
	return runtimeinit.NewPipeline(cfg), nil
}

func runWithOptions(opts cliOptions, img image.Image, source string, stdout io.Writer) error {
	configureLogging(opts.verbose)
	proc, err := bootstrap(opts, false)
	if err != nil {
		return err
	}
	composed, detections, err := translateImage(context.Background(), proc, img, source, opts, stdout)
	if err != nil {
		return err
	}
	if opts.preview {
		preview.Show("Screen Translate - "+source, composed, detections)
	}
	return nil
}

func runClipboard(opts cliOptions, stdout io.Writer) error {
	configureLogging(opts.verbose)
	proc, err := bootstrap(opts, true)
	if err != nil {
		return err
	}
	img, err := clipboard.ReadImage()
	if err != nil {
		return fmt.Errorf("failed to read clipboard: %w", err)
	}
	composed, detections, err := translateImage(context.Background(), proc, img, "clipboard", opts, stdout)
	if err != nil {
		return err
	}
	if err := clipboard.WriteImage(composed); err != nil {
		return fmt.Errorf("failed to write clipboard: %w", err)
	}
	if opts.preview {
		preview.Show("Screen Translate - clipboard", composed, detections)
	}
	return nil
}

// translateImage runs proc on img, writes the optional PNG and prints the
// result.
func translateImage(ctx context.Context, proc processor, img image.Image, source string, opts cliOptions, stdout io.Writer) (*image.RGBA, []ocr.Detection, error) {
	startTime := time.Now()
	composed, detections, err := proc.Process(ctx, img)
	elapsed := time.Since(startTime)
	if err != nil {
		return nil, nil, fmt.Errorf("translation failed: %w", err)
	}
	if opts.verbose {
		fmt.Fprintf(os.Stderr, "[verbose] Processed %d spans in %v\n", len(detections), elapsed)
	}

	if opts.outPath != "" {
		if err := writePNG(opts.outPath, composed); err != nil {
			return nil, nil, err
		}
	}
	if err := outputResult(stdout, detections, source, elapsed, opts.jsonOutput); err != nil {
		return nil, nil, err
	}
	return composed, detections, nil
}

func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	normalized := make([]string, len(args))
	copy(normalized, args)

	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range []string{"file", "out", "json", "verbose", "preview", "offline", "api-key-path"} {
			single := "-" + name
			if arg == single || strings.HasPrefix(arg, single+"=") {
				normalized[i] = "-" + arg
				break
			}
		}
	}

	return normalized
}

// truncateSecret safely truncates a secret for display, showing only first N characters.
func truncateSecret(secret string, maxLen int) string {
	if len(secret) <= maxLen {
		return secret + "..."
	}
	return secret[:maxLen] + "..."
}

func readInput(filePath string, stdin io.Reader) ([]byte, error) {
	var imageData []byte
	var err error

	if filePath == "-" {
		imageData, err = io.ReadAll(io.LimitReader(stdin, maxFileSize+1))
		if err != nil {
			return nil, fmt.Errorf("failed to read from stdin: %w", err)
		}
	} else {
		imageData, err = os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
		}
	}

	if len(imageData) == 0 {
		return nil, fmt.Errorf("input file is empty")
	}
	if len(imageData) > maxFileSize {
		return nil, fmt.Errorf("input file exceeds maximum size of %d MB", maxFileSizeMB)
	}
	if _, err := sniffFormat(imageData); err != nil {
		return nil, err
	}
	return imageData, nil
}

// sniffFormat names the image format from its leading bytes.
func sniffFormat(data []byte) (string, error) {
	switch {
	case bytes.HasPrefix(data, pngMagic):
		return "png", nil
	case bytes.HasPrefix(data, jpegMagic):
		return "jpeg", nil
	default:
		return "", fmt.Errorf("input is not a PNG or JPEG file (invalid magic number)")
	}
}

func decodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode PNG: %w", err)
	}
	return f.Close()
}

type SpanResult struct {
	Original    string `json:"original"`
	Translation string `json:"translation"`
	X1          int    `json:"x1"`
	X2          int    `json:"x2"`
	Y1          int    `json:"y1"`
	Y2          int    `json:"y2"`
}

type TranslateResult struct {
	Source    string       `json:"source"`
	Spans     []SpanResult `json:"spans"`
	Timestamp string       `json:"timestamp"`
	Duration  float64      `json:"duration_seconds"`
}

func outputResult(w io.Writer, detections []ocr.Detection, source string, elapsed time.Duration, jsonOutput bool) error {
	if !jsonOutput {
		for _, d := range detections {
			fmt.Fprintln(w, d.Text)
		}
		return nil
	}

	result := TranslateResult{
		Source:    source,
		Spans:     make([]SpanResult, 0, len(detections)),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Duration:  elapsed.Seconds(),
	}
	for _, d := range detections {
		result.Spans = append(result.Spans, SpanResult{
			Original:    d.OriginalText,
			Translation: d.Text,
			X1:          d.Box.X1,
			X2:          d.Box.X2,
			Y1:          d.Box.Y1,
			Y2:          d.Box.Y2,
		})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		return fmt.Errorf("failed to encode JSON output: %w", err)
	}
	return nil
}
