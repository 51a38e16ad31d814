package runtimeinit

import (
	"fmt"
	"image"
	"log"

	"screen-translate/src/caption"
	"screen-translate/src/clipboard"
	"screen-translate/src/config"
	"screen-translate/src/display"
	"screen-translate/src/llm"
	"screen-translate/src/logutil"
	"screen-translate/src/ocr"
	"screen-translate/src/pipeline"
	"screen-translate/src/screenshot"
	"screen-translate/src/translate"
)

type Options struct {
	LoadOptions  config.LoadOptions
	SetupLogging func(bool)
	// InitClipboard is set by entry points that read or write images there.
	InitClipboard bool
}

// Bootstrap loads configuration, sets up logging and initializes the online
// client. Without an API key the online service is disabled and every
// translation goes to the offline models.
func Bootstrap(opts Options) (*config.Config, error) {
	cfg, err := config.LoadWithOptions(opts.LoadOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if opts.SetupLogging != nil {
		opts.SetupLogging(cfg.EnableFileLogging)
	}

	if cfg.OCRBackend == config.OCRBackendLLM && (cfg.APIKey == "" || cfg.Model == "") {
		return nil, fmt.Errorf("OCR_BACKEND=llm needs OPENROUTER_API_KEY and MODEL. Checked key file %s and OPENROUTER_API_KEY env var", cfg.APIKeyPath)
	}

	if cfg.APIKey != "" && cfg.Model != "" {
		llm.Init(&llm.Config{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			Providers: cfg.Providers,
		})
		log.Printf("Using model %s with key %s", cfg.Model, logutil.RedactKey(cfg.APIKey))
		if err := llm.Ping(); err != nil {
			log.Printf("LLM ping failed, translations will fall back offline when needed: %v", err)
		} else {
			log.Printf("LLM ping succeeded")
		}
	} else {
		log.Printf("No OPENROUTER_API_KEY or MODEL; using offline translation only")
		cfg.ForceOffline = true
	}

	if opts.InitClipboard {
		if err := clipboard.Init(); err != nil {
			return nil, fmt.Errorf("failed to initialize clipboard: %w", err)
		}
	}

	return cfg, nil
}

// NewTranslator builds the online-first translator described by cfg.
func NewTranslator(cfg *config.Config) *translate.Translator {
	return &translate.Translator{
		Target:       cfg.TargetLanguage,
		Online:       translate.LLMOnline{},
		Offline:      translate.NewLocalModels(cfg.OfflineURL, cfg.OfflineModel),
		Prober:       translate.TCPProber{Address: cfg.ProbeAddress, Timeout: cfg.ProbeTimeout},
		ForceOffline: cfg.ForceOffline,
	}
}

func NewRenderer(cfg *config.Config) *caption.Renderer {
	opts := caption.DefaultOptions()
	opts.FontSize = cfg.FontSize
	opts.Opacity = cfg.CaptionOpacity
	opts.JapaneseFont = cfg.JapaneseFont
	opts.LatinFont = cfg.LatinFont
	return caption.NewRenderer(opts)
}

func NewBackend(cfg *config.Config) ocr.Backend {
	if cfg.OCRBackend == config.OCRBackendLLM {
		return ocr.NewVisionBackend()
	}
	return ocr.NewTesseractBackend(cfg.OCRLanguage)
}

// NewPipeline assembles the full capture-to-display pipeline.
func NewPipeline(cfg *config.Config) *pipeline.Pipeline {
	dopts := display.DefaultOptions()
	dopts.Settle = cfg.ClickSettle
	dopts.ChromeOffset = image.Pt(cfg.ChromeOffsetX, cfg.ChromeOffsetY)

	return &pipeline.Pipeline{
		Extractor:  ocr.Extractor{Backend: NewBackend(cfg)},
		Translator: NewTranslator(cfg),
		Renderer:   NewRenderer(cfg),
		Capturer:   screenshot.Screen{},
		Displayer:  display.New(dopts),
	}
}
