package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultAPIKeyPath = "/run/secrets/api_keys/openrouter"
	APIKeyPathEnvVar  = "OPENROUTER_API_KEY_FILE"

	OCRBackendTesseract = "tesseract"
	OCRBackendLLM       = "llm"

	DefaultStartRegion = "500,1000,0,1000"
)

type LoadOptions struct {
	APIKeyPathOverride  string
	StartRegionOverride string
	ForceOffline        bool
}

type Config struct {
	APIKey            string
	APIKeyPath        string
	Model             string
	Providers         []string
	EnableFileLogging bool

	Hotkey     string
	StopHotkey string

	TargetLanguage string
	ForceOffline   bool
	ProbeAddress   string
	ProbeTimeout   time.Duration
	OfflineURL     string
	OfflineModel   string

	OCRBackend  string
	OCRLanguage string

	JapaneseFont   string
	LatinFont      string
	FontSize       int
	CaptionOpacity uint8

	ChromeOffsetX int
	ChromeOffsetY int
	ClickSettle   time.Duration

	// StartRegion is x1,x2,y1,y2 in that order.
	StartRegion [4]int

	SingleInstancePort int
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// Load configuration from sources in priority order:
	// 1) .env in the application (executable) directory
	// 2) If not found, use SCREEN_TRANSLATE env var as a path to a config file
	envPath := resolveEnvPath()
	dotenvValues := readDotenvValues(envPath)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	}

	var providers []string
	if providersStr := os.Getenv("PROVIDERS"); providersStr != "" {
		for _, provider := range strings.Split(providersStr, ",") {
			if trimmed := strings.TrimSpace(provider); trimmed != "" {
				providers = append(providers, trimmed)
			}
		}
	}

	regionStr := getEnvWithDefault("START_REGION", DefaultStartRegion)
	if override := strings.TrimSpace(opts.StartRegionOverride); override != "" {
		regionStr = override
	}
	startRegion, err := ParseRegion(regionStr)
	if err != nil {
		return nil, fmt.Errorf("invalid START_REGION: %w", err)
	}

	opacity := getEnvInt("CAPTION_OPACITY", 200)
	if opacity < 0 || opacity > 255 {
		return nil, fmt.Errorf("CAPTION_OPACITY must be within 0..255, got %d", opacity)
	}

	apiKeyPath := resolveAPIKeyPath(opts, dotenvValues)

	cfg := &Config{
		APIKey:            resolveAPIKey(apiKeyPath),
		APIKeyPath:        apiKeyPath,
		Model:             os.Getenv("MODEL"),
		Providers:         providers,
		EnableFileLogging: strings.ToLower(os.Getenv("ENABLE_FILE_LOGGING")) == "true",

		Hotkey:     getEnvWithDefault("HOTKEY", "NumLock"),
		StopHotkey: getEnvWithDefault("STOP_HOTKEY", "Esc"),

		TargetLanguage: getEnvWithDefault("TARGET_LANGUAGE", "en"),
		ForceOffline:   opts.ForceOffline || strings.ToLower(os.Getenv("FORCE_OFFLINE")) == "true",
		ProbeAddress:   getEnvWithDefault("PROBE_ADDRESS", "www.google.com:80"),
		ProbeTimeout:   time.Duration(getEnvInt("PROBE_TIMEOUT_SEC", 5)) * time.Second,
		OfflineURL:     getEnvWithDefault("OFFLINE_URL", "http://127.0.0.1:11434"),
		OfflineModel:   getEnvWithDefault("OFFLINE_MODEL_TEMPLATE", "opus-mt-{src}-{tgt}"),

		OCRBackend:  resolveOCRBackend(os.Getenv("OCR_BACKEND")),
		OCRLanguage: getEnvWithDefault("OCR_LANGUAGE", "jpn"),

		JapaneseFont:   getEnvWithDefault("JAPANESE_FONT", "NotoSansJP-Regular.ttf"),
		LatinFont:      getEnvWithDefault("LATIN_FONT", "arial.ttf"),
		FontSize:       getEnvInt("FONT_SIZE", 360),
		CaptionOpacity: uint8(opacity),

		ChromeOffsetX: getEnvInt("CHROME_OFFSET_X", 0),
		ChromeOffsetY: getEnvInt("CHROME_OFFSET_Y", 0),
		ClickSettle:   time.Duration(getEnvInt("CLICK_SETTLE_MS", 1000)) * time.Millisecond,

		StartRegion: startRegion,

		SingleInstancePort: getEnvInt("SINGLEINSTANCE_PORT", 49600),
	}

	return cfg, nil
}

// ParseRegion parses "x1,x2,y1,y2". The component order is not x1,y1,x2,y2.
func ParseRegion(s string) ([4]int, error) {
	var out [4]int
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return out, fmt.Errorf("expected 4 comma-separated values (x1,x2,y1,y2), got %d", len(parts))
	}
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return out, fmt.Errorf("component %d: %w", i, err)
		}
		out[i] = n
	}
	return out, nil
}

func resolveEnvPath() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}

	execDir := filepath.Dir(execPath)
	exeEnv := filepath.Join(execDir, ".env")
	if _, err := os.Stat(exeEnv); err == nil {
		return exeEnv
	}

	if alt := os.Getenv("SCREEN_TRANSLATE"); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

func readDotenvValues(envPath string) map[string]string {
	if envPath == "" {
		return map[string]string{}
	}

	values, err := godotenv.Read(envPath)
	if err != nil {
		return map[string]string{}
	}

	return values
}

func resolveAPIKeyPath(opts LoadOptions, dotenvValues map[string]string) string {
	keyPath := DefaultAPIKeyPath

	if envPath := strings.TrimSpace(os.Getenv(APIKeyPathEnvVar)); envPath != "" {
		keyPath = envPath
	}

	if dotenvPath := strings.TrimSpace(dotenvValues[APIKeyPathEnvVar]); dotenvPath != "" {
		keyPath = dotenvPath
	}

	if overridePath := strings.TrimSpace(opts.APIKeyPathOverride); overridePath != "" {
		keyPath = overridePath
	}

	return keyPath
}

func resolveAPIKey(keyPath string) string {
	if data, err := os.ReadFile(keyPath); err == nil {
		if fileKey := strings.TrimSpace(string(data)); fileKey != "" {
			return fileKey
		}
	}

	return os.Getenv("OPENROUTER_API_KEY")
}

func resolveOCRBackend(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case OCRBackendLLM, "vision":
		return OCRBackendLLM
	default:
		return OCRBackendTesseract
	}
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns defaultValue for unset, unparsable or negative values.
func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n >= 0 {
			return n
		}
	}
	return defaultValue
}
