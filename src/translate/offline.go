package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"screen-translate/src/langdetect"
)

// LocalModels serves translation models from a local model server speaking
// the Ollama HTTP API. One model exists per language pair, named from
// Template with {src} and {tgt} substituted, and is pulled the first time
// that pair is needed.
type LocalModels struct {
	BaseURL  string
	Template string
	Client   *http.Client

	mu     sync.Mutex
	loaded map[string]bool
}

func NewLocalModels(baseURL, template string) *LocalModels {
	return &LocalModels{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Template: template,
		Client:   &http.Client{Timeout: 10 * time.Minute},
	}
}

// ModelName returns the model used for a source/target pair.
func (m *LocalModels) ModelName(source, target string) string {
	tmpl := m.Template
	if tmpl == "" {
		tmpl = "opus-mt-{src}-{tgt}"
	}
	return strings.NewReplacer("{src}", source, "{tgt}", target).Replace(tmpl)
}

func (m *LocalModels) Translate(ctx context.Context, text, source, target string) (string, error) {
	if source == "" || source == langdetect.Unknown {
		return "", fmt.Errorf("no offline model for undetected source language")
	}
	model := m.ModelName(source, target)
	if err := m.ensure(ctx, model); err != nil {
		return "", err
	}

	var resp generateResponse
	if err := m.post(ctx, "/api/generate", generateRequest{Model: model, Prompt: text}, &resp); err != nil {
		return "", fmt.Errorf("generate with %s: %w", model, err)
	}
	if resp.Error != "" {
		return "", fmt.Errorf("generate with %s: %s", model, resp.Error)
	}
	return strings.TrimSpace(resp.Response), nil
}

// Loaded reports whether model has already been pulled in this process.
func (m *LocalModels) Loaded(model string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded[model]
}

// ensure pulls the model once; concurrent callers for the same model wait on
// the first pull.
func (m *LocalModels) ensure(ctx context.Context, model string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loaded[model] {
		return nil
	}

	log.Printf("Translate: loading offline model %s", model)
	var resp pullResponse
	if err := m.post(ctx, "/api/pull", pullRequest{Model: model}, &resp); err != nil {
		return fmt.Errorf("pull %s: %w", model, err)
	}
	if resp.Error != "" {
		return fmt.Errorf("pull %s: %s", model, resp.Error)
	}

	if m.loaded == nil {
		m.loaded = make(map[string]bool)
	}
	m.loaded[model] = true
	log.Printf("Translate: offline model %s ready (%s)", model, resp.Status)
	return nil
}

type pullRequest struct {
	Model  string `json:"model"`
	Stream bool   `json:"stream"`
}

type pullResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

func (m *LocalModels) post(ctx context.Context, path string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := m.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("model server returned status %d", resp.StatusCode)
	}
	return nil
}
