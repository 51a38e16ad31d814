package translate

import (
	"context"

	"screen-translate/src/llm"
)

// LLMOnline translates through the configured OpenRouter model.
type LLMOnline struct{}

func (LLMOnline) Translate(ctx context.Context, text, target string) (string, error) {
	return llm.Translate(ctx, text, target)
}
