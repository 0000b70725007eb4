package clients

import (
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"

	"github.com/maxwellt7/ai-hypnosis-generator/internal/models"
)

type tokenizer interface {
	Encode(text string, allowedSpecial []string, disallowedSpecial []string) []int
	Decode(tokens []int) string
}

// TokenBudget caps the combined size of context snippets forwarded to the generator.
type TokenBudget struct {
	enc       tokenizer
	maxTokens int
}

// NewTokenBudget resolves the encoding for model, falling back to cl100k_base.
// Without any encoding the budget is approximated at four bytes per token.
func NewTokenBudget(model string, maxTokens int, logger *zap.Logger) *TokenBudget {
	b := &TokenBudget{maxTokens: maxTokens}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
	}
	if err != nil {
		logger.Warn("Tokenizer unavailable, approximating token counts", zap.String("model", model), zap.Error(err))
		return b
	}
	b.enc = enc
	return b
}

// Trim keeps snippets in order until the budget is spent; the snippet crossing
// the limit is cut to fit. A non-positive budget disables trimming.
func (b *TokenBudget) Trim(snippets []models.ContextSnippet) []models.ContextSnippet {
	if b == nil || b.maxTokens <= 0 {
		return snippets
	}
	out := make([]models.ContextSnippet, 0, len(snippets))
	remaining := b.maxTokens
	for _, s := range snippets {
		if remaining <= 0 {
			break
		}
		text, used := b.fit(s.Text, remaining)
		if text == "" {
			break
		}
		s.Text = text
		out = append(out, s)
		remaining -= used
	}
	return out
}

func (b *TokenBudget) fit(text string, limit int) (string, int) {
	if b.enc == nil {
		maxBytes := limit * 4
		if len(text) <= maxBytes {
			return text, (len(text) + 3) / 4
		}
		cut := maxBytes
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		return text[:cut], limit
	}
	tokens := b.enc.Encode(text, nil, nil)
	if len(tokens) <= limit {
		return text, len(tokens)
	}
	return b.enc.Decode(tokens[:limit]), limit
}

// TruncateText cuts a single text to the budget.
func (b *TokenBudget) TruncateText(text string) string {
	if b == nil || b.maxTokens <= 0 {
		return text
	}
	out, _ := b.fit(text, b.maxTokens)
	return out
}
