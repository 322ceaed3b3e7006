package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"reelchef/internal/domain"
)

const systemPrompt = `You are a recipe extraction assistant. You receive text captured from a cooking video (captions, transcript, or description) and produce exactly one JSON object describing the recipe, with no surrounding prose and no markdown fences.

The JSON object must use these fields:
{
  "title": string,
  "description": string,
  "prepTime": integer minutes or null,
  "cookTime": integer minutes or null,
  "servingSize": integer or null,
  "difficulty": "easy" | "medium" | "hard" | null,
  "ingredients": [{"name": string, "quantity": number or null, "unit": string or null, "notes": string or null}],
  "instructions": [{"stepNumber": integer, "description": string}],
  "tags": [string]
}

When the text is sparse, infer plausible values from the dish rather than leaving fields empty. Always return at least one ingredient and one instruction step. Respond with the JSON object only.`

// attempt pairs a provider with the model to request from it
type attempt struct {
	provider ChatProvider
	model    string
}

// Gateway runs the provider chain: primary vendor with its primary model,
// primary vendor with its fallback model, then the secondary vendor. Any
// failure, transport or recovery, advances the chain. The gateway never
// returns an error; exhaustion is reported through the envelope.
type Gateway struct {
	attempts []attempt
	logger   *slog.Logger
}

func NewGateway(primary ChatProvider, primaryModel, fallbackModel string, secondary ChatProvider, secondaryModel string, logger *slog.Logger) *Gateway {
	g := &Gateway{logger: logger}

	if primary != nil {
		g.attempts = append(g.attempts, attempt{provider: primary, model: primaryModel})
		if fallbackModel != "" && fallbackModel != primaryModel {
			g.attempts = append(g.attempts, attempt{provider: primary, model: fallbackModel})
		}
	}
	if secondary != nil {
		g.attempts = append(g.attempts, attempt{provider: secondary, model: secondaryModel})
	}

	return g
}

// ParseRecipe sends the acquired text through the provider chain and runs
// JSON recovery on each reply until one yields a structured candidate.
func (g *Gateway) ParseRecipe(ctx context.Context, text string) domain.AIEnvelope {
	if len(g.attempts) == 0 {
		return domain.FailureEnvelope(domain.FailureKindProvider, "no AI providers configured")
	}

	var (
		lastErr    error
		gotContent bool
	)

	for _, a := range g.attempts {
		raw, err := a.provider.Complete(ctx, a.model, systemPrompt, text)
		if err != nil {
			g.logger.Warn("AI completion failed",
				"provider", a.provider.Name(),
				"model", a.model,
				"error", err)
			lastErr = err
			continue
		}
		gotContent = true

		candidate, err := RecoverRecipe(raw)
		if err != nil {
			g.logger.Warn("JSON recovery failed",
				"provider", a.provider.Name(),
				"model", a.model,
				"output_length", len(raw),
				"error", err)
			lastErr = err
			continue
		}

		g.logger.Info("Recipe parsed",
			"provider", a.provider.Name(),
			"model", a.model,
			"partial", candidate.Partial)
		return domain.SuccessEnvelope(candidate)
	}

	detail := "provider chain exhausted"
	if lastErr != nil {
		detail = fmt.Sprintf("provider chain exhausted: %s", truncateDetail(lastErr.Error()))
	}

	// If at least one provider answered but nothing was recoverable, the
	// failure is a parse problem rather than an availability problem.
	kind := domain.FailureKindProvider
	if gotContent {
		kind = domain.FailureKindJSONRecovery
	}
	return domain.FailureEnvelope(kind, detail)
}

func truncateDetail(s string) string {
	const max = 300
	s = strings.TrimSpace(s)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
