package agent

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/richinex/xaiconv/llm"
)

// RecordUsage extracts token counts from a final response. It returns nil
// when the provider reported none.
func RecordUsage(resp *llm.Response) *UsageStats {
	if resp == nil || resp.Usage == nil {
		return nil
	}
	input := resp.Usage.PromptTokens
	output := resp.Usage.CompletionTokens
	return &UsageStats{InputTokens: &input, OutputTokens: &output}
}

// Add sums other into u. Nil fields stay nil until a value is reported.
func (u *UsageStats) Add(other *UsageStats) {
	if other == nil {
		return
	}
	u.InputTokens = addCount(u.InputTokens, other.InputTokens)
	u.OutputTokens = addCount(u.OutputTokens, other.OutputTokens)
}

func addCount(a, b *int) *int {
	if b == nil {
		return a
	}
	if a == nil {
		v := *b
		return &v
	}
	v := *a + *b
	return &v
}

// reportUsage writes usage onto the span of the iteration and logs it.
func reportUsage(ctx context.Context, logger *slog.Logger, usage *UsageStats) {
	if usage == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	var attrs []any
	if usage.InputTokens != nil {
		span.SetAttributes(attribute.Int("llm.usage.input_tokens", *usage.InputTokens))
		attrs = append(attrs, "input_tokens", *usage.InputTokens)
	}
	if usage.OutputTokens != nil {
		span.SetAttributes(attribute.Int("llm.usage.output_tokens", *usage.OutputTokens))
		attrs = append(attrs, "output_tokens", *usage.OutputTokens)
	}
	logger.DebugContext(ctx, "token usage", attrs...)
}
