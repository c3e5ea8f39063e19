package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
)

// Decision is the structured routing object the supervisor must obtain from
// the model each turn. NextAgent is validated against the caller's allowed
// set before the decision is trusted.
type Decision struct {
	Reasoning    string `json:"reasoning"`
	Instructions string `json:"instructions"`
	NextAgent    string `json:"next_agent"`
}

// RecoveryTier names which attempt of the escalation produced the decision.
type RecoveryTier int

const (
	TierNative RecoveryTier = iota + 1
	TierFixPrompt
	TierFallback
)

func (t RecoveryTier) String() string {
	switch t {
	case TierNative:
		return "native"
	case TierFixPrompt:
		return "fix_prompt"
	case TierFallback:
		return "fallback"
	}
	return "unknown"
}

const decisionShape = `{
  "reasoning": "<review of previous work and justification for the next step>",
  "instructions": "<specific, detailed instructions for the next agent>",
  "next_agent": "<one of: %s>"
}`

const fixPrompt = `Your previous output could not be parsed as the required decision object.
Return ONLY a raw JSON object with exactly this shape, no markdown fences, no prose before or after:
%s`

const fallbackPrompt = `CRITICAL FAILURE RECOVERY: every prior attempt to obtain a routing decision failed.
Output a single valid JSON object and nothing else. Any character outside the JSON object is an error.
Required shape:
%s`

// DecideWithRecovery obtains a schema-valid Decision through a three-step
// escalation: the native structured attempt, then a fix prompt restating the
// exact shape, then a last fallback prompt. Each escalation is an independent
// model call with different prompt text; the first failure usually means the
// model cannot reliably emit schema-matching output, so re-sending the same
// prompt is pointless. Returns the decision, the tier that produced it, and
// an error only when all three attempts fail.
func DecideWithRecovery(ctx context.Context, cm model.BaseChatModel, prompt []*schema.Message, allowedNext []string, log zerolog.Logger) (*Decision, RecoveryTier, error) {
	shape := fmt.Sprintf(decisionShape, strings.Join(allowedNext, ", "))

	attempts := []struct {
		tier   RecoveryTier
		extend *schema.Message
	}{
		{TierNative, schema.SystemMessage("Respond with a JSON object of this shape:\n" + shape)},
		{TierFixPrompt, schema.UserMessage(fmt.Sprintf(fixPrompt, shape))},
		{TierFallback, schema.UserMessage(fmt.Sprintf(fallbackPrompt, shape))},
	}

	var lastErr error
	for _, attempt := range attempts {
		msgs := append(append([]*schema.Message{}, prompt...), attempt.extend)

		out, err := cm.Generate(ctx, msgs)
		if err != nil {
			lastErr = fmt.Errorf("%s attempt: generation failed: %w", attempt.tier, err)
			log.Warn().Err(err).Str("tier", attempt.tier.String()).Msg("Structured decision attempt failed")
			continue
		}

		decision, err := parseDecision(out.Content, allowedNext)
		if err != nil {
			lastErr = fmt.Errorf("%s attempt: %w", attempt.tier, err)
			log.Warn().Err(err).Str("tier", attempt.tier.String()).Msg("Structured decision parse failed")
			continue
		}

		return decision, attempt.tier, nil
	}

	return nil, 0, fmt.Errorf("all structured decision attempts failed: %w", lastErr)
}

// parseDecision strips common markdown code-fence wrappers, decodes the JSON
// object, and validates the routing target.
func parseDecision(content string, allowedNext []string) (*Decision, error) {
	cleaned := StripFences(content)

	var decision Decision
	if err := sonic.Unmarshal([]byte(cleaned), &decision); err != nil {
		return nil, fmt.Errorf("invalid decision JSON: %w", err)
	}

	if decision.NextAgent == "" {
		return nil, fmt.Errorf("decision is missing next_agent")
	}
	valid := false
	for _, allowed := range allowedNext {
		if decision.NextAgent == allowed {
			valid = true
			break
		}
	}
	if !valid {
		return nil, fmt.Errorf("next_agent %q is not an allowed destination", decision.NextAgent)
	}

	return &decision, nil
}

// StripFences removes a surrounding markdown code fence (``` or ```json)
// from model output, leaving anything else untouched.
func StripFences(content string) string {
	s := strings.TrimSpace(content)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		// Drop the language tag line (e.g. "json").
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
