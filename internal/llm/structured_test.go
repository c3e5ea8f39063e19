package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedModel struct {
	replies []*schema.Message
	errs    []error
	calls   int
}

func (m *scriptedModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	i := m.calls
	m.calls++
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	if i < len(m.replies) {
		return m.replies[i], nil
	}
	return nil, errors.New("no scripted reply")
}

func (m *scriptedModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported")
}

var testDestinations = []string{"cleaner", "eda", "reporter", "FINISH"}

const goodDecision = `{"reasoning": "data is raw", "instructions": "profile the dataset", "next_agent": "cleaner"}`

func TestDecideNativeSuccessIsSingleCall(t *testing.T) {
	cm := &scriptedModel{replies: []*schema.Message{schema.AssistantMessage(goodDecision, nil)}}

	decision, tier, err := DecideWithRecovery(context.Background(), cm,
		[]*schema.Message{schema.SystemMessage("supervise")}, testDestinations, zerolog.Nop())

	require.NoError(t, err)
	assert.Equal(t, 1, cm.calls)
	assert.Equal(t, TierNative, tier)
	assert.Equal(t, "cleaner", decision.NextAgent)
	assert.Equal(t, "profile the dataset", decision.Instructions)
}

func TestDecideRecoversFromFencedOutput(t *testing.T) {
	cm := &scriptedModel{
		errs:    []error{errors.New("backend unavailable")},
		replies: []*schema.Message{nil, schema.AssistantMessage("```json\n"+goodDecision+"\n```", nil)},
	}

	decision, tier, err := DecideWithRecovery(context.Background(), cm,
		[]*schema.Message{schema.SystemMessage("supervise")}, testDestinations, zerolog.Nop())

	require.NoError(t, err)
	assert.Equal(t, 2, cm.calls)
	assert.Equal(t, TierFixPrompt, tier)
	assert.Equal(t, "cleaner", decision.NextAgent)
}

func TestDecideEscalatesToFallback(t *testing.T) {
	cm := &scriptedModel{replies: []*schema.Message{
		schema.AssistantMessage("I think the cleaner should go next.", nil),
		schema.AssistantMessage("```\nstill prose, sorry\n```", nil),
		schema.AssistantMessage(goodDecision, nil),
	}}

	decision, tier, err := DecideWithRecovery(context.Background(), cm,
		[]*schema.Message{schema.SystemMessage("supervise")}, testDestinations, zerolog.Nop())

	require.NoError(t, err)
	assert.Equal(t, 3, cm.calls)
	assert.Equal(t, TierFallback, tier)
	assert.Equal(t, "cleaner", decision.NextAgent)
}

func TestDecideFailsAfterThreeAttempts(t *testing.T) {
	cm := &scriptedModel{replies: []*schema.Message{
		schema.AssistantMessage("nope", nil),
		schema.AssistantMessage("nope", nil),
		schema.AssistantMessage("nope", nil),
	}}

	_, _, err := DecideWithRecovery(context.Background(), cm,
		[]*schema.Message{schema.SystemMessage("supervise")}, testDestinations, zerolog.Nop())

	require.Error(t, err)
	assert.Equal(t, 3, cm.calls)
}

func TestParseDecisionRejectsUnknownDestination(t *testing.T) {
	_, err := parseDecision(`{"reasoning":"r","instructions":"i","next_agent":"intern"}`, testDestinations)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an allowed destination")
}

func TestParseDecisionRejectsMissingNext(t *testing.T) {
	_, err := parseDecision(`{"reasoning":"r","instructions":"i"}`, testDestinations)
	require.Error(t, err)
}

func TestStripFences(t *testing.T) {
	cases := map[string]string{
		"plain":                        "plain",
		"```json\n{\"a\":1}\n```":      `{"a":1}`,
		"```\n{\"a\":1}\n```":          `{"a":1}`,
		"  ```json\n{\"a\":1}\n```  ":  `{"a":1}`,
		"{\"next_agent\": \"cleaner\"}": `{"next_agent": "cleaner"}`,
	}
	for in, want := range cases {
		assert.Equal(t, want, StripFences(in))
	}
}
