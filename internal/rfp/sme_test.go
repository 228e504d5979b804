package rfp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfp-launchpad-go/internal/config"
	"rfp-launchpad-go/pkg/llm"
)

func testRoster() []config.SMEConfig {
	return []config.SMEConfig{
		{FullName: "Dana Ortiz", Role: "Security Lead", Department: []string{"Security"}, Email: "dana@example.com"},
		{FullName: "Wei Chen", Role: "Infrastructure Architect", Department: []string{"Platform", "SRE"}, Email: "wei@example.com"},
		{FullName: "Priya Nair", Role: "Compliance Officer", Department: []string{"Legal"}, Email: "priya@example.com"},
	}
}

func smeFake(index int) *fakeLLM {
	return &fakeLLM{
		completeJSONFn: func(system, user string, schema llm.Schema, out any) error {
			raw, _ := json.Marshal(map[string]int{"sme_index": index})
			return json.Unmarshal(raw, out)
		},
	}
}

func TestIdentifySelectsRosterEntry(t *testing.T) {
	identifier := NewSMEIdentifier(smeFake(1), testRoster())

	sme, err := identifier.Identify(context.Background(), "How is the platform hosted?")
	require.NoError(t, err)
	assert.Equal(t, "Wei Chen", sme.FullName)
	assert.Equal(t, "Infrastructure Architect", sme.Role)
}

func TestIdentifyOutOfRangeIndexFails(t *testing.T) {
	// 返回 N（名册大小）越界：必须报错，不允许截断到最后一个
	identifier := NewSMEIdentifier(smeFake(3), testRoster())

	_, err := identifier.Identify(context.Background(), "Any question")
	assert.ErrorIs(t, err, ErrInvalidSelection)

	identifier = NewSMEIdentifier(smeFake(-1), testRoster())
	_, err = identifier.Identify(context.Background(), "Any question")
	assert.ErrorIs(t, err, ErrInvalidSelection)
}

func TestIdentifyEmptyRoster(t *testing.T) {
	identifier := NewSMEIdentifier(smeFake(0), nil)

	_, err := identifier.Identify(context.Background(), "Any question")
	assert.ErrorIs(t, err, ErrEmptyRoster)
}

func TestRosterPromptListsAllExperts(t *testing.T) {
	var captured string
	llmClient := &fakeLLM{
		completeJSONFn: func(system, user string, schema llm.Schema, out any) error {
			captured = system
			raw, _ := json.Marshal(map[string]int{"sme_index": 0})
			return json.Unmarshal(raw, out)
		},
	}
	identifier := NewSMEIdentifier(llmClient, testRoster())

	_, err := identifier.Identify(context.Background(), "Who handles compliance?")
	require.NoError(t, err)

	assert.Contains(t, captured, "0. Dana Ortiz")
	assert.Contains(t, captured, "2. Priya Nair")
	assert.Contains(t, captured, "between 0 and 2")
}
