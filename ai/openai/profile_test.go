package openai

import (
	"encoding/json"
	"testing"

	"github.com/poiesic/docchat/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

func TestRepairJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "valid json untouched", input: `{"name":"ต้น","age":20}`, expected: `{"name":"ต้น","age":20}`},
		{name: "missing opening quote", input: `{"name":"a", age":20}`, expected: `{"name":"a", "age":20}`},
		{name: "missing quote after brace", input: `{name":"a"}`, expected: `{"name":"a"}`},
		{name: "trailing comma in object", input: `{"a":1,}`, expected: `{"a":1}`},
		{name: "trailing comma in array", input: `{"hobby":["x","y", ]}`, expected: `{"hobby":["x","y" ]}`},
		{name: "comma inside string kept", input: `{"a":"x,}"}`, expected: `{"a":"x,}"}`},
		{name: "literal after comma", input: `[1, true, null]`, expected: `[1, true, null]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, repairJSON(tt.input))
		})
	}
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("  {\"a\":1} "))
}

func TestRawProfileConversion(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected ai.ExtractedProfile
	}{
		{
			name:     "all fields",
			input:    `{"name":"ต้น","age":20,"profession":"student","hobby":["บาส"," ","code"]}`,
			expected: ai.ExtractedProfile{Name: "ต้น", Age: 20, Profession: "student", Hobbies: []string{"บาส", "code"}},
		},
		{
			name:     "nulls",
			input:    `{"name":null,"age":null,"profession":null,"hobby":[]}`,
			expected: ai.ExtractedProfile{Hobbies: []string{}},
		},
		{
			name:     "age as string and single hobby",
			input:    `{"name":"Ann","age":"31","profession":null,"hobby":"chess"}`,
			expected: ai.ExtractedProfile{Name: "Ann", Age: 31, Hobbies: []string{"chess"}},
		},
		{
			name:     "unparseable age",
			input:    `{"name":"Ann","age":"thirty","hobby":null}`,
			expected: ai.ExtractedProfile{Name: "Ann"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var raw rawProfile
			require.NoError(t, json.Unmarshal([]byte(tt.input), &raw))
			assert.Equal(t, tt.expected, raw.toExtracted())
		})
	}
}

func TestRenderTranscript(t *testing.T) {
	out := renderTranscript([]ai.Message{
		ai.UserMessage("สวัสดีครับ"),
		ai.AssistantMessage("  "),
		ai.AssistantMessage("มีอะไรให้ช่วยครับ"),
	})
	assert.Equal(t, "user: สวัสดีครับ\nassistant: มีอะไรให้ช่วยครับ\n", out)
	assert.Empty(t, renderTranscript(nil))
}

func TestToMessageContent(t *testing.T) {
	content := toMessageContent("system", []ai.Message{
		ai.UserMessage("q"),
		ai.AssistantMessage("a"),
	})
	require.Len(t, content, 3)
	assert.Equal(t, llms.ChatMessageTypeSystem, content[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, content[1].Role)
	assert.Equal(t, llms.ChatMessageTypeAI, content[2].Role)

	content = toMessageContent("", []ai.Message{ai.UserMessage("q")})
	require.Len(t, content, 1)
	assert.Equal(t, llms.ChatMessageTypeHuman, content[0].Role)
}
