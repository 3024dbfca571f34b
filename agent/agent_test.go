package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFramework_IsValid(t *testing.T) {
	tests := []struct {
		framework Framework
		want      bool
	}{
		{FrameworkCrewAI, true},
		{FrameworkLangchain, true},
		{FrameworkOpenAI, true},
		{"", false},
		{"OpenAI", false},
		{"autogen", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.framework), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.framework.IsValid())
		})
	}
}

func TestFramework_Label(t *testing.T) {
	assert.Equal(t, "CrewAI", FrameworkCrewAI.Label())
	assert.Equal(t, "Langchain", FrameworkLangchain.Label())
	assert.Equal(t, "OpenAI", FrameworkOpenAI.Label())
	assert.Equal(t, "other", Framework("other").Label())
}

func TestSetters(t *testing.T) {
	var req UpdateRequest

	assert.ErrorIs(t, SetName("")(&req), ErrInvalidName)
	assert.ErrorIs(t, SetFramework("nope")(&req), ErrInvalidFramework)
	assert.ErrorIs(t, SetConfig(nil)(&req), ErrInvalidConfig)
	assert.Nil(t, req.Name)
	assert.Nil(t, req.Framework)

	assert.NoError(t, SetName("n")(&req))
	assert.NoError(t, SetFramework(FrameworkLangchain)(&req))
	assert.NoError(t, SetConfig(map[string]interface{}{"llm": "gpt-4"})(&req))
	assert.Equal(t, "n", *req.Name)
	assert.Equal(t, FrameworkLangchain, *req.Framework)
	assert.Equal(t, "gpt-4", req.Config["llm"])
}
