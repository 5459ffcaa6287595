package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderAndModel(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("LLM_MODEL", "")
	assert.Equal(t, ProviderOpenAI, Provider())
	assert.Equal(t, "gpt-4o-mini", Model())

	t.Setenv("LLM_PROVIDER", " Deepseek ")
	assert.Equal(t, ProviderDeepseek, Provider())
	assert.Equal(t, "deepseek-chat", Model())

	t.Setenv("LLM_MODEL", "deepseek-reasoner")
	assert.Equal(t, "deepseek-reasoner", Model())
}

func TestNewClient(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := NewClient(ProviderOpenAI)
	assert.Error(t, err)

	t.Setenv("OPENAI_API_KEY", "sk-test")
	client, err := NewClient(ProviderOpenAI)
	require.NoError(t, err)
	assert.NotNil(t, client)

	client, err = NewClient(ProviderOllama)
	require.NoError(t, err)
	assert.NotNil(t, client)

	t.Setenv("DEEPSEEK_API_KEY", "")
	_, err = NewClient(ProviderDeepseek)
	assert.Error(t, err)

	_, err = NewClient("watson")
	assert.Error(t, err)
}
