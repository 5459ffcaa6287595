// Package services builds the chat completion clients used to answer
// building-data chunks.
package services

import (
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
)

// Providers understood by LLM_PROVIDER.
const (
	ProviderOpenAI     = "openai"
	ProviderDeepseek   = "deepseek"
	ProviderOpenRouter = "openrouter"
	ProviderOllama     = "ollama"
)

const (
	deepseekBaseURL   = "https://api.deepseek.com/v1"
	openRouterBaseURL = "https://openrouter.ai/api/v1"
	ollamaBaseURL     = "http://localhost:11434/v1"
)

// DefaultModels maps each provider to the model used when LLM_MODEL is unset.
var DefaultModels = map[string]string{
	ProviderOpenAI:     openai.GPT4oMini,
	ProviderDeepseek:   "deepseek-chat",
	ProviderOpenRouter: "deepseek/deepseek-chat",
	ProviderOllama:     "llama3.1",
}

// Provider returns the configured provider, defaulting to OpenAI.
func Provider() string {
	p := strings.ToLower(strings.TrimSpace(os.Getenv("LLM_PROVIDER")))
	if p == "" {
		return ProviderOpenAI
	}
	return p
}

// Model returns LLM_MODEL or the provider's default model.
func Model() string {
	if m := os.Getenv("LLM_MODEL"); m != "" {
		return m
	}
	return DefaultModels[Provider()]
}

// NewClient builds a client for provider from the environment.
func NewClient(provider string) (*openai.Client, error) {
	switch provider {
	case ProviderOllama:
		config := openai.DefaultConfig("not-needed")
		config.BaseURL = envOr("OLLAMA_BASE_URL", ollamaBaseURL)
		return openai.NewClientWithConfig(config), nil

	case ProviderOpenRouter:
		apiKey := os.Getenv("OPENROUTER_API_KEY")
		if apiKey == "" {
			return nil, errors.New("OPENROUTER_API_KEY environment variable is not set")
		}
		config := openai.DefaultConfig(apiKey)
		config.BaseURL = openRouterBaseURL
		config.OrgID = "openrouter"
		return openai.NewClientWithConfig(config), nil

	case ProviderDeepseek:
		apiKey := os.Getenv("DEEPSEEK_API_KEY")
		if apiKey == "" {
			return nil, errors.New("DEEPSEEK_API_KEY environment variable is not set")
		}
		config := openai.DefaultConfig(apiKey)
		config.BaseURL = envOr("DEEPSEEK_API_BASE", deepseekBaseURL)
		return openai.NewClientWithConfig(config), nil

	case ProviderOpenAI:
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, errors.New("OPENAI_API_KEY is not set, please set it in MCP Config")
		}
		config := openai.DefaultConfig(apiKey)
		if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
			config.BaseURL = baseURL
		}
		return openai.NewClientWithConfig(config), nil
	}
	return nil, errors.Errorf("unknown LLM provider %q", provider)
}

// DefaultClient returns the process-wide client for the configured provider.
var DefaultClient = sync.OnceValues(func() (*openai.Client, error) {
	return NewClient(Provider())
})

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
