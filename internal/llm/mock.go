package llm

import "context"

// MockClient permite tests sin llamar a un LLM real.
type MockClient struct {
	Response     string
	Err          error
	LastSystem   string
	LastUserText string
}

func (m *MockClient) Generate(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	m.LastSystem = systemPrompt
	m.LastUserText = userMessage
	return m.Response, m.Err
}
