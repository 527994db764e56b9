package email

import (
	"context"
	"log"
)

// MockProvider logs messages instead of sending them. Useful for local runs
// without SMTP credentials.
type MockProvider struct{}

// NewMockProvider creates a mock email provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// Send logs the email instead of sending it.
func (m *MockProvider) Send(_ context.Context, to, subject, textBody, _ string) error {
	log.Printf("MOCK EMAIL to=%s subject=%q body_length=%d", to, subject, len(textBody))
	return nil
}
