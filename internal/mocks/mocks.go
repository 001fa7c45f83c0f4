// File: internal/mocks/mocks.go
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/okazakidev/adjutant/internal/llm"
)

// -- Request Layer Mock --

// MockAsker mocks the llm.Asker contract.
type MockAsker struct {
	mock.Mock
}

func (m *MockAsker) Ask(ctx context.Context, prompt string, opts llm.AskOptions) (string, error) {
	args := m.Called(ctx, prompt, opts)
	return args.String(0), args.Error(1)
}

// -- Collaborator Mocks --

// MockCapturer mocks the vision collaborator.
type MockCapturer struct {
	mock.Mock
}

func (m *MockCapturer) Capture(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	if b := args.Get(0); b != nil {
		return b.([]byte), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockSearcher mocks the web-search collaborator.
type MockSearcher struct {
	mock.Mock
}

func (m *MockSearcher) Search(ctx context.Context, query string, maxResults int) (string, error) {
	args := m.Called(ctx, query, maxResults)
	return args.String(0), args.Error(1)
}

// MockTypist mocks the input-injection collaborator.
type MockTypist struct {
	mock.Mock
}

func (m *MockTypist) Type(ctx context.Context, text string) error {
	return m.Called(ctx, text).Error(0)
}

// MockRunner mocks process invocation for platform actions.
type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, name string, args ...string) error {
	callArgs := m.Called(ctx, name, args)
	return callArgs.Error(0)
}

// MockOpener mocks the URL opener.
type MockOpener struct {
	mock.Mock
}

func (m *MockOpener) Open(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}
