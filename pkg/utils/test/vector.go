package testutils

import (
	"context"

	"github.com/crosswirelabs/loom/pkg/vector"
)

// MockVectorDriver is a test vector driver with injectable results and errors.
type MockVectorDriver struct {
	// Documents accumulates all documents passed to Add.
	Documents []vector.Document

	// Results is returned by Query (trimmed to topK).
	Results []vector.QueryResult

	// QueryErr causes Query to return an error.
	QueryErr error

	// AddErr causes Add to return an error.
	AddErr error
}

func NewMockVectorDriver() *MockVectorDriver {
	return &MockVectorDriver{
		Documents: make([]vector.Document, 0),
		Results:   make([]vector.QueryResult, 0),
	}
}

func (m *MockVectorDriver) Add(_ context.Context, docs []vector.Document) error {
	if m.AddErr != nil {
		return m.AddErr
	}
	m.Documents = append(m.Documents, docs...)
	return nil
}

func (m *MockVectorDriver) Query(_ context.Context, _ string, _ []float32, topK int) ([]vector.QueryResult, error) {
	if m.QueryErr != nil {
		return nil, m.QueryErr
	}
	if len(m.Results) < topK {
		return m.Results, nil
	}
	return m.Results[:topK], nil
}

func (m *MockVectorDriver) Delete(_ context.Context, _ []string) error {
	return nil
}

func (m *MockVectorDriver) Close() error {
	return nil
}
