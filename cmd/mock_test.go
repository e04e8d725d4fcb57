package main

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/lead-router/internal/intake"
)

// --- Submitter Mock ---

type mockSubmitter struct {
	mock.Mock
}

func (m *mockSubmitter) Submit(ctx context.Context, payload map[string]any) (*intake.Response, error) {
	args := m.Called(ctx, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*intake.Response), args.Error(1)
}
