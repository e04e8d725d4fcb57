package intake

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/lead-router/internal/model"
)

// --- Admitter Mock ---

type mockAdmitter struct {
	mock.Mock
}

func (m *mockAdmitter) Admit(ctx context.Context, key string, ttl time.Duration) bool {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0)
}

func (m *mockAdmitter) AdmittedAt(ctx context.Context, key string) (time.Time, bool) {
	args := m.Called(ctx, key)
	return args.Get(0).(time.Time), args.Bool(1)
}

// --- Notifier Mock ---

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, l *model.Lead, kind Kind) (string, error) {
	args := m.Called(ctx, l, kind)
	return args.String(0), args.Error(1)
}

// countingRunner wraps a Runner and counts invocations.
type countingRunner struct {
	next  Runner
	calls atomic.Int32
}

func (c *countingRunner) Run(ctx context.Context, l *model.Lead) (*model.Lead, error) {
	c.calls.Add(1)
	return c.next.Run(ctx, l)
}

// runnerFunc adapts a function to Runner.
type runnerFunc func(ctx context.Context, l *model.Lead) (*model.Lead, error)

func (f runnerFunc) Run(ctx context.Context, l *model.Lead) (*model.Lead, error) { return f(ctx, l) }
