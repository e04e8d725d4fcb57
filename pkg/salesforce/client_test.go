package salesforce

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// mockClient implements Client for testing.
type mockClient struct {
	queryFn     func(ctx context.Context, soql string, out any) error
	insertOneFn func(ctx context.Context, sObjectName string, record map[string]any) (string, error)
	updateOneFn func(ctx context.Context, sObjectName string, id string, fields map[string]any) error
}

func (m *mockClient) Query(ctx context.Context, soql string, out any) error {
	if m.queryFn != nil {
		return m.queryFn(ctx, soql, out)
	}
	return nil
}

func (m *mockClient) InsertOne(ctx context.Context, sObjectName string, record map[string]any) (string, error) {
	if m.insertOneFn != nil {
		return m.insertOneFn(ctx, sObjectName, record)
	}
	return "00Q000000000001", nil
}

func (m *mockClient) UpdateOne(ctx context.Context, sObjectName string, id string, fields map[string]any) error {
	if m.updateOneFn != nil {
		return m.updateOneFn(ctx, sObjectName, id, fields)
	}
	return nil
}

func TestMockClientImplementsInterface(t *testing.T) {
	var _ Client = (*mockClient)(nil)
}

func TestWithRateLimit(t *testing.T) {
	c := &sfClient{}
	WithRateLimit(5)(c)
	require.NotNil(t, c.limiter)
	assert.Equal(t, rate.Limit(5), c.limiter.Limit())
	assert.Equal(t, 5, c.limiter.Burst())

	c2 := &sfClient{}
	WithRateLimit(0.5)(c2)
	require.NotNil(t, c2.limiter)
	assert.Equal(t, 1, c2.limiter.Burst())

	c3 := &sfClient{}
	WithRateLimit(0)(c3)
	assert.Nil(t, c3.limiter)
}

func TestRateLimiter_CancelledContext(t *testing.T) {
	c := &sfClient{limiter: rate.NewLimiter(rate.Every(time.Hour), 1)}
	require.NoError(t, c.wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.Query(ctx, "SELECT Id FROM Lead", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sf: rate limit")
}
