package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestContext creates a context with timeout for tests.
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// MustParseTime parses an RFC3339 timestamp in UTC or fails the test.
func MustParseTime(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err, "failed to parse %s", value)
	return ts.UTC()
}

// Ptr returns a pointer to the given value (useful for optional fields).
func Ptr[T any](v T) *T {
	return &v
}
