package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCorrelationIDRoundTrip(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), " abc ")
	require.Equal(t, "abc", CorrelationIDFrom(ctx))

	require.Empty(t, CorrelationIDFrom(context.Background()))
	require.Equal(t, context.Background(), WithCorrelationID(context.Background(), "  "))
}
