package telemetry

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScopedAPI(t *testing.T) {
	inner := NewTestAPI()
	scoped := NewScopedAPI("checker", NewScopedAPI("store", inner))

	scoped.ReportBroken("file.load", fmt.Errorf("unexpected EOF"))
	scoped.ReportWarning("file.save", "slow")
	scoped.ReportDebug("loaded snapshot", 3)
	scoped.ReportCount("records", 12)

	broken := inner.Reports("broken")
	require.Len(t, broken, 1)
	require.Equal(t, "store: checker: file.load", broken[0].ID)
	require.True(t, inner.HasBroken("file.load"))
	require.False(t, inner.HasBroken("file.save"))

	warnings := inner.Reports("warning")
	require.Len(t, warnings, 1)
	require.Equal(t, []any{"slow"}, warnings[0].Params)

	counts := inner.Reports("count")
	require.Len(t, counts, 1)
	require.Equal(t, []any{int64(12)}, counts[0].Params)

	require.Len(t, inner.Reports(""), 4)
}
