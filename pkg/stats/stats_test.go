package stats_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zecswap/zecswap-daemon/pkg/stats"
)

func TestDumpPrometheusDefaults(t *testing.T) {
	stats.QuotesIssued.WithLabelValues("btc", "pay").Inc()

	filename := filepath.Join(t.TempDir(), "stats")
	err := stats.DumpPrometheusDefaults(filename)
	require.NoError(t, err)

	content, err := os.ReadFile(filename)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(content), "zecswap_quotes_issued_total"))
}
