package summary

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usdigitalresponse/contracts-ingest/cli/types"
	"github.com/usdigitalresponse/contracts-ingest/internal/log"
	"github.com/usdigitalresponse/contracts-ingest/pkg/contractsSchemas/contracts"
)

func lines(s string) [][]string {
	var out [][]string
	for _, l := range strings.Split(strings.TrimSpace(s), "\n") {
		out = append(out, strings.Fields(l))
	}
	return out
}

func TestWriteSummary(t *testing.T) {
	m := contracts.Metrics{
		Total:        4,
		Active:       2,
		Expired:      1,
		ExpiringSoon: 1,
		ByStatus:     []contracts.GroupCount{{Label: "VIGENTE", Count: 2}, {Label: "VENCIDO", Count: 1}, {Label: "RESCINDIDO", Count: 1}},
		ByUnit:       []contracts.GroupCount{{Label: "EDUCACAO", Count: 1}, {Label: "SAUDE", Count: 3}},
	}

	t.Run("top unit", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeSummary(&buf, m, 1))
		out := lines(buf.String())
		assert.Equal(t, []string{"Total", "de", "contratos", "4"}, out[0])
		assert.Equal(t, []string{"Vigentes", "2"}, out[1])
		assert.Equal(t, []string{"Vencidos", "1"}, out[2])
		assert.Equal(t, []string{"A", "vencer", "(30", "dias)", "1"}, out[3])
		assert.Contains(t, buf.String(), "RESCINDIDO")
		assert.Equal(t, []string{"SAUDE", "3"}, out[len(out)-1])
		assert.NotContains(t, buf.String(), "EDUCACAO")
	})

	t.Run("all units", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeSummary(&buf, m, 0))
		out := lines(buf.String())
		assert.Equal(t, []string{"SAUDE", "3"}, out[len(out)-2])
		assert.Equal(t, []string{"EDUCACAO", "1"}, out[len(out)-1])
	})
}

func TestRunWithoutSourceLogsError(t *testing.T) {
	var stderr bytes.Buffer
	logger := log.New(&stderr, log.FormatLogfmt, "info")

	err := (&Cmd{}).Run(nil, &logger)
	assert.ErrorIs(t, err, types.ErrNoSource)
	assert.Contains(t, stderr.String(), "level=error")
	assert.Contains(t, stderr.String(), types.ErrNoSource.Error())
}
