package health

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSink_RecordsSuccessAndRejection(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink := NewSink(reg)

	sink.RecordSuccess("GetUser", 0.05)
	sink.RecordRejection("GetUser", "invalid_arguments")

	families, err := reg.Gather()
	require.NoError(t, err)

	var calls *dto.MetricFamily
	for _, f := range families {
		if f.GetName() == "graphql_mcp_tool_calls_total" {
			calls = f
		}
	}
	require.NotNil(t, calls)
	assert.Len(t, calls.Metric, 2)
}
