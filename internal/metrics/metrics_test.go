package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorsRegistered(t *testing.T) {
	SymptomsRecordedTotal.WithLabelValues("nausea").Inc()
	AppointmentsCreatedTotal.Inc()
	HTTPRequestsTotal.WithLabelValues("GET", "/api/symptoms", "200").Inc()

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}

	for _, want := range []string{
		"companion_symptoms_recorded_total",
		"companion_appointments_created_total",
		"companion_http_requests_total",
	} {
		assert.True(t, names[want], "metric %s not registered", want)
	}
}
