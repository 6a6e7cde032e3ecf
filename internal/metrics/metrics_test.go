package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Gather(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	r.ObserveSuccess(3, 20*time.Millisecond)
	r.ObserveSuccess(2, 10*time.Millisecond)
	r.ObserveFailure(time.Millisecond)

	families, err := r.Registry().Gather()
	require.NoError(t, err)

	got := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch mf.GetName() {
			case "dmarc_reports_processed_total":
				got[mf.GetName()+"/"+m.GetLabel()[0].GetValue()] = m.GetCounter().GetValue()
			case "dmarc_records_parsed_total":
				got[mf.GetName()] = m.GetCounter().GetValue()
			case "dmarc_report_parse_seconds":
				got[mf.GetName()] = float64(m.GetHistogram().GetSampleCount())
			}
		}
	}

	assert.Equal(t, map[string]float64{
		"dmarc_reports_processed_total/success": 2,
		"dmarc_reports_processed_total/failure": 1,
		"dmarc_records_parsed_total":            5,
		"dmarc_report_parse_seconds":            3,
	}, got)
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r, err := New()
	require.NoError(t, err)
	r.ObserveSuccess(2, 5*time.Millisecond)

	path := filepath.Join(t.TempDir(), "dmarc.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, `dmarc_reports_processed_total{status="success"} 1`)
	assert.Contains(t, content, `dmarc_reports_processed_total{status="failure"} 0`)
	assert.Contains(t, content, "dmarc_records_parsed_total 2")
	assert.Contains(t, content, "dmarc_report_parse_seconds_count 1")
}

func TestRecorder_WriteTextfileMissingDir(t *testing.T) {
	r, err := New()
	require.NoError(t, err)
	assert.Error(t, r.WriteTextfile(filepath.Join(t.TempDir(), "absent", "dmarc.prom")))
}
