package engines

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sightline9/a11y-cli/api/schemas"
	"github.com/sightline9/a11y-cli/internal/config"
)

const waveFixture = `{
	"status": {"success": true},
	"categories": {
		"error": {"count": 3, "items": {
			"alt_missing": {"id": "alt_missing", "description": "Missing alternative text",
				"count": 2, "xpaths": ["/html/body/img[1]", "/html/body/img[2]"]},
			"button_empty": {"id": "button_empty", "description": "Empty button", "count": 1,
				"xpaths": ["/html/body/button[1]"]}
		}},
		"contrast": {"count": 4, "items": {
			"contrast": {"id": "contrast", "description": "Very low contrast", "count": 4}
		}},
		"alert": {"count": 1, "items": {
			"heading_skipped": {"id": "heading_skipped", "description": "Skipped heading level",
				"count": 1, "xpaths": ["/html/body/h3[1]"]}
		}},
		"feature": {"count": 1, "items": {
			"alt": {"id": "alt", "description": "Alternative text", "count": 1}
		}},
		"structure": {"count": 2, "items": {
			"h1": {"id": "h1", "description": "Heading level 1", "count": 1},
			"nav": {"id": "nav", "description": "Navigation", "count": 1}
		}}
	}
}`

func newTestWave(t *testing.T, handler http.HandlerFunc) (*Wave, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	w := NewWave(config.WaveConfig{
		EngineConfig: config.EngineConfig{Enabled: true, Timeout: time.Minute},
		APIKey:       "test-key",
		Endpoint:     srv.URL,
		ReportType:   4,
		RatePerMin:   6000,
	}, zap.NewNop())
	return w, srv
}

func TestWaveNormalize(t *testing.T) {
	var gotQuery map[string]string
	w, _ := newTestWave(t, func(rw http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{
			"key":        q.Get("key"),
			"url":        q.Get("url"),
			"reporttype": q.Get("reporttype"),
		}
		rw.Write([]byte(waveFixture))
	})

	result, err := w.Analyze(context.Background(), Target{URL: "https://example.com"})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"key":        "test-key",
		"url":        "https://example.com",
		"reporttype": "4",
	}, gotQuery)

	// Errors and contrast failures are violations, in fixed category order
	// with sorted item IDs inside each category.
	require.Len(t, result.Violations, 3)
	assert.Equal(t, "alt_missing", result.Violations[0].ID)
	assert.Equal(t, 2, result.Violations[0].NodeCount)
	assert.Equal(t, []string{"1.1.1"}, result.Violations[0].WCAGCriteria)
	assert.Equal(t, "button_empty", result.Violations[1].ID)
	assert.Equal(t, "contrast", result.Violations[2].ID)
	assert.Equal(t, schemas.ImpactSerious, result.Violations[2].Impact)
	// No XPaths for the contrast item, so the reported count stands in.
	assert.Equal(t, 4, result.Violations[2].NodeCount)
	assert.Empty(t, result.Violations[2].Nodes)

	require.Len(t, result.Incomplete, 1)
	assert.Equal(t, "heading_skipped", result.Incomplete[0].ID)
	assert.Equal(t, schemas.ImpactModerate, result.Incomplete[0].Impact)

	// Features and structure are descriptive, not failures.
	require.Len(t, result.Passes, 3)
	assert.Equal(t, "alt", result.Passes[0].ID)
	assert.Equal(t, "h1", result.Passes[1].ID)
	assert.Equal(t, "nav", result.Passes[2].ID)
	assert.Equal(t, schemas.ImpactLevel(""), result.Passes[0].Impact)

	assert.Equal(t, int64(1), w.CallCount())
}

func TestWaveCallCountPerInstance(t *testing.T) {
	w, _ := newTestWave(t, func(rw http.ResponseWriter, r *http.Request) {
		rw.Write([]byte(waveFixture))
	})

	for i := 0; i < 3; i++ {
		_, err := w.Analyze(context.Background(), Target{URL: "https://example.com"})
		require.NoError(t, err)
	}
	assert.Equal(t, int64(3), w.CallCount())

	other, _ := newTestWave(t, func(rw http.ResponseWriter, r *http.Request) {
		rw.Write([]byte(waveFixture))
	})
	assert.Zero(t, other.CallCount())
}

func TestWaveServerError(t *testing.T) {
	w, _ := newTestWave(t, func(rw http.ResponseWriter, r *http.Request) {
		http.Error(rw, "internal error", http.StatusInternalServerError)
	})

	result, err := w.Analyze(context.Background(), Target{URL: "https://example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Empty(t, result.Violations)
	assert.Empty(t, result.Passes)
	assert.Empty(t, result.Incomplete)
	assert.Equal(t, int64(1), w.CallCount())
}

func TestWaveAPIFailureStatus(t *testing.T) {
	w, _ := newTestWave(t, func(rw http.ResponseWriter, r *http.Request) {
		rw.Write([]byte(`{"status": {"success": false}}`))
	})

	_, err := w.Analyze(context.Background(), Target{URL: "https://example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}
