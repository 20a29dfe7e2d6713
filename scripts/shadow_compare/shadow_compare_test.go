package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayloadsEqualUnwrapsEnvelope(t *testing.T) {
	goBody := []byte(`{"data":[{"id":1,"reference_month":3,"updated_at":"2025-03-01T10:00:00Z"}],"pagination":{"page":1},"meta":{"processing_time_ms":2}}`)
	legacyBody := []byte(`{"count":1,"results":[{"id":1.0,"reference_month":3,"updated_at":"2025-03-02T09:00:00Z"}]}`)

	assert.True(t, payloadsEqual(goBody, legacyBody))
	assert.False(t, payloadsEqual(goBody, []byte(`{"results":[{"id":2,"reference_month":3}]}`)))
	assert.False(t, payloadsEqual(goBody, []byte(`not json`)))
}

func TestCompareTargetSendsTokensAndPaths(t *testing.T) {
	goSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer go", r.Header.Get("Authorization"))
		assert.Equal(t, "/submissions/pending", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":[{"id":7}]}`))
	}))
	defer goSrv.Close()
	legacySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer legacy", r.Header.Get("Authorization"))
		assert.Equal(t, "/envios-material/pending/", r.URL.Path)
		_, _ = w.Write([]byte(`[{"id":7}]`))
	}))
	defer legacySrv.Close()

	comp := compareTarget(http.DefaultClient,
		endpoint{base: goSrv.URL, token: "go"},
		endpoint{base: legacySrv.URL, token: "legacy"},
		target{Method: "get", Path: "/submissions/pending", LegacyPath: "envios-material/pending/", Critical: true})

	require.NoError(t, comp.Error)
	assert.True(t, comp.StatusMatch)
	assert.True(t, comp.BodyMatch)
	assert.False(t, comp.breaking())

	var out bytes.Buffer
	printReport(&out, []comparison{comp})
	assert.Contains(t, out.String(), "[OK] get /submissions/pending")
}

func TestBreakingOnlyForCriticalTargets(t *testing.T) {
	diff := comparison{Target: target{Critical: false}, StatusMatch: false}
	assert.False(t, diff.breaking())
	diff.Target.Critical = true
	assert.True(t, diff.breaking())
}
