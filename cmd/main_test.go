package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	dir := t.TempDir()
	req := filepath.Join(dir, "batch.json")
	cfg := filepath.Join(dir, "ivcurve.yaml")
	out := filepath.Join(dir, "out.json")
	html := filepath.Join(dir, "charts.html")

	data := `{"irradiance": 1000, "temperature": 25, "curves": [
		{"measurements": [[10, 8.9], [20, 8.6], [30, 7.5], [36, 3]], "voc": 40, "isc": 9, "pmax": 230},
		{"measurements": [[10, 8.9]], "isc": 9, "pmax": 230}
	]}`
	require.NoError(t, os.WriteFile(req, []byte(data), 0o644))
	require.NoError(t, os.WriteFile(cfg, []byte("workers: 2\nfit:\n  population: 4\n  max_iter: 30\n"), 0o644))

	err := run([]string{"--config", cfg, "--log-level", "error", "-o", out, "--html", html, req})
	require.NoError(t, err)

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	var results []map[string]any
	require.NoError(t, json.Unmarshal(b, &results))
	require.Len(t, results, 2)
	assert.Contains(t, results[0], "key_params")
	assert.Contains(t, results[1]["error"], "missing required key in curve data: voc")

	info, err := os.Stat(html)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestRunErrors(t *testing.T) {
	assert.Error(t, run(nil), "缺少请求文件")
	assert.Error(t, run([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml"), "batch.json"}))
	assert.Error(t, run([]string{filepath.Join(t.TempDir(), "missing.json")}))
}
