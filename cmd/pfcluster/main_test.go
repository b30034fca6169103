package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/banshee-data/pfcluster/internal/calo/l1hits"
	"github.com/banshee-data/pfcluster/internal/eventio"
	"github.com/banshee-data/pfcluster/internal/monitoring"
	"github.com/banshee-data/pfcluster/internal/overclean"
	"github.com/banshee-data/pfcluster/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultsPath = "../../config/pfcluster.defaults.json"

func writeEvents(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	w, err := eventio.Create(path)
	require.NoError(t, err)

	ev1 := eventio.FromHits(1, testutil.Line([]float64{3, 1, 4}, 1, l1hits.LayerHCALBarrel1))
	ev1.Cleaned = []overclean.RemovedHit{{Energy: 150, Time: 0}}
	ev2 := eventio.FromHits(2, testutil.Line([]float64{1, 3, 1, 0.1, 2}, 1, l1hits.LayerHCALEndcap))
	ev2.Cleaned = []overclean.RemovedHit{{Energy: 100, Time: 0}}
	ev3 := eventio.FromHits(3, testutil.Line([]float64{0.5, 500, 0.5}, 1, l1hits.LayerECALBarrel))
	for _, ev := range []eventio.Event{ev1, ev2, ev3} {
		require.NoError(t, w.Write(ev))
	}
	require.NoError(t, w.Close())
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	defer monitoring.SetLogger(nil)
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func decodeLines[T any](t *testing.T, s string) []T {
	t.Helper()
	var out []T
	dec := json.NewDecoder(strings.NewReader(s))
	for dec.More() {
		var v T
		require.NoError(t, dec.Decode(&v))
		out = append(out, v)
	}
	return out
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "pfcluster dev"))
}

func TestClusterCmd(t *testing.T) {
	for _, name := range []string{"events.jsonl", "events.jsonl.zst"} {
		t.Run(name, func(t *testing.T) {
			in := writeEvents(t, name)
			out, err := run(t, "cluster", "--config", defaultsPath, "--input", in, "--workers", "2")
			require.NoError(t, err)

			results := decodeLines[eventio.ClusterResult](t, out)
			require.Len(t, results, 3)
			assert.Len(t, results[0].Clusters, 2)
			assert.Len(t, results[1].Clusters, 2)
			assert.Len(t, results[2].Clusters, 1)

			var e float64
			for _, c := range results[0].Clusters {
				e += c.Energy
			}
			assert.InDelta(t, 8.0, e, 1e-9)
			assert.NotEmpty(t, results[0].RunID)
			assert.Equal(t, results[0].RunID, results[2].RunID)
		})
	}
}

func TestClusterCmd_OutputFile(t *testing.T) {
	in := writeEvents(t, "events.jsonl.gz")
	outPath := filepath.Join(t.TempDir(), "clusters.jsonl.gz")
	_, err := run(t, "cluster", "-c", defaultsPath, "-i", in, "-o", outPath)
	require.NoError(t, err)

	r, err := eventio.Open(outPath)
	require.NoError(t, err)
	defer r.Close()
	n := 0
	for {
		if _, err := r.Next(); err == io.EOF {
			break
		} else {
			require.NoError(t, err)
		}
		n++
	}
	assert.Equal(t, 3, n)
}

func TestClusterCmd_BadConfig(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(cfg, []byte(`{"showerSigma": 10}`), 0644))
	_, err := run(t, "cluster", "--config", cfg, "--input", writeEvents(t, "e.jsonl"))
	assert.ErrorContains(t, err, "missing required parameter")
}

func TestFilterCmd(t *testing.T) {
	in := writeEvents(t, "events.jsonl")
	out, err := run(t, "filter", "--config", "../../config/overclean.defaults.json", "--input", in)
	require.NoError(t, err)

	results := decodeLines[eventio.FilterResult](t, out)
	require.Len(t, results, 3)
	assert.True(t, results[0].Flag)
	assert.False(t, results[1].Flag)
	assert.False(t, results[2].Flag)
	assert.True(t, results[2].Missing)
}

func TestFilterCmd_DeriveRecords(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "clean.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(`
thresh_Seed_Barrel: 1.4
thresh_Seed_Endcap: 1.4
thresh_Barrel: 0.8
thresh_Endcap: 0.8
nNeighbours: 4
showerSigma: 10.0
posCalcNCrystal: 5
posCalcP1: 1.0
thresh_Clean_Barrel: 200.0
minS4S1_Barrel: 0.04
`), 0644))

	in := writeEvents(t, "events.jsonl")
	out, err := run(t, "filter", "--config", "../../config/overclean.defaults.json", "--input", in, "--derive", cfg)
	require.NoError(t, err)

	results := decodeLines[eventio.FilterResult](t, out)
	require.Len(t, results, 3)
	assert.True(t, results[2].Flag, "isolated 500 GeV hit cleaned and flagged")
	assert.False(t, results[2].Missing)
	require.NotNil(t, results[2].Trigger)
	assert.Equal(t, 500.0, results[2].Trigger.Energy)
}

func TestDisplayCmd(t *testing.T) {
	in := writeEvents(t, "events.jsonl")
	dir := t.TempDir()
	png := filepath.Join(dir, "ev.png")
	html := filepath.Join(dir, "ev.html")

	_, err := run(t, "display", "-c", defaultsPath, "-i", in, "--event", "2", "--png", png, "--html", html)
	require.NoError(t, err)
	for _, p := range []string{png, html} {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}

	_, err = run(t, "display", "-c", defaultsPath, "-i", in, "--event", "9", "--png", png)
	assert.ErrorContains(t, err, "event 9 not found")

	_, err = run(t, "display", "-c", defaultsPath, "-i", in)
	assert.ErrorContains(t, err, "--png or --html")
}
