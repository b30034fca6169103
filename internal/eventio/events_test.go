package eventio

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/banshee-data/pfcluster/internal/calo/l1hits"
	"github.com/banshee-data/pfcluster/internal/calo/pipeline"
	"github.com/banshee-data/pfcluster/internal/fsutil"
	"github.com/banshee-data/pfcluster/internal/overclean"
	"github.com/banshee-data/pfcluster/internal/testutil"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestCompressionFor(t *testing.T) {
	assert.Equal(t, CompressionNone, CompressionFor("events.jsonl"))
	assert.Equal(t, CompressionGzip, CompressionFor("events.jsonl.gz"))
	assert.Equal(t, CompressionZstd, CompressionFor("events.jsonl.ZST"))
}

func TestFileRoundTrip(t *testing.T) {
	hits := testutil.Grid([][]float64{{1, 2}, {3, 4}}, 1, l1hits.LayerECALEndcap, true)
	in := []Event{FromHits(1, hits), FromHits(2, hits[:1])}
	in[0].Cleaned = []overclean.RemovedHit{{Energy: 150, Time: 0.5}}

	for _, name := range []string{"ev.jsonl", "ev.jsonl.gz", "ev.jsonl.zst"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			w, err := Create(path)
			require.NoError(t, err)
			for _, ev := range in {
				require.NoError(t, w.Write(ev))
			}
			require.NoError(t, w.Close())

			r, err := Open(path)
			require.NoError(t, err)
			defer r.Close()

			var out []Event
			for {
				ev, err := r.Next()
				if err == io.EOF {
					break
				}
				require.NoError(t, err)
				out = append(out, *ev)
			}
			if diff := cmp.Diff(in, out); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}

			back, err := out[0].ToHits()
			require.NoError(t, err)
			if diff := cmp.Diff(hits, back); diff != "" {
				t.Errorf("hits mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMemoryRoundTrip(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	ev := FromHits(5, testutil.Line([]float64{1, 2}, 1, l1hits.LayerHFHAD))

	w, err := CreateFS(fsys, "runs/ev.jsonl.zst")
	require.NoError(t, err)
	require.NoError(t, w.Write(ev))
	require.NoError(t, w.Close())

	raw, err := fsys.ReadFile("runs/ev.jsonl.zst")
	require.NoError(t, err)
	assert.False(t, strings.HasPrefix(string(raw), "{"), "stored compressed")

	r, err := OpenFS(fsys, "runs/ev.jsonl.zst")
	require.NoError(t, err)
	got, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, ev, *got)
	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
	require.NoError(t, r.Close())

	_, err = OpenFS(fsys, "runs/absent.jsonl")
	assert.Error(t, err)
}

func TestEvent_CleaningRecord(t *testing.T) {
	r := NewReader(strings.NewReader(`{"event":1,"hits":[]}
{"event":2,"hits":[],"cleaned":null}
{"event":3,"hits":[],"cleaned":[]}
{"event":4,"hits":[],"cleaned":[{"energy":10,"time":1}]}
`))
	var recs []*overclean.CleaningRecord
	for {
		ev, err := r.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		recs = append(recs, ev.CleaningRecord())
	}
	require.Len(t, recs, 4)
	assert.Nil(t, recs[0], "absent record is missing")
	assert.Nil(t, recs[1], "null record is missing")
	require.NotNil(t, recs[2], "empty record is present")
	assert.Empty(t, recs[2].Hits)
	assert.Equal(t, []overclean.RemovedHit{{Energy: 10, Time: 1}}, recs[3].Hits)
	assert.NoError(t, r.Close())
}

func TestEvent_ToHitsRejectsLayer(t *testing.T) {
	ev := Event{Event: 7, Hits: []HitRecord{{ID: 3, Layer: "TRACKER"}}}
	_, err := ev.ToHits()
	assert.ErrorContains(t, err, "event 7 hit 3")
}

func TestReader_Malformed(t *testing.T) {
	r := NewReader(strings.NewReader(`{"event":1,"hits":[}`))
	_, err := r.Next()
	assert.ErrorContains(t, err, "decode event")
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "absent.jsonl.gz"))
	assert.Error(t, err)
}

func TestNewClusterResult(t *testing.T) {
	e, err := pipeline.New(pipeline.DefaultConfig())
	require.NoError(t, err)
	_, res, err := e.RunHits(context.Background(), testutil.Line([]float64{4, 1, 4}, 1, l1hits.LayerHCALBarrel1))
	require.NoError(t, err)

	out := NewClusterResult("run", 9, res)
	assert.Equal(t, uint64(9), out.Event)
	assert.Equal(t, 1, out.TopoClusters)
	assert.Len(t, out.Fingerprint, 16)
	require.Len(t, out.Clusters, 2)
	c := out.Clusters[0]
	assert.Equal(t, uint64(1), c.Seed)
	assert.Equal(t, "HCAL_BARREL1", c.Layer)
	assert.InDelta(t, 4.5, c.Energy, 1e-12)
	assert.Equal(t, []FractionRecord{{1, 1}, {2, 0.5}}, c.Fractions)
	require.NotNil(t, c.Eta)
	require.NotNil(t, c.Phi)
}

func TestNewClusterResult_OnBeamAxis(t *testing.T) {
	e, err := pipeline.New(pipeline.DefaultConfig())
	require.NoError(t, err)
	hits := []l1hits.Hit{{ID: 1, Position: r3.Vec{Z: 1100}, Energy: 5, Layer: l1hits.LayerHFEM}}
	_, res, err := e.RunHits(context.Background(), hits)
	require.NoError(t, err)
	require.Len(t, res.Clusters, 1)

	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.Write(NewClusterResult("run", 1, res)))
	require.NoError(t, w.Close())

	var got ClusterResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got.Clusters, 1)
	assert.Nil(t, got.Clusters[0].Eta)
	assert.InDelta(t, 1100, got.Clusters[0].Z, 1e-9)
	assert.NotContains(t, buf.String(), `"eta"`)
}

func TestNewFilterResult(t *testing.T) {
	rec := &overclean.CleaningRecord{Hits: []overclean.RemovedHit{{Energy: 10}, {Energy: 150}}}
	f := overclean.Filter{EnergyCut: 130}

	out := NewFilterResult("", 1, rec, f.Decide(rec))
	assert.True(t, out.Flag)
	require.NotNil(t, out.Trigger)
	assert.Equal(t, 150.0, out.Trigger.Energy)

	out = NewFilterResult("", 2, nil, f.Decide(nil))
	assert.False(t, out.Flag)
	assert.True(t, out.Missing)
	assert.Nil(t, out.Trigger)
}
