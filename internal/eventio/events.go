package eventio

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/banshee-data/pfcluster/internal/calo/l1hits"
	"github.com/banshee-data/pfcluster/internal/fsutil"
	"github.com/banshee-data/pfcluster/internal/overclean"
	"gonum.org/v1/gonum/spatial/r3"
)

// HitRecord is one calorimeter hit on the wire.
type HitRecord struct {
	ID         uint64   `json:"id"`
	X          float64  `json:"x"`
	Y          float64  `json:"y"`
	Z          float64  `json:"z"`
	Energy     float64  `json:"energy"`
	Time       float64  `json:"time"`
	Layer      string   `json:"layer"`
	Neighbours []uint64 `json:"neighbours,omitempty"`
}

// Event is one line of an input stream. A null or absent "cleaned" field
// means the cleaning record is missing for the event.
type Event struct {
	Event   uint64                 `json:"event"`
	Hits    []HitRecord            `json:"hits"`
	Cleaned []overclean.RemovedHit `json:"cleaned"`
}

// ToHits converts the wire hits. Unknown layers are an error.
func (e *Event) ToHits() ([]l1hits.Hit, error) {
	hits := make([]l1hits.Hit, len(e.Hits))
	for i, h := range e.Hits {
		layer, err := l1hits.ParseLayer(h.Layer)
		if err != nil {
			return nil, fmt.Errorf("event %d hit %d: %w", e.Event, h.ID, err)
		}
		hits[i] = l1hits.Hit{
			ID:         h.ID,
			Position:   r3.Vec{X: h.X, Y: h.Y, Z: h.Z},
			Energy:     h.Energy,
			Time:       h.Time,
			Layer:      layer,
			Neighbours: h.Neighbours,
		}
	}
	return hits, nil
}

// CleaningRecord returns the event's cleaning record, nil when missing.
func (e *Event) CleaningRecord() *overclean.CleaningRecord {
	if e.Cleaned == nil {
		return nil
	}
	return &overclean.CleaningRecord{Hits: e.Cleaned}
}

// FromHits builds an Event from hits.
func FromHits(event uint64, hits []l1hits.Hit) Event {
	ev := Event{Event: event, Hits: make([]HitRecord, len(hits))}
	for i, h := range hits {
		ev.Hits[i] = HitRecord{
			ID:         h.ID,
			X:          h.Position.X,
			Y:          h.Position.Y,
			Z:          h.Position.Z,
			Energy:     h.Energy,
			Time:       h.Time,
			Layer:      h.Layer.String(),
			Neighbours: h.Neighbours,
		}
	}
	return ev
}

// Reader decodes events from a JSON-lines stream.
type Reader struct {
	rc  io.Closer
	dec *json.Decoder
}

// NewReader reads uncompressed JSON lines from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{dec: json.NewDecoder(r)}
}

// Open opens an event file, decompressing by extension. "-" is stdin.
func Open(path string) (*Reader, error) {
	if path == "-" {
		return NewReader(os.Stdin), nil
	}
	return OpenFS(fsutil.OSFileSystem{}, path)
}

// OpenFS opens an event file on fsys, decompressing by extension.
func OpenFS(fsys fsutil.FileSystem, path string) (*Reader, error) {
	rc, err := openFile(fsys, path)
	if err != nil {
		return nil, err
	}
	return &Reader{rc: rc, dec: json.NewDecoder(rc)}, nil
}

// Next returns the next event, or io.EOF at the end of the stream.
func (r *Reader) Next() (*Event, error) {
	var ev Event
	if err := r.dec.Decode(&ev); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return &ev, nil
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	if r.rc == nil {
		return nil
	}
	return r.rc.Close()
}

// Writer encodes JSON lines, one value per line.
type Writer struct {
	f   io.Closer
	zw  io.WriteCloser
	enc *json.Encoder
}

// NewWriter writes uncompressed JSON lines to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{enc: json.NewEncoder(w)}
}

// Create creates path, compressing by extension. "-" is stdout.
func Create(path string) (*Writer, error) {
	if path == "-" {
		return NewWriter(os.Stdout), nil
	}
	return CreateFS(fsutil.OSFileSystem{}, path)
}

// CreateFS creates path on fsys, compressing by extension.
func CreateFS(fsys fsutil.FileSystem, path string) (*Writer, error) {
	f, err := fsys.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	zw, err := newCompressor(f, CompressionFor(path))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return &Writer{f: f, zw: zw, enc: json.NewEncoder(zw)}, nil
}

// Write encodes v as one line.
func (w *Writer) Write(v any) error {
	if err := w.enc.Encode(v); err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	return nil
}

// Close flushes compression and closes the file.
func (w *Writer) Close() error {
	var err error
	if w.zw != nil {
		err = w.zw.Close()
	}
	if w.f != nil {
		if ferr := w.f.Close(); err == nil {
			err = ferr
		}
	}
	return err
}
