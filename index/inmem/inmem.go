// Package inmem provides an embedded core.VectorIndex implementation.
//
// It uses brute-force search with cosine distance, suitable for tests and
// small-to-medium reference sets (up to ~100K vectors). Production
// deployments typically point the orchestrator at an external vector index
// service behind the same interface; this implementation exists so a single
// process can run the full pipeline with no external dependencies.
package inmem

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"os"
	"sort"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeebo/blake3"

	"github.com/drivemind-labs/sceneloop/core"
)

// Record is one stored reference vector with its metadata.
type Record struct {
	ID        string            `msgpack:"id"`
	Embedding []float32         `msgpack:"embedding"`
	Metadata  map[string]string `msgpack:"metadata,omitempty"`
}

// Index is an in-memory named vector index guarded by an RWMutex.
type Index struct {
	mu      sync.RWMutex
	name    string
	dims    int
	records map[string]Record
}

// snapshot is the msgpack-encoded persistent form of an Index.
type snapshot struct {
	Name    string   `msgpack:"name"`
	Dims    int      `msgpack:"dims"`
	Records []Record `msgpack:"records"`
}

// New creates an empty index. name identifies the index in queries; dims is
// the expected embedding dimensionality, or 0 to adopt the dimensionality of
// the first record ingested.
func New(name string, dims int) *Index {
	return &Index{name: name, dims: dims, records: make(map[string]Record)}
}

// Name returns the index name.
func (ix *Index) Name() string { return ix.name }

// Len returns the number of stored records.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.records)
}

// Upsert adds or replaces a record. An empty ID is replaced with a stable
// content-derived identifier (blake3 over the raw vector bytes) so re-ingested
// reference scenes do not duplicate.
func (ix *Index) Upsert(rec Record) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.dims == 0 {
		ix.dims = len(rec.Embedding)
	}
	if len(rec.Embedding) != ix.dims {
		return fmt.Errorf("index %s: embedding dimensions mismatch: expected %d, got %d", ix.name, ix.dims, len(rec.Embedding))
	}
	if rec.ID == "" {
		rec.ID = contentID(rec.Embedding)
	}
	ix.records[rec.ID] = rec
	return nil
}

// UpsertBatch adds multiple records, validating all dimensions first so the
// batch applies atomically.
func (ix *Index) UpsertBatch(recs []Record) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.dims == 0 && len(recs) > 0 {
		ix.dims = len(recs[0].Embedding)
	}
	for i, rec := range recs {
		if len(rec.Embedding) != ix.dims {
			return fmt.Errorf("index %s: record %d: embedding dimensions mismatch: expected %d, got %d", ix.name, i, ix.dims, len(rec.Embedding))
		}
	}
	for _, rec := range recs {
		if rec.ID == "" {
			rec.ID = contentID(rec.Embedding)
		}
		ix.records[rec.ID] = rec
	}
	return nil
}

// Query implements core.VectorIndex using brute-force cosine distance
// (1 - cosine similarity, so 0 means identical). Results are sorted by
// ascending distance and truncated to TopK.
func (ix *Index) Query(ctx context.Context, q core.VectorQuery) ([]core.VectorMatch, error) {
	if q.Index != "" && q.Index != ix.name {
		return nil, fmt.Errorf("index %s: unknown index %q", ix.name, q.Index)
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	// An empty index matches nothing; callers treat that as a cold start.
	if len(ix.records) == 0 {
		return nil, nil
	}
	if len(q.Vector) != ix.dims {
		return nil, fmt.Errorf("index %s: query dimensions mismatch: expected %d, got %d", ix.name, ix.dims, len(q.Vector))
	}

	matches := make([]core.VectorMatch, 0, len(ix.records))
	for _, rec := range ix.records {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		m := core.VectorMatch{ID: rec.ID}
		if q.WantDistance {
			m.Distance = 1 - cosineSimilarity(q.Vector, rec.Embedding)
		}
		if q.WantMetadata && rec.Metadata != nil {
			m.Metadata = make(map[string]string, len(rec.Metadata))
			for k, v := range rec.Metadata {
				m.Metadata[k] = v
			}
		}
		matches = append(matches, m)
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Distance < matches[j].Distance })
	if q.TopK > 0 && len(matches) > q.TopK {
		matches = matches[:q.TopK]
	}
	return matches, nil
}

// Save writes a msgpack snapshot of the index to path.
func (ix *Index) Save(path string) error {
	ix.mu.RLock()
	snap := snapshot{Name: ix.name, Dims: ix.dims, Records: make([]Record, 0, len(ix.records))}
	for _, rec := range ix.records {
		snap.Records = append(snap.Records, rec)
	}
	ix.mu.RUnlock()

	data, err := msgpack.Marshal(&snap)
	if err != nil {
		return fmt.Errorf("index %s: encode snapshot: %w", ix.name, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("index %s: write snapshot: %w", ix.name, err)
	}
	return nil
}

// Load reads a msgpack snapshot written by Save.
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load index snapshot: %w", err)
	}
	var snap snapshot
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("load index snapshot: decode: %w", err)
	}
	ix := New(snap.Name, snap.Dims)
	for _, rec := range snap.Records {
		ix.records[rec.ID] = rec
	}
	return ix, nil
}

// contentID derives a stable hex id from the raw vector bytes.
func contentID(vec []float32) string {
	h := blake3.New()
	buf := make([]byte, 4)
	for _, f := range vec {
		binary.LittleEndian.PutUint32(buf, math.Float32bits(f))
		_, _ = h.Write(buf)
	}
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:16])
}

// cosineSimilarity returns the cosine of the angle between a and b, or 0 when
// either vector has zero magnitude.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Interface compliance (compile-time assertion)
var _ core.VectorIndex = (*Index)(nil)
