// Index maintenance: hash-bucket migration for FileHMap, and compact
// snapshot export/import for the corpus-wide aggregates and document
// labels. Adapted from the teacher's hash-algorithm Rehash and its
// Zstd+Ascii85 inline-history compression, repurposed here for bucket
// count migration and index-manifest portability instead of per-record
// history snapshots.
package mir

import (
	"encoding/ascii85"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
)

// Rehash migrates h's records to a freshly created FileHMap with
// newBuckets buckets, at the given paths. Every (key, value) pair is
// re-inserted under the new bucket assignment; h itself is left
// untouched. Like the teacher's Rehash, this is an O(total records)
// rebuild, not an in-place resize.
func (h *FileHMap) Rehash(indexPath, dataPath string, newBuckets int) (*FileHMap, error) {
	migrated, err := NewFileHMap(indexPath, dataPath, h.inner.blockSize, newBuckets)
	if err != nil {
		return nil, err
	}
	for id := 0; id < h.buckets; id++ {
		records, ok, err := h.fullBucket(id)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		for _, r := range records {
			if err := migrated.Set(r.key, r.value); err != nil {
				return nil, err
			}
		}
	}
	return migrated, nil
}

// Shared zstd encoder/decoder, matching the teacher's choice to
// construct each once: encoder/decoder setup dominates the cost of
// compressing the small manifests this code produces.
var (
	snapshotEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	snapshotDecoder, _ = zstd.NewReader(nil)
)

// DocumentLabel is the minimal per-document record carried in a
// snapshot manifest: enough to cross-reference a doc_id against an
// external corpus without re-shipping full document bodies.
type DocumentLabel struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

// SnapshotManifest is the portable, compact description of an index's
// state: global aggregates plus a label for every indexed document.
type SnapshotManifest struct {
	Global    GlobalInfo      `json:"global_info"`
	Documents []DocumentLabel `json:"documents"`
}

// ExportSnapshot writes a compressed manifest of idx's current state
// to w: a Zstd-compressed, Ascii85-encoded JSON payload, newline-free
// so it can be embedded directly in line-delimited formats.
func (idx *Index) ExportSnapshot(w io.Writer) error {
	idx.mu.Lock()
	manifest := SnapshotManifest{Global: idx.global}
	for docID := 0; docID < idx.nextDoc; docID++ {
		contents, err := idx.docContents.Get(docID)
		if err != nil {
			idx.mu.Unlock()
			return err
		}
		manifest.Documents = append(manifest.Documents, DocumentLabel{ID: docID, Title: contents.Title})
	}
	idx.mu.Unlock()

	data, err := json.Marshal(manifest)
	if err != nil {
		return err
	}
	compressed := snapshotEncoder.EncodeAll(data, nil)

	enc := ascii85.NewEncoder(w)
	if _, err := enc.Write(compressed); err != nil {
		return err
	}
	return enc.Close()
}

// ImportManifest reads a snapshot produced by ExportSnapshot and
// returns its decoded contents. It does not mutate idx: callers decide
// how to reconcile the manifest against their own corpus (e.g.
// validating doc_id ranges before a bulk reingest).
func ImportManifest(r io.Reader) (SnapshotManifest, error) {
	var manifest SnapshotManifest

	dec := ascii85.NewDecoder(r)
	compressed, err := io.ReadAll(dec)
	if err != nil {
		return manifest, fmt.Errorf("%w: ascii85: %w", ErrDecompress, err)
	}

	data, err := snapshotDecoder.DecodeAll(compressed, nil)
	if err != nil {
		return manifest, fmt.Errorf("%w: zstd: %w", ErrDecompress, err)
	}

	if err := json.Unmarshal(data, &manifest); err != nil {
		return manifest, fmt.Errorf("%w: json: %w", ErrDecompress, err)
	}
	return manifest, nil
}
