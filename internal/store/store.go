// Package store implements the catalog metadata store: an insertion-ordered
// in-memory map of catalog records, persisted to local disk after every
// mutation.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/catalogmind/catalog-engine/internal/domain"
	"github.com/catalogmind/catalog-engine/internal/observability"
)

// NoCatalogsMessage is returned by Summaries when the library is empty.
const NoCatalogsMessage = "No catalogs available."

// CatalogExtractor produces a fully populated metadata record from a stored
// PDF. Implemented by the content extractor; stubbed in tests.
type CatalogExtractor interface {
	ExtractCatalog(ctx context.Context, pdfPath, filename string) (*domain.CatalogMetadata, error)
}

// Persister serializes the full record set after each mutation and restores
// it on startup.
type Persister interface {
	// Save writes all records, in insertion order.
	Save(records []*domain.CatalogMetadata) error
	// Load restores all records in the order they were saved. A missing
	// backing file yields an empty slice and no error.
	Load() ([]*domain.CatalogMetadata, error)
	Close() error
}

// Library owns the collection of catalog records and their backing PDF
// files. It is the sole writer to the persisted metadata; all mutations are
// serialized by an internal lock.
type Library struct {
	// MaxCatalogs caps how many catalogs Add accepts; zero means no cap.
	// Set once after Open, before the library is shared across goroutines.
	MaxCatalogs int

	mu        sync.Mutex
	dir       string
	persister Persister
	logger    *observability.Logger

	catalogs map[string]*domain.CatalogMetadata
	order    []string
}

// Open creates a Library over the given storage directory, reloading any
// previously persisted records. A corrupt metadata file is logged and the
// library starts empty; it is never an error for the caller.
func Open(dir string, persister Persister, logger *observability.Logger) (*Library, error) {
	if logger == nil {
		logger = observability.DefaultLogger()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, domain.IOError("failed to create storage directory", err)
	}

	l := &Library{
		dir:       dir,
		persister: persister,
		logger:    logger,
		catalogs:  make(map[string]*domain.CatalogMetadata),
	}

	records, err := persister.Load()
	if err != nil {
		logger.Warn().Err(err).Msg("metadata file unreadable, starting with empty library")
		return l, nil
	}
	for _, m := range records {
		l.catalogs[m.Filename] = m
		l.order = append(l.order, m.Filename)
	}

	logger.Info().Int("catalogs", len(l.order)).Str("dir", dir).Msg("catalog library loaded")
	return l, nil
}

// Add persists the PDF payload under the storage directory, runs extraction,
// and inserts (or overwrites) the record keyed by filename. The add is
// atomic: if extraction fails, neither the record nor the backing file is
// kept, and any previously stored catalog under the same name is untouched.
// The catalog cap is enforced here, under the lock; re-uploads of an
// existing name are always allowed.
func (l *Library) Add(ctx context.Context, filename string, pdfData []byte, extractor CatalogExtractor) (*domain.CatalogMetadata, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.MaxCatalogs > 0 && len(l.catalogs) >= l.MaxCatalogs {
		if _, exists := l.catalogs[filename]; !exists {
			return nil, domain.ValidationError(
				fmt.Sprintf("catalog limit of %d reached", l.MaxCatalogs), nil)
		}
	}

	finalPath := filepath.Join(l.dir, filename)

	// Extraction runs against a staging copy so a failure never clobbers an
	// existing upload of the same name.
	tmp, err := os.CreateTemp(l.dir, ".upload-*.pdf")
	if err != nil {
		return nil, domain.IngestionError("failed to stage uploaded PDF", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(pdfData); err != nil {
		tmp.Close()
		return nil, domain.IngestionError("failed to write uploaded PDF", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, domain.IngestionError("failed to write uploaded PDF", err)
	}

	meta, err := extractor.ExtractCatalog(ctx, tmpPath, filename)
	if err != nil {
		return nil, domain.IngestionError(fmt.Sprintf("extraction failed for %s", filename), err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		return nil, domain.IngestionError("failed to store uploaded PDF", err)
	}

	meta.Filename = filename
	meta.FilePath = finalPath

	if _, exists := l.catalogs[filename]; !exists {
		l.order = append(l.order, filename)
	}
	l.catalogs[filename] = meta

	l.save()
	return meta, nil
}

// Get returns the record for name, or nil if unknown.
func (l *Library) Get(name string) *domain.CatalogMetadata {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.catalogs[name]
}

// Remove deletes the backing file and the record. Returns false if the name
// is unknown. A backing file that is already missing is logged and skipped,
// never fatal.
func (l *Library) Remove(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	meta, ok := l.catalogs[name]
	if !ok {
		return false
	}

	if meta.FilePath != "" {
		if err := os.Remove(meta.FilePath); err != nil && !os.IsNotExist(err) {
			l.logger.Warn().Err(err).Str("catalog", name).Msg("failed to delete backing file")
		} else if os.IsNotExist(err) {
			l.logger.Warn().Str("catalog", name).Msg("backing file already missing")
		}
	}

	delete(l.catalogs, name)
	for i, n := range l.order {
		if n == name {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}

	l.save()
	return true
}

// List returns all records in insertion order.
func (l *Library) List() []*domain.CatalogMetadata {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]*domain.CatalogMetadata, 0, len(l.order))
	for _, name := range l.order {
		out = append(out, l.catalogs[name])
	}
	return out
}

// Names returns all catalog names in insertion order.
func (l *Library) Names() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.order...)
}

// Len returns the number of stored catalogs.
func (l *Library) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.catalogs)
}

// Summaries returns a deterministic, human-readable concatenation of every
// record's human-facing fields in insertion order. Repeated calls with no
// mutation in between produce byte-identical output; the ranker's prompt
// construction depends on that.
func (l *Library) Summaries() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.order) == 0 {
		return NoCatalogsMessage
	}

	parts := make([]string, 0, len(l.order))
	for _, name := range l.order {
		parts = append(parts, l.catalogs[name].SummaryText())
	}
	return strings.Join(parts, "\n\n")
}

// Fingerprint identifies the current library contents. It changes whenever
// a catalog is added, re-uploaded, or removed, which makes it a safe cache
// key component for query answers.
func (l *Library) Fingerprint() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	names := append([]string(nil), l.order...)
	sort.Strings(names)

	h := sha256.New()
	for _, name := range names {
		m := l.catalogs[name]
		fmt.Fprintf(h, "%s|%d|", name, m.PageCount)
		if m.ProcessingDate != nil {
			fmt.Fprintf(h, "%d", m.ProcessingDate.UnixNano())
		}
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Close releases the persister.
func (l *Library) Close() error {
	return l.persister.Close()
}

// save persists the current record set. Persistence failures are logged,
// not propagated: the in-memory state is already mutated and the next
// successful save will catch it up.
func (l *Library) save() {
	records := make([]*domain.CatalogMetadata, 0, len(l.order))
	for _, name := range l.order {
		records = append(records, l.catalogs[name])
	}
	if err := l.persister.Save(records); err != nil {
		l.logger.Error().Err(err).Msg("failed to persist catalog metadata")
	}
}
