package store

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/catalogmind/catalog-engine/internal/domain"
)

// MetadataFileName is the JSON document holding every catalog record.
const MetadataFileName = "catalog_metadata.json"

type metadataFile struct {
	Catalogs []*domain.CatalogMetadata `json:"catalogs"`
}

// JSONPersister serializes the record set to a single JSON document in the
// storage directory, written atomically via temp-file rename.
type JSONPersister struct {
	path string
}

// NewJSONPersister persists records under dir as catalog_metadata.json.
func NewJSONPersister(dir string) *JSONPersister {
	return &JSONPersister{path: filepath.Join(dir, MetadataFileName)}
}

func (p *JSONPersister) Save(records []*domain.CatalogMetadata) error {
	doc := metadataFile{Catalogs: records}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return domain.IOError("failed to encode catalog metadata", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p.path), ".metadata-*.json")
	if err != nil {
		return domain.IOError("failed to stage catalog metadata", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return domain.IOError("failed to write catalog metadata", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return domain.IOError("failed to write catalog metadata", err)
	}
	if err := os.Rename(tmpPath, p.path); err != nil {
		os.Remove(tmpPath)
		return domain.IOError("failed to replace catalog metadata", err)
	}
	return nil
}

func (p *JSONPersister) Load() ([]*domain.CatalogMetadata, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, domain.IOError("failed to read catalog metadata", err)
	}

	var doc metadataFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, domain.IOError("catalog metadata file is corrupt", err)
	}
	return doc.Catalogs, nil
}

func (p *JSONPersister) Close() error { return nil }
