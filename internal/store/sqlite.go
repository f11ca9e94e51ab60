package store

import (
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/catalogmind/catalog-engine/internal/domain"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS catalogs (
	filename           TEXT PRIMARY KEY,
	position           INTEGER NOT NULL,
	file_path          TEXT NOT NULL,
	summary            TEXT NOT NULL DEFAULT '',
	categories         TEXT NOT NULL DEFAULT '[]',
	keywords           TEXT NOT NULL DEFAULT '[]',
	product_types      TEXT NOT NULL DEFAULT '[]',
	brand_names        TEXT NOT NULL DEFAULT '[]',
	product_names      TEXT NOT NULL DEFAULT '[]',
	main_business_type TEXT NOT NULL DEFAULT '',
	page_count         INTEGER NOT NULL DEFAULT 0,
	processing_date    TEXT,
	is_processed       INTEGER NOT NULL DEFAULT 0,
	detailed_content   TEXT NOT NULL DEFAULT '',
	product_index      TEXT NOT NULL DEFAULT ''
);
`

// SQLitePersister stores the record set in a local SQLite database. Insertion
// order is preserved through an explicit position column.
type SQLitePersister struct {
	db *sql.DB
}

// NewSQLitePersister opens (creating if necessary) the database at path.
func NewSQLitePersister(path, journalMode string) (*SQLitePersister, error) {
	if journalMode == "" {
		journalMode = "WAL"
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode="+journalMode)
	if err != nil {
		return nil, domain.IOError("failed to open sqlite database", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, domain.IOError("failed to initialize sqlite schema", err)
	}
	return &SQLitePersister{db: db}, nil
}

func (p *SQLitePersister) Save(records []*domain.CatalogMetadata) error {
	tx, err := p.db.Begin()
	if err != nil {
		return domain.IOError("failed to begin sqlite transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM catalogs`); err != nil {
		return domain.IOError("failed to clear catalog rows", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO catalogs (
			filename, position, file_path, summary, categories, keywords,
			product_types, brand_names, product_names, main_business_type,
			page_count, processing_date, is_processed, detailed_content, product_index
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return domain.IOError("failed to prepare catalog insert", err)
	}
	defer stmt.Close()

	for i, m := range records {
		var processed *string
		if m.ProcessingDate != nil {
			s := m.ProcessingDate.Format(time.RFC3339Nano)
			processed = &s
		}
		_, err := stmt.Exec(
			m.Filename, i, m.FilePath, m.Summary,
			encodeList(m.Categories), encodeList(m.Keywords),
			encodeList(m.ProductTypes), encodeList(m.BrandNames), encodeList(m.ProductNames),
			m.MainBusinessType, m.PageCount, processed, m.IsProcessed,
			m.DetailedContent, m.ProductIndex,
		)
		if err != nil {
			return domain.IOError("failed to insert catalog row", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.IOError("failed to commit catalog rows", err)
	}
	return nil
}

func (p *SQLitePersister) Load() ([]*domain.CatalogMetadata, error) {
	rows, err := p.db.Query(`
		SELECT filename, file_path, summary, categories, keywords,
		       product_types, brand_names, product_names, main_business_type,
		       page_count, processing_date, is_processed, detailed_content, product_index
		FROM catalogs
		ORDER BY position`)
	if err != nil {
		return nil, domain.IOError("failed to query catalog rows", err)
	}
	defer rows.Close()

	var records []*domain.CatalogMetadata
	for rows.Next() {
		var m domain.CatalogMetadata
		var categories, keywords, productTypes, brandNames, productNames string
		var processed sql.NullString
		err := rows.Scan(
			&m.Filename, &m.FilePath, &m.Summary, &categories, &keywords,
			&productTypes, &brandNames, &productNames, &m.MainBusinessType,
			&m.PageCount, &processed, &m.IsProcessed, &m.DetailedContent, &m.ProductIndex,
		)
		if err != nil {
			return nil, domain.IOError("failed to scan catalog row", err)
		}
		m.Categories = decodeList(categories)
		m.Keywords = decodeList(keywords)
		m.ProductTypes = decodeList(productTypes)
		m.BrandNames = decodeList(brandNames)
		m.ProductNames = decodeList(productNames)
		if processed.Valid {
			if t, err := time.Parse(time.RFC3339Nano, processed.String); err == nil {
				m.ProcessingDate = &t
			}
		}
		records = append(records, &m)
	}
	return records, rows.Err()
}

func (p *SQLitePersister) Close() error { return p.db.Close() }

func encodeList(v []string) string {
	if v == nil {
		v = []string{}
	}
	data, _ := json.Marshal(v)
	return string(data)
}

func decodeList(s string) []string {
	var v []string
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil
	}
	return v
}
