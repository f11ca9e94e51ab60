package domain

import (
	"fmt"
	"strings"
	"time"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// CatalogMetadata describes one uploaded product catalog. Filename is the
// identity key: re-uploading the same filename overwrites the record.
type CatalogMetadata struct {
	Filename         string     `json:"filename"`
	FilePath         string     `json:"file_path"`
	Summary          string     `json:"summary"`
	Categories       []string   `json:"categories"`
	Keywords         []string   `json:"keywords"`
	ProductTypes     []string   `json:"product_types"`
	BrandNames       []string   `json:"brand_names"`
	ProductNames     []string   `json:"product_names"`
	MainBusinessType string     `json:"main_business_type"`
	PageCount        int        `json:"page_count"`
	ProcessingDate   *time.Time `json:"processing_date,omitempty"`
	IsProcessed      bool       `json:"is_processed"`

	// DetailedContent is the consolidated knowledge base built during
	// extraction. Empty until extraction completes.
	DetailedContent string `json:"detailed_content"`

	// ProductIndex is a compact searchable index of the catalog's products.
	// Queried before the full content because it is smaller and more precise.
	ProductIndex string `json:"product_index"`
}

// NewCatalogMetadata creates an unprocessed record for an uploaded catalog.
// FilePath is filled in by the store once the backing file is in place.
func NewCatalogMetadata(filename string) *CatalogMetadata {
	return &CatalogMetadata{
		Filename:     filename,
		Categories:   []string{},
		Keywords:     []string{},
		ProductTypes: []string{},
		BrandNames:   []string{},
		ProductNames: []string{},
	}
}

// SummaryText renders the human-facing fields of the record in the fixed
// shape the Relevance Ranker's prompt embeds.
func (m *CatalogMetadata) SummaryText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Catalog: %s\n", m.Filename)
	fmt.Fprintf(&b, "Summary: %s\n", m.Summary)
	fmt.Fprintf(&b, "Categories: %s\n", strings.Join(m.Categories, ", "))
	fmt.Fprintf(&b, "Product Types: %s\n", strings.Join(m.ProductTypes, ", "))
	fmt.Fprintf(&b, "Keywords: %s\n", strings.Join(m.Keywords, ", "))
	fmt.Fprintf(&b, "Brand Names: %s\n", strings.Join(m.BrandNames, ", "))
	fmt.Fprintf(&b, "Product Names: %s\n", strings.Join(m.ProductNames, ", "))
	fmt.Fprintf(&b, "Pages: %d", m.PageCount)
	return b.String()
}

// CatalogSearchResult is one ranked catalog for a query. Produced fresh per
// query and discarded after response formatting; never persisted.
type CatalogSearchResult struct {
	CatalogName    string  `json:"catalog"`
	RelevanceScore float64 `json:"relevance_score"`
	Reason         string  `json:"reason"`
}

// ChatMessage is the output contract toward the presentation layer.
type ChatMessage struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// PageImage is a single rasterized PDF page.
type PageImage struct {
	PageNumber int
	ImagePath  string // path to temporary JPG file
	Width      int
	Height     int
}

// ExtractionData is the structured metadata parsed out of the model's JSON
// response for a catalog's sample pages.
type ExtractionData struct {
	Summary          string   `json:"summary"`
	Categories       []string `json:"categories"`
	Keywords         []string `json:"keywords"`
	ProductTypes     []string `json:"product_types"`
	MainBusinessType string   `json:"main_business_type"`
	BrandNames       []string `json:"brand_names"`
	ProductNames     []string `json:"product_names"`
}
