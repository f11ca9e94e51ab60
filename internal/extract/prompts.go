package extract

import "fmt"

const metadataPrompt = `Analyze these pages from a product catalog PDF and extract key information.

Return ONLY a JSON object with these exact fields:
{
  "summary": "2-3 sentence description of what this catalog contains",
  "categories": ["list", "of", "product", "categories"],
  "keywords": ["searchable", "keywords", "and", "terms"],
  "product_types": ["types", "of", "products", "offered"],
  "brand_names": ["brands", "found", "in", "catalog"],
  "product_names": ["specific", "product", "names", "or", "models"],
  "main_business_type": "primary business category"
}

Be thorough with keywords and product types so the catalog can be matched to
user questions later. Do not include any text outside the JSON object.`

func batchAnalysisPrompt(start, end, total int) string {
	return fmt.Sprintf(`You are analyzing pages %d-%d of a %d-page product catalog.

For EVERY product visible on these pages, extract:
- Product name and model number
- Price (with currency symbol) if shown
- Key specifications and features
- Page number where the product appears

Also note any category headings, brand names, and ordering information.
Write a detailed, structured summary. Do not skip products.`, start, end, total)
}

const productIndexPrompt = `Build a page-by-page product index from this catalog content.

For each page that lists products, output one line per product in the form:
PAGE {n}: {product name} - {model/price if known}

Include every product mentioned. Output only the index lines, no commentary.

Catalog content:
%s`

const consolidationPrompt = `The following is a raw page-by-page analysis of a product catalog. Consolidate
it into a single well-organized document that preserves ALL product names,
model numbers, prices, specifications, and page references. Remove only
repetition and filler. Structure it as:

=== PRODUCT INDEX ===
(page-by-page list of products)

=== DETAILED CATALOG CONTENT ===
(organized product details)

Raw analysis:
%s`
