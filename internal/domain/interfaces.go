package domain

import "context"

// Generator is the boundary to the hosted multimodal completion service.
// All SDK-specific response-shape handling lives behind this interface: a
// successful call returns plain text, a failed call returns an error, and
// the two are never conflated.
type Generator interface {
	// Generate sends a prompt, optionally with page images, and returns the
	// model's text output.
	Generate(ctx context.Context, prompt string, images []PageImage) (string, error)
}

// Rasterizer converts a PDF file into an ordered sequence of page images.
type Rasterizer interface {
	// Rasterize renders every page of the PDF at the given DPI, in page order.
	Rasterize(ctx context.Context, pdfPath string, dpi int) ([]PageImage, error)

	// Cleanup removes temporary files created during rasterization.
	Cleanup() error
}
