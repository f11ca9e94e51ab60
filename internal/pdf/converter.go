// Package pdf implements the document rasterizer collaborator using go-fitz.
package pdf

import (
	"context"
	"fmt"
	"image/jpeg"
	"os"
	"path/filepath"

	"github.com/gen2brain/go-fitz"

	"github.com/catalogmind/catalog-engine/internal/domain"
	"github.com/catalogmind/catalog-engine/internal/observability"
)

// Converter implements PDF to image conversion using go-fitz. Each
// Rasterize call is independent; no state is shared between calls beyond
// the temp-file list used by Cleanup.
type Converter struct {
	jpegQuality int
	logger      *observability.Logger
	tempDirs    []string
}

// NewConverter creates a new PDF converter instance.
func NewConverter(jpegQuality int, logger *observability.Logger) *Converter {
	if jpegQuality < 1 || jpegQuality > 100 {
		jpegQuality = 85
	}
	if logger == nil {
		logger = observability.DefaultLogger()
	}
	return &Converter{
		jpegQuality: jpegQuality,
		logger:      logger,
	}
}

// Rasterize converts a PDF file to a series of JPG page images at the given
// DPI, preserving page order.
func (c *Converter) Rasterize(ctx context.Context, pdfPath string, dpi int) ([]domain.PageImage, error) {
	if err := ValidatePDFPath(pdfPath); err != nil {
		return nil, err
	}
	if dpi < 36 || dpi > 600 {
		return nil, domain.ValidationError(fmt.Sprintf("dpi must be between 36 and 600, got %d", dpi), nil)
	}

	doc, err := fitz.New(pdfPath)
	if err != nil {
		return nil, domain.ConversionError("failed to open PDF", err)
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	if pageCount == 0 {
		return nil, domain.ValidationError("PDF has no pages", nil)
	}

	tempDir, err := os.MkdirTemp("", "catalog-pages-*")
	if err != nil {
		return nil, domain.IOError("failed to create temp directory", err)
	}
	c.tempDirs = append(c.tempDirs, tempDir)

	c.logger.Info().
		Str("pdf", filepath.Base(pdfPath)).
		Int("pages", pageCount).
		Int("dpi", dpi).
		Msg("converting pages to images")

	images := make([]domain.PageImage, 0, pageCount)

	for pageNum := 0; pageNum < pageCount; pageNum++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		img, err := doc.ImageDPI(pageNum, float64(dpi))
		if err != nil {
			return nil, domain.ConversionError(fmt.Sprintf("failed to convert page %d", pageNum+1), err)
		}

		outputPath := filepath.Join(tempDir, fmt.Sprintf("page_%03d.jpg", pageNum+1))
		outputFile, err := os.Create(outputPath)
		if err != nil {
			return nil, domain.IOError(fmt.Sprintf("failed to create output file for page %d", pageNum+1), err)
		}

		err = jpeg.Encode(outputFile, img, &jpeg.Options{Quality: c.jpegQuality})
		outputFile.Close()
		if err != nil {
			return nil, domain.ConversionError(fmt.Sprintf("failed to encode page %d as JPG", pageNum+1), err)
		}

		bounds := img.Bounds()
		images = append(images, domain.PageImage{
			PageNumber: pageNum + 1,
			ImagePath:  outputPath,
			Width:      bounds.Dx(),
			Height:     bounds.Dy(),
		})
	}

	return images, nil
}

// Cleanup removes temporary page images from all prior Rasterize calls.
func (c *Converter) Cleanup() error {
	var errs []error
	for _, dir := range c.tempDirs {
		if err := os.RemoveAll(dir); err != nil {
			errs = append(errs, err)
		}
	}
	c.tempDirs = nil

	if len(errs) > 0 {
		return fmt.Errorf("cleanup errors: %v", errs)
	}
	return nil
}
