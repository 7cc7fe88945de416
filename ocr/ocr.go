// Package ocr turns PDFs into per-page raw text files on disk.
// The actual text extraction sits behind the Engine interface; the
// default engine shells out to poppler and tesseract. The page file
// naming convention defined here is what the chunking layer parses
// the page and sequence numbers from.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/siherrmann/hybridqa/helper"
)

// Engine extracts the raw text of every page of a PDF, ordered by page
// number.
type Engine interface {
	ExtractPages(ctx context.Context, pdfPath string) ([]string, error)
}

// EngineFunc adapts a function to the Engine interface.
type EngineFunc func(ctx context.Context, pdfPath string) ([]string, error)

func (f EngineFunc) ExtractPages(ctx context.Context, pdfPath string) ([]string, error) {
	return f(ctx, pdfPath)
}

// TesseractEngine rasterizes PDF pages with pdftoppm and runs tesseract
// on each page image. Both binaries must be on PATH.
type TesseractEngine struct {
	// Language is the tesseract language code, eg. "eng" or "eng+deu".
	Language string
	// DPI is the rasterization resolution.
	DPI int
}

// NewTesseractEngine creates an engine with english at 300 dpi.
func NewTesseractEngine() *TesseractEngine {
	return &TesseractEngine{
		Language: "eng",
		DPI:      300,
	}
}

// ExtractPages converts the PDF into page images in a temporary directory
// and OCRs them one by one.
func (e *TesseractEngine) ExtractPages(ctx context.Context, pdfPath string) ([]string, error) {
	tempDir, err := os.MkdirTemp("", "hybridqa-ocr-")
	if err != nil {
		return nil, helper.NewError("create temporary ocr directory", err)
	}
	defer os.RemoveAll(tempDir)

	// pdftoppm zero-pads the page number, so the glob below sorts
	// lexicographically into page order.
	rasterize := exec.CommandContext(ctx, "pdftoppm", "-png", "-r", strconv.Itoa(e.DPI), pdfPath, filepath.Join(tempDir, "page"))
	var stderr bytes.Buffer
	rasterize.Stderr = &stderr
	err = rasterize.Run()
	if err != nil {
		return nil, helper.NewError("rasterize pdf pages", fmt.Errorf("%w: %s", err, stderr.String()))
	}

	images, err := filepath.Glob(filepath.Join(tempDir, "page-*.png"))
	if err != nil {
		return nil, helper.NewError("collect page images", err)
	}
	sort.Strings(images)

	pages := make([]string, 0, len(images))
	for _, image := range images {
		recognize := exec.CommandContext(ctx, "tesseract", image, "stdout", "-l", e.Language)
		var out bytes.Buffer
		stderr.Reset()
		recognize.Stdout = &out
		recognize.Stderr = &stderr
		err := recognize.Run()
		if err != nil {
			return nil, helper.NewError("recognize page text", fmt.Errorf("%w: %s", err, stderr.String()))
		}
		pages = append(pages, out.String())
	}

	return pages, nil
}
