package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/siherrmann/hybridqa/helper"
	"github.com/siherrmann/hybridqa/model"
)

// SupportedExtension is the only document type the ingestion accepts.
const SupportedExtension = ".pdf"

var pageFilePattern = regexp.MustCompile(`_p(\d+)_c(\d+)\.txt$`)

// DocID derives the document identifier from a PDF path (the file stem).
func DocID(pdfPath string) string {
	return model.DocIDFromPath(pdfPath)
}

// PageFileName builds the page text file name for a document page.
// The sequence number is always 1; OCR writes one file per page.
func PageFileName(docID string, page int) string {
	return fmt.Sprintf("%s_p%d_c1.txt", docID, page)
}

// ParsePageFileName extracts the page and sequence numbers from a page
// text file name.
func ParsePageFileName(name string) (int, int, error) {
	matches := pageFilePattern.FindStringSubmatch(name)
	if matches == nil {
		return 0, 0, helper.NewError("parse page file name", fmt.Errorf("%v does not match the page file pattern", name))
	}

	page, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0, 0, helper.NewError("parse page number", err)
	}
	seq, err := strconv.Atoi(matches[2])
	if err != nil {
		return 0, 0, helper.NewError("parse sequence number", err)
	}

	return page, seq, nil
}

// PageFile is one page text file of a document.
type PageFile struct {
	Path string
	Page int
	Seq  int
}

// ProcessPDF runs the engine over one PDF and writes the trimmed page
// texts into {outputRoot}/{doc_id}/. It returns the document directory.
func ProcessPDF(ctx context.Context, engine Engine, outputRoot string, pdfPath string) (string, error) {
	docID := DocID(pdfPath)
	documentDir := filepath.Join(outputRoot, docID)
	err := os.MkdirAll(documentDir, 0o755)
	if err != nil {
		return "", helper.NewError("create document directory", err)
	}

	pages, err := engine.ExtractPages(ctx, pdfPath)
	if err != nil {
		return "", helper.NewError("extract pdf pages", err)
	}

	for i, page := range pages {
		pagePath := filepath.Join(documentDir, PageFileName(docID, i+1))
		err := os.WriteFile(pagePath, []byte(strings.TrimSpace(page)), 0o644)
		if err != nil {
			return "", helper.NewError("write page text", err)
		}
	}

	return documentDir, nil
}

// ProcessFolder runs the engine over every PDF in the folder, in sorted
// order, skipping files with other extensions. It returns the document
// directories written.
func ProcessFolder(ctx context.Context, engine Engine, outputRoot string, pdfFolder string) ([]string, error) {
	entries, err := os.ReadDir(pdfFolder)
	if err != nil {
		return nil, helper.NewError("read pdf folder", err)
	}

	var documentDirs []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), SupportedExtension) {
			continue
		}

		documentDir, err := ProcessPDF(ctx, engine, outputRoot, filepath.Join(pdfFolder, entry.Name()))
		if err != nil {
			return nil, helper.NewError("process pdf", err)
		}
		documentDirs = append(documentDirs, documentDir)
	}

	return documentDirs, nil
}

// ListDocuments returns the document IDs under the OCR root in sorted
// order, one per subdirectory.
func ListDocuments(outputRoot string) ([]string, error) {
	entries, err := os.ReadDir(outputRoot)
	if err != nil {
		return nil, helper.NewError("read ocr root", err)
	}

	var docIDs []string
	for _, entry := range entries {
		if entry.IsDir() {
			docIDs = append(docIDs, entry.Name())
		}
	}
	sort.Strings(docIDs)

	return docIDs, nil
}

// ListPageFiles returns the page text files of one document directory,
// sorted by page then sequence number. Files not matching the page file
// pattern are skipped.
func ListPageFiles(documentDir string) ([]PageFile, error) {
	entries, err := os.ReadDir(documentDir)
	if err != nil {
		return nil, helper.NewError("read document directory", err)
	}

	var pageFiles []PageFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		page, seq, err := ParsePageFileName(entry.Name())
		if err != nil {
			continue
		}
		pageFiles = append(pageFiles, PageFile{
			Path: filepath.Join(documentDir, entry.Name()),
			Page: page,
			Seq:  seq,
		})
	}

	sort.Slice(pageFiles, func(i, j int) bool {
		if pageFiles[i].Page != pageFiles[j].Page {
			return pageFiles[i].Page < pageFiles[j].Page
		}
		return pageFiles[i].Seq < pageFiles[j].Seq
	})

	return pageFiles, nil
}

// ReadPageText reads a page text file and trims surrounding whitespace.
func ReadPageText(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", helper.NewError("read page text", err)
	}
	return strings.TrimSpace(string(content)), nil
}
