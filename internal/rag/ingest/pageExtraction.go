package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/akolanti/PDFChat/internal/config"
	"github.com/akolanti/PDFChat/internal/domain/commonModels"
	"github.com/dslipak/pdf"
)

var ErrNoText = errors.New("pdf has no extractable text")

// ExtractPDFFile reads the file at path and extracts it under the name of its base path.
func ExtractPDFFile(path string) ([]commonModels.RawPage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pdf: %w", err)
	}
	return ExtractPDF(filepath.Base(path), data)
}

// ExtractPDF returns one raw page per page with text. Pages without text are skipped.
func ExtractPDF(name string, data []byte) ([]commonModels.RawPage, error) {
	log := logger.With("file", name)
	f, err := openPDF(data)
	if err != nil {
		log.Error("failed opening of pdf file", "error", err)
		return nil, fmt.Errorf("failed to open pdf %s: %w", name, err)
	}

	numPages := f.NumPage()
	log.Debug("extractPDF", "numberOfPages", numPages)

	var pages []commonModels.RawPage
	for i := 1; i <= numPages; i++ {
		page := f.Page(i)
		if page.V.IsNull() {
			continue
		}

		content, err := protectExtract(page, config.PageExtractLimit)
		if err != nil {
			log.Error("Error parsing page content", "page", i, "error", err)
			continue
		}
		if strings.TrimSpace(content) == "" {
			log.Debug("skipping page without text", "page", i)
			continue
		}

		pages = append(pages, commonModels.RawPage{
			PageContent: content,
			Metadata: map[string]any{
				commonModels.MetaSource:     name,
				commonModels.MetaPageNumber: i,
				commonModels.MetaTotalPages: numPages,
			},
		})
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrNoText)
	}
	return pages, nil
}

// CountPages opens the pdf only to read its page count.
func CountPages(data []byte) (int, error) {
	f, err := openPDF(data)
	if err != nil {
		return 0, err
	}
	return f.NumPage(), nil
}

func openPDF(data []byte) (f *pdf.Reader, err error) {
	// the parser panics on some malformed files
	defer func() {
		if r := recover(); r != nil {
			f, err = nil, fmt.Errorf("malformed pdf: %v", r)
		}
	}()
	return pdf.NewReader(bytes.NewReader(data), int64(len(data)))
}

func protectExtract(page pdf.Page, limit time.Duration) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				resChan <- result{err: fmt.Errorf("page extraction panicked: %v", r)}
			}
		}()
		content, err := page.GetPlainText(nil)
		resChan <- result{content, err}
	}()

	timer := time.NewTimer(limit)
	defer timer.Stop()
	select {
	case r := <-resChan:
		return r.content, r.err
	case <-timer.C:
		return "", errors.New("page extraction timed out")
	}
}
