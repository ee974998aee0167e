package documents

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

const pdfContentType = "application/pdf"

// inspectPDF checks that data is a readable PDF and returns its page count.
func inspectPDF(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("%w: empty file", ErrInvalidFile)
	}
	if ct := http.DetectContentType(data); ct != pdfContentType {
		return 0, fmt.Errorf("%w: expected %s, got %s", ErrInvalidFile, pdfContentType, ct)
	}

	count, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}

	return count, nil
}

// extractText returns the plain text of every page. Failures are logged and
// yield an empty string; a PDF without a text layer is still publishable.
func extractText(logger *slog.Logger, data []byte) (text string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("pdf text extraction panicked", "panic", r)
			text = ""
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		logger.Warn("pdf text extraction failed", "error", err)
		return ""
	}

	var buf strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			logger.Warn("pdf page text extraction failed", "page", i, "error", err)
			continue
		}
		buf.WriteString(content)
		buf.WriteString("\n")
	}

	return sanitizeText(buf.String())
}

// sanitizeText drops NUL bytes and invalid UTF-8, which PostgreSQL text
// columns reject.
func sanitizeText(s string) string {
	s = strings.ToValidUTF8(s, "")
	s = strings.ReplaceAll(s, "\x00", "")
	return strings.TrimSpace(s)
}
