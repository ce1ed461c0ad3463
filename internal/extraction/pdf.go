package extraction

import (
	"bytes"
	"fmt"
	"image/jpeg"

	"github.com/gen2brain/go-fitz"
)

// maxPDFPages caps how many pages are rendered for the vision model.
// Invoices are rarely longer than one page; two keeps token costs bounded.
const maxPDFPages = 2

// pdfToImages renders the first pages of a PDF to JPEG using mupdf
func pdfToImages(content []byte) ([][]byte, error) {
	doc, err := fitz.NewFromMemory(content)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	pages := doc.NumPage()
	if pages == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}
	if pages > maxPDFPages {
		pages = maxPDFPages
	}

	images := make([][]byte, 0, pages)
	for i := 0; i < pages; i++ {
		img, err := doc.Image(i)
		if err != nil {
			return nil, fmt.Errorf("failed to render PDF page %d: %w", i, err)
		}

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
			return nil, fmt.Errorf("failed to encode PDF page %d: %w", i, err)
		}
		images = append(images, buf.Bytes())
	}

	return images, nil
}
