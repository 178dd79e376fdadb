package scanning

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

const (
	mimePDF  = "application/pdf"
	mimePNG  = "image/png"
	mimeJPEG = "image/jpeg"
)

// heicBrands are the ftyp brands that mark an ISO-BMFF file as HEIC/HEIF
var heicBrands = map[string]bool{"heic": true, "heix": true, "heif": true, "mif1": true, "msf1": true}

// toPNG renders a receipt upload as a single PNG image. PDFs are rendered from
// their first page. The returned bool is false when the input was already PNG.
func toPNG(data []byte, contentType string) ([]byte, bool, error) {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if mimeType == "" {
		mimeType = mimeJPEG
	}

	var (
		img image.Image
		err error
	)
	switch {
	case mimeType == mimePDF:
		img, err = renderPDF(data)
	case isHEIC(data, mimeType):
		img, err = heic.Decode(bytes.NewReader(data))
		if err != nil {
			err = fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
	case mimeType == mimePNG:
		return data, false, nil
	default:
		img, _, err = image.Decode(bytes.NewReader(data))
		if err != nil {
			err = fmt.Errorf("decoding image (supported: JPEG, PNG, GIF, HEIC, PDF): %w", err)
		}
	}
	if err != nil {
		return nil, false, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, false, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), true, nil
}

// renderPDF rasterizes the first page; receipts are single page
func renderPDF(data []byte) (image.Image, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}
	return img, nil
}

// isHEIC checks the declared type and the ftyp box; iPhones often upload HEIC
// labelled as image/jpeg
func isHEIC(data []byte, mimeType string) bool {
	if strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif") {
		return true
	}
	return len(data) >= 12 && string(data[4:8]) == "ftyp" && heicBrands[string(data[8:12])]
}
