package loader

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// docxBody is the part of a DOCX archive that holds the document text.
const docxBody = "word/document.xml"

// ErrNotDOCX is returned for archives without a Word document body.
var ErrNotDOCX = errors.New("not a docx file")

// ParseDOCX extracts paragraph text from a Word document. Explicit page
// breaks start a new page; a document without any is a single page.
func ParseDOCX(ctx context.Context, path string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotDOCX, err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != docxBody {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", docxBody, err)
		}
		defer rc.Close()
		return docxPages(rc)
	}
	return nil, fmt.Errorf("%w: missing %s", ErrNotDOCX, docxBody)
}

// docxPages walks the WordprocessingML token stream. Only the local names
// matter: p is a paragraph, t holds text, tab and br are inline breaks.
func docxPages(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)

	var (
		pages  []string
		page   strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", docxBody, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				page.WriteByte('\t')
			case "br", "cr":
				if isPageBreak(t) {
					pages = append(pages, strings.TrimSpace(page.String()))
					page.Reset()
				} else {
					page.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				page.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				page.Write(t)
			}
		}
	}
	return append(pages, strings.TrimSpace(page.String())), nil
}

func isPageBreak(el xml.StartElement) bool {
	for _, a := range el.Attr {
		if a.Name.Local == "type" && a.Value == "page" {
			return true
		}
	}
	return false
}
