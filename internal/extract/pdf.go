// Package extract implements structural extraction of tabular and textual
// data from published league PDFs. Table geometry is attempted under an
// ordered list of strategies; when no tables are found, callers fall back to
// line-based text parsing, then to model-assisted extraction.
package extract

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// word is one horizontally merged run of text on a page.
type word struct {
	x, y, endX float64
	fontSize   float64
	s          string
}

func openReader(data []byte) (*pdf.Reader, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	return r, nil
}

// Text extracts the plain text of every page, joined with newlines.
// Lines preserve wide horizontal gaps as double spaces so that downstream
// line parsing can split columns on runs of whitespace.
func Text(data []byte) (string, error) {
	r, err := openReader(data)
	if err != nil {
		return "", err
	}

	var chunks []string
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text := pageText(pageWords(page))
		if text != "" {
			chunks = append(chunks, text)
		}
	}
	return strings.Join(chunks, "\n"), nil
}

// pageWords merges the page's raw text fragments into words. Fragments on
// the same baseline separated by less than a fraction of the font size are
// glyph runs of one word; anything wider starts a new word.
func pageWords(page pdf.Page) []word {
	content := page.Content()
	texts := make([]pdf.Text, len(content.Text))
	copy(texts, content.Text)

	sort.SliceStable(texts, func(i, j int) bool {
		if !sameBaseline(texts[i].Y, texts[j].Y) {
			return texts[i].Y > texts[j].Y
		}
		return texts[i].X < texts[j].X
	})

	var words []word
	for _, t := range texts {
		if strings.TrimSpace(t.S) == "" {
			continue
		}
		glue := t.FontSize * 0.3
		if glue < 1 {
			glue = 1
		}
		if n := len(words); n > 0 {
			prev := &words[n-1]
			if sameBaseline(prev.y, t.Y) && t.X-prev.endX <= glue {
				prev.s += t.S
				prev.endX = t.X + t.W
				continue
			}
		}
		words = append(words, word{
			x:        t.X,
			y:        t.Y,
			endX:     t.X + t.W,
			fontSize: t.FontSize,
			s:        t.S,
		})
	}
	return words
}

func sameBaseline(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= 2.0
}

// pageText renders words back into lines, emitting double spaces across
// wide gaps so column boundaries survive into the text form.
func pageText(words []word) string {
	var sb strings.Builder
	var prev *word
	for i := range words {
		w := &words[i]
		if prev == nil {
			sb.WriteString(w.s)
			prev = w
			continue
		}
		if !sameBaseline(prev.y, w.y) {
			sb.WriteString("\n")
		} else if w.x-prev.endX > wideGap {
			sb.WriteString("  ")
		} else {
			sb.WriteString(" ")
		}
		sb.WriteString(w.s)
		prev = w
	}
	return sb.String()
}

// allPageWords returns merged words per page.
func allPageWords(data []byte) ([][]word, error) {
	r, err := openReader(data)
	if err != nil {
		return nil, err
	}
	pages := make([][]word, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pages = append(pages, pageWords(page))
	}
	return pages, nil
}
