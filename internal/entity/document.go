package entity

import "strings"

// Fragment is a positioned piece of text on a page. Coordinates are in
// points (text layer) or pixels scaled to points (OCR), with Y growing
// downward from the top of the page.
type Fragment struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	W    float64 `json:"w"`
	H    float64 `json:"h"`
	Text string  `json:"text"`
}

// Right returns the right edge of the fragment.
func (f Fragment) Right() float64 { return f.X + f.W }

// CenterY returns the vertical center of the fragment.
func (f Fragment) CenterY() float64 { return f.Y + f.H/2 }

// Line is a reconstructed row of fragments, ordered left to right.
type Line struct {
	Y         float64    `json:"y"`
	Text      string     `json:"text"`
	Fragments []Fragment `json:"fragments,omitempty"`
}

// Page holds the fragments and reconstructed lines of a single page.
type Page struct {
	Number    int        `json:"number"`
	Width     float64    `json:"width"`
	Height    float64    `json:"height"`
	Fragments []Fragment `json:"fragments,omitempty"`
	Lines     []Line     `json:"lines,omitempty"`
	FromOCR   bool       `json:"fromOcr,omitempty"`
}

// Text renders the page lines as plain text.
func (p Page) Text() string {
	var b strings.Builder
	for i, l := range p.Lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(l.Text)
	}
	return b.String()
}

// Document is the raw text document of an uploaded report. It is treated as
// immutable once produced; stages that add pages build a new value.
type Document struct {
	Pages []Page `json:"pages"`
}

// PageCount returns the number of pages.
func (d Document) PageCount() int { return len(d.Pages) }

// FragmentCount returns the number of fragments across all pages.
func (d Document) FragmentCount() int {
	n := 0
	for _, p := range d.Pages {
		n += len(p.Fragments)
	}
	return n
}

// Lines returns the lines of every page in order.
func (d Document) Lines() []string {
	var out []string
	for _, p := range d.Pages {
		for _, l := range p.Lines {
			out = append(out, l.Text)
		}
	}
	return out
}

// Text renders every page, separated by blank lines.
func (d Document) Text() string {
	parts := make([]string, 0, len(d.Pages))
	for _, p := range d.Pages {
		parts = append(parts, p.Text())
	}
	return strings.Join(parts, "\n\n")
}

// CharCount returns the number of non-space characters in the document.
func (d Document) CharCount() int {
	n := 0
	for _, p := range d.Pages {
		for _, l := range p.Lines {
			for _, r := range l.Text {
				if r != ' ' && r != '\t' {
					n++
				}
			}
		}
	}
	return n
}

// Append returns a new document containing d's pages followed by pages.
func (d Document) Append(pages ...Page) Document {
	out := make([]Page, 0, len(d.Pages)+len(pages))
	out = append(out, d.Pages...)
	out = append(out, pages...)
	return Document{Pages: out}
}
