package ocr

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Renderer rasterizes PDF pages.
type Renderer interface {
	PageCount(ctx context.Context, path string) (int, error)
	Render(ctx context.Context, path string, page, dpi int) ([]byte, error)
}

// PopplerRenderer uses pdfinfo and pdftoppm.
type PopplerRenderer struct {
	Pdfinfo  string // binary name or absolute path; if empty -> "pdfinfo"
	Pdftoppm string // binary name or absolute path; if empty -> "pdftoppm"
	runner   Runner
}

// NewPopplerRenderer creates a renderer executing through r.
func NewPopplerRenderer(r Runner) *PopplerRenderer {
	if r == nil {
		r = ExecRunner{}
	}
	return &PopplerRenderer{Pdfinfo: "pdfinfo", Pdftoppm: "pdftoppm", runner: r}
}

func (p *PopplerRenderer) PageCount(ctx context.Context, path string) (int, error) {
	out, errb, err := p.runner.Run(ctx, p.Pdfinfo, path)
	if err != nil {
		return 0, fmt.Errorf("pdfinfo: %w: %s", err, truncate(string(errb), 512))
	}
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "Pages:") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "Pages:")))
		if err != nil {
			return 0, fmt.Errorf("pdfinfo: parse page count: %w", err)
		}
		return n, nil
	}
	return 0, fmt.Errorf("pdfinfo: no page count in output")
}

func (p *PopplerRenderer) Render(ctx context.Context, path string, page, dpi int) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "lt-pp-*")
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r 300 -png -f N -l N -singlefile <in.pdf> <tmp/page>
	pg := strconv.Itoa(page)
	_, errb, err := p.runner.Run(ctx, p.Pdftoppm,
		"-r", strconv.Itoa(dpi), "-png", "-f", pg, "-l", pg, "-singlefile", path, prefix)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm page %d: %w: %s", page, err, truncate(string(errb), 512))
	}
	img, err := os.ReadFile(prefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("pdftoppm produced no image for page %d: %w", page, err)
	}
	return img, nil
}
