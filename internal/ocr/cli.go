package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/labs-tracker/internal/entity"
)

// CLIRecognizer shells out to the tesseract binary and reads its TSV output.
type CLIRecognizer struct {
	Tesseract   string // binary name or absolute path; if empty -> "tesseract"
	Languages   string // "+"-joined, e.g. "eng+nld"
	TessdataDir string
	PSM         int // e.g., 6 is good for uniform block of text
	runner      Runner
}

// NewCLIRecognizer creates a CLI-backed recognizer.
func NewCLIRecognizer(r Runner, languages, tessdataDir string) *CLIRecognizer {
	if r == nil {
		r = ExecRunner{}
	}
	return &CLIRecognizer{Tesseract: "tesseract", Languages: languages, TessdataDir: tessdataDir, PSM: 6, runner: r}
}

func (c *CLIRecognizer) Name() string { return "tesseract-cli" }

// Init checks that the binary runs and the requested languages are installed.
func (c *CLIRecognizer) Init(ctx context.Context) error {
	args := []string{"--list-langs"}
	if c.TessdataDir != "" {
		args = append(args, "--tessdata-dir", c.TessdataDir)
	}
	out, errb, err := c.runner.Run(ctx, c.Tesseract, args...)
	if err != nil {
		return fmt.Errorf("tesseract: %w: %s", err, truncate(string(errb), 512))
	}
	installed := make(map[string]struct{})
	for _, ln := range strings.Split(string(out)+"\n"+string(errb), "\n") {
		installed[strings.TrimSpace(ln)] = struct{}{}
	}
	for _, l := range splitLanguages(c.Languages) {
		if _, ok := installed[l]; !ok {
			return fmt.Errorf("tesseract: language %q not installed", l)
		}
	}
	return nil
}

func (c *CLIRecognizer) Recognize(ctx context.Context, img []byte, dpi int) (Recognition, error) {
	tmpDir, err := os.MkdirTemp("", "lt-ocr-*")
	if err != nil {
		return Recognition{}, err
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()
	path := filepath.Join(tmpDir, "page.png")
	if err := os.WriteFile(path, img, 0o600); err != nil {
		return Recognition{}, err
	}

	args := []string{path, "stdout", "-l", c.Languages}
	if c.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(c.PSM))
	}
	if dpi > 0 {
		args = append(args, "--dpi", strconv.Itoa(dpi))
	}
	if c.TessdataDir != "" {
		args = append(args, "--tessdata-dir", c.TessdataDir)
	}
	// TSV output
	args = append(args, "tsv")

	out, errb, err := c.runner.Run(ctx, c.Tesseract, args...)
	if err != nil {
		return Recognition{}, fmt.Errorf("tesseract TSV: %w: %s", err, truncate(string(errb), 512))
	}
	return parseTSV(string(out), dpi), nil
}

type tsvWord struct {
	block, par, line, word int
	frag                   entity.Fragment
	conf                   float64
}

// parseTSV reads tesseract TSV output: level, page_num, block_num, par_num,
// line_num, word_num, left, top, width, height, conf, text.
func parseTSV(out string, dpi int) Recognition {
	var words []tsvWord
	var sum, n float64
	for i, ln := range strings.Split(out, "\n") {
		if i == 0 || len(ln) == 0 {
			continue
		} // skip header
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 || cols[0] != "5" {
			continue
		}
		text := strings.TrimSpace(cols[11])
		if text == "" {
			continue
		}
		ints := make([]int, 10)
		ok := true
		for j := 0; j < 10; j++ {
			v, err := strconv.Atoi(cols[j])
			if err != nil {
				ok = false
				break
			}
			ints[j] = v
		}
		if !ok {
			continue
		}
		w := tsvWord{
			block: ints[2], par: ints[3], line: ints[4], word: ints[5],
			frag: entity.Fragment{
				X:    pxToPt(float64(ints[6]), dpi),
				Y:    pxToPt(float64(ints[7]), dpi),
				W:    pxToPt(float64(ints[8]), dpi),
				H:    pxToPt(float64(ints[9]), dpi),
				Text: text,
			},
		}
		if v, err := strconv.ParseFloat(cols[10], 64); err == nil && v >= 0 {
			w.conf = v / 100.0
			sum += w.conf
			n++
		}
		words = append(words, w)
	}
	sort.SliceStable(words, func(i, j int) bool {
		a, b := words[i], words[j]
		if a.block != b.block {
			return a.block < b.block
		}
		if a.par != b.par {
			return a.par < b.par
		}
		if a.line != b.line {
			return a.line < b.line
		}
		return a.word < b.word
	})

	var b strings.Builder
	frags := make([]entity.Fragment, 0, len(words))
	for i, w := range words {
		if i > 0 {
			prev := words[i-1]
			if prev.block != w.block || prev.par != w.par || prev.line != w.line {
				b.WriteByte('\n')
			} else {
				b.WriteByte(' ')
			}
		}
		b.WriteString(w.frag.Text)
		frags = append(frags, w.frag)
	}
	rec := Recognition{Text: b.String(), Words: frags}
	if n > 0 {
		rec.Confidence = sum / n
	}
	return rec
}
