package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/joseph-ayodele/labs-tracker/internal/entity"
)

// TesseractRecognizer uses the gosseract bindings. A fresh client is created
// per page so a stuck page never poisons later ones.
type TesseractRecognizer struct {
	languages     []string
	tessdataDir   string
	clientFactory func() *gosseract.Client
}

// NewTesseractRecognizer creates a recognizer for "+"-joined languages, e.g. "eng+nld".
func NewTesseractRecognizer(languages, tessdataDir string) *TesseractRecognizer {
	return &TesseractRecognizer{
		languages:     splitLanguages(languages),
		tessdataDir:   tessdataDir,
		clientFactory: gosseract.NewClient,
	}
}

func (t *TesseractRecognizer) Name() string { return "tesseract" }

// Init recognizes a blank image to force language data to load.
func (t *TesseractRecognizer) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c := t.clientFactory()
	defer c.Close()
	if err := t.configure(c, 0); err != nil {
		return err
	}
	blank, err := blankPNG()
	if err != nil {
		return err
	}
	if err := c.SetImageFromBytes(blank); err != nil {
		return fmt.Errorf("set image: %w", err)
	}
	if _, err := c.Text(); err != nil {
		return fmt.Errorf("tesseract init (%s): %w", strings.Join(t.languages, "+"), err)
	}
	return nil
}

func (t *TesseractRecognizer) Recognize(ctx context.Context, img []byte, dpi int) (Recognition, error) {
	if err := ctx.Err(); err != nil {
		return Recognition{}, err
	}
	c := t.clientFactory()
	defer c.Close()
	if err := t.configure(c, dpi); err != nil {
		return Recognition{}, err
	}
	if err := c.SetImageFromBytes(img); err != nil {
		return Recognition{}, fmt.Errorf("set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return Recognition{}, fmt.Errorf("recognize text: %w", err)
	}
	words, conf := extractWords(c, dpi)
	return Recognition{Text: strings.TrimSpace(text), Words: words, Confidence: conf}, nil
}

func (t *TesseractRecognizer) configure(c *gosseract.Client, dpi int) error {
	if t.tessdataDir != "" {
		if err := c.SetTessdataPrefix(t.tessdataDir); err != nil {
			return fmt.Errorf("set tessdata prefix: %w", err)
		}
	}
	if len(t.languages) > 0 {
		if err := c.SetLanguage(t.languages...); err != nil {
			return fmt.Errorf("set languages: %w", err)
		}
	}
	if dpi > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), fmt.Sprint(dpi)); err != nil {
			return fmt.Errorf("set dpi: %w", err)
		}
	}
	return nil
}

func extractWords(c *gosseract.Client, dpi int) ([]entity.Fragment, float64) {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return nil, 0
	}
	words := make([]entity.Fragment, 0, len(boxes))
	var sum float64
	for _, b := range boxes {
		w := strings.TrimSpace(b.Word)
		if w == "" {
			continue
		}
		sum += b.Confidence / 100.0
		words = append(words, entity.Fragment{
			X:    pxToPt(float64(b.Box.Min.X), dpi),
			Y:    pxToPt(float64(b.Box.Min.Y), dpi),
			W:    pxToPt(float64(b.Box.Dx()), dpi),
			H:    pxToPt(float64(b.Box.Dy()), dpi),
			Text: w,
		})
	}
	if len(words) == 0 {
		return nil, 0
	}
	return words, sum / float64(len(words))
}

func splitLanguages(s string) []string {
	var out []string
	for _, l := range strings.Split(s, "+") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func blankPNG() ([]byte, error) {
	img := image.NewGray(image.Rect(0, 0, 32, 32))
	for i := range img.Pix {
		img.Pix[i] = uint8(color.White.Y >> 8)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode blank image: %w", err)
	}
	return buf.Bytes(), nil
}
