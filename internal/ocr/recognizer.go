package ocr

import (
	"context"

	"github.com/joseph-ayodele/labs-tracker/internal/entity"
)

// Recognition is the OCR output for one page image. Word fragments are in
// points (pixels scaled by 72/dpi), Y growing downward.
type Recognition struct {
	Text       string
	Words      []entity.Fragment
	Confidence float64 // 0..1, 0 when the engine does not report one
}

// Recognizer turns a page image into text.
type Recognizer interface {
	Name() string
	// Init verifies the engine and its language data are usable.
	Init(ctx context.Context) error
	Recognize(ctx context.Context, img []byte, dpi int) (Recognition, error)
}

func pxToPt(v float64, dpi int) float64 {
	if dpi <= 0 {
		return v
	}
	return v * 72 / float64(dpi)
}
