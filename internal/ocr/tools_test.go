package ocr

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	fn func(name string, args []string) ([]byte, []byte, error)
}

func (s stubRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	return s.fn(name, args)
}

func TestPopplerRendererPageCount(t *testing.T) {
	r := NewPopplerRenderer(stubRunner{fn: func(name string, args []string) ([]byte, []byte, error) {
		assert.Equal(t, "pdfinfo", name)
		return []byte("Producer: x\nPages:          3\nEncrypted: no\n"), nil, nil
	}})
	n, err := r.PageCount(context.Background(), "/tmp/x.pdf")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestPopplerRendererRenderSinglePage(t *testing.T) {
	var got []string
	r := NewPopplerRenderer(stubRunner{fn: func(name string, args []string) ([]byte, []byte, error) {
		got = args
		prefix := args[len(args)-1]
		return nil, nil, os.WriteFile(prefix+".png", []byte("png-bytes"), 0o600)
	}})
	img, err := r.Render(context.Background(), "/tmp/x.pdf", 2, 200)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), img)
	assert.Equal(t, []string{"-r", "200", "-png", "-f", "2", "-l", "2", "-singlefile", "/tmp/x.pdf"}, got[:9])
}

func TestPopplerRendererRenderError(t *testing.T) {
	r := NewPopplerRenderer(stubRunner{fn: func(name string, args []string) ([]byte, []byte, error) {
		return nil, []byte("Syntax Error"), errors.New("exit status 1")
	}})
	_, err := r.Render(context.Background(), "/tmp/x.pdf", 1, 300)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Syntax Error")
}

func TestCLIRecognizerInitChecksLanguages(t *testing.T) {
	runner := stubRunner{fn: func(name string, args []string) ([]byte, []byte, error) {
		return []byte("List of available languages (2):\neng\nosd\n"), nil, nil
	}}
	require.NoError(t, NewCLIRecognizer(runner, "eng", "").Init(context.Background()))
	err := NewCLIRecognizer(runner, "eng+nld", "").Init(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nld")
}

func TestCLIRecognizerParsesTSV(t *testing.T) {
	tsv := strings.Join([]string{
		"level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext",
		"1\t1\t0\t0\t0\t0\t0\t0\t2480\t3508\t-1\t",
		"5\t1\t1\t1\t1\t2\t600\t300\t100\t40\t90\t18.5",
		"5\t1\t1\t1\t1\t1\t100\t300\t400\t40\t96\tTestosterone",
		"5\t1\t1\t1\t2\t1\t100\t360\t300\t40\t80\tSHBG",
	}, "\n")
	runner := stubRunner{fn: func(name string, args []string) ([]byte, []byte, error) {
		assert.Equal(t, "tsv", args[len(args)-1])
		return []byte(tsv), nil, nil
	}}
	rec, err := NewCLIRecognizer(runner, "eng", "").Recognize(context.Background(), []byte("img"), 300)
	require.NoError(t, err)
	assert.Equal(t, "Testosterone 18.5\nSHBG", rec.Text)
	require.Len(t, rec.Words, 3)
	assert.InDelta(t, 24.0, rec.Words[0].X, 1e-9)
	assert.InDelta(t, 0.8867, rec.Confidence, 1e-3)
}

func TestNormalize(t *testing.T) {
	in := "Hemoglobin\t1O.2 g/dL  \r\n\r\n\r\n\r\n-----\nHematocrit O,45 L/L"
	assert.Equal(t, "Hemoglobin 10.2 g/dL\n\nHematocrit 0,45 L/L", Normalize(in))
	assert.Equal(t, "", Normalize(""))
}

func TestHeuristicConfidence(t *testing.T) {
	low := heuristicConfidence("hello")
	high := heuristicConfidence("Afname 12-03-2024 Testosterone 18.5 nmol/L 8.6 - 29.0 " + strings.Repeat("x", 120))
	assert.InDelta(t, 0.2, low, 1e-9)
	assert.InDelta(t, 0.8, high, 1e-9)
}
