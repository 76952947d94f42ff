// Package report renders batch extraction results as an XLSX review workbook.
package report

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/labs-tracker/internal/entity"
)

const (
	SheetMeasurements = "Measurements"
	SheetFiles        = "Files"
)

// Entry is the outcome of one file in a batch. Err is set when no draft
// could be produced (for example a remote rate limit).
type Entry struct {
	FileName string
	Draft    entity.ExtractionDraft
	Err      error
}

var measurementHeaders = []string{
	"File",
	"Test Date",
	"Marker",
	"Canonical Marker",
	"Value",
	"Unit",
	"Reference Min",
	"Reference Max",
	"Abnormal",
	"Confidence",
	"Provider",
	"Needs Review",
	"Warning",
}

var fileHeaders = []string{
	"File",
	"Test Date",
	"Provider",
	"Model",
	"Confidence",
	"Markers",
	"Needs Review",
	"Warnings",
	"Error",
}

// Workbook returns the XLSX bytes for entries. Every measurement gets a row
// on the Measurements sheet and every file a row on the Files sheet.
func Workbook(entries []Entry, logger *slog.Logger) ([]byte, error) {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetMeasurements); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetFiles); err != nil {
		return nil, fmt.Errorf("new sheet: %w", err)
	}
	idx, _ := f.GetSheetIndex(SheetMeasurements)
	f.SetActiveSheet(idx)

	if err := writeHeaders(f, SheetMeasurements, measurementHeaders); err != nil {
		return nil, err
	}
	if err := writeHeaders(f, SheetFiles, fileHeaders); err != nil {
		return nil, err
	}

	mrow, rows := 2, 0
	for i, e := range entries {
		d := e.Draft
		name := e.FileName
		if name == "" {
			name = d.SourceFileName
		}

		frow := i + 2
		fileVals := []any{name, d.TestDate, d.Extraction.Provider, d.Extraction.Model,
			d.Extraction.Confidence, len(d.Markers), yesNo(d.Extraction.NeedsReview),
			joinWarnings(d), ""}
		if e.Err != nil {
			fileVals = []any{name, "", "", "", "", 0, yesNo(true), "", e.Err.Error()}
		}
		if err := f.SetSheetRow(SheetFiles, cell(1, frow), &fileVals); err != nil {
			return nil, fmt.Errorf("write file row: %w", err)
		}
		if e.Err != nil {
			continue
		}

		for _, m := range d.Markers {
			vals := []any{name, d.TestDate, m.Marker, m.CanonicalMarker, m.Value, m.Unit,
				optional(m.ReferenceMin), optional(m.ReferenceMax), string(m.Abnormal), m.Confidence,
				d.Extraction.Provider, yesNo(d.Extraction.NeedsReview), string(d.Extraction.WarningCode)}
			if err := f.SetSheetRow(SheetMeasurements, cell(1, mrow), &vals); err != nil {
				return nil, fmt.Errorf("write measurement row: %w", err)
			}
			mrow++
			rows++
		}
	}

	_ = f.SetColWidth(SheetMeasurements, "A", "A", 32) // file
	_ = f.SetColWidth(SheetMeasurements, "B", "B", 12) // date
	_ = f.SetColWidth(SheetMeasurements, "C", "D", 26) // markers
	_ = f.SetColWidth(SheetMeasurements, "M", "M", 24)
	_ = f.SetColWidth(SheetFiles, "A", "A", 32)
	_ = f.SetColWidth(SheetFiles, "H", "I", 48)
	if mrow > 2 {
		_ = f.AutoFilter(SheetMeasurements, fmt.Sprintf("A1:%s", cell(len(measurementHeaders), mrow-1)), nil)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	logger.Info("report.xlsx.ok",
		"files", len(entries),
		"rows", rows,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeHeaders(f *excelize.File, sheet string, headers []string) error {
	vals := make([]any, len(headers))
	for i, h := range headers {
		vals[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &vals); err != nil {
		return fmt.Errorf("write headers: %w", err)
	}
	return f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func optional(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func joinWarnings(d entity.ExtractionDraft) string {
	parts := make([]string, len(d.Extraction.Warnings))
	for i, w := range d.Extraction.Warnings {
		parts[i] = string(w)
	}
	return strings.Join(parts, ", ")
}
