package report

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/labs-tracker/constants"
	"github.com/joseph-ayodele/labs-tracker/internal/entity"
)

func TestWorkbook(t *testing.T) {
	entries := []Entry{
		{
			FileName: "a.pdf",
			Draft: entity.ExtractionDraft{
				SourceFileName: "a.pdf",
				TestDate:       "2024-03-12",
				Markers: []entity.Measurement{
					{Marker: "Testosteron", CanonicalMarker: "Testosterone", Value: 22.4, Unit: "nmol/L",
						ReferenceMin: entity.Float(8), ReferenceMax: entity.Float(29), Abnormal: entity.AbnormalNormal, Confidence: 0.9},
					{Marker: "TSH", CanonicalMarker: "TSH", Value: 2.1, Unit: "mIU/L", Abnormal: entity.AbnormalUnknown, Confidence: 0.7},
				},
				Extraction: entity.ExtractionMeta{
					Provider:    constants.ProviderLocal,
					Model:       "labs-tracker-local/1",
					Confidence:  0.8,
					NeedsReview: true,
					WarningCode: constants.WarningLowConfidenceLocal,
					Warnings:    []constants.Warning{constants.WarningLowConfidenceLocal, constants.WarningDateNotFound},
				},
			},
		},
		{FileName: "b.pdf", Err: errors.New("remote rate limited")},
	}

	data, err := Workbook(entries, nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetMeasurements, SheetFiles}, f.GetSheetList())

	rows, err := f.GetRows(SheetMeasurements)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, measurementHeaders, rows[0])
	assert.Equal(t, "Testosterone", rows[1][3])
	assert.Equal(t, "22.4", rows[1][4])
	assert.Equal(t, "8", rows[1][6])
	assert.Equal(t, "normal", rows[1][8])
	assert.Equal(t, "yes", rows[1][11])
	assert.Equal(t, "LOW_CONFIDENCE_LOCAL", rows[1][12])
	assert.Equal(t, "", rows[2][6])

	files, err := f.GetRows(SheetFiles)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "a.pdf", files[1][0])
	assert.Equal(t, "2", files[1][5])
	assert.Equal(t, "LOW_CONFIDENCE_LOCAL, DATE_NOT_FOUND", files[1][7])
	assert.Equal(t, "b.pdf", files[2][0])
	assert.Equal(t, "remote rate limited", files[2][8])
}

func TestWorkbookEmpty(t *testing.T) {
	data, err := Workbook(nil, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}
