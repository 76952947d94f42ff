package remote

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAndSanitizeJSON(t *testing.T) {
	raw := []byte(`{
	  "modelIdentifier": " m1 ",
	  "testDate": "12-03-2024",
	  "markers": [
	    {"marker": " TSH ", "value": "<0,01", "confidence": 7, "unit": " "},
	    "junk"
	  ],
	  "extra": true
	}`)

	out, dropped, err := NormalizeAndSanitizeJSON(raw, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"modelIdentifier":"m1","markers":[{"marker":"TSH","value":0.01}]}`, string(out))
	assert.Contains(t, dropped, "testDate(format)")
	assert.Contains(t, dropped, "markers[1](type)")
	assert.Contains(t, dropped, "extra(unknown)")
	require.NoError(t, ValidateResponse(out))
}

func TestNormalizeAndSanitizeJSONRejectsGarbage(t *testing.T) {
	_, _, err := NormalizeAndSanitizeJSON([]byte("not json"), nil)
	assert.Error(t, err)
}

func TestValidateResponse(t *testing.T) {
	assert.NoError(t, ValidateResponse([]byte(validBody)))
	assert.Error(t, ValidateResponse([]byte(`{"modelIdentifier":"m","markers":[{"marker":"TSH"}]}`)))
	assert.Error(t, ValidateResponse([]byte(`{"modelIdentifier":"m","testDate":"March 2024"}`)))
}
