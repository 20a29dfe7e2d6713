package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateRendersDayMonthYear(t *testing.T) {
	deadline := NewDate(time.Date(2024, time.March, 15, 18, 30, 0, 0, time.UTC))
	payload, err := json.Marshal(Submission{SubmissionDeadline: &deadline})
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"submission_deadline":"15-03-2024"`)
	assert.Contains(t, string(payload), `"school_submission_date":null`)
}

func TestDateAcceptsBothInputLayouts(t *testing.T) {
	var br, iso Date
	require.NoError(t, json.Unmarshal([]byte(`"15-03-2024"`), &br))
	require.NoError(t, json.Unmarshal([]byte(`"2024-03-15"`), &iso))
	assert.True(t, br.Equal(iso.Time))
	assert.Equal(t, "15-03-2024", iso.String())
}

func TestDateRejectsGarbage(t *testing.T) {
	var d Date
	assert.Error(t, json.Unmarshal([]byte(`"15/03/2024"`), &d))
	_, err := ParseDate("2024-13-01")
	assert.Error(t, err)
}

func TestDateScan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(2024, 3, 15, 0, 0, 0, 0, time.Local)))
	assert.Equal(t, "15-03-2024", d.String())

	require.NoError(t, d.Scan([]byte("2023-01-02T00:00:00Z")))
	assert.Equal(t, "02-01-2023", d.String())

	assert.Error(t, d.Scan(42))
}

func TestMonthName(t *testing.T) {
	assert.Equal(t, "Março", MonthName(3))
	assert.Equal(t, "Dezembro", MonthName(12))
	assert.Equal(t, "", MonthName(0))
	assert.Equal(t, "", MonthName(13))

	s := Submission{ReferenceMonth: 1}
	s.Decorate()
	assert.Equal(t, "Janeiro", s.ReferenceMonthName)
}

func TestZeroDateIsNull(t *testing.T) {
	var d Date
	require.NoError(t, json.Unmarshal([]byte(`""`), &d))
	assert.True(t, d.IsZero())

	value, err := d.Value()
	require.NoError(t, err)
	assert.Nil(t, value)

	payload, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, "null", string(payload))

	assert.Nil(t, DateOrNil(&d))
	assert.Nil(t, DateOrNil(nil))
	day := NewDate(time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC))
	assert.Same(t, &day, DateOrNil(&day))
}
