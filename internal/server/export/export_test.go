package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/dmitrijs2005/neurorecall/internal/server/approval"
	"github.com/dmitrijs2005/neurorecall/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteResults(t *testing.T) {
	age := 34
	sex := "female"
	at := time.Date(2024, 4, 12, 13, 45, 30, 0, time.UTC)

	rows := []approval.Row{
		{
			ScoreRow: models.ScoreRow{
				Score:    models.Score{UserID: "u1", TestNumber: 1, RoundNumber: 2, Score: 7, TestTime: at},
				UserName: "sara", Age: &age, Sex: &sex,
			},
			Result: approval.Result{Approved: true, Total: approval.Total{Value: 31, Valid: true}},
		},
		{
			ScoreRow: models.ScoreRow{
				Score:    models.Score{UserID: "u2", TestNumber: 3, RoundNumber: 1, Score: 0, TestTime: at},
				UserName: "reza",
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteResults(&buf, rows))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows(Sheet)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, []string{"username", "age", "sex", "test_number", "round_number", "score", "test_time", "approved", "total_score"}, got[0])
	assert.Equal(t, []string{"sara", "34", "female", "1", "2", "7", "2024-04-12T13:45:30", "Yes", "31"}, got[1])
	assert.Equal(t, []string{"reza", "", "", "3", "1", "0", "2024-04-12T13:45:30", "No", "N/A"}, got[2])
}

func TestWriteResults_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteResults(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows(Sheet)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
