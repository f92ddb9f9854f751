package httpapi

import (
	"github.com/dmitrijs2005/neurorecall/internal/server/approval"
	"github.com/dmitrijs2005/neurorecall/internal/timex"
)

// scoreRow is one displayed round with its attempt's approval.
type scoreRow struct {
	TestNumber  int            `json:"test_number"`
	RoundNumber int            `json:"round_number"`
	Score       int            `json:"score"`
	TestTime    string         `json:"test_time"`
	Approved    string         `json:"approved"`
	TotalScore  approval.Total `json:"total_score"`
}

// adminRow adds the owner's public attributes.
type adminRow struct {
	UserName string  `json:"username"`
	Age      *int    `json:"age"`
	Sex      *string `json:"sex"`
	scoreRow
}

func newScoreRow(r approval.Row) scoreRow {
	return scoreRow{
		TestNumber:  r.TestNumber,
		RoundNumber: r.RoundNumber,
		Score:       r.Score.Score,
		TestTime:    timex.FormatISO(r.TestTime),
		Approved:    r.Label(),
		TotalScore:  r.Total,
	}
}

func scoreRows(rows []approval.Row) []scoreRow {
	out := make([]scoreRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, newScoreRow(r))
	}
	return out
}

func adminRows(rows []approval.Row) []adminRow {
	out := make([]adminRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, adminRow{
			UserName: r.UserName,
			Age:      r.Age,
			Sex:      r.Sex,
			scoreRow: newScoreRow(r),
		})
	}
	return out
}
