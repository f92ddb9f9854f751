// Package approval decides which test attempts are approved and what they
// total.
//
// An attempt is the set of score rows sharing (user, test). It is approved
// when its rounds are exactly 1..5, one row each, and the rows' submission
// times never go backwards when read in round order. Approved attempts total
// the five scores; every other attempt totals "N/A".
//
// Incomplete or out-of-order attempts are ordinary "No" results, never
// errors. The only error is a failure to load an attempt's history.
package approval

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"

	"github.com/dmitrijs2005/neurorecall/internal/common"
	"github.com/dmitrijs2005/neurorecall/internal/server/models"
)

// Rounds is the number of rounds in a complete attempt.
const Rounds = 5

// Labels rendered for the approved flag.
const (
	Yes = "Yes"
	No  = "No"
)

// Key identifies a test attempt.
type Key struct {
	UserID     string
	TestNumber int
}

func (k Key) String() string {
	return fmt.Sprintf("%s/test_%d", k.UserID, k.TestNumber)
}

// Total is an attempt's total score. A Total that is not Valid means
// "not applicable", which is different from zero.
type Total struct {
	Value int
	Valid bool
}

func (t Total) String() string {
	if !t.Valid {
		return common.NotApplicable
	}
	return strconv.Itoa(t.Value)
}

// MarshalJSON renders a valid total as a number and any other as "N/A".
func (t Total) MarshalJSON() ([]byte, error) {
	if !t.Valid {
		return json.Marshal(common.NotApplicable)
	}
	return json.Marshal(t.Value)
}

// Result is the classification of one attempt.
type Result struct {
	Approved bool
	Total    Total
}

// Label returns Yes or No.
func (r Result) Label() string {
	if r.Approved {
		return Yes
	}
	return No
}

// History loads every stored row of one attempt. The rows should come from
// a single consistent read.
type History func(ctx context.Context, key Key) ([]models.Score, error)

// Evaluate classifies an attempt from its full history. rows is not modified.
func Evaluate(rows []models.Score) Result {
	if len(rows) != Rounds {
		return Result{}
	}

	seen := make(map[int]struct{}, Rounds)
	for _, s := range rows {
		if s.RoundNumber < 1 || s.RoundNumber > Rounds {
			return Result{}
		}
		seen[s.RoundNumber] = struct{}{}
	}
	if len(seen) != Rounds {
		return Result{}
	}

	ordered := slices.Clone(rows)
	slices.SortStableFunc(ordered, func(a, b models.Score) int {
		return a.RoundNumber - b.RoundNumber
	})

	total := 0
	for i, s := range ordered {
		if i > 0 && s.TestTime.Before(ordered[i-1].TestTime) {
			return Result{}
		}
		total += s.Score
	}

	return Result{Approved: true, Total: Total{Value: total, Valid: true}}
}

// Aggregate evaluates every distinct key once, loading its history through
// history. A load failure aborts the whole aggregation.
func Aggregate(ctx context.Context, keys []Key, history History) (map[Key]Result, error) {
	results := make(map[Key]Result, len(keys))
	for _, k := range keys {
		if _, done := results[k]; done {
			continue
		}
		rows, err := history(ctx, k)
		if err != nil {
			return nil, fmt.Errorf("%w: load history of %s: %w", common.ErrorInternal, k, err)
		}
		results[k] = Evaluate(rows)
	}
	return results, nil
}

// Row is a displayed score row annotated with its attempt's result.
type Row struct {
	models.ScoreRow
	Result
}

// KeysOf returns the distinct attempt keys of rows in first-seen order.
func KeysOf(rows []models.ScoreRow) []Key {
	seen := make(map[Key]struct{}, len(rows))
	keys := make([]Key, 0, len(rows))
	for _, r := range rows {
		k := Key{UserID: r.UserID, TestNumber: r.TestNumber}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}

// Annotate attaches the approval result of each row's attempt, keeping the
// order of candidates. Candidates may be any filtered subset: completeness
// is always judged on the full history.
func Annotate(ctx context.Context, candidates []models.ScoreRow, history History) ([]Row, error) {
	results, err := Aggregate(ctx, KeysOf(candidates), history)
	if err != nil {
		return nil, err
	}

	out := make([]Row, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, Row{
			ScoreRow: c,
			Result:   results[Key{UserID: c.UserID, TestNumber: c.TestNumber}],
		})
	}
	return out, nil
}
