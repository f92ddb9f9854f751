// Package scores persists per-round results keyed by (user, test, round).
package scores

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/neurorecall/internal/common"
	"github.com/dmitrijs2005/neurorecall/internal/server/models"
	"github.com/dmitrijs2005/neurorecall/internal/timex"
)

// Bucket is the width of the test_time filter window.
const Bucket = time.Minute

// Filter narrows Query. Empty strings and nil pointers do not filter.
type Filter struct {
	UserID     string
	UserName   string
	TestNumber *int
	// TestTime selects rows with TestTime <= test_time < TestTime+Bucket.
	TestTime *time.Time
}

// ParseFilter builds a Filter from raw query-string values. Empty values are
// ignored. A non-integer test number or an unparsable time yields a
// *common.ValidationError naming the field.
func ParseFilter(userName, testNumber, testTime string) (Filter, error) {
	f := Filter{UserName: strings.TrimSpace(userName)}

	if s := strings.TrimSpace(testNumber); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return Filter{}, common.NewValidationError("test_number", "must be an integer")
		}
		f.TestNumber = &n
	}

	if s := strings.TrimSpace(testTime); s != "" {
		t, err := timex.ParseISO(s)
		if err != nil {
			return Filter{}, common.NewValidationError("test_time", "unsupported time format")
		}
		f.TestTime = &t
	}

	return f, nil
}

// Repository is the score store.
type Repository interface {
	// Upsert writes the row for (UserID, TestNumber, RoundNumber), replacing
	// score, words and time of an existing one. score.ID is filled in.
	Upsert(ctx context.Context, score *models.Score) (*models.Score, error)

	// Query returns rows matching every set field of f, joined with their
	// owners. No match is an empty slice.
	Query(ctx context.Context, f Filter) ([]models.ScoreRow, error)

	// ListByUserTest returns the full history of one test attempt.
	ListByUserTest(ctx context.Context, userID string, testNumber int) ([]models.Score, error)
}
