// Package scoring compares a transcript with the target words of a test.
package scoring

import (
	"strings"

	"github.com/dmitrijs2005/neurorecall/internal/common"
)

// TargetWords holds the 16 words of every test. "مینی بوس" contains a space,
// so a whitespace token can never match it.
var TargetWords = map[int][]string{
	1: {"تراکتور", "هویج", "قناری", "موکت", "سیر", "دوچرخه", "یخچال", "ببر", "اتوبوس", "میز", "فلفل", "گوریل",
		"پرده", "پارو", "سوسمار", "فیلم"},
	2: {"لودر", "گوجه", "شتر", "بخاری", "ریحان", "وانت", "فریزر", "گربه", "مینی بوس", "تخته", "جعفری", "گوسفند",
		"پنجره", "ویلچر", "کلاغ", "نعنا"},
	3: {"فرش", "قطار", "خیار", "طوطی", "کدو", "هواپیما", "اجاق", "موش", "ماشین", "صندلی", "کاهو", "میمون", "کمد", "موتور",
		"فیل", "پیاز"},
	4: {"مترو", "کامیون", "اسفناج", "زرافه", "کمد", "پیاز", "موتور", "کابینت", "گورخر", "چراغ", "کرفس", "گاو", "مبل", "قایق",
		"سنجاب", "کلم"},
}

// Result is the outcome of scoring one transcript.
type Result struct {
	// Words are the transcript tokens in order.
	Words []string
	// Score is the number of distinct tokens found in the target set.
	Score int
	// Correct lists every matching token, duplicates included.
	Correct []string
	// Incorrect lists every other token, duplicates included.
	Incorrect []string
}

// Calculate scores transcript against the target words of test. An unknown
// test number is a validation error.
func Calculate(transcript string, test int) (Result, error) {
	words, ok := TargetWords[test]
	if !ok {
		return Result{}, common.NewValidationError("test_number", "must be between 1 and 4")
	}

	target := make(map[string]struct{}, len(words))
	for _, w := range words {
		target[w] = struct{}{}
	}

	res := Result{
		Words:     strings.Fields(transcript),
		Correct:   []string{},
		Incorrect: []string{},
	}
	distinct := make(map[string]struct{})
	for _, w := range res.Words {
		if _, hit := target[w]; hit {
			res.Correct = append(res.Correct, w)
			distinct[w] = struct{}{}
			continue
		}
		res.Incorrect = append(res.Incorrect, w)
	}
	res.Score = len(distinct)

	return res, nil
}
