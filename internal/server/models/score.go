package models

import "time"

// Score is the stored result of one round of one test for one user.
// At most one row exists per (UserID, TestNumber, RoundNumber).
type Score struct {
	ID          string
	UserID      string
	TestNumber  int
	RoundNumber int
	// Score counts distinct target words recognised.
	Score int
	// CorrectWords keeps every occurrence, duplicates included.
	CorrectWords   []string
	IncorrectWords []string
	TestTime       time.Time
}

// ScoreRow is a Score joined with the owning user's public attributes.
type ScoreRow struct {
	Score
	UserName string
	Age      *int
	Sex      *string
}
