package scores

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/neurorecall/internal/dbx"
	"github.com/dmitrijs2005/neurorecall/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func encodeWords(words []string) (string, error) {
	if words == nil {
		words = []string{}
	}
	b, err := json.Marshal(words)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeWords(b []byte) ([]string, error) {
	words := []string{}
	if len(b) == 0 {
		return words, nil
	}
	if err := json.Unmarshal(b, &words); err != nil {
		return nil, err
	}
	return words, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, score *models.Score) (*models.Score, error) {
	correct, err := encodeWords(score.CorrectWords)
	if err != nil {
		return nil, fmt.Errorf("encode correct words: %w", err)
	}
	incorrect, err := encodeWords(score.IncorrectWords)
	if err != nil {
		return nil, fmt.Errorf("encode incorrect words: %w", err)
	}

	query := `
		INSERT INTO scores (user_id, test_number, round_number, score, correct_words, incorrect_words, test_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, test_number, round_number) DO UPDATE
		SET score = EXCLUDED.score,
			correct_words = EXCLUDED.correct_words,
			incorrect_words = EXCLUDED.incorrect_words,
			test_time = EXCLUDED.test_time
		RETURNING id
	`

	err = r.db.QueryRowContext(ctx, query,
		score.UserID, score.TestNumber, score.RoundNumber, score.Score, correct, incorrect, score.TestTime).Scan(&score.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return score, nil
}

func (r *PostgresRepository) Query(ctx context.Context, f Filter) ([]models.ScoreRow, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.UserID != "" {
		add("s.user_id = $%d", f.UserID)
	}
	if f.UserName != "" {
		add("u.username = $%d", f.UserName)
	}
	if f.TestNumber != nil {
		add("s.test_number = $%d", *f.TestNumber)
	}
	if f.TestTime != nil {
		add("s.test_time >= $%d", *f.TestTime)
		add("s.test_time < $%d", f.TestTime.Add(Bucket))
	}

	query := `SELECT s.id, s.user_id, s.test_number, s.round_number, s.score, s.correct_words, s.incorrect_words, s.test_time,
		u.username, u.age, u.sex
		FROM scores s JOIN users u ON u.id = s.user_id`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY u.username, s.test_number, s.round_number"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []models.ScoreRow{}
	for rows.Next() {
		var (
			row                models.ScoreRow
			correct, incorrect []byte
		)
		if err := rows.Scan(&row.ID, &row.UserID, &row.TestNumber, &row.RoundNumber, &row.Score.Score,
			&correct, &incorrect, &row.TestTime, &row.UserName, &row.Age, &row.Sex); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if row.CorrectWords, err = decodeWords(correct); err != nil {
			return nil, fmt.Errorf("decode correct words: %w", err)
		}
		if row.IncorrectWords, err = decodeWords(incorrect); err != nil {
			return nil, fmt.Errorf("decode incorrect words: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) ListByUserTest(ctx context.Context, userID string, testNumber int) ([]models.Score, error) {
	query := `
		SELECT id, user_id, test_number, round_number, score, test_time
		FROM scores
		WHERE user_id = $1 AND test_number = $2
		ORDER BY round_number
	`

	rows, err := r.db.QueryContext(ctx, query, userID, testNumber)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []models.Score{}
	for rows.Next() {
		var s models.Score
		if err := rows.Scan(&s.ID, &s.UserID, &s.TestNumber, &s.RoundNumber, &s.Score, &s.TestTime); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}
