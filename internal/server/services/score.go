package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/neurorecall/internal/common"
	"github.com/dmitrijs2005/neurorecall/internal/dbx"
	"github.com/dmitrijs2005/neurorecall/internal/logging"
	"github.com/dmitrijs2005/neurorecall/internal/server/approval"
	"github.com/dmitrijs2005/neurorecall/internal/server/models"
	"github.com/dmitrijs2005/neurorecall/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/neurorecall/internal/server/repositories/scores"
	"github.com/dmitrijs2005/neurorecall/internal/server/scoring"
	"github.com/dmitrijs2005/neurorecall/internal/server/storage"
	"github.com/dmitrijs2005/neurorecall/internal/server/transcribe"
)

// MaxAudioSize bounds uploaded recordings.
const MaxAudioSize = 5 << 20

// SubmittedMessage accompanies a processed recording.
const SubmittedMessage = "فایل با موفقیت پردازش شد"

// SubmitInput is one recorded round.
type SubmitInput struct {
	TestNumber  int
	RoundNumber int
	Audio       []byte
	FileName    string
	ContentType string
}

// SubmitResult is the outcome of a processed recording.
type SubmitResult struct {
	TranscribedWords []string
	TotalWords       int
	// CorrectWords is the round's score.
	CorrectWords   int
	IncorrectWords []string
	RoundCompleted bool
	Message        string
	Score          *models.Score
}

// ScoreService records rounds and serves annotated results.
type ScoreService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       storage.ObjectStore
	transcriber transcribe.Transcriber
	logger      logging.Logger
	now         func() time.Time
}

func NewScoreService(db *sql.DB, m repomanager.RepositoryManager, store storage.ObjectStore, tr transcribe.Transcriber, logger logging.Logger) *ScoreService {
	return &ScoreService{
		db:          db,
		repomanager: m,
		store:       store,
		transcriber: tr,
		logger:      logger.With("module", "scores"),
		now:         time.Now,
	}
}

func (in SubmitInput) validate() error {
	if in.TestNumber < 1 || in.TestNumber > 4 {
		return common.NewValidationError("test_number", "must be between 1 and 4")
	}
	if in.RoundNumber < 1 || in.RoundNumber > approval.Rounds {
		return common.NewValidationError("round_number", "must be between 1 and 5")
	}
	if len(in.Audio) == 0 {
		return common.NewValidationError("audio", "file is empty")
	}
	if len(in.Audio) > MaxAudioSize {
		return common.NewValidationError("audio", "file is larger than 5 MB")
	}
	return nil
}

// Submit archives the recording, transcribes and scores it, and upserts the
// round. Only the latest storage.KeepRecordings recordings of a round stay
// archived.
func (s *ScoreService) Submit(ctx context.Context, user *models.User, in SubmitInput) (*SubmitResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	now := s.now()
	ext := storage.AudioExtension(in.FileName, in.ContentType)
	key := storage.AudioKey(user.UserName, in.TestNumber, in.RoundNumber, now, ext)
	if err := s.store.Put(ctx, key, in.ContentType, in.Audio); err != nil {
		return nil, fmt.Errorf("%w: archive recording: %w", common.ErrorInternal, err)
	}
	prefix := storage.RoundPrefix(user.UserName, in.TestNumber, in.RoundNumber)
	if _, err := storage.KeepLatest(ctx, s.store, prefix, storage.KeepRecordings); err != nil {
		s.logger.Warn(ctx, "prune recordings failed", "prefix", prefix, "error", err)
	}

	text, err := s.transcriber.Transcribe(ctx, in.Audio, ext)
	if err != nil {
		return nil, fmt.Errorf("%w: transcribe: %w", common.ErrorInternal, err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, common.NewValidationError("audio", "no recognizable speech in the recording")
	}

	res, err := scoring.Calculate(text, in.TestNumber)
	if err != nil {
		return nil, err
	}

	score := &models.Score{
		UserID:         user.ID,
		TestNumber:     in.TestNumber,
		RoundNumber:    in.RoundNumber,
		Score:          res.Score,
		CorrectWords:   res.Correct,
		IncorrectWords: res.Incorrect,
		TestTime:       now,
	}
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		saved, err := s.repomanager.Scores(tx).Upsert(ctx, score)
		if err != nil {
			return err
		}
		score = saved
		return nil
	}); err != nil {
		return nil, fmt.Errorf("%w: save score: %w", common.ErrorInternal, err)
	}

	s.logger.Info(ctx, "round scored", "user_id", user.ID, "test", in.TestNumber, "round", in.RoundNumber, "score", res.Score)

	return &SubmitResult{
		TranscribedWords: res.Words,
		TotalWords:       len(res.Words),
		CorrectWords:     res.Score,
		IncorrectWords:   res.Incorrect,
		RoundCompleted:   in.RoundNumber == approval.Rounds,
		Message:          SubmittedMessage,
		Score:            score,
	}, nil
}

// Profile returns the user's own rows matching f, annotated with approval.
// f.UserID and f.UserName are overridden.
func (s *ScoreService) Profile(ctx context.Context, userID string, f scores.Filter) ([]approval.Row, error) {
	f.UserID = userID
	f.UserName = ""
	return s.annotated(ctx, f)
}

// AdminResults returns every row matching f, annotated with approval.
func (s *ScoreService) AdminResults(ctx context.Context, f scores.Filter) ([]approval.Row, error) {
	return s.annotated(ctx, f)
}

func (s *ScoreService) annotated(ctx context.Context, f scores.Filter) ([]approval.Row, error) {
	candidates, err := s.repomanager.Scores(s.db).Query(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%w: query scores: %w", common.ErrorInternal, err)
	}
	return approval.Annotate(ctx, candidates, s.history)
}

// history reads one attempt inside its own read-only snapshot.
func (s *ScoreService) history(ctx context.Context, k approval.Key) ([]models.Score, error) {
	var rows []models.Score
	err := dbx.WithTx(ctx, s.db, dbx.Snapshot, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		rows, err = s.repomanager.Scores(tx).ListByUserTest(ctx, k.UserID, k.TestNumber)
		return err
	})
	return rows, err
}
