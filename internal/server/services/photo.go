package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/neurorecall/internal/common"
	"github.com/dmitrijs2005/neurorecall/internal/logging"
	"github.com/dmitrijs2005/neurorecall/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/neurorecall/internal/server/storage"
)

// MaxPhotoSize bounds uploaded profile photos.
const MaxPhotoSize = 5 << 20

const photoURLValidity = 15 * time.Minute

// PhotoService stores profile photos and hands out links to them.
type PhotoService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       storage.ObjectStore
	logger      logging.Logger
}

func NewPhotoService(db *sql.DB, m repomanager.RepositoryManager, store storage.ObjectStore, logger logging.Logger) *PhotoService {
	return &PhotoService{db: db, repomanager: m, store: store, logger: logger.With("module", "photos")}
}

// Upload stores a png/jpg/jpeg photo for userID and returns its public file name.
func (s *PhotoService) Upload(ctx context.Context, userID, fileName, contentType string, data []byte) (string, error) {
	if fileName == "" {
		return "", common.NewValidationError("photo", "No selected file")
	}
	name, ok := storage.PhotoFileName(userID, fileName)
	if !ok {
		return "", common.NewValidationError("photo", "Invalid file type")
	}
	if len(data) == 0 {
		return "", common.NewValidationError("photo", "file is empty")
	}
	if len(data) > MaxPhotoSize {
		return "", common.NewValidationError("photo", "file is larger than 5 MB")
	}
	key, _ := storage.PhotoKey(name)

	if err := s.store.Put(ctx, key, contentType, data); err != nil {
		return "", fmt.Errorf("%w: store photo: %w", common.ErrorInternal, err)
	}
	if err := s.repomanager.Users(s.db).SetProfilePhoto(ctx, userID, name); err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}
	s.logger.Info(ctx, "profile photo uploaded", "user_id", userID, "photo", name)
	return name, nil
}

// URL returns a short-lived download link for a photo file name.
func (s *PhotoService) URL(ctx context.Context, fileName string) (string, error) {
	key, ok := storage.PhotoKey(fileName)
	if !ok {
		return "", common.ErrorNotFound
	}
	url, err := s.store.PresignGet(ctx, key, photoURLValidity)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}
	return url, nil
}
