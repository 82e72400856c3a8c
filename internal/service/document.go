package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"marketapi/internal/model"
	"marketapi/internal/repository"
	"marketapi/internal/storage"
)

const downloadURLExpiry = 15 * time.Minute

// DocumentService defines the use cases for handling a user's documents.
type DocumentService interface {
	// Upload stores the content, saves metadata and rolls back storage if the DB save fails.
	// originalFilename only contributes its extension to the stored name.
	Upload(ctx context.Context, userID string, r io.Reader, originalFilename, contentType string, size int64) (*model.Document, error)

	List(ctx context.Context, userID string, limit, offset int) (*DocumentListResult, error)

	Get(ctx context.Context, userID, id string) (*model.Document, error)

	// DownloadURL returns a pre-signed URL and its expiry.
	DownloadURL(ctx context.Context, userID, id string) (string, time.Time, error)

	// Open streams the document content. The caller closes the reader.
	Open(ctx context.Context, userID, id string) (io.ReadCloser, *model.Document, error)

	// Delete removes a document from both storage and repository.
	Delete(ctx context.Context, userID, id string) error
}

type documentService struct {
	store storage.Storage
	repo  repository.DocumentRepository
	log   *zap.Logger
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(store storage.Storage, repo repository.DocumentRepository, log *zap.Logger) DocumentService {
	return &documentService{store: store, repo: repo, log: log.With(zap.String("component", "documents"))}
}

func (s *documentService) Upload(ctx context.Context, userID string, r io.Reader, originalFilename, contentType string, size int64) (*model.Document, error) {
	if r == nil {
		return nil, ErrReaderNil
	}
	if userID == "" {
		return nil, ErrIDRequired
	}

	id := uuid.New().String()
	genName := id + strings.ToLower(filepath.Ext(originalFilename))
	key := storage.DocumentKey(userID, genName)

	objInfo, err := s.store.Put(ctx, key, r, storage.PutObjectOptions{
		Size:        size,
		ContentType: contentType,
		Metadata: map[string]string{
			"original-filename": originalFilename,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	doc := &model.Document{
		ID:           id,
		UserID:       userID,
		Filename:     genName,
		OriginalName: filepath.Base(originalFilename),
		StoragePath:  objInfo.Key,
		Size:         objInfo.Size,
		ContentType:  objInfo.ContentType,
		CreatedAt:    time.Now().UTC(),
	}
	stored, err := s.repo.Create(ctx, doc)
	if err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			s.log.Error("document_rollback_failed", zap.String("key", key), zap.Error(delErr))
			return nil, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}
	return stored, nil
}

func (s *documentService) List(ctx context.Context, userID string, limit, offset int) (*DocumentListResult, error) {
	pq := page(limit, offset)
	res, err := s.repo.List(ctx, userID, pq)
	if err != nil {
		return nil, err
	}
	return listResult(res, pq), nil
}

func (s *documentService) Get(ctx context.Context, userID, id string) (*model.Document, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	doc, err := s.repo.FindByID(ctx, userID, id)
	if err != nil {
		return nil, notFound(err)
	}
	return doc, nil
}

func (s *documentService) DownloadURL(ctx context.Context, userID, id string) (string, time.Time, error) {
	doc, err := s.Get(ctx, userID, id)
	if err != nil {
		return "", time.Time{}, err
	}
	expires := time.Now().Add(downloadURLExpiry).UTC()
	u, err := s.store.PresignGet(ctx, doc.StoragePath, downloadURLExpiry)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("presign: %w", err)
	}
	return u, expires, nil
}

func (s *documentService) Open(ctx context.Context, userID, id string) (io.ReadCloser, *model.Document, error) {
	doc, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, nil, err
	}
	rc, _, err := s.store.Get(ctx, doc.StoragePath)
	if err != nil {
		return nil, nil, fmt.Errorf("read storage: %w", err)
	}
	return rc, doc, nil
}

// Delete removes the object first; if that fails the row is kept so the object is not orphaned.
func (s *documentService) Delete(ctx context.Context, userID, id string) error {
	doc, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, doc.StoragePath); err != nil {
		return fmt.Errorf("delete storage: %w", err)
	}
	return notFound(s.repo.Delete(ctx, userID, id))
}
