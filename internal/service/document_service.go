package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/talent-pipeline-api/internal/models"
	appErrors "github.com/noah-isme/talent-pipeline-api/pkg/errors"
	"github.com/noah-isme/talent-pipeline-api/pkg/storage"
)

type documentRepository interface {
	Create(ctx context.Context, doc *models.Document) error
	GetByID(ctx context.Context, id string) (*models.Document, error)
	List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, error)
	Review(ctx context.Context, id string, status models.DocumentStatus, reviewerID string, comments *string, reviewedAt time.Time) error
	Delete(ctx context.Context, id string) error
	ListStoragePaths(ctx context.Context) ([]string, error)
}

type blobStore interface {
	SaveStream(path string, r io.Reader) (string, error)
	Open(path string) (*os.File, error)
	Delete(path string) error
	ListOlderThan(minAge time.Duration) ([]string, error)
}

type documentAuditor interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// UploadInput carries one incoming file.
type UploadInput struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// ReviewRequest records a reviewer's verdict on a pending document.
type ReviewRequest struct {
	Approve  bool    `json:"approve"`
	Comments *string `json:"comments"`
}

// DocumentConfig bounds uploads and drives the orphan sweep.
type DocumentConfig struct {
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
	OrphanMinAge     time.Duration
}

// DocumentService provides the document lifecycle use cases. Uploads write
// the blob before the metadata row; deletes remove the metadata row before
// the blob. Under that ordering the only possible inconsistency is an
// unreferenced blob, which the orphan sweep reclaims.
type DocumentService struct {
	repo      documentRepository
	blobs     blobStore
	signer    *storage.SignedURLSigner
	auditor   documentAuditor
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	config    DocumentConfig
}

// NewDocumentService constructs a DocumentService instance.
func NewDocumentService(repo documentRepository, blobs blobStore, signer *storage.SignedURLSigner, auditor documentAuditor, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, config DocumentConfig) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &DocumentService{
		repo:      repo,
		blobs:     blobs,
		signer:    signer,
		auditor:   auditor,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		config:    config,
	}
}

// Upload stores the blob, then the metadata. If the metadata write fails the
// blob is removed best-effort; a leftover is picked up by the sweep.
func (s *DocumentService) Upload(ctx context.Context, session *Session, in UploadInput) (*models.Document, error) {
	if strings.TrimSpace(in.Filename) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "filename is required")
	}
	if s.config.MaxFileSizeBytes > 0 && in.Size > s.config.MaxFileSizeBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds the %d byte limit", s.config.MaxFileSizeBytes))
	}
	if len(s.config.AllowedMIMEs) > 0 && !s.mimeAllowed(in.ContentType) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("content type %s is not allowed", in.ContentType))
	}

	uploadedAt := time.Now().UTC()
	relPath := storage.ObjectPath(session.UserID, in.Filename, uploadedAt)

	storedPath, err := s.blobs.SaveStream(relPath, in.Body)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file")
	}

	doc := &models.Document{
		Name:        in.Filename,
		Type:        in.ContentType,
		StoragePath: storedPath,
		SizeBytes:   in.Size,
		Category:    models.CategoryFromFilename(in.Filename),
		Status:      models.DocumentPending,
		UploadedBy:  session.UserID,
		UploadedAt:  uploadedAt,
	}

	if err := s.repo.Create(ctx, doc); err != nil {
		if delErr := s.blobs.Delete(storedPath); delErr != nil {
			s.logger.Warn("orphan blob left after failed metadata write",
				zap.String("path", storedPath), zap.Error(delErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record document")
	}

	s.audit(ctx, session.UserID, models.AuditActionDocumentUpload, doc.ID)
	s.metrics.RecordDocumentUpload()
	return doc, nil
}

// Get returns one document. Employees may only see their own uploads.
func (s *DocumentService) Get(ctx context.Context, session *Session, id string) (*models.Document, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}
	if session.Role == models.RoleEmployee && doc.UploadedBy != session.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "document belongs to another user")
	}
	return doc, nil
}

// List returns documents visible to the caller. Employees are always scoped
// to their own uploads regardless of the requested filter.
func (s *DocumentService) List(ctx context.Context, session *Session, filter models.DocumentFilter) ([]models.Document, error) {
	if session.Role == models.RoleEmployee {
		filter.UploadedBy = session.UserID
	}
	docs, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list documents")
	}
	return docs, nil
}

// SignedURL returns a time-limited download token for the document.
func (s *DocumentService) SignedURL(ctx context.Context, session *Session, id string) (string, time.Time, error) {
	doc, err := s.Get(ctx, session, id)
	if err != nil {
		return "", time.Time{}, err
	}
	token, expiresAt, err := s.signer.Generate(doc.ID, doc.StoragePath)
	if err != nil {
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
	}
	return token, expiresAt, nil
}

// OpenByToken validates a download token and opens the referenced blob.
func (s *DocumentService) OpenByToken(ctx context.Context, token string) (*models.Document, *os.File, error) {
	documentID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download token")
	}

	doc, err := s.repo.GetByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}
	if doc.StoragePath != relPath {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "token does not match document")
	}

	file, err := s.blobs.Open(doc.StoragePath)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file")
	}
	return doc, file, nil
}

// Review records a verdict on a pending document. Employees cannot review,
// and decided documents cannot be re-reviewed.
func (s *DocumentService) Review(ctx context.Context, session *Session, id string, req ReviewRequest) (*models.Document, error) {
	if session.Role == models.RoleEmployee {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "employees cannot review documents")
	}

	doc, err := s.Get(ctx, session, id)
	if err != nil {
		return nil, err
	}
	if doc.Status != models.DocumentPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "document has already been reviewed")
	}

	status := models.DocumentApproved
	if !req.Approve {
		if req.Comments == nil || strings.TrimSpace(*req.Comments) == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "a rejection requires a comment")
		}
		status = models.DocumentRejected
	}

	reviewedAt := time.Now().UTC()
	if err := s.repo.Review(ctx, id, status, session.UserID, req.Comments, reviewedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to review document")
	}

	doc.Status = status
	doc.ReviewedBy = &session.UserID
	doc.ReviewedAt = &reviewedAt
	doc.Comments = req.Comments
	return doc, nil
}

// Delete removes the metadata row, then the blob. Only the uploader or an
// admin may delete a document. A failed blob delete leaves an orphan file
// for the sweep, never a dangling row.
func (s *DocumentService) Delete(ctx context.Context, session *Session, id string) error {
	doc, err := s.Get(ctx, session, id)
	if err != nil {
		return err
	}
	if session.Role != models.RoleAdmin && doc.UploadedBy != session.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "only the uploader or an admin can delete a document")
	}
	if session.Role == models.RoleEmployee && doc.Status != models.DocumentPending {
		return appErrors.Clone(appErrors.ErrForbidden, "reviewed documents cannot be deleted by their uploader")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete document")
	}

	if err := s.blobs.Delete(doc.StoragePath); err != nil {
		s.logger.Warn("orphan blob left after delete", zap.String("path", doc.StoragePath), zap.Error(err))
	}

	s.audit(ctx, session.UserID, models.AuditActionDocumentDelete, id)
	return nil
}

// SweepOrphans removes blobs old enough to be settled that no metadata row
// references. Young blobs are skipped so an in-flight upload is never
// reclaimed between its blob write and its metadata write.
func (s *DocumentService) SweepOrphans(ctx context.Context) (int, error) {
	stale, err := s.blobs.ListOlderThan(s.config.OrphanMinAge)
	if err != nil {
		return 0, fmt.Errorf("list stale blobs: %w", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}

	referenced, err := s.repo.ListStoragePaths(ctx)
	if err != nil {
		return 0, fmt.Errorf("list referenced paths: %w", err)
	}
	known := make(map[string]struct{}, len(referenced))
	for _, p := range referenced {
		known[p] = struct{}{}
	}

	removed := 0
	for _, path := range stale {
		if _, ok := known[path]; ok {
			continue
		}
		if err := s.blobs.Delete(path); err != nil {
			s.logger.Warn("failed to remove orphan blob", zap.String("path", path), zap.Error(err))
			continue
		}
		removed++
	}
	if removed > 0 {
		s.metrics.RecordOrphansRemoved(removed)
		s.logger.Info("orphan sweep removed blobs", zap.Int("count", removed))
	}
	return removed, nil
}

func (s *DocumentService) mimeAllowed(contentType string) bool {
	for _, allowed := range s.config.AllowedMIMEs {
		if strings.EqualFold(allowed, contentType) {
			return true
		}
	}
	return false
}

func (s *DocumentService) audit(ctx context.Context, actorID string, action string, resourceID string) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "documents",
		ResourceID: &resourceID,
	}); err != nil {
		s.logger.Warn("failed to record document audit log", zap.Error(err))
	}
}
