package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/talent-pipeline-api/internal/models"
	appErrors "github.com/noah-isme/talent-pipeline-api/pkg/errors"
)

type mockDocumentRepo struct {
	docs      map[string]*models.Document
	createErr error
	ops       *[]string
	filter    models.DocumentFilter
}

func newMockDocumentRepo(docs ...*models.Document) *mockDocumentRepo {
	repo := &mockDocumentRepo{docs: map[string]*models.Document{}}
	for _, doc := range docs {
		repo.docs[doc.ID] = doc
	}
	return repo
}

func (m *mockDocumentRepo) Create(ctx context.Context, doc *models.Document) error {
	if m.createErr != nil {
		return m.createErr
	}
	doc.ID = "doc-" + doc.Name
	m.docs[doc.ID] = doc
	return nil
}

func (m *mockDocumentRepo) GetByID(ctx context.Context, id string) (*models.Document, error) {
	doc, ok := m.docs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *doc
	return &copied, nil
}

func (m *mockDocumentRepo) List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, error) {
	m.filter = filter
	out := make([]models.Document, 0, len(m.docs))
	for _, doc := range m.docs {
		if filter.UploadedBy != "" && doc.UploadedBy != filter.UploadedBy {
			continue
		}
		out = append(out, *doc)
	}
	return out, nil
}

func (m *mockDocumentRepo) Review(ctx context.Context, id string, status models.DocumentStatus, reviewerID string, comments *string, reviewedAt time.Time) error {
	doc, ok := m.docs[id]
	if !ok {
		return sql.ErrNoRows
	}
	doc.Status = status
	doc.ReviewedBy = &reviewerID
	doc.ReviewedAt = &reviewedAt
	doc.Comments = comments
	return nil
}

func (m *mockDocumentRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.docs[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.docs, id)
	if m.ops != nil {
		*m.ops = append(*m.ops, "metadata-delete")
	}
	return nil
}

func (m *mockDocumentRepo) ListStoragePaths(ctx context.Context) ([]string, error) {
	paths := make([]string, 0, len(m.docs))
	for _, doc := range m.docs {
		paths = append(paths, doc.StoragePath)
	}
	return paths, nil
}

type mockBlobStore struct {
	savedPaths []string
	saveErr    error
	deleted    []string
	deleteErr  error
	stale      []string
	ops        *[]string
}

func (m *mockBlobStore) SaveStream(path string, r io.Reader) (string, error) {
	if m.saveErr != nil {
		return "", m.saveErr
	}
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	m.savedPaths = append(m.savedPaths, path)
	return path, nil
}

func (m *mockBlobStore) Open(path string) (*os.File, error) {
	return nil, errors.New("not backed by a filesystem")
}

func (m *mockBlobStore) Delete(path string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, path)
	if m.ops != nil {
		*m.ops = append(*m.ops, "blob-delete")
	}
	return nil
}

func (m *mockBlobStore) ListOlderThan(minAge time.Duration) ([]string, error) {
	return m.stale, nil
}

func employeeSession() *Session {
	return &Session{
		Phase:       SessionEnriched,
		UserID:      "emp-1",
		Email:       "employee@example.com",
		DisplayName: "Evan Park",
		Role:        models.RoleEmployee,
	}
}

func newTestDocumentService(repo *mockDocumentRepo, blobs *mockBlobStore, config DocumentConfig) *DocumentService {
	return NewDocumentService(repo, blobs, nil, nil, nil, nil, zap.NewNop(), config)
}

func TestDocumentUploadStoresBlobThenMetadata(t *testing.T) {
	repo := newMockDocumentRepo()
	blobs := &mockBlobStore{}
	svc := newTestDocumentService(repo, blobs, DocumentConfig{MaxFileSizeBytes: 1 << 20})

	doc, err := svc.Upload(context.Background(), employeeSession(), UploadInput{
		Filename:    "resume_final.pdf",
		ContentType: "application/pdf",
		Size:        2048,
		Body:        strings.NewReader("pdf bytes"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.DocumentPending, doc.Status)
	assert.Equal(t, models.CategoryEmployment, doc.Category)
	assert.Equal(t, "emp-1", doc.UploadedBy)
	require.Len(t, blobs.savedPaths, 1)
	assert.Equal(t, blobs.savedPaths[0], doc.StoragePath)
	assert.Empty(t, blobs.deleted)
}

func TestDocumentUploadRejectsOversizeFile(t *testing.T) {
	svc := newTestDocumentService(newMockDocumentRepo(), &mockBlobStore{}, DocumentConfig{MaxFileSizeBytes: 100})

	_, err := svc.Upload(context.Background(), employeeSession(), UploadInput{
		Filename:    "huge.pdf",
		ContentType: "application/pdf",
		Size:        101,
		Body:        strings.NewReader("x"),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestDocumentUploadRejectsDisallowedContentType(t *testing.T) {
	svc := newTestDocumentService(newMockDocumentRepo(), &mockBlobStore{}, DocumentConfig{
		AllowedMIMEs: []string{"application/pdf"},
	})

	_, err := svc.Upload(context.Background(), employeeSession(), UploadInput{
		Filename:    "payload.exe",
		ContentType: "application/octet-stream",
		Size:        10,
		Body:        strings.NewReader("x"),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestDocumentUploadRemovesBlobWhenMetadataWriteFails(t *testing.T) {
	repo := newMockDocumentRepo()
	repo.createErr = errors.New("db down")
	blobs := &mockBlobStore{}
	svc := newTestDocumentService(repo, blobs, DocumentConfig{})

	_, err := svc.Upload(context.Background(), employeeSession(), UploadInput{
		Filename:    "contract.pdf",
		ContentType: "application/pdf",
		Size:        10,
		Body:        strings.NewReader("x"),
	})
	require.Error(t, err)
	require.Len(t, blobs.savedPaths, 1)
	// the stored blob is compensated away after the failed row insert
	assert.Equal(t, blobs.savedPaths, blobs.deleted)
}

func TestDocumentListScopesEmployeesToOwnUploads(t *testing.T) {
	repo := newMockDocumentRepo(
		&models.Document{ID: "doc-1", UploadedBy: "emp-1"},
		&models.Document{ID: "doc-2", UploadedBy: "emp-2"},
	)
	svc := newTestDocumentService(repo, &mockBlobStore{}, DocumentConfig{})

	docs, err := svc.List(context.Background(), employeeSession(), models.DocumentFilter{UploadedBy: "emp-2"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "doc-1", docs[0].ID)
	assert.Equal(t, "emp-1", repo.filter.UploadedBy)
}

func TestDocumentGetForbiddenForOtherEmployee(t *testing.T) {
	repo := newMockDocumentRepo(&models.Document{ID: "doc-1", UploadedBy: "emp-2"})
	svc := newTestDocumentService(repo, &mockBlobStore{}, DocumentConfig{})

	_, err := svc.Get(context.Background(), employeeSession(), "doc-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestDocumentReviewEmployeeForbidden(t *testing.T) {
	repo := newMockDocumentRepo(&models.Document{ID: "doc-1", UploadedBy: "emp-1", Status: models.DocumentPending})
	svc := newTestDocumentService(repo, &mockBlobStore{}, DocumentConfig{})

	_, err := svc.Review(context.Background(), employeeSession(), "doc-1", ReviewRequest{Approve: true})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestDocumentReviewOnlyPending(t *testing.T) {
	repo := newMockDocumentRepo(&models.Document{ID: "doc-1", UploadedBy: "emp-1", Status: models.DocumentApproved})
	svc := newTestDocumentService(repo, &mockBlobStore{}, DocumentConfig{})

	_, err := svc.Review(context.Background(), managerSession(), "doc-1", ReviewRequest{Approve: true})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestDocumentReviewRejectRequiresComment(t *testing.T) {
	repo := newMockDocumentRepo(&models.Document{ID: "doc-1", UploadedBy: "emp-1", Status: models.DocumentPending})
	svc := newTestDocumentService(repo, &mockBlobStore{}, DocumentConfig{})

	_, err := svc.Review(context.Background(), managerSession(), "doc-1", ReviewRequest{Approve: false})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	comment := "illegible scan"
	doc, err := svc.Review(context.Background(), managerSession(), "doc-1", ReviewRequest{Approve: false, Comments: &comment})
	require.NoError(t, err)
	assert.Equal(t, models.DocumentRejected, doc.Status)
	require.NotNil(t, doc.ReviewedBy)
	assert.Equal(t, "mgr-1", *doc.ReviewedBy)
}

func TestDocumentDeleteRemovesRowBeforeBlob(t *testing.T) {
	var ops []string
	repo := newMockDocumentRepo(&models.Document{ID: "doc-1", UploadedBy: "emp-1", Status: models.DocumentPending, StoragePath: "documents/emp-1/a.pdf"})
	repo.ops = &ops
	blobs := &mockBlobStore{ops: &ops}
	svc := newTestDocumentService(repo, blobs, DocumentConfig{})

	require.NoError(t, svc.Delete(context.Background(), employeeSession(), "doc-1"))
	assert.Equal(t, []string{"metadata-delete", "blob-delete"}, ops)
	assert.Equal(t, []string{"documents/emp-1/a.pdf"}, blobs.deleted)
}

func TestDocumentDeleteSucceedsWhenBlobDeleteFails(t *testing.T) {
	repo := newMockDocumentRepo(&models.Document{ID: "doc-1", UploadedBy: "emp-1", Status: models.DocumentPending, StoragePath: "documents/emp-1/a.pdf"})
	blobs := &mockBlobStore{deleteErr: errors.New("disk error")}
	svc := newTestDocumentService(repo, blobs, DocumentConfig{})

	// the row is gone; the leftover blob is the sweep's problem
	require.NoError(t, svc.Delete(context.Background(), employeeSession(), "doc-1"))
	_, err := repo.GetByID(context.Background(), "doc-1")
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestDocumentDeleteManagerCannotDeleteOthersUpload(t *testing.T) {
	repo := newMockDocumentRepo(&models.Document{ID: "doc-1", UploadedBy: "emp-1", Status: models.DocumentPending, StoragePath: "documents/emp-1/a.pdf"})
	blobs := &mockBlobStore{}
	svc := newTestDocumentService(repo, blobs, DocumentConfig{})

	err := svc.Delete(context.Background(), managerSession(), "doc-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	_, getErr := repo.GetByID(context.Background(), "doc-1")
	require.NoError(t, getErr)
	assert.Empty(t, blobs.deleted)
}

func TestDocumentDeleteAdminCanDeleteAnyUpload(t *testing.T) {
	repo := newMockDocumentRepo(&models.Document{ID: "doc-1", UploadedBy: "emp-1", Status: models.DocumentApproved, StoragePath: "documents/emp-1/a.pdf"})
	blobs := &mockBlobStore{}
	svc := newTestDocumentService(repo, blobs, DocumentConfig{})

	admin := &Session{Phase: SessionEnriched, UserID: "adm-1", DisplayName: "Ava Chen", Role: models.RoleAdmin}
	require.NoError(t, svc.Delete(context.Background(), admin, "doc-1"))
	assert.Equal(t, []string{"documents/emp-1/a.pdf"}, blobs.deleted)
}

func TestDocumentDeleteEmployeeCannotDeleteReviewed(t *testing.T) {
	repo := newMockDocumentRepo(&models.Document{ID: "doc-1", UploadedBy: "emp-1", Status: models.DocumentApproved})
	svc := newTestDocumentService(repo, &mockBlobStore{}, DocumentConfig{})

	err := svc.Delete(context.Background(), employeeSession(), "doc-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestSweepOrphansRemovesOnlyUnreferencedBlobs(t *testing.T) {
	repo := newMockDocumentRepo(&models.Document{ID: "doc-1", StoragePath: "documents/emp-1/kept.pdf"})
	blobs := &mockBlobStore{stale: []string{
		"documents/emp-1/kept.pdf",
		"documents/emp-1/orphan1.pdf",
		"documents/emp-2/orphan2.pdf",
	}}
	svc := newTestDocumentService(repo, blobs, DocumentConfig{OrphanMinAge: time.Hour})

	removed, err := svc.SweepOrphans(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.ElementsMatch(t, []string{"documents/emp-1/orphan1.pdf", "documents/emp-2/orphan2.pdf"}, blobs.deleted)
}

func TestSweepOrphansNothingStale(t *testing.T) {
	svc := newTestDocumentService(newMockDocumentRepo(), &mockBlobStore{}, DocumentConfig{OrphanMinAge: time.Hour})

	removed, err := svc.SweepOrphans(context.Background())
	require.NoError(t, err)
	assert.Zero(t, removed)
}
