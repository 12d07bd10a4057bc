package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/talent-pipeline-api/internal/models"
)

func newDocumentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestDocumentRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newDocumentRepoMock(t)
	defer cleanup()

	repo := NewDocumentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO documents")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	doc := &models.Document{
		Name:        "resume.pdf",
		Type:        "application/pdf",
		StoragePath: "documents/user-1/1700000000000_resume.pdf",
		SizeBytes:   2048,
		Category:    models.CategoryEmployment,
		Status:      models.DocumentPending,
		UploadedBy:  "user-1",
	}
	require.NoError(t, repo.Create(context.Background(), doc))
	require.NotEmpty(t, doc.ID)

	rows := sqlmock.NewRows([]string{"id", "name", "type", "storage_path", "size_bytes", "category", "status", "uploaded_by", "uploaded_at", "reviewed_by", "reviewed_at", "comments"}).
		AddRow(doc.ID, doc.Name, doc.Type, doc.StoragePath, doc.SizeBytes, doc.Category, doc.Status, doc.UploadedBy, time.Now(), nil, nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, type, storage_path")).
		WithArgs(doc.ID).
		WillReturnRows(rows)

	found, err := repo.GetByID(context.Background(), doc.ID)
	require.NoError(t, err)
	require.Equal(t, doc.StoragePath, found.StoragePath)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryReviewMissingRow(t *testing.T) {
	db, mock, cleanup := newDocumentRepoMock(t)
	defer cleanup()

	repo := NewDocumentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE documents SET status")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Review(context.Background(), "missing", models.DocumentApproved, "mgr-1", nil, time.Now())
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestDocumentRepositoryListStoragePaths(t *testing.T) {
	db, mock, cleanup := newDocumentRepoMock(t)
	defer cleanup()

	repo := NewDocumentRepository(db)
	rows := sqlmock.NewRows([]string{"storage_path"}).
		AddRow("documents/user-1/a.pdf").
		AddRow("documents/user-2/b.pdf")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT storage_path FROM documents")).
		WillReturnRows(rows)

	paths, err := repo.ListStoragePaths(context.Background())
	require.NoError(t, err)
	require.Len(t, paths, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}
