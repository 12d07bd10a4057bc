package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/talent-pipeline-api/internal/models"
)

// DocumentRepository provides database access for document metadata.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository creates a new instance of DocumentRepository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

const documentColumns = `id, name, type, storage_path, size_bytes, category, status, uploaded_by, uploaded_at, reviewed_by, reviewed_at, comments`

// Create inserts document metadata. Called only after the blob write has
// already succeeded, so a row never points at a missing file.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}
	const query = `INSERT INTO documents (id, name, type, storage_path, size_bytes, category, status, uploaded_by, uploaded_at) VALUES (:id, :name, :type, :storage_path, :size_bytes, :category, :status, :uploaded_by, :uploaded_at)`
	if _, err := r.db.NamedExecContext(ctx, query, doc); err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// GetByID returns a document by identifier.
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	query := fmt.Sprintf(`SELECT %s FROM documents WHERE id = $1 LIMIT 1`, documentColumns)
	var doc models.Document
	if err := r.db.GetContext(ctx, &doc, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find document by id: %w", err)
	}
	return &doc, nil
}

// List returns documents matching the filter, newest upload first.
func (r *DocumentRepository) List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, error) {
	baseQuery := `FROM documents WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Category != nil {
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)+1))
		args = append(args, *filter.Category)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.UploadedBy != "" {
		conditions = append(conditions, fmt.Sprintf("uploaded_by = $%d", len(args)+1))
		args = append(args, filter.UploadedBy)
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY uploaded_at DESC", documentColumns, baseQuery)
	var docs []models.Document
	if err := r.db.SelectContext(ctx, &docs, listQuery, args...); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// Review records a reviewer's verdict on a pending document.
func (r *DocumentRepository) Review(ctx context.Context, id string, status models.DocumentStatus, reviewerID string, comments *string, reviewedAt time.Time) error {
	const query = `UPDATE documents SET status = $2, reviewed_by = $3, reviewed_at = $4, comments = $5 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status, reviewerID, reviewedAt, comments)
	if err != nil {
		return fmt.Errorf("review document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("review document: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes document metadata. Called before the blob is removed so a
// failed blob delete leaves an orphan file, never a dangling row.
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM documents WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListStoragePaths returns every referenced storage path. The orphan sweeper
// diffs this set against the files on disk.
func (r *DocumentRepository) ListStoragePaths(ctx context.Context) ([]string, error) {
	var paths []string
	if err := r.db.SelectContext(ctx, &paths, `SELECT storage_path FROM documents`); err != nil {
		return nil, fmt.Errorf("list storage paths: %w", err)
	}
	return paths, nil
}
