package models

import (
	"strings"
	"time"
)

// DocumentStatus is the review state of an uploaded document.
type DocumentStatus string

const (
	DocumentPending  DocumentStatus = "pending"
	DocumentApproved DocumentStatus = "approved"
	DocumentRejected DocumentStatus = "rejected"
)

// DocumentCategory is a coarse classification inferred from the filename.
type DocumentCategory string

const (
	CategoryPersonal   DocumentCategory = "personal"
	CategoryEducation  DocumentCategory = "education"
	CategoryEmployment DocumentCategory = "employment"
	CategoryLegal      DocumentCategory = "legal"
)

// categoryKeywords maps filename substrings to categories. Checked in order;
// first match wins, default is personal.
var categoryKeywords = []struct {
	keywords []string
	category DocumentCategory
}{
	{[]string{"resume", "cv"}, CategoryEmployment},
	{[]string{"degree", "certificate"}, CategoryEducation},
	{[]string{"id", "passport"}, CategoryPersonal},
	{[]string{"contract", "agreement"}, CategoryLegal},
}

// CategoryFromFilename infers the document category once at upload time.
// The result is stored and never recomputed.
func CategoryFromFilename(name string) DocumentCategory {
	lower := strings.ToLower(name)
	for _, entry := range categoryKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.category
			}
		}
	}
	return CategoryPersonal
}

// Document is metadata for one uploaded file. The blob lives in object
// storage at StoragePath; the row exists independently of any task.
type Document struct {
	ID          string           `db:"id" json:"id"`
	Name        string           `db:"name" json:"name"`
	Type        string           `db:"type" json:"type"`
	StoragePath string           `db:"storage_path" json:"url"`
	SizeBytes   int64            `db:"size_bytes" json:"size"`
	Category    DocumentCategory `db:"category" json:"category"`
	Status      DocumentStatus   `db:"status" json:"status"`
	UploadedBy  string           `db:"uploaded_by" json:"uploaded_by"`
	UploadedAt  time.Time        `db:"uploaded_at" json:"uploaded_at"`
	ReviewedBy  *string          `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time       `db:"reviewed_at" json:"reviewed_at,omitempty"`
	Comments    *string          `db:"comments" json:"comments,omitempty"`
}

// DocumentFilter captures list filters for documents.
type DocumentFilter struct {
	Category   *DocumentCategory
	Status     *DocumentStatus
	UploadedBy string
}
