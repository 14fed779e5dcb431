package documentctrl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"docchat/src/core/docqa"
	"docchat/src/core/loader"
)

type Document struct {
	ID          int64  `gorm:"primaryKey"`
	WorkspaceID int64  `gorm:"not null;index"`
	Filename    string `gorm:"not null"`
	MediaType   string `gorm:"not null"`
	Size        int64  `gorm:"not null"`
	ObjectKey   string `gorm:"column:object_key"`
	Status      string `gorm:"not null;index"`
	Method      string
	Pages       int
	Chunks      int
	Error       string `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Repository struct {
	db        *gorm.DB
	snowflake *snowflake.Node
}

func NewRepository(db *gorm.DB) (*Repository, error) {
	node, err := snowflake.NewNode(3) // Node number 3 for documents
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node: %w", err)
	}

	return &Repository{
		db:        db,
		snowflake: node,
	}, nil
}

// Create locks the workspace row so concurrent uploads cannot pass the document limit together
func (r *Repository) Create(ctx context.Context, doc *docqa.Document, maxDocuments int) error {
	row := fromDomain(doc)
	row.ID = r.snowflake.Generate().Int64()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if maxDocuments > 0 {
			if err := tx.Exec("SELECT id FROM workspaces WHERE id = ? FOR UPDATE", doc.WorkspaceID).Error; err != nil {
				return fmt.Errorf("failed to lock workspace: %w", err)
			}
			var count int64
			if err := tx.Model(&Document{}).Where("workspace_id = ?", doc.WorkspaceID).Count(&count).Error; err != nil {
				return fmt.Errorf("failed to count documents: %w", err)
			}
			if count >= int64(maxDocuments) {
				return docqa.ErrDocumentLimitExceeded
			}
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to create document: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	doc.ID = row.ID
	doc.CreatedAt = row.CreatedAt
	doc.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *Repository) Get(ctx context.Context, id int64) (*docqa.Document, error) {
	var row Document
	if err := r.db.WithContext(ctx).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, docqa.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	doc := toDomain(row)
	return &doc, nil
}

func (r *Repository) ListByWorkspace(ctx context.Context, workspaceID int64) ([]docqa.Document, error) {
	var rows []Document
	result := r.db.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("created_at ASC").
		Find(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list documents: %w", result.Error)
	}

	docs := make([]docqa.Document, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, toDomain(row))
	}
	return docs, nil
}

// Update saves every mutable column of the document
func (r *Repository) Update(ctx context.Context, doc *docqa.Document) error {
	row := fromDomain(doc)
	row.UpdatedAt = time.Now().UTC()
	result := r.db.WithContext(ctx).Model(&Document{ID: doc.ID}).Select(
		"object_key", "status", "method", "pages", "chunks", "error", "updated_at",
	).Updates(&row)
	if result.Error != nil {
		return fmt.Errorf("failed to update document: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return docqa.ErrDocumentNotFound
	}
	doc.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&Document{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete document: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return docqa.ErrDocumentNotFound
	}
	return nil
}

func fromDomain(doc *docqa.Document) Document {
	return Document{
		ID:          doc.ID,
		WorkspaceID: doc.WorkspaceID,
		Filename:    doc.Filename,
		MediaType:   doc.MediaType,
		Size:        doc.Size,
		ObjectKey:   doc.ObjectKey,
		Status:      string(doc.Status),
		Method:      string(doc.Method),
		Pages:       doc.Pages,
		Chunks:      doc.Chunks,
		Error:       doc.Error,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
}

func toDomain(row Document) docqa.Document {
	return docqa.Document{
		ID:          row.ID,
		WorkspaceID: row.WorkspaceID,
		Filename:    row.Filename,
		MediaType:   row.MediaType,
		Size:        row.Size,
		ObjectKey:   row.ObjectKey,
		Status:      docqa.DocumentStatus(row.Status),
		Method:      loader.ExtractionMethod(row.Method),
		Pages:       row.Pages,
		Chunks:      row.Chunks,
		Error:       row.Error,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}
