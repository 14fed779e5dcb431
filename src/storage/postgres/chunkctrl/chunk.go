package chunkctrl

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"docchat/src/core/docqa"
)

type Chunk struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	DocumentID  int64     `gorm:"not null;index" json:"document_id"`
	WorkspaceID int64     `gorm:"not null" json:"workspace_id"`
	Page        int       `gorm:"not null" json:"page"`
	Order       int       `gorm:"not null;column:chunk_order" json:"order"`
	Content     string    `gorm:"not null;type:text" json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

type ChunkService struct {
	db        *gorm.DB
	snowflake *snowflake.Node
}

func NewChunkService(db *gorm.DB) (*ChunkService, error) {
	node, err := snowflake.NewNode(2) // Node number 2 for chunks
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node: %w", err)
	}

	return &ChunkService{
		db:        db,
		snowflake: node,
	}, nil
}

// Replace swaps the chunks of a document in one transaction and writes the new IDs back
func (s *ChunkService) Replace(ctx context.Context, documentID int64, chunks []docqa.Chunk) error {
	rows := make([]Chunk, len(chunks))
	for i, c := range chunks {
		rows[i] = Chunk{
			ID:          s.snowflake.Generate().Int64(),
			DocumentID:  documentID,
			WorkspaceID: c.WorkspaceID,
			Page:        c.Page,
			Order:       c.Order,
			Content:     c.Content,
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", documentID).Delete(&Chunk{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 200).Error
	})
	if err != nil {
		return fmt.Errorf("failed to replace chunks: %w", err)
	}

	for i := range chunks {
		chunks[i].ID = rows[i].ID
		chunks[i].DocumentID = documentID
	}
	return nil
}

func (s *ChunkService) ListByDocument(ctx context.Context, documentID int64) ([]docqa.Chunk, error) {
	var rows []Chunk
	result := s.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("chunk_order ASC").
		Find(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get chunks: %w", result.Error)
	}

	chunks := make([]docqa.Chunk, 0, len(rows))
	for _, row := range rows {
		chunks = append(chunks, docqa.Chunk{
			ID:          row.ID,
			DocumentID:  row.DocumentID,
			WorkspaceID: row.WorkspaceID,
			Page:        row.Page,
			Order:       row.Order,
			Content:     row.Content,
		})
	}
	return chunks, nil
}

func (s *ChunkService) DeleteByDocument(ctx context.Context, documentID int64) error {
	result := s.db.WithContext(ctx).Where("document_id = ?", documentID).Delete(&Chunk{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete chunks: %w", result.Error)
	}
	return nil
}
