package workspacectrl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"docchat/src/core/docqa"
)

type Workspace struct {
	ID             int64  `gorm:"primaryKey"`
	Name           string `gorm:"not null"`
	EmbeddingModel string `gorm:"not null"`
	ChatModel      string `gorm:"not null"`
	MaxDocuments   int    `gorm:"not null;default:0"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Repository struct {
	db        *gorm.DB
	snowflake *snowflake.Node
}

func NewRepository(db *gorm.DB) (*Repository, error) {
	node, err := snowflake.NewNode(1) // Node number 1 for workspaces
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node: %w", err)
	}

	return &Repository{
		db:        db,
		snowflake: node,
	}, nil
}

func (r *Repository) Create(ctx context.Context, ws *docqa.Workspace) error {
	row := Workspace{
		ID:             r.snowflake.Generate().Int64(),
		Name:           ws.Name,
		EmbeddingModel: ws.EmbeddingModel,
		ChatModel:      ws.ChatModel,
		MaxDocuments:   ws.MaxDocuments,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to create workspace: %w", err)
	}

	ws.ID = row.ID
	ws.CreatedAt = row.CreatedAt
	return nil
}

func (r *Repository) Get(ctx context.Context, id int64) (*docqa.Workspace, error) {
	var row Workspace
	if err := r.db.WithContext(ctx).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, docqa.ErrWorkspaceNotFound
		}
		return nil, fmt.Errorf("failed to get workspace: %w", err)
	}
	ws := toDomain(row)
	return &ws, nil
}

func (r *Repository) List(ctx context.Context) ([]docqa.Workspace, error) {
	var rows []Workspace
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}

	workspaces := make([]docqa.Workspace, 0, len(rows))
	for _, row := range rows {
		workspaces = append(workspaces, toDomain(row))
	}
	return workspaces, nil
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&Workspace{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete workspace: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return docqa.ErrWorkspaceNotFound
	}
	return nil
}

func toDomain(row Workspace) docqa.Workspace {
	return docqa.Workspace{
		ID:             row.ID,
		Name:           row.Name,
		EmbeddingModel: row.EmbeddingModel,
		ChatModel:      row.ChatModel,
		MaxDocuments:   row.MaxDocuments,
		CreatedAt:      row.CreatedAt,
	}
}
