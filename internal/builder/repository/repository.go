package repository

import (
	"context"
	"errors"

	"page-builder/internal/builder/models"
)

var ErrNotFound = errors.New("page not found")

// PageRepository: граница персистентности. Документ хранится как есть.
type PageRepository interface {
	Load(ctx context.Context, id string) (models.PageDocument, error)
	// Save создаёт страницу при пустом id и возвращает итоговый id.
	Save(ctx context.Context, id string, doc models.PageDocument) (string, error)
	SetPublished(ctx context.Context, id string, published bool) error
	List(ctx context.Context) ([]models.PageSummary, error)
}
