package repository

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"page-builder/internal/builder/models"
)

// ============================================================
// Cached Repository
// ============================================================

type CacheConfig struct {
	TTL        time.Duration
	MaxEntries int
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		TTL:        5 * time.Minute,
		MaxEntries: 256,
	}
}

// CachedRepository держит последние загруженные документы в LRU с TTL.
// Наружу всегда отдаются копии.
type CachedRepository struct {
	origin PageRepository
	docs   *expirable.LRU[string, models.PageDocument]
}

func NewCached(origin PageRepository, cfg CacheConfig) *CachedRepository {
	def := DefaultCacheConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = def.MaxEntries
	}
	return &CachedRepository{
		origin: origin,
		docs:   expirable.NewLRU[string, models.PageDocument](cfg.MaxEntries, nil, cfg.TTL),
	}
}

func (c *CachedRepository) Load(ctx context.Context, id string) (models.PageDocument, error) {
	key := strings.TrimSpace(id)
	if doc, ok := c.docs.Get(key); ok {
		return doc.Clone(), nil
	}
	doc, err := c.origin.Load(ctx, key)
	if err != nil {
		return models.PageDocument{}, err
	}
	c.docs.Add(key, doc.Clone())
	return doc, nil
}

func (c *CachedRepository) Save(ctx context.Context, id string, doc models.PageDocument) (string, error) {
	saved, err := c.origin.Save(ctx, id, doc)
	if err != nil {
		c.docs.Remove(strings.TrimSpace(id))
		return "", err
	}
	// Save не трогает флаг публикации: берём его из прежней записи.
	// Новая страница всегда создаётся неопубликованной.
	stored := doc.Clone()
	stored.Published = false
	if prev, ok := c.docs.Peek(saved); ok {
		stored.Published = prev.Published
	} else if strings.TrimSpace(id) != "" {
		return saved, nil
	}
	c.docs.Add(saved, stored)
	return saved, nil
}

func (c *CachedRepository) SetPublished(ctx context.Context, id string, published bool) error {
	key := strings.TrimSpace(id)
	if err := c.origin.SetPublished(ctx, key, published); err != nil {
		return err
	}
	if doc, ok := c.docs.Peek(key); ok {
		doc.Published = published
		c.docs.Add(key, doc)
	}
	return nil
}

func (c *CachedRepository) List(ctx context.Context) ([]models.PageSummary, error) {
	return c.origin.List(ctx)
}

// Invalidate выбрасывает документ из кэша.
func (c *CachedRepository) Invalidate(id string) {
	c.docs.Remove(strings.TrimSpace(id))
}

func (c *CachedRepository) Len() int {
	return c.docs.Len()
}
