package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"page-builder/internal/builder/models"
)

type countingRepo struct {
	docs    map[string]models.PageDocument
	loads   int
	saveErr error
}

func (r *countingRepo) Load(_ context.Context, id string) (models.PageDocument, error) {
	r.loads++
	doc, ok := r.docs[id]
	if !ok {
		return models.PageDocument{}, ErrNotFound
	}
	return doc.Clone(), nil
}

func (r *countingRepo) Save(_ context.Context, id string, doc models.PageDocument) (string, error) {
	if r.saveErr != nil {
		return "", r.saveErr
	}
	if id == "" {
		id = "generated"
	}
	r.docs[id] = doc.Clone()
	return id, nil
}

func (r *countingRepo) SetPublished(_ context.Context, id string, published bool) error {
	doc, ok := r.docs[id]
	if !ok {
		return ErrNotFound
	}
	doc.Published = published
	r.docs[id] = doc
	return nil
}

func (r *countingRepo) List(context.Context) ([]models.PageSummary, error) { return nil, nil }

func TestCachedLoadHitsOriginOnce(t *testing.T) {
	origin := &countingRepo{docs: map[string]models.PageDocument{
		"p1": {Title: "cached", Components: []models.Component{{ID: "a", Type: models.TypeText, Data: models.Data{"content": "x"}}}},
	}}
	repo := NewCached(origin, CacheConfig{})
	ctx := context.Background()

	first, err := repo.Load(ctx, "p1")
	require.NoError(t, err)
	first.Components[0].Data["content"] = "mutated"

	second, err := repo.Load(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "x", second.Components[0].Data["content"])
	assert.Equal(t, 1, origin.loads)
	assert.Equal(t, 1, repo.Len())
}

func TestCachedSaveRefreshesEntry(t *testing.T) {
	origin := &countingRepo{docs: map[string]models.PageDocument{}}
	repo := NewCached(origin, DefaultCacheConfig())
	ctx := context.Background()

	id, err := repo.Save(ctx, "", models.PageDocument{Title: "v1"})
	require.NoError(t, err)
	assert.Equal(t, "generated", id)

	got, err := repo.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "v1", got.Title)
	assert.Equal(t, 0, origin.loads)

	repo.Invalidate(id)
	_, err = repo.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, origin.loads)
}

func TestCachedSaveFailureDropsEntry(t *testing.T) {
	origin := &countingRepo{docs: map[string]models.PageDocument{"p1": {Title: "old"}}}
	repo := NewCached(origin, DefaultCacheConfig())
	ctx := context.Background()

	_, err := repo.Load(ctx, "p1")
	require.NoError(t, err)

	origin.saveErr = errors.New("disk full")
	_, err = repo.Save(ctx, "p1", models.PageDocument{Title: "new"})
	require.Error(t, err)
	assert.Equal(t, 0, repo.Len())
}

func TestCachedMissPropagatesNotFound(t *testing.T) {
	repo := NewCached(&countingRepo{docs: map[string]models.PageDocument{}}, DefaultCacheConfig())
	_, err := repo.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, repo.Len())
}

func TestCachedTracksPublishedFlag(t *testing.T) {
	origin := &countingRepo{docs: map[string]models.PageDocument{}}
	repo := NewCached(origin, DefaultCacheConfig())
	ctx := context.Background()

	id, err := repo.Save(ctx, "", models.PageDocument{Title: "v1", Published: true})
	require.NoError(t, err)
	got, err := repo.Load(ctx, id)
	require.NoError(t, err)
	assert.False(t, got.Published)

	require.NoError(t, repo.SetPublished(ctx, id, true))
	got, err = repo.Load(ctx, id)
	require.NoError(t, err)
	assert.True(t, got.Published)

	// повторное сохранение не сбрасывает флаг
	_, err = repo.Save(ctx, id, models.PageDocument{Title: "v2"})
	require.NoError(t, err)
	got, err = repo.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Title)
	assert.True(t, got.Published)
	assert.Equal(t, 0, origin.loads)

	assert.ErrorIs(t, repo.SetPublished(ctx, "missing", true), ErrNotFound)
}

func TestCachedSaveOfUncachedPageReadsFlagFromOrigin(t *testing.T) {
	origin := &countingRepo{docs: map[string]models.PageDocument{"p1": {Title: "old", Published: true}}}
	repo := NewCached(origin, DefaultCacheConfig())
	ctx := context.Background()

	_, err := repo.Save(ctx, "p1", models.PageDocument{Title: "new"})
	require.NoError(t, err)
	assert.Equal(t, 0, repo.Len())

	origin.docs["p1"] = models.PageDocument{Title: "new", Published: true}
	got, err := repo.Load(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, got.Published)
	assert.Equal(t, 1, origin.loads)
}
