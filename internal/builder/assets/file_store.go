package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"page-builder/internal/builder/models"
)

// ============================================================
// File Storage
// ============================================================

// FileStore хранит файлы в root/<owner>/<id>. URL = baseURL/<owner>/<id>.
type FileStore struct {
	root    string
	baseURL string
	quota   int64
}

func NewFileStore(root, baseURL string, quota int64) *FileStore {
	return &FileStore{
		root:    root,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		quota:   quota,
	}
}

func (s *FileStore) OwnerDir(owner string) string {
	return filepath.Join(s.root, owner)
}

func (s *FileStore) AssetPath(owner, id string) string {
	return filepath.Join(s.OwnerDir(owner), id)
}

func (s *FileStore) EnsureDir(owner string) error {
	if err := os.MkdirAll(s.OwnerDir(owner), 0o755); err != nil {
		return fmt.Errorf("mkdir owner dir: %w", err)
	}
	return nil
}

func (s *FileStore) List(ctx context.Context, owner string) ([]models.Asset, error) {
	if !validSegment(owner) {
		return nil, ErrInvalidName
	}
	entries, err := os.ReadDir(s.OwnerDir(owner))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []models.Asset{}, nil
		}
		return nil, fmt.Errorf("list assets: %w", err)
	}

	out := make([]models.Asset, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		ct := ""
		if m, err := mimetype.DetectFile(s.AssetPath(owner, e.Name())); err == nil {
			ct = m.String()
		}
		out = append(out, s.asset(owner, e.Name(), info.Size(), ct, info.ModTime()))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UploadedAt.After(out[j].UploadedAt)
	})
	return out, nil
}

func (s *FileStore) Upload(ctx context.Context, owner, name string, r io.Reader) (models.Asset, error) {
	if !validSegment(owner) {
		return models.Asset{}, ErrInvalidName
	}
	mt, body, err := detect(r)
	if err != nil {
		return models.Asset{}, fmt.Errorf("read upload: %w", err)
	}
	if !supported(mt) {
		return models.Asset{}, fmt.Errorf("%w: %s", ErrUnsupportedType, mt.String())
	}

	used, err := s.usage(owner)
	if err != nil {
		return models.Asset{}, err
	}
	remaining := s.quota - used
	if s.quota > 0 && remaining <= 0 {
		return models.Asset{}, ErrQuotaExceeded
	}
	if err := s.EnsureDir(owner); err != nil {
		return models.Asset{}, err
	}

	tmp, err := os.CreateTemp(s.OwnerDir(owner), ".upload-*")
	if err != nil {
		return models.Asset{}, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	src := body
	if s.quota > 0 {
		src = io.LimitReader(body, remaining+1)
	}
	written, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: src})
	closeErr := tmp.Close()
	if err != nil {
		return models.Asset{}, fmt.Errorf("write upload: %w", err)
	}
	if closeErr != nil {
		return models.Asset{}, fmt.Errorf("write upload: %w", closeErr)
	}
	if s.quota > 0 && written > remaining {
		return models.Asset{}, ErrQuotaExceeded
	}

	id := newAssetID(name)
	if err := os.Rename(tmp.Name(), s.AssetPath(owner, id)); err != nil {
		return models.Asset{}, fmt.Errorf("store upload: %w", err)
	}
	return s.asset(owner, id, written, mt.String(), time.Now()), nil
}

func (s *FileStore) Delete(ctx context.Context, owner, id string) error {
	if !validSegment(owner) || !validSegment(id) || strings.HasPrefix(id, ".") {
		return ErrInvalidName
	}
	if err := os.Remove(s.AssetPath(owner, id)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("delete asset: %w", err)
	}
	return nil
}

func (s *FileStore) usage(owner string) (int64, error) {
	entries, err := os.ReadDir(s.OwnerDir(owner))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read owner dir: %w", err)
	}
	var total int64
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if info, err := e.Info(); err == nil {
			total += info.Size()
		}
	}
	return total, nil
}

func (s *FileStore) asset(owner, id string, size int64, contentType string, at time.Time) models.Asset {
	return models.Asset{
		ID:          id,
		URL:         s.baseURL + "/" + owner + "/" + id,
		Name:        nameFromID(id),
		Size:        size,
		ContentType: contentType,
		UploadedAt:  at.UTC(),
	}
}

// ctxReader обрывает копирование при отмене контекста.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
