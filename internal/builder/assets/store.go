package assets

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"page-builder/internal/builder/models"
)

var (
	ErrNotFound        = errors.New("asset not found")
	ErrQuotaExceeded   = errors.New("asset quota exceeded")
	ErrUnsupportedType = errors.New("unsupported asset type")
	ErrInvalidName     = errors.New("invalid owner or asset id")
)

// Store: граница хранения файлов: положить blob, получить URL, список, удаление.
type Store interface {
	List(ctx context.Context, owner string) ([]models.Asset, error)
	Upload(ctx context.Context, owner, name string, r io.Reader) (models.Asset, error)
	Delete(ctx context.Context, owner, id string) error
}

const (
	sniffLimit  = 3072
	maxNameLen  = 64
	maxOwnerLen = 128
)

// detect определяет тип по первым байтам и возвращает reader с непрочитанным содержимым.
func detect(r io.Reader) (*mimetype.MIME, io.Reader, error) {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReaderSize(r, sniffLimit)
	}
	peeked, err := br.Peek(sniffLimit)
	if err != nil && err != io.EOF && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, nil, err
	}
	return mimetype.Detect(peeked), br, nil
}

// supported: картинки, аудио и видео: то, что умеют компоненты.
func supported(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		top, _, _ := strings.Cut(m.String(), "/")
		switch top {
		case "image", "audio", "video":
			return true
		}
	}
	return false
}

func newAssetID(name string) string {
	return uuid.NewString() + "-" + safeName(name)
}

// nameFromID отрезает uuid-префикс.
func nameFromID(id string) string {
	if len(id) > 37 && id[36] == '-' {
		if _, err := uuid.Parse(id[:36]); err == nil {
			return id[37:]
		}
	}
	return id
}

func safeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	out := strings.Trim(b.String(), ".-")
	if len(out) > maxNameLen {
		out = out[len(out)-maxNameLen:]
	}
	if out == "" {
		out = "file"
	}
	return out
}

// validSegment не даёт выйти за пределы каталога/префикса владельца.
func validSegment(s string) bool {
	if s == "" || s == "." || s == ".." || len(s) > maxOwnerLen {
		return false
	}
	return !strings.ContainsAny(s, `/\`) && !strings.Contains(s, "..")
}
