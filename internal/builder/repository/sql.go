package repository

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"page-builder/internal/builder/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ============================================================
// SQL Repository
// ============================================================

type Dialect string

// фиксированная ширина, чтобы ORDER BY по строке совпадал с порядком времени
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

type Repository struct {
	db      *sql.DB
	dialect Dialect
	log     zerolog.Logger
	now     func() time.Time
}

func New(db *sql.DB, dialect Dialect, log zerolog.Logger) *Repository {
	return &Repository{
		db:      db,
		dialect: dialect,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Init применяет встроенные миграции.
func (r *Repository) Init(ctx context.Context) error {
	if err := r.runMigrations(ctx); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	return nil
}

func (r *Repository) Load(ctx context.Context, id string) (models.PageDocument, error) {
	row := r.db.QueryRowContext(ctx, r.rebind(`
        SELECT document, published
        FROM pages
        WHERE id = ?
    `), id)

	var (
		raw       string
		published int
	)
	if err := row.Scan(&raw, &published); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.PageDocument{}, ErrNotFound
		}
		return models.PageDocument{}, fmt.Errorf("load page %s: %w", id, err)
	}

	var doc models.PageDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return models.PageDocument{}, fmt.Errorf("decode page %s: %w", id, err)
	}
	doc.Published = published != 0
	return doc, nil
}

func (r *Repository) Save(ctx context.Context, id string, doc models.PageDocument) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode page: %w", err)
	}
	ts := r.now().Format(timeLayout)

	_, err = r.db.ExecContext(ctx, r.rebind(`
        INSERT INTO pages (id, title, document, published, created_at, updated_at)
        VALUES (?, ?, ?, 0, ?, ?)
        ON CONFLICT (id) DO UPDATE SET
            title = excluded.title,
            document = excluded.document,
            updated_at = excluded.updated_at
    `), id, doc.Title, string(raw), ts, ts)
	if err != nil {
		return "", fmt.Errorf("save page %s: %w", id, err)
	}

	r.log.Debug().Str("page", id).Int("components", len(doc.Components)).Msg("page saved")
	return id, nil
}

func (r *Repository) SetPublished(ctx context.Context, id string, published bool) error {
	flag := 0
	if published {
		flag = 1
	}
	res, err := r.db.ExecContext(ctx, r.rebind(`
        UPDATE pages
        SET published = ?, updated_at = ?
        WHERE id = ?
    `), flag, r.now().Format(timeLayout), id)
	if err != nil {
		return fmt.Errorf("publish page %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("publish page %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) List(ctx context.Context) ([]models.PageSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, title, published, updated_at
        FROM pages
        ORDER BY updated_at DESC, id
    `)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer rows.Close()

	out := []models.PageSummary{}
	for rows.Next() {
		var (
			s         models.PageSummary
			published int
			updatedAt string
		)
		if err := rows.Scan(&s.ID, &s.Title, &published, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		s.Published = published != 0
		if ts, err := time.Parse(timeLayout, updatedAt); err == nil {
			s.UpdatedAt = ts
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Ping: для readiness probe.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ============================================================
// Migrations & Dialects
// ============================================================

func (r *Repository) runMigrations(ctx context.Context) error {
	files, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	for _, f := range files {
		data, err := migrationsFS.ReadFile("migrations/" + f.Name())
		if err != nil {
			return fmt.Errorf("read migration %s: %w", f.Name(), err)
		}
		// по одному выражению: postgres в extended protocol не принимает пачку
		for _, stmt := range strings.Split(string(data), ";") {
			if strings.TrimSpace(stmt) == "" {
				continue
			}
			if _, err := r.db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("apply migration %s: %w", f.Name(), err)
			}
		}
		r.log.Debug().Str("migration", f.Name()).Msg("migration applied")
	}
	return nil
}

// rebind переводит плейсхолдеры ? в $n для postgres.
func (r *Repository) rebind(query string) string {
	if r.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}
