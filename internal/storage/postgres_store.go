package storage

import (
	"context"
	"errors"
	"fmt"

	"hn-mirror/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS news_items (
	url           TEXT PRIMARY KEY,
	rank          INTEGER NOT NULL,
	title         TEXT NOT NULL,
	comhead       TEXT NOT NULL,
	score         INTEGER,
	author        TEXT,
	author_link   TEXT,
	submit_time   TEXT NOT NULL,
	comment_cnt   INTEGER,
	comment_url   TEXT,
	summary       TEXT NOT NULL DEFAULT '',
	favicon       TEXT NOT NULL DEFAULT '',
	img_id        TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS images (
	id            TEXT PRIMARY KEY,
	content_type  TEXT NOT NULL,
	raw_data      BYTEA NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

const selectItem = `
	SELECT url, rank, title, comhead, score, author, author_link, submit_time,
	       comment_cnt, comment_url, summary, favicon, img_id, created_at, updated_at
	FROM news_items
`

// PostgresStore stores items and images in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to databaseURL and creates the schema if needed.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	if databaseURL == "" {
		return nil, errors.New("storage: postgres_url is required")
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Get returns the stored item for url, or nil if there is none.
func (s *PostgresStore) Get(ctx context.Context, url string) (*model.Item, error) {
	it, err := scanItem(s.pool.QueryRow(ctx, selectItem+" WHERE url = $1", url))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return it, nil
}

// Add inserts a new item with its enrichment.
func (s *PostgresStore) Add(ctx context.Context, item model.NewsItem, enr model.Enrichment) error {
	query := `
		INSERT INTO news_items (url, rank, title, comhead, score, author, author_link, submit_time,
		                        comment_cnt, comment_url, summary, favicon, img_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := s.pool.Exec(ctx, query,
		item.URL, item.Rank, item.Title, item.Comhead, item.Score, item.Author, item.AuthorLink,
		item.SubmitTime, item.CommentCount, item.CommentURL,
		enr.Summary, enr.Favicon, enr.ImageID,
	)
	if err != nil {
		return fmt.Errorf("failed to add item: %w", err)
	}
	return nil
}

// Update overwrites the listing columns of an existing item; enrichment
// columns are not part of the statement.
func (s *PostgresStore) Update(ctx context.Context, item model.NewsItem) error {
	query := `
		UPDATE news_items
		SET rank = $2, title = $3, comhead = $4, score = $5, author = $6, author_link = $7,
		    submit_time = $8, comment_cnt = $9, comment_url = $10, updated_at = now()
		WHERE url = $1
	`
	tag, err := s.pool.Exec(ctx, query,
		item.URL, item.Rank, item.Title, item.Comhead, item.Score, item.Author, item.AuthorLink,
		item.SubmitTime, item.CommentCount, item.CommentURL,
	)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, item.URL)
	}
	return nil
}

// RemoveExcept deletes every item whose URL is not in keep.
func (s *PostgresStore) RemoveExcept(ctx context.Context, keep []string) (int, error) {
	if keep == nil {
		keep = []string{}
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM news_items WHERE NOT (url = ANY($1))`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to remove items: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// List returns all stored items ordered by rank.
func (s *PostgresStore) List(ctx context.Context) ([]model.Item, error) {
	rows, err := s.pool.Query(ctx, selectItem+" ORDER BY rank ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating items: %w", err)
	}
	return items, nil
}

// AddImage stores an image blob and returns its id.
func (s *PostgresStore) AddImage(ctx context.Context, contentType string, data []byte) (string, error) {
	id := uuid.NewString()
	_, err := s.pool.Exec(ctx, `INSERT INTO images (id, content_type, raw_data) VALUES ($1, $2, $3)`, id, contentType, data)
	if err != nil {
		return "", fmt.Errorf("failed to add image: %w", err)
	}
	return id, nil
}

// GetImage returns the image with the given id, or ErrNotFound.
func (s *PostgresStore) GetImage(ctx context.Context, id string) (*model.Image, error) {
	img := model.Image{ID: id}
	err := s.pool.QueryRow(ctx, `SELECT content_type, raw_data FROM images WHERE id = $1`, id).Scan(&img.ContentType, &img.Data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}
	return &img, nil
}

func scanItem(row pgx.Row) (*model.Item, error) {
	var it model.Item
	err := row.Scan(
		&it.URL,
		&it.Rank,
		&it.Title,
		&it.Comhead,
		&it.Score,
		&it.Author,
		&it.AuthorLink,
		&it.SubmitTime,
		&it.CommentCount,
		&it.CommentURL,
		&it.Summary,
		&it.Favicon,
		&it.ImageID,
		&it.CreatedAt,
		&it.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &it, nil
}
