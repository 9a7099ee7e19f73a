package posts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/postkeeper/internal/common"
	"github.com/dmitrijs2005/postkeeper/internal/dbx"
	"github.com/dmitrijs2005/postkeeper/internal/server/models"
	"github.com/goccy/go-json"
)

const postColumns = `id, user_id, local_id, title, content, scheduled_at,
	location_lat, location_lng, location_address, visibility, media_keys,
	status, reason, published_at, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(row scanner) (*models.Post, error) {
	var (
		p         models.Post
		status    string
		lat, lng  sql.NullFloat64
		address   sql.NullString
		mediaKeys []byte
		published sql.NullTime
	)
	err := row.Scan(&p.ID, &p.UserID, &p.LocalID, &p.Title, &p.Content, &p.ScheduledAt,
		&lat, &lng, &address, &p.Visibility, &mediaKeys,
		&status, &p.Reason, &published, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	p.Status = models.PostStatus(status)
	if lat.Valid && lng.Valid {
		p.Place = &models.Place{Lat: lat.Float64, Lng: lng.Float64, Address: address.String}
	}
	if published.Valid {
		at := published.Time
		p.PublishedAt = &at
	}
	if len(mediaKeys) > 0 {
		if err := json.Unmarshal(mediaKeys, &p.MediaKeys); err != nil {
			return nil, fmt.Errorf("failed to decode media keys of %s: %w", p.ID, err)
		}
	}
	return &p, nil
}

func placeArgs(pl *models.Place) (lat, lng sql.NullFloat64, address sql.NullString) {
	if pl == nil {
		return
	}
	return sql.NullFloat64{Float64: pl.Lat, Valid: true},
		sql.NullFloat64{Float64: pl.Lng, Valid: true},
		sql.NullString{String: pl.Address, Valid: true}
}

func (r *PostgresRepository) Upsert(ctx context.Context, p *models.Post) (*models.Post, error) {
	keys := p.MediaKeys
	if keys == nil {
		keys = []string{}
	}
	mediaKeys, err := json.Marshal(keys)
	if err != nil {
		return nil, fmt.Errorf("failed to encode media keys: %w", err)
	}
	lat, lng, address := placeArgs(p.Place)

	query := `
		INSERT INTO posts (user_id, local_id, title, content, scheduled_at,
			location_lat, location_lng, location_address, visibility, media_keys,
			status, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id, local_id) DO UPDATE SET
			title = EXCLUDED.title,
			content = EXCLUDED.content,
			scheduled_at = EXCLUDED.scheduled_at,
			location_lat = EXCLUDED.location_lat,
			location_lng = EXCLUDED.location_lng,
			location_address = EXCLUDED.location_address,
			visibility = EXCLUDED.visibility,
			media_keys = EXCLUDED.media_keys,
			status = EXCLUDED.status,
			reason = EXCLUDED.reason,
			updated_at = now()
		WHERE posts.status <> 'published'
		RETURNING ` + postColumns

	saved, err := scanPost(r.db.QueryRowContext(ctx, query,
		p.UserID, p.LocalID, p.Title, p.Content, p.ScheduledAt,
		lat, lng, address, p.Visibility, mediaKeys,
		string(p.Status), p.Reason))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("failed to upsert post: %w", err)
	}
	return saved, nil
}

func (r *PostgresRepository) queryPosts(ctx context.Context, query string, args ...any) ([]models.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select posts: %w", err)
	}
	defer rows.Close()

	var out []models.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate posts: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) FindByLocalIDs(ctx context.Context, userID string, localIDs []string) ([]models.Post, error) {
	if len(localIDs) == 0 {
		return nil, nil
	}
	query := `SELECT ` + postColumns + `
		FROM posts
		WHERE user_id = $1 AND local_id = ANY($2)
		ORDER BY local_id`
	return r.queryPosts(ctx, query, userID, localIDs)
}

func (r *PostgresRepository) SelectDue(ctx context.Context, now time.Time, limit int) ([]models.Post, error) {
	query := `SELECT ` + postColumns + `
		FROM posts
		WHERE status = 'pending' AND scheduled_at <= $1
		ORDER BY scheduled_at
		LIMIT $2
		FOR UPDATE SKIP LOCKED`
	return r.queryPosts(ctx, query, now, limit)
}

func (r *PostgresRepository) MarkPublished(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE posts
		SET status = 'published', reason = '', published_at = $2, updated_at = now()
		WHERE id = $1 AND status = 'pending'
	`
	res, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("failed to mark post published: %w", err)
	}
	return dbx.ExpectOneRow(res)
}

func (r *PostgresRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	query := `
		UPDATE posts
		SET status = 'failed', reason = $2, updated_at = now()
		WHERE id = $1 AND status = 'pending'
	`
	res, err := r.db.ExecContext(ctx, query, id, reason)
	if err != nil {
		return fmt.Errorf("failed to mark post failed: %w", err)
	}
	return dbx.ExpectOneRow(res)
}
