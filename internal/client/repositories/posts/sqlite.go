package posts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/postkeeper/internal/client/models"
	"github.com/dmitrijs2005/postkeeper/internal/common"
	"github.com/dmitrijs2005/postkeeper/internal/dbx"
	"github.com/goccy/go-json"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectColumns = `local_id, remote_id, content, title, created_at, updated_at, scheduled_at, submitted_at,
	local_image_paths, cloud_image_urls, location_lat, location_lng, location_address, visibility`

// Upsert writes every column of p in one statement.
func (r *SQLiteRepository) Upsert(ctx context.Context, p models.Post) error {
	localImages, err := json.Marshal(nonNil(p.LocalImagePaths))
	if err != nil {
		return fmt.Errorf("failed to encode image paths: %w", err)
	}
	cloudImages, err := json.Marshal(nonNil(p.CloudImageURLs))
	if err != nil {
		return fmt.Errorf("failed to encode image urls: %w", err)
	}

	var scheduledAt sql.NullInt64
	if p.ScheduledAt != nil {
		scheduledAt = sql.NullInt64{Int64: p.ScheduledAt.UnixNano(), Valid: true}
	}

	var submittedAt sql.NullInt64
	if p.SubmittedAt != nil {
		submittedAt = sql.NullInt64{Int64: p.SubmittedAt.UnixNano(), Valid: true}
	}

	var lat, lng sql.NullFloat64
	var address sql.NullString
	if p.Place != nil {
		lat = sql.NullFloat64{Float64: p.Place.Lat, Valid: true}
		lng = sql.NullFloat64{Float64: p.Place.Lng, Valid: true}
		address = sql.NullString{String: p.Place.Address, Valid: true}
	}

	query := `INSERT INTO posts (` + selectColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(local_id) DO UPDATE SET
			remote_id = excluded.remote_id,
			content = excluded.content,
			title = excluded.title,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			scheduled_at = excluded.scheduled_at,
			submitted_at = excluded.submitted_at,
			local_image_paths = excluded.local_image_paths,
			cloud_image_urls = excluded.cloud_image_urls,
			location_lat = excluded.location_lat,
			location_lng = excluded.location_lng,
			location_address = excluded.location_address,
			visibility = excluded.visibility
	`
	_, err = r.db.ExecContext(ctx, query,
		p.LocalID, p.RemoteID, p.Content, p.Title,
		toNanos(p.CreatedAt), toNanos(p.UpdatedAt), scheduledAt, submittedAt,
		string(localImages), string(cloudImages),
		lat, lng, address, p.Visibility)
	if err != nil {
		return fmt.Errorf("failed to upsert post: %w", err)
	}
	return nil
}

// GetAll lists every post ordered by local id.
func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.Post, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM posts ORDER BY local_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select posts: %w", err)
	}
	defer rows.Close()

	var result []models.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetByID returns a single post.
func (r *SQLiteRepository) GetByID(ctx context.Context, localID string) (*models.Post, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM posts WHERE local_id = ?`, localID)
	p, err := scanPost(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, err
	}
	return p, nil
}

// DeleteByID removes a post. It expects exactly one row to be affected.
func (r *SQLiteRepository) DeleteByID(ctx context.Context, localID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE local_id = ?`, localID)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	return dbx.ExpectOneRow(res)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(s scanner) (*models.Post, error) {
	var (
		p                        models.Post
		createdAt, updatedAt     int64
		scheduledAt, submittedAt sql.NullInt64
		localImages, cloudImages string
		lat, lng                 sql.NullFloat64
		address                  sql.NullString
	)

	err := s.Scan(&p.LocalID, &p.RemoteID, &p.Content, &p.Title, &createdAt, &updatedAt, &scheduledAt, &submittedAt,
		&localImages, &cloudImages, &lat, &lng, &address, &p.Visibility)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan post: %w", err)
	}

	p.CreatedAt = fromNanos(createdAt)
	p.UpdatedAt = fromNanos(updatedAt)
	if scheduledAt.Valid {
		t := fromNanos(scheduledAt.Int64)
		p.ScheduledAt = &t
	}
	if submittedAt.Valid {
		t := fromNanos(submittedAt.Int64)
		p.SubmittedAt = &t
	}
	if err := json.Unmarshal([]byte(localImages), &p.LocalImagePaths); err != nil {
		return nil, fmt.Errorf("failed to decode image paths of %s: %w", p.LocalID, err)
	}
	if err := json.Unmarshal([]byte(cloudImages), &p.CloudImageURLs); err != nil {
		return nil, fmt.Errorf("failed to decode image urls of %s: %w", p.LocalID, err)
	}
	if len(p.LocalImagePaths) == 0 {
		p.LocalImagePaths = nil
	}
	if len(p.CloudImageURLs) == 0 {
		p.CloudImageURLs = nil
	}
	if lat.Valid || lng.Valid || address.Valid {
		p.Place = &models.Place{Lat: lat.Float64, Lng: lng.Float64, Address: address.String}
	}

	return &p, nil
}

func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
