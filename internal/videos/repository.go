package videos

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/da314jones/CapStone-Backend/internal/models"
)

// Repository handles video metadata persistence. All operations are atomic
// single-row statements keyed by id or archive id, so concurrent pipelines
// for different archives never contend on the same row.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a videos repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const videoColumns = `id, user_id, archive_id, title, summary, category, is_private, duration,
		video_key, thumbnail_key, source, created_at, updated_at`

func scanVideo(row pgx.Row) (*models.Video, error) {
	var v models.Video
	err := row.Scan(&v.ID, &v.UserID, &v.ArchiveID, &v.Title, &v.Summary, &v.Category, &v.IsPrivate,
		&v.Duration, &v.VideoKey, &v.ThumbnailKey, &v.Source, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// CreateInitial inserts the minimal row at recording start: owner and
// archive id, no storage keys. The archive id is unique; inserting the same
// one twice fails on the constraint.
func (r *Repository) CreateInitial(ctx context.Context, userID, archiveID string) (*models.Video, error) {
	const q = `INSERT INTO videos (user_id, archive_id) VALUES ($1, $2) RETURNING ` + videoColumns
	return scanVideo(r.pool.QueryRow(ctx, q, userID, archiveID))
}

// GetByArchiveID returns a video by archive id, or nil when absent.
func (r *Repository) GetByArchiveID(ctx context.Context, archiveID string) (*models.Video, error) {
	v, err := scanVideo(r.pool.QueryRow(ctx, `SELECT `+videoColumns+` FROM videos WHERE archive_id = $1`, archiveID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return v, err
}

// GetByID returns a video by internal id, or nil when absent.
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.Video, error) {
	v, err := scanVideo(r.pool.QueryRow(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = $1`, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return v, err
}

// List returns all video records, newest first.
func (r *Repository) List(ctx context.Context) ([]models.Video, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+videoColumns+` FROM videos ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *v)
	}
	return list, rows.Err()
}

// UpdateArtifacts sets the storage keys once the pipeline has uploaded both
// artifacts. Keyed by archive id; repeating the call with identical inputs
// leaves the row in the same state.
func (r *Repository) UpdateArtifacts(ctx context.Context, archiveID, videoKey string, thumbnailKey *string) (*models.Video, error) {
	const q = `UPDATE videos SET video_key = $1, thumbnail_key = $2, updated_at = NOW()
		WHERE archive_id = $3 RETURNING ` + videoColumns
	v, err := scanVideo(r.pool.QueryRow(ctx, q, videoKey, thumbnailKey, archiveID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return v, err
}

// UpdateUpload records a manual upload: storage keys plus the descriptive
// fields from the upload form, keyed by archive id.
func (r *Repository) UpdateUpload(ctx context.Context, archiveID, videoKey string, thumbnailKey *string, title, summary, category string, isPrivate bool, duration int) (*models.Video, error) {
	const q = `UPDATE videos SET video_key = $1, thumbnail_key = $2, title = $3, summary = $4,
		category = $5, is_private = $6, duration = $7, updated_at = NOW()
		WHERE archive_id = $8 RETURNING ` + videoColumns
	v, err := scanVideo(r.pool.QueryRow(ctx, q, videoKey, thumbnailKey, title, summary, category, isPrivate, duration, archiveID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return v, err
}

// UpdateDetails applies a user edit to descriptive fields only.
func (r *Repository) UpdateDetails(ctx context.Context, id int64, title, summary, category string, isPrivate bool) (*models.Video, error) {
	const q = `UPDATE videos SET title = $1, summary = $2, category = $3, is_private = $4, updated_at = NOW()
		WHERE id = $5 RETURNING ` + videoColumns
	v, err := scanVideo(r.pool.QueryRow(ctx, q, title, summary, category, isPrivate, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return v, err
}

// Delete removes a video row and returns it so the caller can also delete
// the stored objects. Returns nil when the row does not exist.
func (r *Repository) Delete(ctx context.Context, id int64) (*models.Video, error) {
	const q = `DELETE FROM videos WHERE id = $1 RETURNING ` + videoColumns
	v, err := scanVideo(r.pool.QueryRow(ctx, q, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return v, err
}
