package postgres

import (
	"context"
	"errors"

	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AttachmentRepository implements domain.AttachmentRepository using
// PostgreSQL. It persists only the object-store reference; the bytes live
// in whatever domain.AttachmentStore implementation is wired in.
type AttachmentRepository struct {
	pool *pgxpool.Pool
}

func NewAttachmentRepository(pool *pgxpool.Pool) *AttachmentRepository {
	return &AttachmentRepository{pool: pool}
}

const attachmentColumns = `id, group_id, uploader_member_id, storage_key, thumbnail_key, content_type, size_bytes, created_at`

func (r *AttachmentRepository) scanAttachment(row pgx.Row) (*domain.Attachment, error) {
	var a domain.Attachment
	var thumbnailKey pgtype.Text
	err := row.Scan(&a.ID, &a.GroupID, &a.UploaderID, &a.StorageKey, &thumbnailKey, &a.ContentType, &a.SizeBytes, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAttachmentNotFound
		}
		return nil, err
	}
	a.ThumbnailKey = fromPgTextPtr(thumbnailKey)
	return &a, nil
}

func (r *AttachmentRepository) GetByID(id uuid.UUID) (*domain.Attachment, error) {
	row := r.pool.QueryRow(context.Background(),
		`SELECT `+attachmentColumns+` FROM attachments WHERE id = $1`, id)
	return r.scanAttachment(row)
}

func (r *AttachmentRepository) Create(a *domain.Attachment) (*domain.Attachment, error) {
	row := r.pool.QueryRow(context.Background(), `
		INSERT INTO attachments (group_id, uploader_member_id, storage_key, thumbnail_key, content_type, size_bytes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+attachmentColumns,
		a.GroupID, a.UploaderID, a.StorageKey, a.ThumbnailKey, a.ContentType, a.SizeBytes,
	)
	return r.scanAttachment(row)
}
