package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Tag is a project-scoped label attachable to tasks.
type Tag struct {
	ID        string
	ProjectID string
	Name      string
	Color     *string
	CreatedAt time.Time
}

type TagRepository interface {
	Create(ctx context.Context, tag *Tag) error
	FindByID(ctx context.Context, id string) (*Tag, error)
	FindByProjectID(ctx context.Context, projectID string) ([]*Tag, error)
	Delete(ctx context.Context, id string) error
	DeleteByProjectID(ctx context.Context, projectID string) error
}

type pgTagRepository struct {
	pool *pgxpool.Pool
}

func NewTagRepository(pool *pgxpool.Pool) TagRepository {
	return &pgTagRepository{pool: pool}
}

func (r *pgTagRepository) Create(ctx context.Context, tag *Tag) error {
	query := `
		INSERT INTO tags (project_id, name, color)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	return r.pool.QueryRow(ctx, query,
		tag.ProjectID, tag.Name, tag.Color,
	).Scan(&tag.ID, &tag.CreatedAt)
}

func (r *pgTagRepository) FindByID(ctx context.Context, id string) (*Tag, error) {
	query := `SELECT id, project_id, name, color, created_at FROM tags WHERE id = $1`
	tag := &Tag{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&tag.ID, &tag.ProjectID, &tag.Name, &tag.Color, &tag.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return tag, nil
}

func (r *pgTagRepository) FindByProjectID(ctx context.Context, projectID string) ([]*Tag, error) {
	query := `
		SELECT id, project_id, name, color, created_at
		FROM tags WHERE project_id = $1
		ORDER BY name
	`
	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []*Tag
	for rows.Next() {
		tag := &Tag{}
		if err := rows.Scan(&tag.ID, &tag.ProjectID, &tag.Name, &tag.Color, &tag.CreatedAt); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

func (r *pgTagRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM tags WHERE id = $1`, id)
	return err
}

func (r *pgTagRepository) DeleteByProjectID(ctx context.Context, projectID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM tags WHERE project_id = $1`, projectID)
	return err
}
