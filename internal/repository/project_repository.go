package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Project represents a project aggregate, optionally linked to a team.
type Project struct {
	ID          string
	Name        string
	Description string
	OwnerID     string
	TeamID      *string
	MemberIDs   []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasMember reports whether userID is in the member set.
func (p *Project) HasMember(userID string) bool {
	return containsID(p.MemberIDs, userID)
}

// TeamLinked reports whether the project belongs to a team.
func (p *Project) TeamLinked() bool {
	return p.TeamID != nil && *p.TeamID != ""
}

type ProjectRepository interface {
	Create(ctx context.Context, project *Project) error
	FindByID(ctx context.Context, id string) (*Project, error)
	FindByTeamID(ctx context.Context, teamID string) ([]*Project, error)
	// FindByOwnerOrMember returns projects where the user is owner or a direct member.
	FindByOwnerOrMember(ctx context.Context, userID string) ([]*Project, error)
	Update(ctx context.Context, project *Project) error
	Delete(ctx context.Context, id string) error
	IsMember(ctx context.Context, projectID, userID string) (bool, error)
}

type pgProjectRepository struct {
	pool *pgxpool.Pool
}

func NewProjectRepository(pool *pgxpool.Pool) ProjectRepository {
	return &pgProjectRepository{pool: pool}
}

func (r *pgProjectRepository) Create(ctx context.Context, project *Project) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO projects (name, description, owner_id, team_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`
	if err := tx.QueryRow(ctx, query,
		project.Name, project.Description, project.OwnerID, project.TeamID,
	).Scan(&project.ID, &project.CreatedAt, &project.UpdatedAt); err != nil {
		return err
	}

	if err := insertSet(ctx, tx, "project_members", "project_id", "user_id", project.ID, project.MemberIDs); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *pgProjectRepository) FindByID(ctx context.Context, id string) (*Project, error) {
	query := `
		SELECT id, name, description, owner_id, team_id, created_at, updated_at
		FROM projects WHERE id = $1
	`
	project := &Project{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&project.ID, &project.Name, &project.Description, &project.OwnerID,
		&project.TeamID, &project.CreatedAt, &project.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	project.MemberIDs, err = queryStrings(ctx, r.pool,
		`SELECT user_id FROM project_members WHERE project_id = $1`, project.ID)
	if err != nil {
		return nil, err
	}
	return project, nil
}

func (r *pgProjectRepository) FindByTeamID(ctx context.Context, teamID string) ([]*Project, error) {
	query := `
		SELECT id, name, description, owner_id, team_id, created_at, updated_at
		FROM projects WHERE team_id = $1
		ORDER BY name
	`
	return r.findProjects(ctx, query, teamID)
}

func (r *pgProjectRepository) FindByOwnerOrMember(ctx context.Context, userID string) ([]*Project, error) {
	query := `
		SELECT DISTINCT p.id, p.name, p.description, p.owner_id, p.team_id, p.created_at, p.updated_at
		FROM projects p
		LEFT JOIN project_members m ON m.project_id = p.id
		WHERE p.owner_id = $1 OR m.user_id = $1
		ORDER BY p.name
	`
	return r.findProjects(ctx, query, userID)
}

func (r *pgProjectRepository) findProjects(ctx context.Context, query string, arg any) ([]*Project, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		project := &Project{}
		if err := rows.Scan(
			&project.ID, &project.Name, &project.Description, &project.OwnerID,
			&project.TeamID, &project.CreatedAt, &project.UpdatedAt,
		); err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, project := range projects {
		project.MemberIDs, err = queryStrings(ctx, r.pool,
			`SELECT user_id FROM project_members WHERE project_id = $1`, project.ID)
		if err != nil {
			return nil, err
		}
	}
	return projects, nil
}

func (r *pgProjectRepository) Update(ctx context.Context, project *Project) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE projects SET name = $2, description = $3, updated_at = now()
		WHERE id = $1
	`
	if _, err := tx.Exec(ctx, query, project.ID, project.Name, project.Description); err != nil {
		return err
	}
	if err := replaceSet(ctx, tx, "project_members", "project_id", "user_id", project.ID, project.MemberIDs); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *pgProjectRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	return err
}

func (r *pgProjectRepository) IsMember(ctx context.Context, projectID, userID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM project_members WHERE project_id = $1 AND user_id = $2)`,
		projectID, userID,
	).Scan(&exists)
	return exists, err
}
