package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crewdesk/crewdesk-backend/internal/types"
)

// Team represents a team aggregate. Membership is held as id-keyed sets
// resolved through the user repository, never as live object references.
type Team struct {
	ID           string
	Name         string
	ManagerID    string
	JoinMode     types.JoinMode
	MemberIDs    []string
	LeaderIDs    []string
	InviteEmails []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasMember reports whether userID is in the member set.
func (t *Team) HasMember(userID string) bool {
	return containsID(t.MemberIDs, userID)
}

// HasLeader reports whether userID is in the leader set.
func (t *Team) HasLeader(userID string) bool {
	return containsID(t.LeaderIDs, userID)
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// TeamRepository defines team data operations. Update persists the full
// membership state of the aggregate; callers serialize mutations per team.
type TeamRepository interface {
	Create(ctx context.Context, team *Team) error
	FindByID(ctx context.Context, id string) (*Team, error)
	FindByManagerID(ctx context.Context, managerID string) ([]*Team, error)
	FindByMemberID(ctx context.Context, userID string) ([]*Team, error)
	Update(ctx context.Context, team *Team) error
	Delete(ctx context.Context, id string) error
	IsMember(ctx context.Context, teamID, userID string) (bool, error)
}

type pgTeamRepository struct {
	pool *pgxpool.Pool
}

func NewTeamRepository(pool *pgxpool.Pool) TeamRepository {
	return &pgTeamRepository{pool: pool}
}

func (r *pgTeamRepository) Create(ctx context.Context, team *Team) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO teams (name, manager_id, join_mode)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`
	if err := tx.QueryRow(ctx, query,
		team.Name, team.ManagerID, team.JoinMode,
	).Scan(&team.ID, &team.CreatedAt, &team.UpdatedAt); err != nil {
		return err
	}

	if err := insertSet(ctx, tx, "team_members", "team_id", "user_id", team.ID, team.MemberIDs); err != nil {
		return err
	}
	if err := insertSet(ctx, tx, "team_leaders", "team_id", "user_id", team.ID, team.LeaderIDs); err != nil {
		return err
	}
	if err := insertSet(ctx, tx, "team_invites", "team_id", "email", team.ID, team.InviteEmails); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *pgTeamRepository) FindByID(ctx context.Context, id string) (*Team, error) {
	query := `
		SELECT id, name, manager_id, join_mode, created_at, updated_at
		FROM teams WHERE id = $1
	`
	team := &Team{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&team.ID, &team.Name, &team.ManagerID, &team.JoinMode, &team.CreatedAt, &team.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadSets(ctx, team); err != nil {
		return nil, err
	}
	return team, nil
}

func (r *pgTeamRepository) FindByManagerID(ctx context.Context, managerID string) ([]*Team, error) {
	query := `
		SELECT id, name, manager_id, join_mode, created_at, updated_at
		FROM teams WHERE manager_id = $1
		ORDER BY name
	`
	return r.findTeams(ctx, query, managerID)
}

func (r *pgTeamRepository) FindByMemberID(ctx context.Context, userID string) ([]*Team, error) {
	query := `
		SELECT t.id, t.name, t.manager_id, t.join_mode, t.created_at, t.updated_at
		FROM teams t
		JOIN team_members m ON m.team_id = t.id
		WHERE m.user_id = $1
		ORDER BY t.name
	`
	return r.findTeams(ctx, query, userID)
}

func (r *pgTeamRepository) findTeams(ctx context.Context, query string, arg any) ([]*Team, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var teams []*Team
	for rows.Next() {
		team := &Team{}
		if err := rows.Scan(
			&team.ID, &team.Name, &team.ManagerID, &team.JoinMode, &team.CreatedAt, &team.UpdatedAt,
		); err != nil {
			return nil, err
		}
		teams = append(teams, team)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, team := range teams {
		if err := r.loadSets(ctx, team); err != nil {
			return nil, err
		}
	}
	return teams, nil
}

func (r *pgTeamRepository) loadSets(ctx context.Context, team *Team) error {
	var err error
	team.MemberIDs, err = queryStrings(ctx, r.pool,
		`SELECT user_id FROM team_members WHERE team_id = $1`, team.ID)
	if err != nil {
		return err
	}
	team.LeaderIDs, err = queryStrings(ctx, r.pool,
		`SELECT user_id FROM team_leaders WHERE team_id = $1`, team.ID)
	if err != nil {
		return err
	}
	team.InviteEmails, err = queryStrings(ctx, r.pool,
		`SELECT email FROM team_invites WHERE team_id = $1`, team.ID)
	return err
}

func (r *pgTeamRepository) Update(ctx context.Context, team *Team) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE teams SET name = $2, join_mode = $3, updated_at = now()
		WHERE id = $1
	`
	if _, err := tx.Exec(ctx, query, team.ID, team.Name, team.JoinMode); err != nil {
		return err
	}

	if err := replaceSet(ctx, tx, "team_members", "team_id", "user_id", team.ID, team.MemberIDs); err != nil {
		return err
	}
	if err := replaceSet(ctx, tx, "team_leaders", "team_id", "user_id", team.ID, team.LeaderIDs); err != nil {
		return err
	}
	if err := replaceSet(ctx, tx, "team_invites", "team_id", "email", team.ID, team.InviteEmails); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *pgTeamRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM teams WHERE id = $1`, id)
	return err
}

func (r *pgTeamRepository) IsMember(ctx context.Context, teamID, userID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM team_members WHERE team_id = $1 AND user_id = $2)`,
		teamID, userID,
	).Scan(&exists)
	return exists, err
}

// ============================================
// Shared helpers for join-table sets
// ============================================

func insertSet(ctx context.Context, tx pgx.Tx, table, keyCol, valCol, key string, values []string) error {
	for _, v := range values {
		if _, err := tx.Exec(ctx,
			`INSERT INTO `+table+` (`+keyCol+`, `+valCol+`) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			key, v,
		); err != nil {
			return err
		}
	}
	return nil
}

func replaceSet(ctx context.Context, tx pgx.Tx, table, keyCol, valCol, key string, values []string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE `+keyCol+` = $1`, key); err != nil {
		return err
	}
	return insertSet(ctx, tx, table, keyCol, valCol, key, values)
}

func queryStrings(ctx context.Context, pool *pgxpool.Pool, query string, args ...any) ([]string, error) {
	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}
