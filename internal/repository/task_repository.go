package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Task represents a task inside a project.
type Task struct {
	ID          string
	ProjectID   string
	Title       string
	Description *string
	Status      string
	Priority    string
	DueDate     *time.Time
	CreatedBy   string
	AssigneeIDs []string
	TagIDs      []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasAssignee reports whether userID is in the assignee set.
func (t *Task) HasAssignee(userID string) bool {
	return containsID(t.AssigneeIDs, userID)
}

// TaskFilter holds optional listing criteria. Nil fields are skipped.
type TaskFilter struct {
	Status     *string
	AssigneeID *string
	TagID      *string
	Priority   *string
	DueStart   *time.Time
	DueEnd     *time.Time
	Search     *string
}

type TaskRepository interface {
	Create(ctx context.Context, task *Task) error
	FindByID(ctx context.Context, id string) (*Task, error)
	FindByProjectID(ctx context.Context, projectID string, filter TaskFilter) ([]*Task, error)
	Update(ctx context.Context, task *Task) error
	Delete(ctx context.Context, id string) error
	DeleteByProjectID(ctx context.Context, projectID string) error
	// FindDueBetween returns unfinished tasks whose due date falls in [from, to).
	FindDueBetween(ctx context.Context, from, to time.Time) ([]*Task, error)
}

type pgTaskRepository struct {
	pool *pgxpool.Pool
}

func NewTaskRepository(pool *pgxpool.Pool) TaskRepository {
	return &pgTaskRepository{pool: pool}
}

func (r *pgTaskRepository) Create(ctx context.Context, task *Task) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO tasks (project_id, title, description, status, priority, due_date, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	if err := tx.QueryRow(ctx, query,
		task.ProjectID, task.Title, task.Description, task.Status,
		task.Priority, task.DueDate, task.CreatedBy,
	).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt); err != nil {
		return err
	}

	if err := insertSet(ctx, tx, "task_assignees", "task_id", "user_id", task.ID, task.AssigneeIDs); err != nil {
		return err
	}
	if err := insertSet(ctx, tx, "task_tags", "task_id", "tag_id", task.ID, task.TagIDs); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *pgTaskRepository) FindByID(ctx context.Context, id string) (*Task, error) {
	query := `
		SELECT id, project_id, title, description, status, priority, due_date, created_by, created_at, updated_at
		FROM tasks WHERE id = $1
	`
	task := &Task{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&task.ID, &task.ProjectID, &task.Title, &task.Description, &task.Status,
		&task.Priority, &task.DueDate, &task.CreatedBy, &task.CreatedAt, &task.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadSets(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (r *pgTaskRepository) FindByProjectID(ctx context.Context, projectID string, filter TaskFilter) ([]*Task, error) {
	query := `
		SELECT DISTINCT t.id, t.project_id, t.title, t.description, t.status, t.priority,
			t.due_date, t.created_by, t.created_at, t.updated_at
		FROM tasks t
		LEFT JOIN task_assignees a ON a.task_id = t.id
		LEFT JOIN task_tags g ON g.task_id = t.id
		WHERE t.project_id = $1
	`
	args := []any{projectID}
	idx := 2

	addArg := func(clause string, value any) {
		query += fmt.Sprintf(clause, idx)
		args = append(args, value)
		idx++
	}

	if filter.Status != nil {
		addArg(" AND t.status = $%d", *filter.Status)
	}
	if filter.AssigneeID != nil {
		addArg(" AND a.user_id = $%d", *filter.AssigneeID)
	}
	if filter.TagID != nil {
		addArg(" AND g.tag_id = $%d", *filter.TagID)
	}
	if filter.Priority != nil {
		addArg(" AND t.priority = $%d", *filter.Priority)
	}
	if filter.DueStart != nil {
		addArg(" AND t.due_date >= $%d", *filter.DueStart)
	}
	if filter.DueEnd != nil {
		addArg(" AND t.due_date <= $%d", *filter.DueEnd)
	}
	if filter.Search != nil {
		query += fmt.Sprintf(" AND (t.title ILIKE '%%' || $%d || '%%' OR t.description ILIKE '%%' || $%d || '%%')", idx, idx)
		args = append(args, *filter.Search)
		idx++
	}
	query += " ORDER BY t.created_at DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanTasks(ctx, rows)
}

func (r *pgTaskRepository) Update(ctx context.Context, task *Task) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE tasks
		SET title = $2, description = $3, status = $4, priority = $5, due_date = $6, updated_at = now()
		WHERE id = $1
	`
	if _, err := tx.Exec(ctx, query,
		task.ID, task.Title, task.Description, task.Status, task.Priority, task.DueDate,
	); err != nil {
		return err
	}
	if err := replaceSet(ctx, tx, "task_assignees", "task_id", "user_id", task.ID, task.AssigneeIDs); err != nil {
		return err
	}
	if err := replaceSet(ctx, tx, "task_tags", "task_id", "tag_id", task.ID, task.TagIDs); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *pgTaskRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	return err
}

func (r *pgTaskRepository) DeleteByProjectID(ctx context.Context, projectID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE project_id = $1`, projectID)
	return err
}

func (r *pgTaskRepository) FindDueBetween(ctx context.Context, from, to time.Time) ([]*Task, error) {
	query := `
		SELECT id, project_id, title, description, status, priority, due_date, created_by, created_at, updated_at
		FROM tasks
		WHERE due_date >= $1 AND due_date < $2 AND status != 'DONE'
		ORDER BY due_date
	`
	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanTasks(ctx, rows)
}

func (r *pgTaskRepository) scanTasks(ctx context.Context, rows pgx.Rows) ([]*Task, error) {
	var tasks []*Task
	for rows.Next() {
		task := &Task{}
		if err := rows.Scan(
			&task.ID, &task.ProjectID, &task.Title, &task.Description, &task.Status,
			&task.Priority, &task.DueDate, &task.CreatedBy, &task.CreatedAt, &task.UpdatedAt,
		); err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, task := range tasks {
		if err := r.loadSets(ctx, task); err != nil {
			return nil, err
		}
	}
	return tasks, nil
}

func (r *pgTaskRepository) loadSets(ctx context.Context, task *Task) error {
	var err error
	task.AssigneeIDs, err = queryStrings(ctx, r.pool,
		`SELECT user_id FROM task_assignees WHERE task_id = $1`, task.ID)
	if err != nil {
		return err
	}
	task.TagIDs, err = queryStrings(ctx, r.pool,
		`SELECT tag_id FROM task_tags WHERE task_id = $1`, task.ID)
	return err
}
