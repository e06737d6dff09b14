package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repositories struct {
	UserRepo         UserRepository
	TeamRepo         TeamRepository
	ProjectRepo      ProjectRepository
	TaskRepo         TaskRepository
	TagRepo          TagRepository
	CommentRepo      CommentRepository
	MessageRepo      MessageRepository
	NotificationRepo NotificationRepository
}

func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		UserRepo:         NewUserRepository(pool),
		TeamRepo:         NewTeamRepository(pool),
		ProjectRepo:      NewProjectRepository(pool),
		TaskRepo:         NewTaskRepository(pool),
		TagRepo:          NewTagRepository(pool),
		CommentRepo:      NewCommentRepository(pool),
		MessageRepo:      NewMessageRepository(pool),
		NotificationRepo: NewNotificationRepository(pool),
	}
}
