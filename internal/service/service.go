package service

import (
	"errors"
	"fmt"

	"github.com/crewdesk/crewdesk-backend/internal/config"
	"github.com/crewdesk/crewdesk-backend/internal/notification"
	"github.com/crewdesk/crewdesk-backend/internal/repository"
)

// Rejection kinds. Specific rejections below wrap one of these four so
// callers can branch on errors.Is against the kind while logs keep the
// stable reason string.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidState = errors.New("invalid state")
	ErrConflict     = errors.New("conflict")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidInput       = errors.New("invalid input")

	ErrUserExists       = fmt.Errorf("%w: user already exists", ErrConflict)
	ErrAlreadyMember    = fmt.Errorf("%w: already a member", ErrInvalidState)
	ErrTeamFull         = fmt.Errorf("%w: team is at maximum capacity", ErrInvalidState)
	ErrJoinClosed       = fmt.Errorf("%w: team does not accept this join method", ErrInvalidState)
	ErrSelfTarget       = fmt.Errorf("%w: operation cannot target the acting user", ErrInvalidState)
	ErrNotInvited       = fmt.Errorf("%w: no invite found for this email", ErrForbidden)
	ErrManagerImmutable = fmt.Errorf("%w: the team manager cannot leave or be removed", ErrForbidden)
)

// ============================================
// Services Container
// ============================================

type Services struct {
	Auth         AuthService
	User         UserService
	Team         TeamService
	Project      ProjectService
	Task         TaskService
	Chat         ChatService
	Permission   PermissionService
	Notification *notification.Service
}

// ServiceDeps contains all dependencies needed to create services
type ServiceDeps struct {
	Config   *config.Config
	Repos    *repository.Repositories
	NotifSvc *notification.Service
}

func NewServices(deps *ServiceDeps) *Services {
	locks := newKeyedLocks()

	permissionService := NewPermissionService(
		deps.Repos.ProjectRepo,
		deps.Repos.TeamRepo,
		deps.Repos.TaskRepo,
	)

	return &Services{
		Auth: NewAuthService(deps.Config, deps.Repos.UserRepo),
		User: NewUserService(deps.Repos.UserRepo),
		Team: NewTeamService(
			deps.Repos.TeamRepo,
			deps.Repos.ProjectRepo,
			deps.Repos.TaskRepo,
			deps.Repos.TagRepo,
			deps.Repos.CommentRepo,
			deps.Repos.UserRepo,
			locks,
		),
		Project: NewProjectService(
			deps.Repos.ProjectRepo,
			deps.Repos.TeamRepo,
			deps.Repos.TaskRepo,
			deps.Repos.TagRepo,
			deps.Repos.CommentRepo,
			deps.Repos.UserRepo,
			permissionService,
			deps.NotifSvc,
			locks,
		),
		Task: NewTaskService(
			deps.Repos.TaskRepo,
			deps.Repos.ProjectRepo,
			deps.Repos.TagRepo,
			deps.Repos.CommentRepo,
			deps.Repos.UserRepo,
			permissionService,
			deps.NotifSvc,
			locks,
		),
		Chat: NewChatService(
			deps.Repos.MessageRepo,
			deps.Repos.UserRepo,
			permissionService,
		),
		Permission:   permissionService,
		Notification: deps.NotifSvc,
	}
}
