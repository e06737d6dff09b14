package seed

import (
	"context"
	"log"

	"golang.org/x/crypto/bcrypt"

	"github.com/crewdesk/crewdesk-backend/internal/repository"
	"github.com/crewdesk/crewdesk-backend/internal/types"
)

// SeedData populates development fixtures: three users, a team with a
// leader, and a team-linked project with a couple of tasks. Skips
// silently when the users already exist.
func SeedData(repos *repository.Repositories) {
	ctx := context.Background()

	existing, err := repos.UserRepo.FindByEmail(ctx, "manager@crewdesk.dev")
	if err != nil {
		log.Printf("[Seed] Lookup failed: %v", err)
		return
	}
	if existing != nil {
		log.Println("[Seed] Fixtures already present, skipping")
		return
	}

	hashed, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)

	manager := &repository.User{Name: "Morgan Reyes", Email: "manager@crewdesk.dev", Password: string(hashed)}
	leader := &repository.User{Name: "Lee Tanaka", Email: "leader@crewdesk.dev", Password: string(hashed)}
	member := &repository.User{Name: "Riley Novak", Email: "member@crewdesk.dev", Password: string(hashed)}
	for _, u := range []*repository.User{manager, leader, member} {
		if err := repos.UserRepo.Create(ctx, u); err != nil {
			log.Printf("[Seed] Failed to create user %s: %v", u.Email, err)
			return
		}
	}

	team := &repository.Team{
		Name:      "Platform",
		ManagerID: manager.ID,
		JoinMode:  types.JoinModeEither,
		MemberIDs: []string{manager.ID, leader.ID, member.ID},
		LeaderIDs: []string{leader.ID},
	}
	if err := repos.TeamRepo.Create(ctx, team); err != nil {
		log.Printf("[Seed] Failed to create team: %v", err)
		return
	}

	project := &repository.Project{
		Name:        "Launch Checklist",
		Description: "Everything that must ship before the beta",
		OwnerID:     manager.ID,
		TeamID:      &team.ID,
		MemberIDs:   []string{manager.ID, member.ID},
	}
	if err := repos.ProjectRepo.Create(ctx, project); err != nil {
		log.Printf("[Seed] Failed to create project: %v", err)
		return
	}

	tasks := []*repository.Task{
		{
			ProjectID:   project.ID,
			Title:       "Wire up health checks",
			Status:      types.StatusInProgress,
			Priority:    types.PriorityHigh,
			CreatedBy:   manager.ID,
			AssigneeIDs: []string{member.ID},
		},
		{
			ProjectID:   project.ID,
			Title:       "Write onboarding docs",
			Status:      types.StatusTodo,
			Priority:    types.PriorityMedium,
			CreatedBy:   manager.ID,
			AssigneeIDs: []string{leader.ID},
		},
	}
	for _, t := range tasks {
		if err := repos.TaskRepo.Create(ctx, t); err != nil {
			log.Printf("[Seed] Failed to create task %q: %v", t.Title, err)
			return
		}
	}

	log.Println("[Seed] Development fixtures created")
}
