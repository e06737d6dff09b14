package models

import "time"

// Response DTOs returned by the HTTP surface. Password hashes and other
// internal fields never cross this boundary.

type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type TeamResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	ManagerID    string    `json:"managerId"`
	JoinMode     int       `json:"joinMode"`
	MemberIDs    []string  `json:"memberIds"`
	LeaderIDs    []string  `json:"leaderIds"`
	InviteEmails []string  `json:"inviteEmails,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type ProjectResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	OwnerID     string    `json:"ownerId"`
	TeamID      *string   `json:"teamId,omitempty"`
	MemberIDs   []string  `json:"memberIds"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type TaskResponse struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"projectId"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CreatedBy   string     `json:"createdBy"`
	AssigneeIDs []string   `json:"assigneeIds"`
	TagIDs      []string   `json:"tagIds"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type TagResponse struct {
	ID        string  `json:"id"`
	ProjectID string  `json:"projectId"`
	Name      string  `json:"name"`
	Color     *string `json:"color,omitempty"`
}

type CommentResponse struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"taskId"`
	AuthorID  string    `json:"authorId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type MessageResponse struct {
	ID          string    `json:"id"`
	ChannelType string    `json:"channelType"`
	ChannelID   string    `json:"channelId"`
	SenderID    string    `json:"senderId"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"createdAt"`
}

type NotificationResponse struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	Title         string    `json:"title"`
	Message       string    `json:"message"`
	ReferenceID   *string   `json:"referenceId,omitempty"`
	ReferenceType *string   `json:"referenceType,omitempty"`
	Read          bool      `json:"read"`
	CreatedAt     time.Time `json:"createdAt"`
}

type AuthResponse struct {
	User  UserResponse `json:"user"`
	Token string       `json:"token"`
}
