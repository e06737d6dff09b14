package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Message is a persisted chat message on a channel.
type Message struct {
	ID          string
	ChannelType string
	ChannelID   string
	SenderID    string
	Content     string
	CreatedAt   time.Time
}

type MessageRepository interface {
	Create(ctx context.Context, message *Message) error
	// FindRecent returns up to limit messages for a channel, newest first.
	FindRecent(ctx context.Context, channelType, channelID string, limit int) ([]*Message, error)
	FindByChannel(ctx context.Context, channelType, channelID string, limit, offset int) ([]*Message, error)
	DeleteByChannel(ctx context.Context, channelType, channelID string) error
}

type pgMessageRepository struct {
	pool *pgxpool.Pool
}

func NewMessageRepository(pool *pgxpool.Pool) MessageRepository {
	return &pgMessageRepository{pool: pool}
}

func (r *pgMessageRepository) Create(ctx context.Context, message *Message) error {
	query := `
		INSERT INTO messages (channel_type, channel_id, sender_id, content)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	return r.pool.QueryRow(ctx, query,
		message.ChannelType, message.ChannelID, message.SenderID, message.Content,
	).Scan(&message.ID, &message.CreatedAt)
}

func (r *pgMessageRepository) FindRecent(ctx context.Context, channelType, channelID string, limit int) ([]*Message, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, channel_type, channel_id, sender_id, content, created_at
		FROM messages
		WHERE channel_type = $1 AND channel_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`
	rows, err := r.pool.Query(ctx, query, channelType, channelID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (r *pgMessageRepository) FindByChannel(ctx context.Context, channelType, channelID string, limit, offset int) ([]*Message, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, channel_type, channel_id, sender_id, content, created_at
		FROM messages
		WHERE channel_type = $1 AND channel_id = $2
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query, channelType, channelID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (r *pgMessageRepository) DeleteByChannel(ctx context.Context, channelType, channelID string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM messages WHERE channel_type = $1 AND channel_id = $2`,
		channelType, channelID,
	)
	return err
}

func scanMessages(rows pgx.Rows) ([]*Message, error) {
	var messages []*Message
	for rows.Next() {
		m := &Message{}
		if err := rows.Scan(
			&m.ID, &m.ChannelType, &m.ChannelID, &m.SenderID, &m.Content, &m.CreatedAt,
		); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
