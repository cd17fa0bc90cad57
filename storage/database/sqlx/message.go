package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/nexussync/clubs/core/message"
)

type messageRow struct {
	ID             string      `db:"id"`
	SenderID       null.String `db:"sender_id"`
	Audience       string      `db:"audience"`
	ClubID         null.String `db:"club_id"`
	Role           null.String `db:"role"`
	Subject        string      `db:"subject"`
	Body           string      `db:"body"`
	SendEmail      bool        `db:"send_email"`
	RecipientCount int         `db:"recipient_count"`
	CreatedAt      time.Time   `db:"created_at"`
}

const messageColumns = "id, sender_id, audience, club_id, role, subject, body, send_email, recipient_count, created_at"

type messageRepository struct {
	db *sqlx.DB
}

var _ message.Repository = (*messageRepository)(nil) // interface compliance check

func NewMessageRepository(db *sqlx.DB) *messageRepository {
	return &messageRepository{db: db}
}

func (repo *messageRepository) CreateMessage(ctx context.Context, m message.Message) (message.Message, error) {
	row := messageRow{
		ID:             m.ID,
		SenderID:       nullString(m.SenderID),
		Audience:       m.Audience,
		ClubID:         nullString(m.ClubID),
		Role:           nullString(m.Role),
		Subject:        m.Subject,
		Body:           m.Body,
		SendEmail:      m.SendEmail,
		RecipientCount: m.RecipientCount,
		CreatedAt:      m.CreatedAt.UTC(),
	}
	q := `INSERT INTO messages (` + messageColumns + `) VALUES (:id, :sender_id, :audience, :club_id, :role,
		:subject, :body, :send_email, :recipient_count, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return message.Message{}, errors.Wrap(err, "inserting message")
	}
	return m, nil
}

func (repo *messageRepository) QueryMessages(ctx context.Context, senderID string) ([]message.Message, error) {
	var c conds
	if senderID != "" {
		c.add("sender_id = ?", senderID)
	}
	var rows []messageRow
	q := repo.db.Rebind("SELECT " + messageColumns + " FROM messages" + c.where() + " ORDER BY created_at DESC, id ASC")
	if err := repo.db.SelectContext(ctx, &rows, q, c.args...); err != nil {
		return nil, errors.Wrap(err, "querying messages")
	}
	ms := make([]message.Message, 0, len(rows))
	for _, row := range rows {
		ms = append(ms, message.Message{
			ID:             row.ID,
			SenderID:       row.SenderID.String,
			Audience:       row.Audience,
			ClubID:         row.ClubID.String,
			Role:           row.Role.String,
			Subject:        row.Subject,
			Body:           row.Body,
			SendEmail:      row.SendEmail,
			RecipientCount: row.RecipientCount,
			CreatedAt:      row.CreatedAt.UTC(),
		})
	}
	return ms, nil
}
