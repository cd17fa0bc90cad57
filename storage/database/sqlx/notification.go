package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/nexussync/clubs/core/notification"
)

type notificationRow struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Kind      string    `db:"kind"`
	Title     string    `db:"title"`
	Body      string    `db:"body"`
	Link      string    `db:"link"`
	IsRead    bool      `db:"is_read"`
	CreatedAt time.Time `db:"created_at"`
}

const notificationColumns = "id, user_id, kind, title, body, link, is_read, created_at"

func (r notificationRow) notification() notification.Notification {
	return notification.Notification{
		ID:        r.ID,
		UserID:    r.UserID,
		Kind:      r.Kind,
		Title:     r.Title,
		Body:      r.Body,
		Link:      r.Link,
		Read:      r.IsRead,
		CreatedAt: r.CreatedAt.UTC(),
	}
}

type notificationRepository struct {
	db *sqlx.DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *sqlx.DB) *notificationRepository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) CreateNotifications(ctx context.Context, ns ...notification.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	return withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		q := tx.Rebind(`INSERT INTO notifications (` + notificationColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		stmt, err := tx.PreparexContext(ctx, q)
		if err != nil {
			return errors.Wrap(err, "preparing insert")
		}
		defer func() { _ = stmt.Close() }()
		for _, n := range ns {
			if _, err := stmt.ExecContext(ctx, n.ID, n.UserID, n.Kind, n.Title, n.Body, n.Link, n.Read, n.CreatedAt.UTC()); err != nil {
				return errors.Wrap(err, "inserting notification")
			}
		}
		return nil
	})
}

func (repo *notificationRepository) QueryNotifications(ctx context.Context, filter notification.QueryFilter) ([]notification.Notification, error) {
	var c conds
	if filter.UserID != "" {
		c.add("user_id = ?", filter.UserID)
	}
	if filter.UnreadOnly {
		c.add("is_read = ?", false)
	}
	if filter.Kind != "" {
		c.add("kind = ?", filter.Kind)
	}
	q := "SELECT " + notificationColumns + " FROM notifications" + c.where() + " ORDER BY created_at DESC, id ASC"
	var rows []notificationRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), c.args...); err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	ns := make([]notification.Notification, 0, len(rows))
	for _, row := range rows {
		ns = append(ns, row.notification())
	}
	return ns, nil
}

func (repo *notificationRepository) GetNotification(ctx context.Context, id string) (notification.Notification, error) {
	var row notificationRow
	q := repo.db.Rebind("SELECT " + notificationColumns + " FROM notifications WHERE id = ?")
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return notification.Notification{}, trapNoRows(err, notification.ErrNotFound, "getting notification")
	}
	return row.notification(), nil
}

func (repo *notificationRepository) MarkRead(ctx context.Context, userID string, ids ...string) (int64, error) {
	var c conds
	c.add("user_id = ?", userID)
	c.add("is_read = ?", false)
	if len(ids) > 0 {
		c.add("id IN (?)", ids)
	}
	args := append([]interface{}{true}, c.args...)
	q, args, err := in(repo.db, "UPDATE notifications SET is_read = ?"+c.where(), args...)
	if err != nil {
		return 0, errors.Wrap(err, "building update query")
	}
	res, err := repo.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, errors.Wrap(err, "marking notifications read")
	}
	n, err := res.RowsAffected()
	return n, errors.Wrap(err, "counting updated notifications")
}

func (repo *notificationRepository) DeleteNotifications(ctx context.Context, userID string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := in(repo.db, "DELETE FROM notifications WHERE user_id = ? AND id IN (?)", userID, ids)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	_, err = repo.db.ExecContext(ctx, q, args...)
	return errors.Wrap(err, "deleting notifications")
}

func (repo *notificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	var n int
	q := repo.db.Rebind("SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = ?")
	if err := repo.db.GetContext(ctx, &n, q, userID, false); err != nil {
		return 0, errors.Wrap(err, "counting unread notifications")
	}
	return n, nil
}
