package sqlxrepos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/nexussync/clubs/core/quiz"
)

type quizRow struct {
	ID        string      `db:"id"`
	ClubID    string      `db:"club_id"`
	Title     string      `db:"title"`
	Questions string      `db:"questions"`
	CreatedBy null.String `db:"created_by"`
	CreatedAt time.Time   `db:"created_at"`
	Attempted bool        `db:"attempted"`
}

func (r quizRow) quiz() (quiz.Quiz, error) {
	q := quiz.Quiz{
		ID:        r.ID,
		ClubID:    r.ClubID,
		Title:     r.Title,
		CreatedBy: r.CreatedBy.String,
		CreatedAt: r.CreatedAt.UTC(),
		Attempted: r.Attempted,
	}
	if err := json.Unmarshal([]byte(r.Questions), &q.Questions); err != nil {
		return quiz.Quiz{}, errors.Wrapf(err, "decoding questions of quiz %s", r.ID)
	}
	return q, nil
}

// the viewer is the first argument
const quizSelect = `SELECT q.id, q.club_id, q.title, q.questions, q.created_by, q.created_at,
	EXISTS (SELECT 1 FROM quiz_attempts a WHERE a.quiz_id = q.id AND a.user_id = ?) AS attempted
	FROM quizzes q`

type attemptRow struct {
	ID        string    `db:"id"`
	QuizID    string    `db:"quiz_id"`
	UserID    string    `db:"user_id"`
	Answers   string    `db:"answers"`
	Score     int       `db:"score"`
	Total     int       `db:"total"`
	CreatedAt time.Time `db:"created_at"`
}

type quizRepository struct {
	db *sqlx.DB
}

var _ quiz.Repository = (*quizRepository)(nil) // interface compliance check

func NewQuizRepository(db *sqlx.DB) *quizRepository {
	return &quizRepository{db: db}
}

func (repo *quizRepository) CreateQuiz(ctx context.Context, q quiz.Quiz) (quiz.Quiz, error) {
	questions, err := json.Marshal(q.Questions)
	if err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "encoding questions")
	}
	stmt := repo.db.Rebind("INSERT INTO quizzes (id, club_id, title, questions, created_by, created_at) VALUES (?, ?, ?, ?, ?, ?)")
	if _, err := repo.db.ExecContext(ctx, stmt, q.ID, q.ClubID, q.Title, string(questions), nullString(q.CreatedBy), q.CreatedAt.UTC()); err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "inserting quiz")
	}
	return repo.GetQuiz(ctx, q.ID, "")
}

func (repo *quizRepository) QueryQuizzes(ctx context.Context, clubID, viewerID string) ([]quiz.Quiz, error) {
	c := conds{args: []interface{}{viewerID}}
	if clubID != "" {
		c.add("q.club_id = ?", clubID)
	}
	var rows []quizRow
	q := repo.db.Rebind(quizSelect + c.where() + " ORDER BY q.created_at DESC, q.id ASC")
	if err := repo.db.SelectContext(ctx, &rows, q, c.args...); err != nil {
		return nil, errors.Wrap(err, "querying quizzes")
	}
	qs := make([]quiz.Quiz, 0, len(rows))
	for _, row := range rows {
		qz, err := row.quiz()
		if err != nil {
			return nil, err
		}
		qs = append(qs, qz)
	}
	return qs, nil
}

func (repo *quizRepository) GetQuiz(ctx context.Context, id, viewerID string) (quiz.Quiz, error) {
	var row quizRow
	q := repo.db.Rebind(quizSelect + " WHERE q.id = ?")
	if err := repo.db.GetContext(ctx, &row, q, viewerID, id); err != nil {
		return quiz.Quiz{}, trapNoRows(err, quiz.ErrNotFound, "getting quiz")
	}
	return row.quiz()
}

func (repo *quizRepository) DeleteQuizzes(ctx context.Context, ids ...string) error {
	return deleteWhereIn(ctx, repo.db, "quizzes", "id", ids)
}

func (repo *quizRepository) CreateAttempt(ctx context.Context, a quiz.Attempt) (quiz.Attempt, error) {
	answers, err := json.Marshal(a.Answers)
	if err != nil {
		return quiz.Attempt{}, errors.Wrap(err, "encoding answers")
	}
	err = withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		var n int
		q := tx.Rebind("SELECT COUNT(*) FROM quiz_attempts WHERE quiz_id = ? AND user_id = ?")
		if err := tx.GetContext(ctx, &n, q, a.QuizID, a.UserID); err != nil {
			return errors.Wrap(err, "checking attempts")
		}
		if n > 0 {
			return quiz.ErrAlreadyTried
		}
		q = tx.Rebind(`INSERT INTO quiz_attempts (id, quiz_id, user_id, answers, score, total, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`)
		_, err := tx.ExecContext(ctx, q, a.ID, a.QuizID, a.UserID, string(answers), a.Score, a.Total, a.CreatedAt.UTC())
		return errors.Wrap(err, "inserting attempt")
	})
	if err != nil {
		return quiz.Attempt{}, err
	}
	return a, nil
}

func (repo *quizRepository) QueryAttempts(ctx context.Context, userID, quizID string) ([]quiz.Attempt, error) {
	var c conds
	if userID != "" {
		c.add("user_id = ?", userID)
	}
	if quizID != "" {
		c.add("quiz_id = ?", quizID)
	}
	var rows []attemptRow
	q := repo.db.Rebind("SELECT id, quiz_id, user_id, answers, score, total, created_at FROM quiz_attempts" + c.where() + " ORDER BY created_at DESC")
	if err := repo.db.SelectContext(ctx, &rows, q, c.args...); err != nil {
		return nil, errors.Wrap(err, "querying attempts")
	}
	as := make([]quiz.Attempt, 0, len(rows))
	for _, row := range rows {
		a := quiz.Attempt{
			ID:        row.ID,
			QuizID:    row.QuizID,
			UserID:    row.UserID,
			Score:     row.Score,
			Total:     row.Total,
			CreatedAt: row.CreatedAt.UTC(),
		}
		if err := json.Unmarshal([]byte(row.Answers), &a.Answers); err != nil {
			return nil, errors.Wrapf(err, "decoding answers of attempt %s", row.ID)
		}
		as = append(as, a)
	}
	return as, nil
}
