package quiz

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/nexussync/clubs/core"
)

var (
	ErrNotFound       = core.NewNotFoundError("quiz not found")
	ErrAnswersLength  = errors.New("one answer per question is expected")
	ErrAlreadyTried   = core.NewConflictError("quiz already submitted")
	ErrAnswerRange    = errors.New("answer must be the index of an option")
	ErrNotEnoughItems = errors.New("at least one question with two options is required")
)

type Question struct {
	Prompt  string   `json:"prompt" validate:"notblank,max=1000"`
	Options []string `json:"options" validate:"min=2,dive,notblank"`
	// Answer is the index of the right option, -1 when hidden.
	Answer int `json:"answer"`
}

type Quiz struct {
	ID        string     `json:"id"`
	ClubID    string     `json:"club_id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
	CreatedBy string     `json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
	Attempted bool       `json:"attempted"` // viewer submitted already
}

func (q Quiz) Key() string { return q.ID }

// Public returns a copy of q without the answers.
func (q Quiz) Public() Quiz {
	qs := make([]Question, len(q.Questions))
	for i, qn := range q.Questions {
		qn.Answer = -1
		qs[i] = qn
	}
	q.Questions = qs
	return q
}

type NewQuiz struct {
	ClubID    string     `json:"club_id" validate:"required"`
	Title     string     `json:"title" validate:"required,max=200"`
	Questions []Question `json:"questions" validate:"min=1,dive"`
}

func (nq *NewQuiz) Validate(validate *validator.Validate) error {
	nq.ClubID = core.CleanString(nq.ClubID)
	nq.Title = core.CleanString(nq.Title)
	for i := range nq.Questions {
		q := &nq.Questions[i]
		q.Prompt = core.CleanString(q.Prompt)
		for j := range q.Options {
			q.Options[j] = core.CleanString(q.Options[j])
		}
	}
	if err := validate.Struct(nq); err != nil {
		return err
	}
	for i, q := range nq.Questions {
		if q.Answer < 0 || q.Answer >= len(q.Options) {
			return core.NewValidationError(ErrAnswerRange, core.FieldError{
				Field: fmt.Sprintf("questions[%d].answer", i),
				Error: ErrAnswerRange.Error(),
			})
		}
	}
	return nil
}

type Attempt struct {
	ID        string    `json:"id"`
	QuizID    string    `json:"quiz_id"`
	UserID    string    `json:"user_id"`
	Answers   []int     `json:"answers"`
	Score     int       `json:"score"`
	Total     int       `json:"total"`
	CreatedAt time.Time `json:"created_at"`
}

func (a Attempt) Key() string { return a.ID }

// Percent is the score out of 100.
func (a Attempt) Percent() float64 {
	if a.Total == 0 {
		return 0
	}
	return float64(a.Score) * 100 / float64(a.Total)
}

type Submission struct {
	Answers []int `json:"answers"`
}

// Grade counts the right answers of a submission.
func Grade(q Quiz, answers []int) (int, error) {
	if len(answers) != len(q.Questions) {
		return 0, core.NewValidationError(ErrAnswersLength, core.FieldError{Field: "answers", Error: ErrAnswersLength.Error()})
	}
	var score int
	for i, qn := range q.Questions {
		if answers[i] == qn.Answer {
			score++
		}
	}
	return score, nil
}

type (
	Repository interface {
		CreateQuiz(ctx context.Context, q Quiz) (Quiz, error)
		// QueryQuizzes returns the quizzes of a club, all when clubID is empty, newest first.
		QueryQuizzes(ctx context.Context, clubID, viewerID string) ([]Quiz, error)
		GetQuiz(ctx context.Context, id, viewerID string) (Quiz, error)
		DeleteQuizzes(ctx context.Context, ids ...string) error
		// CreateAttempt returns ErrAlreadyTried when the user submitted the quiz already.
		CreateAttempt(ctx context.Context, a Attempt) (Attempt, error)
		QueryAttempts(ctx context.Context, userID, quizID string) ([]Attempt, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, nq NewQuiz, creatorID string) (Quiz, error) {
	if len(nq.Questions) == 0 {
		return Quiz{}, core.NewValidationError(ErrNotEnoughItems, core.FieldError{Field: "questions", Error: ErrNotEnoughItems.Error()})
	}
	return svc.repo.CreateQuiz(ctx, Quiz{
		ID:        core.NewID(),
		ClubID:    nq.ClubID,
		Title:     nq.Title,
		Questions: nq.Questions,
		CreatedBy: creatorID,
		CreatedAt: time.Now().UTC(),
	})
}

// Query lists the quizzes of a club. Answers are hidden unless showAnswers.
func (svc *Service) Query(ctx context.Context, clubID, viewerID string, showAnswers bool) ([]Quiz, error) {
	qs, err := svc.repo.QueryQuizzes(ctx, core.CleanString(clubID), viewerID)
	if err != nil {
		return nil, err
	}
	if !showAnswers {
		for i := range qs {
			qs[i] = qs[i].Public()
		}
	}
	return qs, nil
}

func (svc *Service) Get(ctx context.Context, id, viewerID string, showAnswers bool) (Quiz, error) {
	q, err := svc.repo.GetQuiz(ctx, id, viewerID)
	if err != nil {
		return Quiz{}, err
	}
	if !showAnswers {
		q = q.Public()
	}
	return q, nil
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteQuizzes(ctx, ids...)
}

// Submit grades the answers of the user and stores the attempt. One attempt per user.
func (svc *Service) Submit(ctx context.Context, quizID, userID string, sub Submission) (Attempt, error) {
	q, err := svc.repo.GetQuiz(ctx, quizID, userID)
	if err != nil {
		return Attempt{}, err
	}
	if q.Attempted {
		return Attempt{}, ErrAlreadyTried
	}
	score, err := Grade(q, sub.Answers)
	if err != nil {
		return Attempt{}, err
	}
	return svc.repo.CreateAttempt(ctx, Attempt{
		ID:        core.NewID(),
		QuizID:    q.ID,
		UserID:    userID,
		Answers:   sub.Answers,
		Score:     score,
		Total:     len(q.Questions),
		CreatedAt: time.Now().UTC(),
	})
}

// Attempts lists the attempts of the user, on every quiz when quizID is empty.
func (svc *Service) Attempts(ctx context.Context, userID, quizID string) ([]Attempt, error) {
	return svc.repo.QueryAttempts(ctx, userID, quizID)
}
