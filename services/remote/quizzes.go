package remotesvc

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/nexussync/clubs/core/message"
	"github.com/nexussync/clubs/core/quiz"
)

func (c *Client) Quizzes(ctx context.Context, clubID string) ([]quiz.Quiz, error) {
	p := make(params)
	p.set("club", clubID)
	var qs []quiz.Quiz
	err := c.do(ctx, rest.Get, "/v1/quizzes", p, nil, &qs)
	return qs, errors.Wrap(err, "querying quizzes")
}

func (c *Client) Quiz(ctx context.Context, id string) (quiz.Quiz, error) {
	var q quiz.Quiz
	err := c.do(ctx, rest.Get, "/v1/quizzes/"+id, nil, nil, &q)
	return q, errors.Wrap(err, "getting quiz")
}

func (c *Client) CreateQuiz(ctx context.Context, nq quiz.NewQuiz) (quiz.Quiz, error) {
	var q quiz.Quiz
	err := c.do(ctx, rest.Post, "/v1/quizzes", nil, nq, &q)
	return q, errors.Wrap(err, "creating quiz")
}

func (c *Client) DeleteQuiz(ctx context.Context, id string) error {
	return errors.Wrap(c.do(ctx, rest.Delete, "/v1/quizzes/"+id, nil, nil, nil), "deleting quiz")
}

func (c *Client) SubmitQuiz(ctx context.Context, id string, answers []int) (quiz.Attempt, error) {
	var a quiz.Attempt
	err := c.do(ctx, rest.Post, "/v1/quizzes/"+id+"/attempts", nil, quiz.Submission{Answers: answers}, &a)
	return a, errors.Wrap(err, "submitting quiz")
}

// Attempts lists the attempts of the current user, of one quiz when quizID is set.
func (c *Client) Attempts(ctx context.Context, quizID string) ([]quiz.Attempt, error) {
	p := make(params)
	p.set("quiz", quizID)
	var as []quiz.Attempt
	err := c.do(ctx, rest.Get, "/v1/quizzes/attempts", p, nil, &as)
	return as, errors.Wrap(err, "listing attempts")
}

func (c *Client) SendMessage(ctx context.Context, nm message.NewMessage) (message.Message, error) {
	var m message.Message
	err := c.do(ctx, rest.Post, "/v1/messages", nil, nm, &m)
	return m, errors.Wrap(err, "sending message")
}

// Messages lists the sent messages; senderID is only honoured for admins.
func (c *Client) Messages(ctx context.Context, senderID string) ([]message.Message, error) {
	p := make(params)
	p.set("sender", senderID)
	var ms []message.Message
	err := c.do(ctx, rest.Get, "/v1/messages", p, nil, &ms)
	return ms, errors.Wrap(err, "querying messages")
}
