package quiz

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexussync/clubs/core"
)

func sample() Quiz {
	return Quiz{
		ID: "q1",
		Questions: []Question{
			{Prompt: "2+2", Options: []string{"3", "4"}, Answer: 1},
			{Prompt: "Go mascot", Options: []string{"gopher", "crab", "snake"}, Answer: 0},
			{Prompt: "HTTP 404", Options: []string{"ok", "not found"}, Answer: 1},
		},
	}
}

func TestGrade(t *testing.T) {
	tests := []struct {
		name    string
		answers []int
		want    int
		wantErr bool
	}{
		{name: "all right", answers: []int{1, 0, 1}, want: 3},
		{name: "one right", answers: []int{0, 0, 0}, want: 1},
		{name: "out of range is wrong", answers: []int{7, -1, 1}, want: 1},
		{name: "too few", answers: []int{1, 0}, wantErr: true},
		{name: "none", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Grade(sample(), tc.answers)
			if tc.wantErr {
				require.Error(t, err)
				vErr, ok := err.(*core.ValidationError)
				require.True(t, ok)
				assert.Equal(t, "answers", vErr.Fields[0].Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestPublic(t *testing.T) {
	q := sample()
	pub := q.Public()
	for _, qn := range pub.Questions {
		assert.Equal(t, -1, qn.Answer)
	}
	// the original keeps its answers
	assert.Equal(t, 1, q.Questions[0].Answer)
}

func TestAttemptPercent(t *testing.T) {
	assert.Equal(t, 0.0, Attempt{}.Percent())
	assert.Equal(t, 50.0, Attempt{Score: 2, Total: 4}.Percent())
}

func TestNewQuizValidate(t *testing.T) {
	validate := validator.New()
	core.InitValidators(validate, core.NewTranslator())

	nq := NewQuiz{
		ClubID:    "c1",
		Title:     " Trivia ",
		Questions: []Question{{Prompt: " Capital of Kenya ", Options: []string{" Nairobi", "Mombasa "}, Answer: 0}},
	}
	require.NoError(t, nq.Validate(validate))
	assert.Equal(t, "Trivia", nq.Title)
	assert.Equal(t, []string{"Nairobi", "Mombasa"}, nq.Questions[0].Options)

	nq.Questions[0].Answer = 2
	err := nq.Validate(validate)
	require.Error(t, err)
	vErr, ok := err.(*core.ValidationError)
	require.True(t, ok)
	assert.Equal(t, "questions[0].answer", vErr.Fields[0].Field)

	nq.Questions[0].Options = []string{"only"}
	nq.Questions[0].Answer = 0
	_, ok = nq.Validate(validate).(validator.ValidationErrors)
	assert.True(t, ok)

	nq.Questions = nil
	_, ok = nq.Validate(validate).(validator.ValidationErrors)
	assert.True(t, ok)
}
