// Package grading scores a submitted answer sheet against a test's frozen
// question set.
package grading

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-practice/internal/exam"
)

// LookupFunc resolves a question id. Returning an error wrapping
// exam.ErrNotFound marks the question as deleted; any other error aborts
// grading. Store.GetQuestion has this shape.
type LookupFunc func(ctx context.Context, id string) (exam.Question, error)

type Grader struct {
	now   func() time.Time
	newID func() string
	log   *slog.Logger
}

type Option func(*Grader)

func WithClock(now func() time.Time) Option { return func(g *Grader) { g.now = now } }
func WithIDs(gen func() string) Option      { return func(g *Grader) { g.newID = gen } }
func WithLogger(l *slog.Logger) Option      { return func(g *Grader) { g.log = l } }

func NewGrader(opts ...Option) *Grader {
	g := &Grader{
		now:   time.Now,
		newID: uuid.NewString,
		log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Tally holds the aggregate counters of one graded sheet.
type Tally struct {
	Total       int
	Attempted   int
	Correct     int
	Incorrect   int
	Unattempted int
	FinalScore  float64
	Percentage  float64
}

// Grade walks test.QuestionIDs in order and builds the attempt for userID.
// It writes nothing; the caller persists the returned record.
func (g *Grader) Grade(ctx context.Context, test exam.Test, userID string, answers map[string]string, lookup LookupFunc) (exam.Attempt, error) {
	results := make([]exam.QuestionResult, 0, len(test.QuestionIDs))
	attempted := make(map[string]string, len(answers))
	var t Tally

	for _, qid := range test.QuestionIDs {
		q, err := lookup(ctx, qid)
		if errors.Is(err, exam.ErrNotFound) {
			g.log.DebugContext(ctx, "question no longer exists, skipping", slog.String("test", test.ID), slog.String("question", qid))
			continue
		}
		if err != nil {
			return exam.Attempt{}, fmt.Errorf("lookup question %s: %w", qid, err)
		}

		res := exam.QuestionResult{QuestionID: qid, CorrectAnswer: q.CorrectAnswer}
		submitted := answers[qid]
		switch {
		case normalize(submitted) == "":
			res.Outcome = exam.OutcomeUnattempted
			t.Unattempted++
		case Match(submitted, q.CorrectAnswer):
			attempted[qid] = submitted
			res.Submitted = submitted
			res.Outcome = exam.OutcomeCorrect
			t.Correct++
		default:
			g.log.DebugContext(ctx, "answer mismatch",
				slog.String("question", qid), slog.String("submitted", submitted), slog.String("correct", q.CorrectAnswer))
			attempted[qid] = submitted
			res.Submitted = submitted
			res.Outcome = exam.OutcomeIncorrect
			t.Incorrect++
		}
		results = append(results, res)
	}

	t.Total = len(results)
	t.Attempted = t.Correct + t.Incorrect
	t.FinalScore = float64(t.Correct)*test.MarksForCorrect + float64(t.Incorrect)*test.MarksForIncorrect
	t.Percentage = Percentage(t.Correct, t.Total)

	return exam.Attempt{
		ID:                   g.newID(),
		TestID:               test.ID,
		UserID:               userID,
		Answers:              attempted,
		TotalQuestions:       t.Total,
		AttemptedQuestions:   t.Attempted,
		CorrectAnswers:       t.Correct,
		IncorrectAnswers:     t.Incorrect,
		UnattemptedQuestions: t.Unattempted,
		FinalScore:           t.FinalScore,
		PercentageScore:      t.Percentage,
		Results:              results,
		SubmittedAt:          g.now().UTC(),
	}, nil
}

// Percentage is the unrounded 100*correct/total, 0 for an empty test.
// Rounding is left to whoever displays it.
func Percentage(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	return 100 * float64(correct) / float64(total)
}
