package grading

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/mind-engage/mindengage-practice/internal/exam"
)

// bank is a fake question store.
type bank map[string]exam.Question

func (b bank) lookup(_ context.Context, id string) (exam.Question, error) {
	q, ok := b[id]
	if !ok {
		return exam.Question{}, fmt.Errorf("question %q: %w", id, exam.ErrNotFound)
	}
	return q, nil
}

func newBank(answers map[string]string) bank {
	b := bank{}
	for id, a := range answers {
		b[id] = exam.Question{ID: id, CorrectAnswer: a}
	}
	return b
}

func fixedGrader() *Grader {
	n := 0
	return NewGrader(
		WithClock(func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }),
		WithIDs(func() string { n++; return fmt.Sprintf("attempt-%d", n) }),
	)
}

func assertInvariants(t *testing.T, a exam.Attempt) {
	t.Helper()
	if a.AttemptedQuestions+a.UnattemptedQuestions != a.TotalQuestions {
		t.Fatalf("attempted %d + unattempted %d != total %d", a.AttemptedQuestions, a.UnattemptedQuestions, a.TotalQuestions)
	}
	if a.CorrectAnswers+a.IncorrectAnswers != a.AttemptedQuestions {
		t.Fatalf("correct %d + incorrect %d != attempted %d", a.CorrectAnswers, a.IncorrectAnswers, a.AttemptedQuestions)
	}
	if len(a.Results) != a.TotalQuestions {
		t.Fatalf("results %d != total %d", len(a.Results), a.TotalQuestions)
	}
}

func TestGradeScenario(t *testing.T) {
	b := newBank(map[string]string{"q1": "A", "q2": "B", "q3": "42"})
	test := exam.Test{
		ID:            "t1",
		QuestionIDs:   []string{"q1", "q2", "q3"},
		MarkingScheme: exam.MarkingScheme{MarksForCorrect: 4, MarksForIncorrect: -1},
	}
	a, err := fixedGrader().Grade(context.Background(), test, "u1", map[string]string{"q1": "a", "q2": "C"}, b.lookup)
	if err != nil {
		t.Fatal(err)
	}
	assertInvariants(t, a)
	if a.CorrectAnswers != 1 || a.IncorrectAnswers != 1 || a.UnattemptedQuestions != 1 {
		t.Fatalf("counts: %+v", a)
	}
	if a.FinalScore != 3 {
		t.Fatalf("final score %v, want 3", a.FinalScore)
	}
	if a.PercentageScore != 100.0/3 {
		t.Fatalf("percentage %v, want %v", a.PercentageScore, 100.0/3)
	}
	if a.TestID != "t1" || a.UserID != "u1" || a.ID != "attempt-1" {
		t.Fatalf("identity fields: %+v", a)
	}
	wantOutcomes := []exam.Outcome{exam.OutcomeCorrect, exam.OutcomeIncorrect, exam.OutcomeUnattempted}
	for i, r := range a.Results {
		if r.Outcome != wantOutcomes[i] {
			t.Fatalf("result %d: %+v", i, r)
		}
	}
}

func TestGradeOutcomes(t *testing.T) {
	tests := []struct {
		name      string
		correct   string
		submitted *string
		outcome   exam.Outcome
	}{
		{name: "exact", correct: "A", submitted: ptr("A"), outcome: exam.OutcomeCorrect},
		{name: "padded lower", correct: "A", submitted: ptr("  A "), outcome: exam.OutcomeCorrect},
		{name: "lower", correct: "A", submitted: ptr("a"), outcome: exam.OutcomeCorrect},
		{name: "stored answer padded", correct: " Apple ", submitted: ptr("APPLE"), outcome: exam.OutcomeCorrect},
		{name: "integer", correct: "42", submitted: ptr("42"), outcome: exam.OutcomeCorrect},
		{name: "integer wrong", correct: "42", submitted: ptr("42.0"), outcome: exam.OutcomeIncorrect},
		{name: "wrong option", correct: "B", submitted: ptr("C"), outcome: exam.OutcomeIncorrect},
		{name: "empty string", correct: "B", submitted: ptr(""), outcome: exam.OutcomeUnattempted},
		{name: "whitespace only", correct: "B", submitted: ptr("   "), outcome: exam.OutcomeUnattempted},
		{name: "missing", correct: "B", submitted: nil, outcome: exam.OutcomeUnattempted},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := newBank(map[string]string{"q": tc.correct})
			answers := map[string]string{}
			if tc.submitted != nil {
				answers["q"] = *tc.submitted
			}
			test := exam.Test{QuestionIDs: []string{"q"}, MarkingScheme: exam.DefaultMarking}
			a, err := fixedGrader().Grade(context.Background(), test, "u", answers, b.lookup)
			if err != nil {
				t.Fatal(err)
			}
			assertInvariants(t, a)
			if got := a.Results[0].Outcome; got != tc.outcome {
				t.Fatalf("outcome %s, want %s", got, tc.outcome)
			}
		})
	}
}

func TestGradeEmptyTest(t *testing.T) {
	test := exam.Test{QuestionIDs: []string{}, MarkingScheme: exam.MarkingScheme{MarksForCorrect: 4, MarksForIncorrect: -1}}
	a, err := fixedGrader().Grade(context.Background(), test, "u", map[string]string{"x": "A"}, bank{}.lookup)
	if err != nil {
		t.Fatal(err)
	}
	assertInvariants(t, a)
	if a.TotalQuestions != 0 || a.PercentageScore != 0 || a.FinalScore != 0 {
		t.Fatalf("empty test: %+v", a)
	}
}

func TestGradeSkipsDeletedQuestions(t *testing.T) {
	b := newBank(map[string]string{"q1": "A", "q3": "C"})
	test := exam.Test{QuestionIDs: []string{"q1", "q2", "q3"}, MarkingScheme: exam.DefaultMarking}
	a, err := fixedGrader().Grade(context.Background(), test, "u", map[string]string{"q1": "A", "q2": "B", "q3": "D"}, b.lookup)
	if err != nil {
		t.Fatal(err)
	}
	assertInvariants(t, a)
	if a.TotalQuestions != 2 || a.CorrectAnswers != 1 || a.IncorrectAnswers != 1 {
		t.Fatalf("counts: %+v", a)
	}
	if a.PercentageScore != 50 {
		t.Fatalf("percentage %v", a.PercentageScore)
	}
}

func TestGradePropagatesLookupFailure(t *testing.T) {
	boom := errors.New("connection refused")
	lookup := func(context.Context, string) (exam.Question, error) { return exam.Question{}, boom }
	test := exam.Test{QuestionIDs: []string{"q1"}}
	if _, err := fixedGrader().Grade(context.Background(), test, "u", nil, lookup); !errors.Is(err, boom) {
		t.Fatalf("want wrapped lookup error, got %v", err)
	}
}

func TestGradeIsIdempotent(t *testing.T) {
	b := newBank(map[string]string{"q1": "A", "q2": "B", "q3": "7"})
	test := exam.Test{QuestionIDs: []string{"q3", "q1", "q2"}, MarkingScheme: exam.MarkingScheme{MarksForCorrect: 2, MarksForIncorrect: -0.5}}
	answers := map[string]string{"q1": "b", "q3": " 7"}
	g := fixedGrader()
	first, err := g.Grade(context.Background(), test, "u", answers, b.lookup)
	if err != nil {
		t.Fatal(err)
	}
	second, err := g.Grade(context.Background(), test, "u", answers, b.lookup)
	if err != nil {
		t.Fatal(err)
	}
	if first.ID == second.ID {
		t.Fatal("attempt ids must be fresh")
	}
	first.ID, second.ID = "", ""
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("grading differs:\n%+v\n%+v", first, second)
	}
	if first.FinalScore != 1.5 {
		t.Fatalf("final score %v, want 1.5", first.FinalScore)
	}
}

func TestGradeKeepsOnlyAttemptedAnswers(t *testing.T) {
	b := newBank(map[string]string{"q1": "A", "q2": "B"})
	test := exam.Test{QuestionIDs: []string{"q1", "q2"}}
	answers := map[string]string{"q1": "A", "q2": " "}
	a, err := fixedGrader().Grade(context.Background(), test, "u", answers, b.lookup)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a.Answers, map[string]string{"q1": "A"}) {
		t.Fatalf("answers %v", a.Answers)
	}
	answers["q1"] = "changed"
	if a.Answers["q1"] != "A" {
		t.Fatal("attempt shares the caller's answer map")
	}
}

func TestGradeStoresOnlyGradedAnswers(t *testing.T) {
	b := newBank(map[string]string{"q1": "A", "q3": "C"})
	test := exam.Test{QuestionIDs: []string{"q1", "q2", "q3"}, MarkingScheme: exam.DefaultMarking}
	// q2 was deleted after the test was built; zz never belonged to it.
	answers := map[string]string{"q1": "a", "q2": "B", "q3": "D", "zz": "A"}
	a, err := fixedGrader().Grade(context.Background(), test, "u", answers, b.lookup)
	if err != nil {
		t.Fatal(err)
	}
	assertInvariants(t, a)
	if want := map[string]string{"q1": "a", "q3": "D"}; !reflect.DeepEqual(a.Answers, want) {
		t.Fatalf("answers %v, want %v", a.Answers, want)
	}
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		correct, total int
		want           float64
	}{
		{0, 0, 0},
		{1, 3, 100.0 / 3},
		{2, 3, 200.0 / 3},
		{1, 8, 12.5},
		{3, 3, 100},
		{0, 5, 0},
	}
	for _, tc := range tests {
		if got := Percentage(tc.correct, tc.total); got != tc.want {
			t.Errorf("Percentage(%d, %d) = %v, want %v", tc.correct, tc.total, got, tc.want)
		}
	}
}

func TestTokens(t *testing.T) {
	got := Tokens(map[string]any{
		"s": " A ", "i": float64(42), "f": 3.5, "n": nil, "b": true, "arr": []any{"A"},
	})
	want := map[string]string{"s": " A ", "i": "42", "f": "3.5"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func ptr(s string) *string { return &s }
