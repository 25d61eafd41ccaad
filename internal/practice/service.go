// Package practice wires the assembler and the grader to the record store.
package practice

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mind-engage/mindengage-practice/internal/assembly"
	"github.com/mind-engage/mindengage-practice/internal/exam"
	"github.com/mind-engage/mindengage-practice/internal/grading"
	"github.com/mind-engage/mindengage-practice/internal/metrics"
	syncx "github.com/mind-engage/mindengage-practice/internal/sync"
)

// EventAppender is the audit sink; *syncx.EventRepo implements it.
type EventAppender interface {
	Append(ctx context.Context, typ, key string, payload any) error
}

type Service struct {
	store     exam.Store
	assembler *assembly.Assembler
	grader    *grading.Grader
	events    EventAppender
	log       *slog.Logger
}

// NewService builds a Service. events may be nil.
func NewService(store exam.Store, a *assembly.Assembler, g *grading.Grader, events EventAppender, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, assembler: a, grader: g, events: events, log: log}
}

type CreateTestInput struct {
	ExamID            string
	Scope             exam.SubjectScope
	QuestionType      exam.QuestionType
	NumberOfQuestions int
	Mode              exam.Mode
	// QuestionIDs is an explicit manual selection; nil when absent.
	QuestionIDs []string
	// Marking falls back to exam.DefaultMarking when nil.
	Marking *exam.MarkingScheme
}

// CreatedTest is the stored test plus what assembly could deliver.
type CreatedTest struct {
	exam.Test
	RequestedCount int `json:"requestedCount"`
	ActualCount    int `json:"actualCount"`
	Shortfall      int `json:"shortfall"`
}

// CreateTest assembles the question set and freezes it into a new test.
// A pool smaller than requested is not an error; see CreatedTest.Shortfall.
func (s *Service) CreateTest(ctx context.Context, in CreateTestInput) (CreatedTest, error) {
	if _, err := s.store.GetExam(ctx, in.ExamID); err != nil {
		return CreatedTest{}, err
	}

	pool, err := s.store.FindQuestions(ctx, exam.QuestionFilter{
		ExamID: in.ExamID,
		Scope:  in.Scope,
		Type:   in.QuestionType,
	})
	if err != nil {
		return CreatedTest{}, fmt.Errorf("candidate pool: %w", err)
	}

	res := s.assembler.Assemble(assembly.Request{
		RequestedCount: in.NumberOfQuestions,
		Mode:           in.Mode,
		Selection:      in.QuestionIDs,
	}, pool)
	if short := res.Shortfall(); short > 0 {
		s.log.WarnContext(ctx, "question pool smaller than requested",
			slog.String("exam", in.ExamID), slog.String("scope", in.Scope.String()),
			slog.Int("requested", res.RequestedCount), slog.Int("actual", res.ActualCount))
		metrics.AssemblyShortfall.Add(float64(short))
	}

	marking := exam.DefaultMarking
	if in.Marking != nil {
		marking = *in.Marking
	}
	t := exam.Test{
		ExamID:            in.ExamID,
		QuestionType:      in.QuestionType,
		NumberOfQuestions: in.NumberOfQuestions,
		Mode:              in.Mode,
		QuestionIDs:       res.IDs,
		MarkingScheme:     marking,
	}
	t.SetScope(in.Scope)

	t, err = s.store.CreateTest(ctx, t)
	if err != nil {
		return CreatedTest{}, err
	}
	metrics.TestsAssembled.WithLabelValues(string(in.Mode)).Inc()
	s.record(ctx, syncx.TypeTestCreated, t.ID, map[string]any{
		"examId":         t.ExamID,
		"mode":           t.Mode,
		"questionIds":    t.QuestionIDs,
		"requestedCount": res.RequestedCount,
	})

	return CreatedTest{
		Test:           t,
		RequestedCount: res.RequestedCount,
		ActualCount:    res.ActualCount,
		Shortfall:      res.Shortfall(),
	}, nil
}

// Submit grades answers against the test's frozen question set and stores a
// new attempt. Every submission creates its own record.
func (s *Service) Submit(ctx context.Context, testID, userID string, answers map[string]string) (exam.Attempt, error) {
	t, err := s.store.GetTest(ctx, testID)
	if err != nil {
		return exam.Attempt{}, err
	}

	a, err := s.grader.Grade(ctx, t, userID, answers, s.store.GetQuestion)
	if err != nil {
		return exam.Attempt{}, fmt.Errorf("grade test %s: %w", testID, err)
	}
	if skipped := len(t.QuestionIDs) - a.TotalQuestions; skipped > 0 {
		s.log.InfoContext(ctx, "graded with missing questions", slog.String("test", testID), slog.Int("skipped", skipped))
	}

	a, err = s.store.CreateAttempt(ctx, a)
	if err != nil {
		return exam.Attempt{}, err
	}
	metrics.AttemptsGraded.Inc()
	metrics.AttemptPercentage.Observe(a.PercentageScore)
	s.record(ctx, syncx.TypeAttemptSubmitted, a.ID, map[string]any{
		"testId":     a.TestID,
		"userId":     a.UserID,
		"finalScore": a.FinalScore,
		"percentage": a.PercentageScore,
	})
	return a, nil
}

// DeleteTest removes a test and notes it in the audit log.
func (s *Service) DeleteTest(ctx context.Context, testID string) error {
	if err := s.store.DeleteTest(ctx, testID); err != nil {
		return err
	}
	s.record(ctx, syncx.TypeTestDeleted, testID, map[string]any{"testId": testID})
	return nil
}

// record writes an audit event. The primary record is already stored, so a
// failing audit write is logged rather than returned.
func (s *Service) record(ctx context.Context, typ, key string, payload any) {
	if s.events == nil {
		return
	}
	if err := s.events.Append(ctx, typ, key, payload); err != nil {
		s.log.ErrorContext(ctx, "append event", slog.String("type", typ), slog.String("key", key), slog.Any("err", err))
	}
}
