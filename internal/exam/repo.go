package exam

import (
	"context"
	"errors"
)

// ErrNotFound is returned by every Store lookup that matches no row.
var ErrNotFound = errors.New("not found")

// QuestionFilter narrows FindQuestions. Zero values mean "no constraint".
type QuestionFilter struct {
	ExamID string
	Scope  SubjectScope
	Type   QuestionType // "" or TypeBoth disables type filtering
	Year   int
}

// QuestionPatch carries the fields of a partial question update; nil fields
// are left untouched. A zero Options value clears the options.
type QuestionPatch struct {
	QuestionType  *QuestionType
	QuestionText  *string
	Options       *Options
	CorrectAnswer *string
	YearAsked     *int
	Difficulty    *Difficulty
	Explanation   *string
}

type ExamPatch struct {
	ExamName    *string
	Description *string
}

type Store interface {
	CreateExam(ctx context.Context, e Exam) (Exam, error)
	GetExam(ctx context.Context, id string) (Exam, error)
	ListExams(ctx context.Context) ([]Exam, error)
	UpdateExam(ctx context.Context, id string, p ExamPatch) (Exam, error)
	DeleteExam(ctx context.Context, id string) error

	CreateSubject(ctx context.Context, s Subject) (Subject, error)
	ListSubjects(ctx context.Context, examID string) ([]Subject, error)
	DeleteSubject(ctx context.Context, id string) error

	FindQuestions(ctx context.Context, f QuestionFilter) ([]Question, error)
	GetQuestion(ctx context.Context, id string) (Question, error)
	CreateQuestion(ctx context.Context, q Question) (Question, error)
	UpdateQuestion(ctx context.Context, id string, p QuestionPatch) (Question, error)
	DeleteQuestion(ctx context.Context, id string) error

	CreateTest(ctx context.Context, t Test) (Test, error)
	GetTest(ctx context.Context, id string) (Test, error)
	ListTests(ctx context.Context) ([]Test, error)
	DeleteTest(ctx context.Context, id string) error

	// CreateAttempt only ever inserts; attempts are never updated.
	CreateAttempt(ctx context.Context, a Attempt) (Attempt, error)
	GetAttempt(ctx context.Context, id string) (Attempt, error)
	ListAttemptsByUser(ctx context.Context, userID string) ([]Attempt, error)

	CreateUser(ctx context.Context, u User) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
}

// ErrConflict is returned when a unique key (user email) is already taken.
var ErrConflict = errors.New("already exists")
