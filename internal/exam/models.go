package exam

import "time"

type QuestionType string

const (
	TypeMCQ     QuestionType = "MCQ"
	TypeInteger QuestionType = "Integer"
	// TypeBoth is only meaningful as a test filter.
	TypeBoth QuestionType = "Both"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

type Mode string

const (
	ModeManual Mode = "manual"
	ModeRandom Mode = "random"
)

type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleStudent Role = "STUDENT"
)

type Exam struct {
	ID          string    `json:"id"`
	ExamName    string    `json:"examName"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Subject struct {
	ID          string    `json:"id"`
	ExamID      string    `json:"examId"`
	SubjectName string    `json:"subjectName"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Options holds the four labelled choices of an MCQ question.
type Options struct {
	A string `json:"A"`
	B string `json:"B"`
	C string `json:"C"`
	D string `json:"D"`
}

// Complete reports whether all four options carry text.
func (o *Options) Complete() bool {
	return o != nil && o.A != "" && o.B != "" && o.C != "" && o.D != ""
}

type Question struct {
	ID            string       `json:"id"`
	ExamID        string       `json:"examId"`
	SubjectID     string       `json:"subjectId"`
	QuestionType  QuestionType `json:"questionType"`
	QuestionText  string       `json:"questionText"`
	Options       *Options     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correctAnswer,omitempty"`
	YearAsked     int          `json:"yearAsked"`
	Difficulty    Difficulty   `json:"difficulty"`
	Explanation   string       `json:"explanation,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// MarkingScheme is the per-question point values used to compute a final score.
type MarkingScheme struct {
	MarksForCorrect   float64 `json:"marksForCorrect"`
	MarksForIncorrect float64 `json:"marksForIncorrect"`
}

// DefaultMarking applies whenever a test is created without explicit marks.
var DefaultMarking = MarkingScheme{MarksForCorrect: 1, MarksForIncorrect: 0}

type Test struct {
	ID                 string       `json:"id"`
	ExamID             string       `json:"examId"`
	Scope              SubjectScope `json:"-"`
	SubjectID          string       `json:"subjectId,omitempty"`
	IncludeAllSubjects bool         `json:"includeAllSubjects"`
	QuestionType       QuestionType `json:"questionType"`
	NumberOfQuestions  int          `json:"numberOfQuestions"`
	Mode               Mode         `json:"mode"`
	QuestionIDs        []string     `json:"questionIds"`
	MarkingScheme
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SetScope stores the scope and mirrors it into the serialized fields.
func (t *Test) SetScope(s SubjectScope) {
	t.Scope = s
	t.SubjectID = s.SubjectID()
	t.IncludeAllSubjects = s.AllSubjects()
}

// Outcome of a single question within an attempt.
type Outcome string

const (
	OutcomeCorrect     Outcome = "correct"
	OutcomeIncorrect   Outcome = "incorrect"
	OutcomeUnattempted Outcome = "unattempted"
)

type QuestionResult struct {
	QuestionID    string  `json:"questionId"`
	Submitted     string  `json:"submitted,omitempty"`
	CorrectAnswer string  `json:"correctAnswer"`
	Outcome       Outcome `json:"outcome"`
}

type Attempt struct {
	ID                   string            `json:"id"`
	TestID               string            `json:"testId"`
	UserID               string            `json:"userId"`
	Answers              map[string]string `json:"answers"`
	TotalQuestions       int               `json:"totalQuestions"`
	AttemptedQuestions   int               `json:"attemptedQuestions"`
	CorrectAnswers       int               `json:"correctAnswers"`
	IncorrectAnswers     int               `json:"incorrectAnswers"`
	UnattemptedQuestions int               `json:"unattemptedQuestions"`
	FinalScore           float64           `json:"finalScore"`
	PercentageScore      float64           `json:"percentageScore"`
	Results              []QuestionResult  `json:"results"`
	SubmittedAt          time.Time         `json:"submittedAt"`
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"fullName"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}
