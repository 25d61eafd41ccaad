package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/mind-engage/mindengage-practice/internal/exam"
	"github.com/mind-engage/mindengage-practice/internal/rbac"
)

// questionInput is both the create body and, after merging a patch onto the
// stored question, the shape validated on update.
type questionInput struct {
	QuestionType  exam.QuestionType `json:"questionType"`
	QuestionText  string            `json:"questionText"`
	Options       *exam.Options     `json:"options"`
	CorrectAnswer string            `json:"correctAnswer"`
	YearAsked     int               `json:"yearAsked"`
	Difficulty    exam.Difficulty   `json:"difficulty"`
	Explanation   string            `json:"explanation"`
}

var errIncompleteOptions = errors.New("all four options A-D are required")

func completeOptions(v any) error {
	o, _ := v.(*exam.Options)
	if !o.Complete() {
		return errIncompleteOptions
	}
	return nil
}

func (in *questionInput) normalize() {
	in.QuestionText = strings.TrimSpace(in.QuestionText)
	in.CorrectAnswer = strings.TrimSpace(in.CorrectAnswer)
	if in.QuestionType == exam.TypeMCQ {
		in.CorrectAnswer = strings.ToUpper(in.CorrectAnswer)
	} else {
		in.Options = nil
	}
	if in.Difficulty == "" {
		in.Difficulty = exam.DifficultyMedium
	}
	if in.YearAsked == 0 {
		in.YearAsked = time.Now().Year()
	}
}

func (in questionInput) Validate() error {
	mcq := in.QuestionType == exam.TypeMCQ
	return validation.ValidateStruct(&in,
		validation.Field(&in.QuestionType, validation.Required, validation.In(exam.TypeMCQ, exam.TypeInteger)),
		validation.Field(&in.QuestionText, validation.Required),
		validation.Field(&in.Options, validation.When(mcq, validation.Required, validation.By(completeOptions))),
		validation.Field(&in.CorrectAnswer,
			validation.Required,
			validation.When(mcq, validation.In("A", "B", "C", "D")),
		),
		validation.Field(&in.YearAsked, validation.Min(0), validation.Max(3000)),
		validation.Field(&in.Difficulty, validation.In(exam.DifficultyEasy, exam.DifficultyMedium, exam.DifficultyHard)),
	)
}

// redact hides answers from callers that cannot manage questions.
func redact(r *http.Request, qs ...exam.Question) []exam.Question {
	if rbac.Allowed(r.Context(), "question:manage") {
		return qs
	}
	out := make([]exam.Question, len(qs))
	for i, q := range qs {
		q.CorrectAnswer = ""
		q.Explanation = ""
		out[i] = q
	}
	return out
}

func filterFromQuery(r *http.Request, examID, subjectID string) exam.QuestionFilter {
	q := r.URL.Query()
	if examID == "" {
		examID = strings.TrimSpace(q.Get("examId"))
	}
	if subjectID == "" {
		subjectID = strings.TrimSpace(q.Get("subjectId"))
	}
	year, _ := strconv.Atoi(q.Get("year"))
	return exam.QuestionFilter{
		ExamID: examID,
		Scope:  exam.ScopeFromRequest(subjectID, false),
		Type:   exam.QuestionType(strings.TrimSpace(q.Get("type"))),
		Year:   year,
	}
}

// GET /api/questions?examId=&subjectId=&type=&year=
func ListQuestionsHandler(store exam.Store, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := store.FindQuestions(r.Context(), filterFromQuery(r, "", ""))
		if err != nil {
			storeError(w, r, log, "Question", err)
			return
		}
		writeJSON(w, http.StatusOK, redact(r, list...))
	}
}

// GET /api/exams/{examID}/subjects/{subjectID}/questions?type=&year=
func ListSubjectQuestionsHandler(store exam.Store, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		examID := chi.URLParam(r, "examID")
		if _, err := store.GetExam(r.Context(), examID); err != nil {
			storeError(w, r, log, "Exam", err)
			return
		}
		list, err := store.FindQuestions(r.Context(), filterFromQuery(r, examID, chi.URLParam(r, "subjectID")))
		if err != nil {
			storeError(w, r, log, "Question", err)
			return
		}
		writeJSON(w, http.StatusOK, redact(r, list...))
	}
}

// GET /api/questions/{questionID}
func GetQuestionHandler(store exam.Store, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := store.GetQuestion(r.Context(), chi.URLParam(r, "questionID"))
		if err != nil {
			storeError(w, r, log, "Question", err)
			return
		}
		writeJSON(w, http.StatusOK, redact(r, q)[0])
	}
}

// POST /api/exams/{examID}/subjects/{subjectID}/questions
func CreateQuestionHandler(store exam.Store, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		examID := chi.URLParam(r, "examID")
		if _, err := store.GetExam(r.Context(), examID); err != nil {
			storeError(w, r, log, "Exam", err)
			return
		}
		var in questionInput
		if err := decodeJSON(r, &in); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		in.normalize()
		if err := in.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		q, err := store.CreateQuestion(r.Context(), exam.Question{
			ExamID:        examID,
			SubjectID:     chi.URLParam(r, "subjectID"),
			QuestionType:  in.QuestionType,
			QuestionText:  in.QuestionText,
			Options:       in.Options,
			CorrectAnswer: in.CorrectAnswer,
			YearAsked:     in.YearAsked,
			Difficulty:    in.Difficulty,
			Explanation:   strings.TrimSpace(in.Explanation),
		})
		if err != nil {
			storeError(w, r, log, "Question", err)
			return
		}
		writeJSON(w, http.StatusCreated, q)
	}
}

// PUT /api/questions/{questionID}  partial update; the merged question must
// still be valid.
func UpdateQuestionHandler(store exam.Store, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "questionID")
		cur, err := store.GetQuestion(r.Context(), id)
		if err != nil {
			storeError(w, r, log, "Question", err)
			return
		}
		var p struct {
			QuestionType  *exam.QuestionType `json:"questionType"`
			QuestionText  *string            `json:"questionText"`
			Options       *exam.Options      `json:"options"`
			CorrectAnswer *string            `json:"correctAnswer"`
			YearAsked     *int               `json:"yearAsked"`
			Difficulty    *exam.Difficulty   `json:"difficulty"`
			Explanation   *string            `json:"explanation"`
		}
		if err := decodeJSON(r, &p); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}

		merged := questionInput{
			QuestionType:  cur.QuestionType,
			QuestionText:  cur.QuestionText,
			Options:       cur.Options,
			CorrectAnswer: cur.CorrectAnswer,
			YearAsked:     cur.YearAsked,
			Difficulty:    cur.Difficulty,
			Explanation:   cur.Explanation,
		}
		if p.QuestionType != nil {
			merged.QuestionType = *p.QuestionType
		}
		if p.QuestionText != nil {
			merged.QuestionText = *p.QuestionText
		}
		if p.Options != nil {
			merged.Options = p.Options
		}
		if p.CorrectAnswer != nil {
			merged.CorrectAnswer = *p.CorrectAnswer
		}
		if p.YearAsked != nil {
			merged.YearAsked = *p.YearAsked
		}
		if p.Difficulty != nil {
			merged.Difficulty = *p.Difficulty
		}
		if p.Explanation != nil {
			merged.Explanation = strings.TrimSpace(*p.Explanation)
		}
		merged.normalize()
		if err := merged.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		opts := merged.Options
		if opts == nil {
			opts = &exam.Options{}
		}
		q, err := store.UpdateQuestion(r.Context(), id, exam.QuestionPatch{
			QuestionType:  &merged.QuestionType,
			QuestionText:  &merged.QuestionText,
			Options:       opts,
			CorrectAnswer: &merged.CorrectAnswer,
			YearAsked:     &merged.YearAsked,
			Difficulty:    &merged.Difficulty,
			Explanation:   &merged.Explanation,
		})
		if err != nil {
			storeError(w, r, log, "Question", err)
			return
		}
		writeJSON(w, http.StatusOK, q)
	}
}

// DELETE /api/questions/{questionID}
// Tests that froze this id keep it; grading skips it from then on.
func DeleteQuestionHandler(store exam.Store, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.DeleteQuestion(r.Context(), chi.URLParam(r, "questionID")); err != nil {
			storeError(w, r, log, "Question", err)
			return
		}
		writeMessage(w, "Question deleted successfully")
	}
}
