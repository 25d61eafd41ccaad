package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/mind-engage/mindengage-practice/internal/exam"
	"github.com/mind-engage/mindengage-practice/internal/formats"
	"github.com/mind-engage/mindengage-practice/internal/grading"
	"github.com/mind-engage/mindengage-practice/internal/practice"
	"github.com/mind-engage/mindengage-practice/internal/rbac"
)

type createTestRequest struct {
	ExamID             string            `json:"examId"`
	SubjectID          string            `json:"subjectId"`
	IncludeAllSubjects bool              `json:"includeAllSubjects"`
	QuestionType       exam.QuestionType `json:"questionType"`
	NumberOfQuestions  int               `json:"numberOfQuestions"`
	Mode               exam.Mode         `json:"mode"`
	QuestionIDs        []string          `json:"questionIds"`
	MarksForCorrect    *float64          `json:"marksForCorrect"`
	MarksForIncorrect  *float64          `json:"marksForIncorrect"`

	// MarkingProfile names a formats profile, e.g. "jee.v1".
	MarkingProfile string `json:"markingProfile"`
}

func (req createTestRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.ExamID, validation.Required),
		validation.Field(&req.QuestionType, validation.Required, validation.In(exam.TypeMCQ, exam.TypeInteger, exam.TypeBoth)),
		validation.Field(&req.NumberOfQuestions, validation.Required, validation.Min(1)),
		validation.Field(&req.Mode, validation.Required, validation.In(exam.ModeManual, exam.ModeRandom)),
	)
}

// marking starts from the named profile (or the default scheme) and applies
// whichever marks were given explicitly.
func (req createTestRequest) marking() (*exam.MarkingScheme, error) {
	m, err := formats.Resolve(req.MarkingProfile, req.QuestionType)
	if err != nil {
		return nil, err
	}
	if req.MarksForCorrect != nil {
		m.MarksForCorrect = *req.MarksForCorrect
	}
	if req.MarksForIncorrect != nil {
		m.MarksForIncorrect = *req.MarksForIncorrect
	}
	return &m, nil
}

// GET /api/profiles
func ListProfilesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, formats.All())
}

// GET /api/tests
func ListTestsHandler(store exam.Store, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := store.ListTests(r.Context())
		if err != nil {
			storeError(w, r, log, "Test", err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /api/tests/{testID}
func GetTestHandler(store exam.Store, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := store.GetTest(r.Context(), chi.URLParam(r, "testID"))
		if err != nil {
			storeError(w, r, log, "Test", err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

// GET /api/tests/{testID}/questions
// Questions in frozen order; deleted ones are left out.
func TestQuestionsHandler(store exam.Store, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := store.GetTest(r.Context(), chi.URLParam(r, "testID"))
		if err != nil {
			storeError(w, r, log, "Test", err)
			return
		}
		out := make([]exam.Question, 0, len(t.QuestionIDs))
		for _, id := range t.QuestionIDs {
			q, err := store.GetQuestion(r.Context(), id)
			if errors.Is(err, exam.ErrNotFound) {
				continue
			}
			if err != nil {
				storeError(w, r, log, "Question", err)
				return
			}
			out = append(out, q)
		}
		writeJSON(w, http.StatusOK, redact(r, out...))
	}
}

// POST /api/tests
func CreateTestHandler(svc *practice.Service, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createTestRequest
		if err := decodeJSON(r, &req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := req.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		marking, err := req.marking()
		if err != nil {
			http.Error(w, "markingProfile: "+err.Error(), http.StatusBadRequest)
			return
		}
		ct, err := svc.CreateTest(r.Context(), practice.CreateTestInput{
			ExamID:            req.ExamID,
			Scope:             exam.ScopeFromRequest(req.SubjectID, req.IncludeAllSubjects),
			QuestionType:      req.QuestionType,
			NumberOfQuestions: req.NumberOfQuestions,
			Mode:              req.Mode,
			QuestionIDs:       req.QuestionIDs,
			Marking:           marking,
		})
		if err != nil {
			storeError(w, r, log, "Exam", err)
			return
		}
		writeJSON(w, http.StatusCreated, ct)
	}
}

// DELETE /api/tests/{testID}
func DeleteTestHandler(svc *practice.Service, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.DeleteTest(r.Context(), chi.URLParam(r, "testID")); err != nil {
			storeError(w, r, log, "Test", err)
			return
		}
		writeMessage(w, "Test deleted successfully")
	}
}

// POST /api/tests/{testID}/submit  { "answers": { questionID: token } }
// The attempt belongs to the token subject.
func SubmitTestHandler(svc *practice.Service, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Answers map[string]any `json:"answers"`
		}
		if err := decodeJSON(r, &req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		userID := rbac.SubjectFromContext(r.Context())
		a, err := svc.Submit(r.Context(), chi.URLParam(r, "testID"), userID, grading.Tokens(req.Answers))
		if err != nil {
			storeError(w, r, log, "Test", err)
			return
		}
		writeJSON(w, http.StatusCreated, a)
	}
}

// GET /api/tests/attempts/{userID}  newest first
func UserAttemptsHandler(store exam.Store, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := store.ListAttemptsByUser(r.Context(), chi.URLParam(r, "userID"))
		if err != nil {
			storeError(w, r, log, "Attempt", err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /api/attempts/{attemptID}
// Without attempt:view-all only the owner may read it.
func GetAttemptHandler(store exam.Store, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := store.GetAttempt(r.Context(), chi.URLParam(r, "attemptID"))
		if err != nil {
			storeError(w, r, log, "Attempt", err)
			return
		}
		if !rbac.Allowed(r.Context(), "attempt:view-all") && a.UserID != rbac.SubjectFromContext(r.Context()) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// isSelf matches the {userID} route param against the token subject.
func isSelf(r *http.Request) bool {
	sub := rbac.SubjectFromContext(r.Context())
	return sub != "" && chi.URLParam(r, "userID") == sub
}
