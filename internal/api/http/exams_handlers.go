package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/mind-engage/mindengage-practice/internal/exam"
)

type examInput struct {
	ExamName    *string `json:"examName"`
	Description *string `json:"description"`
}

func (in examInput) validate(create bool) error {
	nameRules := []validation.Rule{validation.NilOrNotEmpty, validation.Length(1, 200)}
	if create {
		nameRules = append(nameRules, validation.Required)
	}
	return validation.ValidateStruct(&in,
		validation.Field(&in.ExamName, nameRules...),
		validation.Field(&in.Description, validation.Length(0, 2000)),
	)
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

// GET /api/exams
func ListExamsHandler(store exam.Store, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := store.ListExams(r.Context())
		if err != nil {
			storeError(w, r, log, "Exam", err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /api/exams/{examID}
func GetExamHandler(store exam.Store, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, err := store.GetExam(r.Context(), chi.URLParam(r, "examID"))
		if err != nil {
			storeError(w, r, log, "Exam", err)
			return
		}
		writeJSON(w, http.StatusOK, e)
	}
}

// POST /api/exams  { "examName", "description"? }
func CreateExamHandler(store exam.Store, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in examInput
		if err := decodeJSON(r, &in); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		in.ExamName, in.Description = trimmed(in.ExamName), trimmed(in.Description)
		if err := in.validate(true); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		e := exam.Exam{ExamName: *in.ExamName}
		if in.Description != nil {
			e.Description = *in.Description
		}
		e, err := store.CreateExam(r.Context(), e)
		if err != nil {
			storeError(w, r, log, "Exam", err)
			return
		}
		writeJSON(w, http.StatusCreated, e)
	}
}

// PUT /api/exams/{examID}  partial update
func UpdateExamHandler(store exam.Store, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in examInput
		if err := decodeJSON(r, &in); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		in.ExamName, in.Description = trimmed(in.ExamName), trimmed(in.Description)
		if err := in.validate(false); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		e, err := store.UpdateExam(r.Context(), chi.URLParam(r, "examID"), exam.ExamPatch{
			ExamName:    in.ExamName,
			Description: in.Description,
		})
		if err != nil {
			storeError(w, r, log, "Exam", err)
			return
		}
		writeJSON(w, http.StatusOK, e)
	}
}

// DELETE /api/exams/{examID}  cascades to subjects, questions and tests
func DeleteExamHandler(store exam.Store, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.DeleteExam(r.Context(), chi.URLParam(r, "examID")); err != nil {
			storeError(w, r, log, "Exam", err)
			return
		}
		writeMessage(w, "Exam deleted successfully")
	}
}

// GET /api/exams/{examID}/subjects
func ListSubjectsHandler(store exam.Store, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		examID := chi.URLParam(r, "examID")
		if _, err := store.GetExam(r.Context(), examID); err != nil {
			storeError(w, r, log, "Exam", err)
			return
		}
		list, err := store.ListSubjects(r.Context(), examID)
		if err != nil {
			storeError(w, r, log, "Subject", err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// POST /api/exams/{examID}/subjects  { "subjectName" }
func CreateSubjectHandler(store exam.Store, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		examID := chi.URLParam(r, "examID")
		if _, err := store.GetExam(r.Context(), examID); err != nil {
			storeError(w, r, log, "Exam", err)
			return
		}
		var in struct {
			SubjectName string `json:"subjectName"`
		}
		if err := decodeJSON(r, &in); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		in.SubjectName = strings.TrimSpace(in.SubjectName)
		if err := validation.Validate(in.SubjectName, validation.Required, validation.Length(1, 200)); err != nil {
			http.Error(w, "subjectName: "+err.Error(), http.StatusBadRequest)
			return
		}
		s, err := store.CreateSubject(r.Context(), exam.Subject{ExamID: examID, SubjectName: in.SubjectName})
		if err != nil {
			storeError(w, r, log, "Subject", err)
			return
		}
		writeJSON(w, http.StatusCreated, s)
	}
}

// DELETE /api/subjects/{subjectID}
func DeleteSubjectHandler(store exam.Store, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.DeleteSubject(r.Context(), chi.URLParam(r, "subjectID")); err != nil {
			storeError(w, r, log, "Subject", err)
			return
		}
		writeMessage(w, "Subject deleted successfully")
	}
}
