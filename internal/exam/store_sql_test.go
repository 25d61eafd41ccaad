package exam_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mind-engage/mindengage-practice/internal/db"
	"github.com/mind-engage/mindengage-practice/internal/exam"
)

// stores returns the SQL store on a private in-memory sqlite database and
// the in-memory store, so both implementations run the same cases.
func stores(t *testing.T) map[string]exam.Store {
	t.Helper()
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared&_pragma=foreign_keys(1)"
	dbh, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { dbh.Close() })
	return map[string]exam.Store{
		"sql":    exam.NewSQLStore(dbh, string(db.DriverSQLite)),
		"memory": exam.NewInMemoryStore(),
	}
}

func mustExam(t *testing.T, st exam.Store, name string) exam.Exam {
	t.Helper()
	e, err := st.CreateExam(context.Background(), exam.Exam{ExamName: name})
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func mustQuestion(t *testing.T, st exam.Store, q exam.Question) exam.Question {
	t.Helper()
	if q.Difficulty == "" {
		q.Difficulty = exam.DifficultyMedium
	}
	out, err := st.CreateQuestion(context.Background(), q)
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func ids(qs []exam.Question) map[string]bool {
	m := map[string]bool{}
	for _, q := range qs {
		m[q.ID] = true
	}
	return m
}

func TestExamCRUD(t *testing.T) {
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			e := mustExam(t, st, "JEE")

			got, err := st.GetExam(ctx, e.ID)
			if err != nil || got.ExamName != "JEE" {
				t.Fatalf("get = %+v, %v", got, err)
			}

			desc := "joint entrance"
			up, err := st.UpdateExam(ctx, e.ID, exam.ExamPatch{Description: &desc})
			if err != nil {
				t.Fatal(err)
			}
			if up.ExamName != "JEE" || up.Description != desc {
				t.Fatalf("updated = %+v", up)
			}
			if _, err := st.UpdateExam(ctx, "missing", exam.ExamPatch{Description: &desc}); !errors.Is(err, exam.ErrNotFound) {
				t.Fatalf("update missing: %v", err)
			}

			if err := st.DeleteExam(ctx, e.ID); err != nil {
				t.Fatal(err)
			}
			if _, err := st.GetExam(ctx, e.ID); !errors.Is(err, exam.ErrNotFound) {
				t.Fatalf("get deleted: %v", err)
			}
			if err := st.DeleteExam(ctx, e.ID); !errors.Is(err, exam.ErrNotFound) {
				t.Fatalf("delete twice: %v", err)
			}
		})
	}
}

func TestFindQuestionsScope(t *testing.T) {
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			e := mustExam(t, st, "JEE")
			other := mustExam(t, st, "NEET")
			opts := &exam.Options{A: "1", B: "2", C: "3", D: "4"}

			p1 := mustQuestion(t, st, exam.Question{ExamID: e.ID, SubjectID: "phy", QuestionType: exam.TypeMCQ, QuestionText: "p1", Options: opts, CorrectAnswer: "A", YearAsked: 2020})
			p2 := mustQuestion(t, st, exam.Question{ExamID: e.ID, SubjectID: "phy", QuestionType: exam.TypeInteger, QuestionText: "p2", CorrectAnswer: "7", YearAsked: 2021})
			m1 := mustQuestion(t, st, exam.Question{ExamID: e.ID, SubjectID: "math", QuestionType: exam.TypeMCQ, QuestionText: "m1", Options: opts, CorrectAnswer: "B", YearAsked: 2021})
			mustQuestion(t, st, exam.Question{ExamID: other.ID, SubjectID: "phy", QuestionType: exam.TypeMCQ, QuestionText: "x", Options: opts, CorrectAnswer: "C", YearAsked: 2021})

			cases := []struct {
				name string
				f    exam.QuestionFilter
				want []string
			}{
				{"single subject any type", exam.QuestionFilter{ExamID: e.ID, Scope: exam.SingleSubject("phy"), Type: exam.TypeBoth}, []string{p1.ID, p2.ID}},
				{"single subject mcq", exam.QuestionFilter{ExamID: e.ID, Scope: exam.SingleSubject("phy"), Type: exam.TypeMCQ}, []string{p1.ID}},
				{"all subjects", exam.QuestionFilter{ExamID: e.ID, Scope: exam.AllSubjectsOfExam(), Type: exam.TypeBoth}, []string{p1.ID, p2.ID, m1.ID}},
				{"all subjects mcq", exam.QuestionFilter{ExamID: e.ID, Scope: exam.AllSubjectsOfExam(), Type: exam.TypeMCQ}, []string{p1.ID, m1.ID}},
				{"empty subject id means all", exam.QuestionFilter{ExamID: e.ID, Scope: exam.ScopeFromRequest("", false)}, []string{p1.ID, p2.ID, m1.ID}},
				{"by year", exam.QuestionFilter{ExamID: e.ID, Year: 2021}, []string{p2.ID, m1.ID}},
				{"unknown subject", exam.QuestionFilter{ExamID: e.ID, Scope: exam.SingleSubject("chem")}, nil},
			}
			for _, tc := range cases {
				got, err := st.FindQuestions(ctx, tc.f)
				if err != nil {
					t.Fatalf("%s: %v", tc.name, err)
				}
				if got == nil {
					t.Fatalf("%s: nil slice", tc.name)
				}
				gotIDs := ids(got)
				if len(gotIDs) != len(tc.want) {
					t.Fatalf("%s: got %d questions, want %d", tc.name, len(gotIDs), len(tc.want))
				}
				for _, id := range tc.want {
					if !gotIDs[id] {
						t.Fatalf("%s: missing %s", tc.name, id)
					}
				}
			}
		})
	}
}

func TestQuestionRoundTripAndPatch(t *testing.T) {
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			e := mustExam(t, st, "JEE")
			q := mustQuestion(t, st, exam.Question{
				ExamID: e.ID, SubjectID: "phy", QuestionType: exam.TypeMCQ, QuestionText: "q",
				Options: &exam.Options{A: "a", B: "b", C: "c", D: "d"}, CorrectAnswer: "D", YearAsked: 2019,
				Difficulty: exam.DifficultyHard, Explanation: "why",
			})

			got, err := st.GetQuestion(ctx, q.ID)
			if err != nil {
				t.Fatal(err)
			}
			if got.Options == nil || got.Options.D != "d" || got.CorrectAnswer != "D" || got.Difficulty != exam.DifficultyHard {
				t.Fatalf("round trip = %+v", got)
			}

			typ, ans := exam.TypeInteger, "12"
			up, err := st.UpdateQuestion(ctx, q.ID, exam.QuestionPatch{QuestionType: &typ, CorrectAnswer: &ans, Options: &exam.Options{}})
			if err != nil {
				t.Fatal(err)
			}
			if up.QuestionType != exam.TypeInteger || up.CorrectAnswer != "12" || up.Options != nil || up.QuestionText != "q" {
				t.Fatalf("patched = %+v", up)
			}

			if err := st.DeleteQuestion(ctx, q.ID); err != nil {
				t.Fatal(err)
			}
			if _, err := st.GetQuestion(ctx, q.ID); !errors.Is(err, exam.ErrNotFound) {
				t.Fatalf("get deleted: %v", err)
			}
		})
	}
}

func TestTestAndAttempts(t *testing.T) {
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			e := mustExam(t, st, "JEE")

			tt := exam.Test{
				ExamID:            e.ID,
				QuestionType:      exam.TypeBoth,
				NumberOfQuestions: 10,
				Mode:              exam.ModeRandom,
				QuestionIDs:       []string{"q3", "q1", "q2"},
				MarkingScheme:     exam.MarkingScheme{MarksForCorrect: 4, MarksForIncorrect: -1},
			}
			tt.SetScope(exam.SingleSubject("phy"))
			created, err := st.CreateTest(ctx, tt)
			if err != nil {
				t.Fatal(err)
			}

			got, err := st.GetTest(ctx, created.ID)
			if err != nil {
				t.Fatal(err)
			}
			if strings.Join(got.QuestionIDs, ",") != "q3,q1,q2" {
				t.Fatalf("frozen order lost: %v", got.QuestionIDs)
			}
			if got.Scope.AllSubjects() || got.SubjectID != "phy" || got.MarksForIncorrect != -1 || got.NumberOfQuestions != 10 {
				t.Fatalf("test = %+v", got)
			}

			base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
			for i, score := range []float64{3, 7} {
				_, err := st.CreateAttempt(ctx, exam.Attempt{
					TestID:         created.ID,
					UserID:         "u1",
					Answers:        map[string]string{"q1": "A"},
					TotalQuestions: 3,
					FinalScore:     score,
					Results:        []exam.QuestionResult{{QuestionID: "q1", Submitted: "A", CorrectAnswer: "A", Outcome: exam.OutcomeCorrect}},
					SubmittedAt:    base.Add(time.Duration(i) * time.Minute),
				})
				if err != nil {
					t.Fatal(err)
				}
			}
			list, err := st.ListAttemptsByUser(ctx, "u1")
			if err != nil {
				t.Fatal(err)
			}
			if len(list) != 2 || list[0].FinalScore != 7 {
				t.Fatalf("want newest first, got %+v", list)
			}
			if list[0].Answers["q1"] != "A" || len(list[0].Results) != 1 || list[0].Results[0].Outcome != exam.OutcomeCorrect {
				t.Fatalf("attempt payload = %+v", list[0])
			}
			one, err := st.GetAttempt(ctx, list[1].ID)
			if err != nil || one.FinalScore != 3 {
				t.Fatalf("get attempt = %+v, %v", one, err)
			}
			if none, _ := st.ListAttemptsByUser(ctx, "u2"); none == nil || len(none) != 0 {
				t.Fatalf("other user = %#v", none)
			}
			if _, err := st.GetAttempt(ctx, "missing"); !errors.Is(err, exam.ErrNotFound) {
				t.Fatalf("missing attempt: %v", err)
			}
		})
	}
}

func TestUsers(t *testing.T) {
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			u, err := st.CreateUser(ctx, exam.User{Email: " Ada@Example.com ", PasswordHash: "h", FullName: "Ada", Role: exam.RoleStudent})
			if err != nil {
				t.Fatal(err)
			}
			if u.Email != "ada@example.com" {
				t.Fatalf("email = %q", u.Email)
			}
			if _, err := st.CreateUser(ctx, exam.User{Email: "ADA@example.com", PasswordHash: "h", FullName: "Ada 2", Role: exam.RoleStudent}); !errors.Is(err, exam.ErrConflict) {
				t.Fatalf("duplicate: %v", err)
			}
			byEmail, err := st.GetUserByEmail(ctx, "ada@EXAMPLE.com")
			if err != nil || byEmail.ID != u.ID || byEmail.PasswordHash != "h" {
				t.Fatalf("by email = %+v, %v", byEmail, err)
			}
			byID, err := st.GetUser(ctx, u.ID)
			if err != nil || byID.Email != u.Email || byID.Role != exam.RoleStudent {
				t.Fatalf("by id = %+v, %v", byID, err)
			}
			if _, err := st.GetUser(ctx, "nobody"); !errors.Is(err, exam.ErrNotFound) {
				t.Fatalf("missing user: %v", err)
			}
		})
	}
}

func TestCorruptAttemptPayload(t *testing.T) {
	ctx := context.Background()
	dbh, err := db.Open(ctx, db.DriverSQLite, "file:corrupt_attempt?mode=memory&cache=shared&_pragma=foreign_keys(1)")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { dbh.Close() })
	st := exam.NewSQLStore(dbh, string(db.DriverSQLite))

	e := mustExam(t, st, "JEE")
	tt := exam.Test{ExamID: e.ID, QuestionType: exam.TypeMCQ, NumberOfQuestions: 1, Mode: exam.ModeManual,
		QuestionIDs: []string{"q1"}, MarkingScheme: exam.DefaultMarking}
	tt.SetScope(exam.AllSubjectsOfExam())
	created, err := st.CreateTest(ctx, tt)
	if err != nil {
		t.Fatal(err)
	}

	for _, col := range []string{"answers_json", "results_json"} {
		t.Run(col, func(t *testing.T) {
			a, err := st.CreateAttempt(ctx, exam.Attempt{TestID: created.ID, UserID: "u-" + col, Answers: map[string]string{}, SubmittedAt: time.Now()})
			if err != nil {
				t.Fatal(err)
			}
			if _, err := dbh.ExecContext(ctx, "UPDATE test_attempts SET "+col+" = '{broken' WHERE id = ?", a.ID); err != nil {
				t.Fatal(err)
			}
			_, err = st.GetAttempt(ctx, a.ID)
			if err == nil || errors.Is(err, exam.ErrNotFound) {
				t.Fatalf("corrupt %s: err = %v", col, err)
			}
			if _, err := st.ListAttemptsByUser(ctx, "u-"+col); err == nil {
				t.Fatalf("list with corrupt %s succeeded", col)
			}
		})
	}
}
