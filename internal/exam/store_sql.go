package exam

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
	sb     sq.StatementBuilderType
	now    func() time.Time
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	ph := sq.PlaceholderFormat(sq.Question)
	if driver == "postgres" {
		ph = sq.Dollar
	}
	return &SQLStore{
		db:     db,
		driver: driver,
		sb:     sq.StatementBuilder.PlaceholderFormat(ph),
		now:    time.Now,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func newID() string { return uuid.NewString() }

func millis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

// ---- exams ----

func (s *SQLStore) CreateExam(ctx context.Context, e Exam) (Exam, error) {
	now := s.now().UTC().Truncate(time.Millisecond)
	if e.ID == "" {
		e.ID = newID()
	}
	e.CreatedAt, e.UpdatedAt = now, now
	q, args, err := s.sb.Insert("exams").
		Columns("id", "exam_name", "description", "created_at", "updated_at").
		Values(e.ID, e.ExamName, e.Description, millis(now), millis(now)).ToSql()
	if err != nil {
		return Exam{}, err
	}
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return Exam{}, fmt.Errorf("insert exam: %w", err)
	}
	return e, nil
}

const examCols = "id, exam_name, description, created_at, updated_at"

func scanExam(r rowScanner) (Exam, error) {
	var e Exam
	var created, updated int64
	if err := r.Scan(&e.ID, &e.ExamName, &e.Description, &created, &updated); err != nil {
		return Exam{}, err
	}
	e.CreatedAt, e.UpdatedAt = fromMillis(created), fromMillis(updated)
	return e, nil
}

func (s *SQLStore) GetExam(ctx context.Context, id string) (Exam, error) {
	q, args, err := s.sb.Select(examCols).From("exams").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return Exam{}, err
	}
	e, err := scanExam(s.db.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Exam{}, fmt.Errorf("exam %q: %w", id, ErrNotFound)
	}
	return e, err
}

func (s *SQLStore) ListExams(ctx context.Context) ([]Exam, error) {
	q, args, err := s.sb.Select(examCols).From("exams").OrderBy("created_at ASC").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Exam{}
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLStore) UpdateExam(ctx context.Context, id string, p ExamPatch) (Exam, error) {
	set := map[string]any{"updated_at": millis(s.now())}
	if p.ExamName != nil {
		set["exam_name"] = *p.ExamName
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	if err := s.update(ctx, "exams", id, set); err != nil {
		return Exam{}, fmt.Errorf("exam %q: %w", id, err)
	}
	return s.GetExam(ctx, id)
}

func (s *SQLStore) DeleteExam(ctx context.Context, id string) error {
	return s.delete(ctx, "exams", id)
}

// ---- subjects ----

func (s *SQLStore) CreateSubject(ctx context.Context, sub Subject) (Subject, error) {
	now := s.now().UTC().Truncate(time.Millisecond)
	if sub.ID == "" {
		sub.ID = newID()
	}
	sub.CreatedAt, sub.UpdatedAt = now, now
	q, args, err := s.sb.Insert("subjects").
		Columns("id", "exam_id", "subject_name", "created_at", "updated_at").
		Values(sub.ID, sub.ExamID, sub.SubjectName, millis(now), millis(now)).ToSql()
	if err != nil {
		return Subject{}, err
	}
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return Subject{}, fmt.Errorf("insert subject: %w", err)
	}
	return sub, nil
}

func (s *SQLStore) ListSubjects(ctx context.Context, examID string) ([]Subject, error) {
	q, args, err := s.sb.Select("id, exam_id, subject_name, created_at, updated_at").
		From("subjects").Where(sq.Eq{"exam_id": examID}).OrderBy("created_at ASC").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Subject{}
	for rows.Next() {
		var sub Subject
		var created, updated int64
		if err := rows.Scan(&sub.ID, &sub.ExamID, &sub.SubjectName, &created, &updated); err != nil {
			return nil, err
		}
		sub.CreatedAt, sub.UpdatedAt = fromMillis(created), fromMillis(updated)
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *SQLStore) DeleteSubject(ctx context.Context, id string) error {
	return s.delete(ctx, "subjects", id)
}

// ---- questions ----

const questionCols = "id, exam_id, subject_id, question_type, question_text, options_json, correct_answer, year_asked, difficulty, explanation, created_at, updated_at"

func scanQuestion(r rowScanner) (Question, error) {
	var q Question
	var opts string
	var created, updated int64
	if err := r.Scan(&q.ID, &q.ExamID, &q.SubjectID, &q.QuestionType, &q.QuestionText, &opts,
		&q.CorrectAnswer, &q.YearAsked, &q.Difficulty, &q.Explanation, &created, &updated); err != nil {
		return Question{}, err
	}
	if opts != "" {
		q.Options = &Options{}
		if err := json.Unmarshal([]byte(opts), q.Options); err != nil {
			return Question{}, fmt.Errorf("question %s options: %w", q.ID, err)
		}
	}
	q.CreatedAt, q.UpdatedAt = fromMillis(created), fromMillis(updated)
	return q, nil
}

func encodeOptions(o *Options) (string, error) {
	if o == nil || *o == (Options{}) {
		return "", nil
	}
	b, err := json.Marshal(o)
	return string(b), err
}

// questionFilterQuery applies f to sb. The subject scope is applied here and
// nowhere else, so every caller gets the same semantics for "all subjects".
func questionFilterQuery(f QuestionFilter, sb sq.SelectBuilder) sq.SelectBuilder {
	where := sq.And{}
	if f.ExamID != "" {
		where = append(where, sq.Eq{"exam_id": f.ExamID})
	}
	if !f.Scope.AllSubjects() {
		where = append(where, sq.Eq{"subject_id": f.Scope.SubjectID()})
	}
	if f.Type != "" && f.Type != TypeBoth {
		where = append(where, sq.Eq{"question_type": string(f.Type)})
	}
	if f.Year > 0 {
		where = append(where, sq.Eq{"year_asked": f.Year})
	}
	return sb.Where(where)
}

func (s *SQLStore) FindQuestions(ctx context.Context, f QuestionFilter) ([]Question, error) {
	sb := questionFilterQuery(f, s.sb.Select(questionCols).From("questions"))
	q, args, err := sb.OrderBy("created_at ASC", "id ASC").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("find questions: %w", err)
	}
	defer rows.Close()
	out := []Question{}
	for rows.Next() {
		qq, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, qq)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetQuestion(ctx context.Context, id string) (Question, error) {
	q, args, err := s.sb.Select(questionCols).From("questions").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return Question{}, err
	}
	qq, err := scanQuestion(s.db.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Question{}, fmt.Errorf("question %q: %w", id, ErrNotFound)
	}
	return qq, err
}

func (s *SQLStore) CreateQuestion(ctx context.Context, qq Question) (Question, error) {
	now := s.now().UTC().Truncate(time.Millisecond)
	if qq.ID == "" {
		qq.ID = newID()
	}
	qq.CreatedAt, qq.UpdatedAt = now, now
	opts, err := encodeOptions(qq.Options)
	if err != nil {
		return Question{}, err
	}
	q, args, err := s.sb.Insert("questions").
		Columns("id", "exam_id", "subject_id", "question_type", "question_text", "options_json",
			"correct_answer", "year_asked", "difficulty", "explanation", "created_at", "updated_at").
		Values(qq.ID, qq.ExamID, qq.SubjectID, string(qq.QuestionType), qq.QuestionText, opts,
			qq.CorrectAnswer, qq.YearAsked, string(qq.Difficulty), qq.Explanation, millis(now), millis(now)).
		ToSql()
	if err != nil {
		return Question{}, err
	}
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return Question{}, fmt.Errorf("insert question: %w", err)
	}
	return qq, nil
}

func (s *SQLStore) UpdateQuestion(ctx context.Context, id string, p QuestionPatch) (Question, error) {
	set := map[string]any{"updated_at": millis(s.now())}
	if p.QuestionType != nil {
		set["question_type"] = string(*p.QuestionType)
	}
	if p.QuestionText != nil {
		set["question_text"] = *p.QuestionText
	}
	if p.Options != nil {
		opts, err := encodeOptions(p.Options)
		if err != nil {
			return Question{}, err
		}
		set["options_json"] = opts
	}
	if p.CorrectAnswer != nil {
		set["correct_answer"] = *p.CorrectAnswer
	}
	if p.YearAsked != nil {
		set["year_asked"] = *p.YearAsked
	}
	if p.Difficulty != nil {
		set["difficulty"] = string(*p.Difficulty)
	}
	if p.Explanation != nil {
		set["explanation"] = *p.Explanation
	}
	if err := s.update(ctx, "questions", id, set); err != nil {
		return Question{}, fmt.Errorf("question %q: %w", id, err)
	}
	return s.GetQuestion(ctx, id)
}

func (s *SQLStore) DeleteQuestion(ctx context.Context, id string) error {
	return s.delete(ctx, "questions", id)
}

// ---- tests ----

const testCols = "id, exam_id, subject_id, all_subjects, question_type, number_of_questions, mode, question_ids_json, marks_for_correct, marks_for_incorrect, created_at, updated_at"

func scanTest(r rowScanner) (Test, error) {
	var t Test
	var subjectID, ids string
	var all int
	var created, updated int64
	if err := r.Scan(&t.ID, &t.ExamID, &subjectID, &all, &t.QuestionType, &t.NumberOfQuestions, &t.Mode,
		&ids, &t.MarksForCorrect, &t.MarksForIncorrect, &created, &updated); err != nil {
		return Test{}, err
	}
	if err := json.Unmarshal([]byte(ids), &t.QuestionIDs); err != nil {
		return Test{}, fmt.Errorf("test %s question ids: %w", t.ID, err)
	}
	if t.QuestionIDs == nil {
		t.QuestionIDs = []string{}
	}
	t.SetScope(ScopeFromRequest(subjectID, all != 0))
	t.CreatedAt, t.UpdatedAt = fromMillis(created), fromMillis(updated)
	return t, nil
}

func (s *SQLStore) CreateTest(ctx context.Context, t Test) (Test, error) {
	now := s.now().UTC().Truncate(time.Millisecond)
	if t.ID == "" {
		t.ID = newID()
	}
	if t.QuestionIDs == nil {
		t.QuestionIDs = []string{}
	}
	t.CreatedAt, t.UpdatedAt = now, now
	ids, err := json.Marshal(t.QuestionIDs)
	if err != nil {
		return Test{}, err
	}
	all := 0
	if t.Scope.AllSubjects() {
		all = 1
	}
	q, args, err := s.sb.Insert("tests").
		Columns("id", "exam_id", "subject_id", "all_subjects", "question_type", "number_of_questions", "mode",
			"question_ids_json", "marks_for_correct", "marks_for_incorrect", "created_at", "updated_at").
		Values(t.ID, t.ExamID, t.Scope.SubjectID(), all, string(t.QuestionType), t.NumberOfQuestions, string(t.Mode),
			string(ids), t.MarksForCorrect, t.MarksForIncorrect, millis(now), millis(now)).
		ToSql()
	if err != nil {
		return Test{}, err
	}
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return Test{}, fmt.Errorf("insert test: %w", err)
	}
	t.SetScope(t.Scope)
	return t, nil
}

func (s *SQLStore) GetTest(ctx context.Context, id string) (Test, error) {
	q, args, err := s.sb.Select(testCols).From("tests").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return Test{}, err
	}
	t, err := scanTest(s.db.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Test{}, fmt.Errorf("test %q: %w", id, ErrNotFound)
	}
	return t, err
}

func (s *SQLStore) ListTests(ctx context.Context) ([]Test, error) {
	q, args, err := s.sb.Select(testCols).From("tests").OrderBy("created_at DESC").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Test{}
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLStore) DeleteTest(ctx context.Context, id string) error {
	return s.delete(ctx, "tests", id)
}

// ---- attempts ----

const attemptCols = "id, test_id, user_id, answers_json, results_json, total_questions, attempted_questions, correct_answers, incorrect_answers, unattempted_questions, final_score, percentage_score, submitted_at"

func scanAttempt(r rowScanner) (Attempt, error) {
	var a Attempt
	var answers, results string
	var submitted int64
	if err := r.Scan(&a.ID, &a.TestID, &a.UserID, &answers, &results, &a.TotalQuestions, &a.AttemptedQuestions,
		&a.CorrectAnswers, &a.IncorrectAnswers, &a.UnattemptedQuestions, &a.FinalScore, &a.PercentageScore,
		&submitted); err != nil {
		return Attempt{}, err
	}
	if err := json.Unmarshal([]byte(answers), &a.Answers); err != nil {
		return Attempt{}, fmt.Errorf("attempt %s answers: %w", a.ID, err)
	}
	if err := json.Unmarshal([]byte(results), &a.Results); err != nil {
		return Attempt{}, fmt.Errorf("attempt %s results: %w", a.ID, err)
	}
	if a.Answers == nil {
		a.Answers = map[string]string{}
	}
	a.SubmittedAt = fromMillis(submitted)
	return a, nil
}

func (s *SQLStore) CreateAttempt(ctx context.Context, a Attempt) (Attempt, error) {
	if a.ID == "" {
		a.ID = newID()
	}
	if a.SubmittedAt.IsZero() {
		a.SubmittedAt = s.now()
	}
	a.SubmittedAt = a.SubmittedAt.UTC().Truncate(time.Millisecond)
	answers, err := json.Marshal(a.Answers)
	if err != nil {
		return Attempt{}, err
	}
	results, err := json.Marshal(a.Results)
	if err != nil {
		return Attempt{}, err
	}
	q, args, err := s.sb.Insert("test_attempts").
		Columns("id", "test_id", "user_id", "answers_json", "results_json", "total_questions",
			"attempted_questions", "correct_answers", "incorrect_answers", "unattempted_questions",
			"final_score", "percentage_score", "submitted_at").
		Values(a.ID, a.TestID, a.UserID, string(answers), string(results), a.TotalQuestions,
			a.AttemptedQuestions, a.CorrectAnswers, a.IncorrectAnswers, a.UnattemptedQuestions,
			a.FinalScore, a.PercentageScore, millis(a.SubmittedAt)).
		ToSql()
	if err != nil {
		return Attempt{}, err
	}
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return Attempt{}, fmt.Errorf("insert attempt: %w", err)
	}
	return a, nil
}

func (s *SQLStore) GetAttempt(ctx context.Context, id string) (Attempt, error) {
	q, args, err := s.sb.Select(attemptCols).From("test_attempts").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return Attempt{}, err
	}
	a, err := scanAttempt(s.db.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, fmt.Errorf("attempt %q: %w", id, ErrNotFound)
	}
	return a, err
}

func (s *SQLStore) ListAttemptsByUser(ctx context.Context, userID string) ([]Attempt, error) {
	q, args, err := s.sb.Select(attemptCols).From("test_attempts").
		Where(sq.Eq{"user_id": userID}).OrderBy("submitted_at DESC").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Attempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ---- users ----

func (s *SQLStore) CreateUser(ctx context.Context, u User) (User, error) {
	if u.ID == "" {
		u.ID = newID()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.CreatedAt = s.now().UTC().Truncate(time.Millisecond)
	q, args, err := s.sb.Insert("users").
		Columns("id", "email", "password_hash", "full_name", "role", "created_at").
		Values(u.ID, u.Email, u.PasswordHash, u.FullName, string(u.Role), millis(u.CreatedAt)).
		ToSql()
	if err != nil {
		return User{}, err
	}
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		if isUniqueViolation(err) {
			return User{}, fmt.Errorf("user %q: %w", u.Email, ErrConflict)
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (s *SQLStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return s.getUser(ctx, sq.Eq{"email": email}, email)
}

func (s *SQLStore) GetUser(ctx context.Context, id string) (User, error) {
	return s.getUser(ctx, sq.Eq{"id": id}, id)
}

func (s *SQLStore) getUser(ctx context.Context, where sq.Eq, label string) (User, error) {
	q, args, err := s.sb.Select("id, email, password_hash, full_name, role, created_at").
		From("users").Where(where).ToSql()
	if err != nil {
		return User{}, err
	}
	var u User
	var created int64
	err = s.db.QueryRowContext(ctx, q, args...).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.Role, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("user %q: %w", label, ErrNotFound)
	}
	if err != nil {
		return User{}, err
	}
	u.CreatedAt = fromMillis(created)
	return u, nil
}

// ---- helpers ----

func (s *SQLStore) update(ctx context.Context, table, id string, set map[string]any) error {
	q, args, err := s.sb.Update(table).SetMap(set).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *SQLStore) delete(ctx context.Context, table, id string) error {
	q, args, err := s.sb.Delete(table).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	if err := requireAffected(res); err != nil {
		return fmt.Errorf("%s %q: %w", strings.TrimSuffix(table, "s"), id, err)
	}
	return nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || // sqlite
		strings.Contains(msg, "duplicate key value") // postgres
}
