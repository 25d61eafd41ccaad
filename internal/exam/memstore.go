package exam

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

type memoryStore struct {
	mu        sync.RWMutex
	now       func() time.Time
	exams     map[string]Exam
	subjects  map[string]Subject
	questions map[string]Question
	qorder    []string // question insertion order, FindQuestions returns in this order
	tests     map[string]Test
	attempts  map[string]Attempt
	users     map[string]User // keyed by lower-cased email
}

// NewInMemoryStore returns a Store kept entirely in process memory.
func NewInMemoryStore() Store {
	return &memoryStore{
		now:       time.Now,
		exams:     map[string]Exam{},
		subjects:  map[string]Subject{},
		questions: map[string]Question{},
		tests:     map[string]Test{},
		attempts:  map[string]Attempt{},
		users:     map[string]User{},
	}
}

func (m *memoryStore) CreateExam(_ context.Context, e Exam) (Exam, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == "" {
		e.ID = newID()
	}
	e.CreatedAt = m.now()
	e.UpdatedAt = e.CreatedAt
	m.exams[e.ID] = e
	return e, nil
}

func (m *memoryStore) GetExam(_ context.Context, id string) (Exam, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.exams[id]
	if !ok {
		return Exam{}, fmt.Errorf("exam %q: %w", id, ErrNotFound)
	}
	return e, nil
}

func (m *memoryStore) ListExams(_ context.Context) ([]Exam, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Exam, 0, len(m.exams))
	for _, e := range m.exams {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memoryStore) UpdateExam(_ context.Context, id string, p ExamPatch) (Exam, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.exams[id]
	if !ok {
		return Exam{}, fmt.Errorf("exam %q: %w", id, ErrNotFound)
	}
	if p.ExamName != nil {
		e.ExamName = *p.ExamName
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	e.UpdatedAt = m.now()
	m.exams[id] = e
	return e, nil
}

func (m *memoryStore) DeleteExam(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.exams[id]; !ok {
		return fmt.Errorf("exam %q: %w", id, ErrNotFound)
	}
	delete(m.exams, id)
	for k, s := range m.subjects {
		if s.ExamID == id {
			delete(m.subjects, k)
		}
	}
	for k, q := range m.questions {
		if q.ExamID == id {
			delete(m.questions, k)
		}
	}
	for k, t := range m.tests {
		if t.ExamID == id {
			delete(m.tests, k)
		}
	}
	return nil
}

func (m *memoryStore) CreateSubject(_ context.Context, s Subject) (Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == "" {
		s.ID = newID()
	}
	s.CreatedAt = m.now()
	s.UpdatedAt = s.CreatedAt
	m.subjects[s.ID] = s
	return s, nil
}

func (m *memoryStore) ListSubjects(_ context.Context, examID string) ([]Subject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Subject{}
	for _, s := range m.subjects {
		if s.ExamID == examID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memoryStore) DeleteSubject(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subjects[id]; !ok {
		return fmt.Errorf("subject %q: %w", id, ErrNotFound)
	}
	delete(m.subjects, id)
	return nil
}

func (f QuestionFilter) matches(q Question) bool {
	if f.ExamID != "" && q.ExamID != f.ExamID {
		return false
	}
	if !f.Scope.AllSubjects() && q.SubjectID != f.Scope.SubjectID() {
		return false
	}
	if f.Type != "" && f.Type != TypeBoth && q.QuestionType != f.Type {
		return false
	}
	if f.Year > 0 && q.YearAsked != f.Year {
		return false
	}
	return true
}

func (m *memoryStore) FindQuestions(_ context.Context, f QuestionFilter) ([]Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Question{}
	for _, id := range m.qorder {
		q, ok := m.questions[id]
		if ok && f.matches(q) {
			out = append(out, q)
		}
	}
	return out, nil
}

func (m *memoryStore) GetQuestion(_ context.Context, id string) (Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.questions[id]
	if !ok {
		return Question{}, fmt.Errorf("question %q: %w", id, ErrNotFound)
	}
	return q, nil
}

func (m *memoryStore) CreateQuestion(_ context.Context, q Question) (Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q.ID == "" {
		q.ID = newID()
	}
	q.CreatedAt = m.now()
	q.UpdatedAt = q.CreatedAt
	if _, exists := m.questions[q.ID]; !exists {
		m.qorder = append(m.qorder, q.ID)
	}
	m.questions[q.ID] = q
	return q, nil
}

func (m *memoryStore) UpdateQuestion(_ context.Context, id string, p QuestionPatch) (Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.questions[id]
	if !ok {
		return Question{}, fmt.Errorf("question %q: %w", id, ErrNotFound)
	}
	if p.QuestionType != nil {
		q.QuestionType = *p.QuestionType
	}
	if p.QuestionText != nil {
		q.QuestionText = *p.QuestionText
	}
	if p.Options != nil {
		q.Options = nil
		if *p.Options != (Options{}) {
			o := *p.Options
			q.Options = &o
		}
	}
	if p.CorrectAnswer != nil {
		q.CorrectAnswer = *p.CorrectAnswer
	}
	if p.YearAsked != nil {
		q.YearAsked = *p.YearAsked
	}
	if p.Difficulty != nil {
		q.Difficulty = *p.Difficulty
	}
	if p.Explanation != nil {
		q.Explanation = *p.Explanation
	}
	q.UpdatedAt = m.now()
	m.questions[id] = q
	return q, nil
}

func (m *memoryStore) DeleteQuestion(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.questions[id]; !ok {
		return fmt.Errorf("question %q: %w", id, ErrNotFound)
	}
	delete(m.questions, id)
	return nil
}

func (m *memoryStore) CreateTest(_ context.Context, t Test) (Test, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == "" {
		t.ID = newID()
	}
	t.QuestionIDs = append([]string{}, t.QuestionIDs...)
	t.SetScope(t.Scope)
	t.CreatedAt = m.now()
	t.UpdatedAt = t.CreatedAt
	m.tests[t.ID] = t
	return t, nil
}

func (m *memoryStore) GetTest(_ context.Context, id string) (Test, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tests[id]
	if !ok {
		return Test{}, fmt.Errorf("test %q: %w", id, ErrNotFound)
	}
	t.QuestionIDs = append([]string{}, t.QuestionIDs...)
	return t, nil
}

func (m *memoryStore) ListTests(_ context.Context) ([]Test, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Test, 0, len(m.tests))
	for _, t := range m.tests {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memoryStore) DeleteTest(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tests[id]; !ok {
		return fmt.Errorf("test %q: %w", id, ErrNotFound)
	}
	delete(m.tests, id)
	return nil
}

func (m *memoryStore) CreateAttempt(_ context.Context, a Attempt) (Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == "" {
		a.ID = newID()
	}
	if a.SubmittedAt.IsZero() {
		a.SubmittedAt = m.now()
	}
	m.attempts[a.ID] = a
	return a, nil
}

func (m *memoryStore) GetAttempt(_ context.Context, id string) (Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attempts[id]
	if !ok {
		return Attempt{}, fmt.Errorf("attempt %q: %w", id, ErrNotFound)
	}
	return a, nil
}

func (m *memoryStore) ListAttemptsByUser(_ context.Context, userID string) ([]Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Attempt{}
	for _, a := range m.attempts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.After(out[j].SubmittedAt) })
	return out, nil
}

func (m *memoryStore) CreateUser(_ context.Context, u User) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if _, ok := m.users[u.Email]; ok {
		return User{}, fmt.Errorf("user %q: %w", u.Email, ErrConflict)
	}
	if u.ID == "" {
		u.ID = newID()
	}
	u.CreatedAt = m.now()
	m.users[u.Email] = u
	return u, nil
}

func (m *memoryStore) GetUserByEmail(_ context.Context, email string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	email = strings.ToLower(strings.TrimSpace(email))
	u, ok := m.users[email]
	if !ok {
		return User{}, fmt.Errorf("user %q: %w", email, ErrNotFound)
	}
	return u, nil
}

func (m *memoryStore) GetUser(_ context.Context, id string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return User{}, fmt.Errorf("user %q: %w", id, ErrNotFound)
}
