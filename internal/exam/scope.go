package exam

// SubjectScope selects which subjects of an exam a test draws from: either a
// single subject or every subject of the exam.
type SubjectScope struct {
	subjectID string
	all       bool
}

func SingleSubject(id string) SubjectScope { return SubjectScope{subjectID: id} }

func AllSubjectsOfExam() SubjectScope { return SubjectScope{all: true} }

// ScopeFromRequest maps the wire representation onto a scope. An empty subject
// id means the whole exam.
func ScopeFromRequest(subjectID string, includeAll bool) SubjectScope {
	if includeAll || subjectID == "" {
		return AllSubjectsOfExam()
	}
	return SingleSubject(subjectID)
}

func (s SubjectScope) AllSubjects() bool { return s.all || s.subjectID == "" }

// SubjectID is empty for the all-subjects scope.
func (s SubjectScope) SubjectID() string {
	if s.AllSubjects() {
		return ""
	}
	return s.subjectID
}

func (s SubjectScope) String() string {
	if s.AllSubjects() {
		return "all"
	}
	return "subject:" + s.subjectID
}
