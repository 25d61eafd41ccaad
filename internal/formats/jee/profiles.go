// Package jee registers the JEE Main profiles.
package jee

import (
	"github.com/mind-engage/mindengage-practice/internal/exam"
	"github.com/mind-engage/mindengage-practice/internal/formats"
)

func init() {
	// +4 / -1 on MCQ; numerical answers carry the same scheme since 2021.
	formats.Register(formats.Profile{
		Key:          "jee.v1",
		Title:        "JEE Main",
		Marking:      exam.MarkingScheme{MarksForCorrect: 4, MarksForIncorrect: -1},
		AllowedTypes: []exam.QuestionType{exam.TypeMCQ, exam.TypeInteger},
	})
	// Section B numericals before 2021 had no negative marking.
	formats.Register(formats.Profile{
		Key:          "jee.v1.numerical",
		Title:        "JEE Main numerical (no negative marking)",
		Marking:      exam.MarkingScheme{MarksForCorrect: 4, MarksForIncorrect: 0},
		AllowedTypes: []exam.QuestionType{exam.TypeInteger},
	})
}
