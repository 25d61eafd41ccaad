package rbac

import "github.com/mind-engage/mindengage-practice/internal/exam"

// Default policy. Roles are the exam.Role values carried in tokens.
var RolePermissions = map[string][]string{
	string(exam.RoleStudent): {
		"exam:view",
		"question:view",
		"test:view",
		"test:submit",
		"attempt:view-own",
	},
	string(exam.RoleAdmin): {
		"*", // everything
	},
}
