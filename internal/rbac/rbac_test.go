package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCheckerHas(t *testing.T) {
	c := NewChecker(map[string][]string{
		"ADMIN":   {"*"},
		"STUDENT": {"test:view", "attempt:*"},
	})
	cases := []struct {
		role, perm string
		want       bool
	}{
		{"ADMIN", "test:manage", true},
		{"STUDENT", "test:view", true},
		{"STUDENT", "test:manage", false},
		{"STUDENT", "attempt:view-own", true},
		{"GUEST", "test:view", false},
		{"", "test:view", false},
	}
	for _, tc := range cases {
		if got := c.Has(tc.role, tc.perm); got != tc.want {
			t.Errorf("Has(%q, %q) = %v, want %v", tc.role, tc.perm, got, tc.want)
		}
	}
	if !c.Any("STUDENT", "test:manage", "test:view") {
		t.Error("Any should match second permission")
	}
}

func TestDefaultPolicy(t *testing.T) {
	c := NewChecker(nil)
	for _, p := range []string{"exam:view", "question:view", "test:view", "test:submit", "attempt:view-own"} {
		if !c.Has("STUDENT", p) {
			t.Errorf("student missing %s", p)
		}
	}
	for _, p := range []string{"exam:manage", "question:manage", "test:manage", "attempt:view-all", "events:view"} {
		if c.Has("STUDENT", p) {
			t.Errorf("student should not hold %s", p)
		}
		if !c.Has("ADMIN", p) {
			t.Errorf("admin missing %s", p)
		}
	}
}

func serve(h http.Handler, role, sub string) int {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := WithSubject(WithRole(context.Background(), role), sub)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req.WithContext(ctx))
	return rec.Code
}

func TestRequire(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := Require("test:manage")(ok)
	if code := serve(h, "ADMIN", "a"); code != http.StatusNoContent {
		t.Fatalf("admin got %d", code)
	}
	if code := serve(h, "STUDENT", "s"); code != http.StatusForbidden {
		t.Fatalf("student got %d", code)
	}
	if code := serve(h, "", ""); code != http.StatusForbidden {
		t.Fatalf("anonymous got %d", code)
	}
}

func TestRequireOwnerOr(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	owner := func(r *http.Request) bool { return SubjectFromContext(r.Context()) == "u1" }
	h := RequireOwnerOr("attempt:view-own", "attempt:view-all", owner)(ok)

	if code := serve(h, "STUDENT", "u1"); code != http.StatusNoContent {
		t.Fatalf("owner got %d", code)
	}
	if code := serve(h, "STUDENT", "u2"); code != http.StatusForbidden {
		t.Fatalf("other student got %d", code)
	}
	if code := serve(h, "ADMIN", "a"); code != http.StatusNoContent {
		t.Fatalf("admin got %d", code)
	}
}
