package model

import "testing"

func TestCanonicalizeVarEquivalence(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"percent wrapped", "%SystemRoot%", "systemroot"},
		{"environ prefixed", "environ_SystemRoot", "systemroot"},
		{"bare lowercase", "systemroot", "systemroot"},
		{"percent and environ both absent", "UserName", "username"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := CanonicalizeVar(c.in); got != c.want {
				t.Errorf("CanonicalizeVar(%q) = %q, want %q", c.in, got, c.want)
			}
		})
	}
}

func TestCanonicalizeVarCrossFormEquivalence(t *testing.T) {
	forms := []string{"%SystemRoot%", "environ_systemroot", "SystemRoot", "SYSTEMROOT"}
	first := CanonicalizeVar(forms[0])
	for _, f := range forms[1:] {
		if got := CanonicalizeVar(f); got != first {
			t.Errorf("CanonicalizeVar(%q) = %q, want %q (all forms of the same variable must canonicalize identically)", f, got, first)
		}
	}
}
