package deps

import "testing"

func TestCheckResolvesCandidatesInOrder(t *testing.T) {
	statuses := Check([]Requirement{
		{Name: "shell", Candidates: []string{"definitely-not-a-binary-xyzzy", "sh"}},
		{Name: "ghost", Candidates: []string{"definitely-not-a-binary-xyzzy"}},
	})

	if !statuses[0].Found {
		t.Fatalf("expected fallback candidate to resolve: %+v", statuses[0])
	}
	if statuses[1].Found {
		t.Fatalf("expected ghost to stay unresolved: %+v", statuses[1])
	}
}

func TestMissingSkipsOptional(t *testing.T) {
	statuses := []Status{
		{Requirement: Requirement{Name: "required"}, Found: false},
		{Requirement: Requirement{Name: "optional", Optional: true}, Found: false},
		{Requirement: Requirement{Name: "present"}, Found: true},
	}
	missing := Missing(statuses)
	if len(missing) != 1 || missing[0].Name != "required" {
		t.Fatalf("unexpected missing set: %+v", missing)
	}
}

func TestResolveRendererRejectsBogusOverride(t *testing.T) {
	if _, err := ResolveRenderer("definitely-not-a-binary-xyzzy"); err == nil {
		t.Fatal("expected an error for a bogus configured renderer")
	}
}
