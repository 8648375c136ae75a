package setup

import (
	"reflect"
	"testing"

	"github.com/SX2s/SX2-Enforcer/internal/store"

	"go.uber.org/zap"
)

func newTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	dir := t.TempDir()
	docs, err := store.New(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	manager, err := NewManager(docs)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return manager, dir
}

func TestSessionLifecycle(t *testing.T) {
	manager, _ := newTestManager(t)

	if _, ok := manager.Session("g1"); ok {
		t.Fatalf("expected no session initially")
	}

	manager.Put("g1", &Session{Roles: []string{"Member"}})
	session, ok := manager.Session("g1")
	if !ok || len(session.Roles) != 1 {
		t.Fatalf("expected stored session")
	}

	// Mutating the returned copy must not touch the stored session.
	session.Roles = append(session.Roles, "Mutated")
	stored, _ := manager.Session("g1")
	if len(stored.Roles) != 1 {
		t.Fatalf("expected stored session isolated from caller copies")
	}

	if !manager.Delete("g1") {
		t.Fatalf("expected deletion")
	}
	if _, ok := manager.Session("g1"); ok {
		t.Fatalf("expected session gone")
	}
}

func TestSessionsSurviveReload(t *testing.T) {
	manager, dir := newTestManager(t)
	manager.Put("g1", &Session{
		Roles: []string{"Member", "Mod"},
		Categories: []Category{{
			Name:         "Community",
			TextChannels: []string{"general"},
		}},
	})

	docs, err := store.New(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	reloaded, err := NewManager(docs)
	if err != nil {
		t.Fatalf("reload manager: %v", err)
	}

	session, ok := reloaded.Session("g1")
	if !ok {
		t.Fatalf("expected persisted session")
	}
	if !reflect.DeepEqual(session.Roles, []string{"Member", "Mod"}) {
		t.Fatalf("unexpected roles %v", session.Roles)
	}
	if session.Categories[0].TextChannels[0] != "general" {
		t.Fatalf("unexpected categories %v", session.Categories)
	}
}

func TestTemplates(t *testing.T) {
	manager, _ := newTestManager(t)

	manager.SaveTemplate("gaming", &Session{Roles: []string{"Player"}})
	template, ok := manager.Template("gaming")
	if !ok || template.Roles[0] != "Player" {
		t.Fatalf("expected stored template")
	}

	names := manager.TemplateNames()
	if len(names) != 1 || names[0] != "gaming" {
		t.Fatalf("expected template listed, got %v", names)
	}

	if !manager.DeleteTemplate("gaming") {
		t.Fatalf("expected template deletion")
	}
	if _, ok := manager.Template("gaming"); ok {
		t.Fatalf("expected template gone")
	}
}

func TestKeywords(t *testing.T) {
	for _, input := range []string{"cancel", "STOP", " abort "} {
		if !IsCancel(input) {
			t.Fatalf("expected %q to cancel", input)
		}
	}
	if IsCancel("continue") {
		t.Fatalf("expected continue not to cancel")
	}

	for _, input := range []string{"confirm", "yes", "Y"} {
		if !IsConfirm(input) {
			t.Fatalf("expected %q to confirm", input)
		}
	}
	if IsConfirm("no") {
		t.Fatalf("expected no not to confirm")
	}
}

func TestParseRoleList(t *testing.T) {
	got := ParseRoleList(" Mod , Admin ,,VIP ")
	want := []string{"Mod", "Admin", "VIP"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
