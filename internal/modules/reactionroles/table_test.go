package reactionroles

import (
	"reflect"
	"testing"

	"github.com/SX2s/SX2-Enforcer/internal/store"

	"go.uber.org/zap"
)

type fakePlatform struct {
	roles   map[string]bool
	bots    map[string]bool
	granted map[string][]string
	revoked map[string][]string
	notices []string
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		roles:   map[string]bool{"r1": true, "r2": true},
		bots:    map[string]bool{"bot": true},
		granted: make(map[string][]string),
		revoked: make(map[string][]string),
	}
}

func (f *fakePlatform) RoleExists(guildID, roleID string) bool { return f.roles[roleID] }
func (f *fakePlatform) IsBot(guildID, userID string) bool      { return f.bots[userID] }

func (f *fakePlatform) GrantRole(guildID, userID, roleID string) error {
	f.granted[userID] = append(f.granted[userID], roleID)
	return nil
}

func (f *fakePlatform) RevokeRole(guildID, userID, roleID string) error {
	f.revoked[userID] = append(f.revoked[userID], roleID)
	return nil
}

func (f *fakePlatform) NotifyMember(userID, message string) {
	f.notices = append(f.notices, userID)
}

func newTestTable(t *testing.T) (*Table, string) {
	t.Helper()
	dir := t.TempDir()
	docs, err := store.New(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	table, err := New(docs)
	if err != nil {
		t.Fatalf("new table: %v", err)
	}
	return table, dir
}

func TestReactionRoundTrip(t *testing.T) {
	table, _ := newTestTable(t)
	platform := newFakePlatform()

	table.Add("m1", "👍", "r1")

	table.HandleAdd(platform, "g1", "m1", "👍", "u1")
	if !reflect.DeepEqual(platform.granted["u1"], []string{"r1"}) {
		t.Fatalf("expected grant of r1, got %v", platform.granted["u1"])
	}

	table.HandleRemove(platform, "g1", "m1", "👍", "u1")
	if !reflect.DeepEqual(platform.revoked["u1"], []string{"r1"}) {
		t.Fatalf("expected revoke of r1, got %v", platform.revoked["u1"])
	}

	if !table.Remove("m1", "👍") {
		t.Fatalf("expected removal to report existing binding")
	}
	table.HandleAdd(platform, "g1", "m1", "👍", "u1")
	if len(platform.granted["u1"]) != 1 {
		t.Fatalf("expected no grant after binding removed")
	}
}

func TestUntrackedReactionsNoop(t *testing.T) {
	table, _ := newTestTable(t)
	platform := newFakePlatform()

	table.Add("m1", "👍", "r1")

	table.HandleAdd(platform, "g1", "unknown", "👍", "u1")
	table.HandleAdd(platform, "g1", "m1", "🔥", "u1")
	if len(platform.granted) != 0 {
		t.Fatalf("expected no grants, got %v", platform.granted)
	}
}

func TestBotReactionsIgnored(t *testing.T) {
	table, _ := newTestTable(t)
	platform := newFakePlatform()

	table.Add("m1", "👍", "r1")
	table.HandleAdd(platform, "g1", "m1", "👍", "bot")
	if len(platform.granted) != 0 {
		t.Fatalf("expected bot reaction to be ignored")
	}
}

func TestDeletedRoleNoops(t *testing.T) {
	table, _ := newTestTable(t)
	platform := newFakePlatform()

	table.Add("m1", "👍", "gone")
	table.HandleAdd(platform, "g1", "m1", "👍", "u1")
	if len(platform.granted) != 0 {
		t.Fatalf("expected missing role to no-op")
	}
	if _, ok := table.lookup("m1", "👍"); !ok {
		t.Fatalf("stale binding should stay until removed by an operator")
	}
}

func TestClearAndList(t *testing.T) {
	table, _ := newTestTable(t)

	table.Add("m1", "👍", "r1")
	table.Add("m1", "🔥", "r2")
	table.Add("m2", "🎮", "r1")

	if !table.Clear("m1") {
		t.Fatalf("expected clear to report existing message")
	}
	all := table.All()
	if _, ok := all["m1"]; ok {
		t.Fatalf("expected m1 cleared")
	}
	if all["m2"]["🎮"] != "r1" {
		t.Fatalf("expected m2 untouched")
	}
}

func TestTableSurvivesReload(t *testing.T) {
	table, dir := newTestTable(t)
	table.Add("m1", "👍", "r1")
	table.Add("m1", "🔥", "r2")
	table.Add("m2", "🎮", "r3")

	docs, err := store.New(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	reloaded, err := New(docs)
	if err != nil {
		t.Fatalf("reload table: %v", err)
	}

	if !reflect.DeepEqual(table.All(), reloaded.All()) {
		t.Fatalf("expected identical mappings after reload")
	}
}
