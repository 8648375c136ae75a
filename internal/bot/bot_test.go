package bot

import (
	"testing"
	"time"

	"github.com/SX2s/SX2-Enforcer/internal/command"
	"github.com/SX2s/SX2-Enforcer/internal/modules/reactionroles"
	"github.com/SX2s/SX2-Enforcer/internal/setup"
	"github.com/SX2s/SX2-Enforcer/internal/store"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

func TestParseMention(t *testing.T) {
	cases := []struct {
		ref  string
		want string
	}{
		{"<@123456789012345678>", "123456789012345678"},
		{"<@!123456789012345678>", "123456789012345678"},
		{"123456789012345678", "123456789012345678"},
		{"plain", ""},
	}
	for _, tc := range cases {
		if got := parseMention(tc.ref, "<@!", "<@"); got != tc.want {
			t.Fatalf("parseMention(%q) = %q, want %q", tc.ref, got, tc.want)
		}
	}
}

func TestIsSnowflake(t *testing.T) {
	if !isSnowflake("123456789012345678") {
		t.Fatal("expected 18-digit ID to pass")
	}
	if isSnowflake("12345") {
		t.Fatal("short string should not pass")
	}
	if isSnowflake("12345678901234567a") {
		t.Fatal("non-digit string should not pass")
	}
}

func TestNormalizeEmoji(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"<:party:123456789012345678>", "party:123456789012345678"},
		{"<a:spin:123456789012345678>", "spin:123456789012345678"},
		{"👍", "👍"},
	}
	for _, tc := range cases {
		if got := normalizeEmoji(tc.in); got != tc.want {
			t.Fatalf("normalizeEmoji(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFindCategory(t *testing.T) {
	session := &setup.Session{Categories: []setup.Category{
		{Name: "Staff"},
		{Name: "Community"},
	}}

	got := findCategory(session, "community")
	if got == nil || got.Name != "Community" {
		t.Fatalf("expected case-insensitive match, got %+v", got)
	}

	got.TextChannels = append(got.TextChannels, "general")
	if len(session.Categories[1].TextChannels) != 1 {
		t.Fatal("expected findCategory to return a pointer into the session")
	}

	if findCategory(session, "missing") != nil {
		t.Fatal("expected nil for unknown category")
	}
}

func TestReactionRoleAddDoesNotStoreOnFailure(t *testing.T) {
	docs, err := store.New(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("store init: %v", err)
	}
	table, err := reactionroles.New(docs)
	if err != nil {
		t.Fatalf("table init: %v", err)
	}
	session, err := discordgo.New("Bot test-token")
	if err != nil {
		t.Fatalf("session init: %v", err)
	}
	if err := session.State.GuildAdd(&discordgo.Guild{
		ID:    "guild-1",
		Roles: []*discordgo.Role{{ID: "200000000000000001", Name: "Member"}},
	}); err != nil {
		t.Fatalf("state seed: %v", err)
	}

	b := &Bot{logger: zap.NewNop(), reactions: table, session: session}
	m := &discordgo.MessageCreate{Message: &discordgo.Message{
		GuildID:   "guild-1",
		ChannelID: "100000000000000001",
		Author:    &discordgo.User{ID: "300000000000000001"},
	}}

	// The message does not exist, so the verification fetch fails; the
	// error must surface and no mapping may be recorded.
	err = b.reactionRoleAdd(session, m, "999999999999999999", "👍", "Member")
	if err == nil {
		t.Fatal("expected an error for a nonexistent message")
	}
	if len(table.All()) != 0 {
		t.Fatalf("mapping was stored despite the failure: %v", table.All())
	}
}

func TestAnnounceCapability(t *testing.T) {
	b := &Bot{registry: command.NewRegistry()}
	b.registerCommands()

	spec, ok := b.registry.Lookup("announce")
	if !ok {
		t.Fatal("announce is not registered")
	}
	if spec.Capability != discordgo.PermissionManageServer {
		t.Fatalf("announce capability = %d, want PermissionManageServer", spec.Capability)
	}
}

func TestPruneHelpViews(t *testing.T) {
	b := &Bot{helpView: map[string]*helpState{
		"stale": {authorID: "a", created: time.Now().Add(-helpViewTTL - time.Minute)},
		"fresh": {authorID: "a", created: time.Now()},
	}}

	b.helpMu.Lock()
	b.pruneHelpViews(time.Now())
	b.helpMu.Unlock()

	if _, ok := b.helpView["stale"]; ok {
		t.Fatal("expired help view was not pruned")
	}
	if _, ok := b.helpView["fresh"]; !ok {
		t.Fatal("live help view was pruned")
	}
}
