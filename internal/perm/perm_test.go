package perm

import (
	"testing"

	"github.com/bwmarrin/discordgo"
)

func testGuild() *discordgo.Guild {
	return &discordgo.Guild{
		ID:      "g1",
		OwnerID: "owner",
		Roles: []*discordgo.Role{
			{ID: "g1", Position: 0, Permissions: 0},
			{ID: "mod", Position: 5, Permissions: discordgo.PermissionKickMembers},
			{ID: "admin", Position: 10, Permissions: discordgo.PermissionAdministrator},
			{ID: "member", Position: 1, Permissions: 0},
		},
	}
}

func member(id string, roles ...string) *discordgo.Member {
	return &discordgo.Member{User: &discordgo.User{ID: id}, Roles: roles}
}

func TestHasCapability(t *testing.T) {
	guild := testGuild()

	if !HasCapability(guild, member("m1", "mod"), discordgo.PermissionKickMembers) {
		t.Fatalf("expected mod role to grant kick")
	}
	if HasCapability(guild, member("m2", "member"), discordgo.PermissionKickMembers) {
		t.Fatalf("expected plain member to lack kick")
	}
	if !HasCapability(guild, member("m3", "admin"), discordgo.PermissionBanMembers) {
		t.Fatalf("expected administrator to pass every check")
	}
	if !HasCapability(guild, member("owner"), discordgo.PermissionBanMembers) {
		t.Fatalf("expected owner to pass every check")
	}
}

func TestRankAbove(t *testing.T) {
	guild := testGuild()

	actor := member("a", "mod")
	peer := member("p", "mod")
	lower := member("l", "member")
	higher := member("h", "admin")

	if !RankAbove(guild, actor, lower) {
		t.Fatalf("expected mod to outrank member")
	}
	if RankAbove(guild, actor, peer) {
		t.Fatalf("peers must not outrank each other")
	}
	if RankAbove(guild, actor, higher) {
		t.Fatalf("mod must not outrank admin")
	}
	if !RankAbove(guild, member("owner"), higher) {
		t.Fatalf("owner outranks everyone")
	}
	if RankAbove(guild, higher, member("owner")) {
		t.Fatalf("nobody outranks the owner")
	}
}

func TestTopRolePosition(t *testing.T) {
	guild := testGuild()

	if got := TopRolePosition(guild, member("m", "member", "mod")); got != 5 {
		t.Fatalf("expected position 5, got %d", got)
	}
	if got := TopRolePosition(guild, member("m")); got != 0 {
		t.Fatalf("expected position 0 for roleless member, got %d", got)
	}
}
