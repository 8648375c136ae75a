package setup

import (
	"fmt"
	"strings"
	"testing"
)

type fakeGuild struct {
	nextID     int
	roles      map[string]string
	categories map[string]string
	channels   map[string]bool
	overwrites map[string][]Overwrite
	logs       []string
	failRoles  bool
}

func newFakeGuild() *fakeGuild {
	return &fakeGuild{
		roles:      map[string]string{"@everyone": "everyone-id"},
		categories: make(map[string]string),
		channels:   make(map[string]bool),
		overwrites: make(map[string][]Overwrite),
	}
}

func (f *fakeGuild) id() string {
	f.nextID++
	return fmt.Sprintf("id-%d", f.nextID)
}

func (f *fakeGuild) RoleByName(guildID, name string) (string, bool) {
	id, ok := f.roles[name]
	return id, ok
}

func (f *fakeGuild) CreateRole(guildID, name string) (string, error) {
	if f.failRoles {
		return "", fmt.Errorf("missing permission")
	}
	id := f.id()
	f.roles[name] = id
	return id, nil
}

func (f *fakeGuild) CategoryByName(guildID, name string) (string, bool) {
	id, ok := f.categories[name]
	return id, ok
}

func (f *fakeGuild) CreateCategory(guildID, name string, overwrites []Overwrite) (string, error) {
	id := f.id()
	f.categories[name] = id
	f.overwrites[name] = overwrites
	return id, nil
}

func (f *fakeGuild) ChannelExists(guildID, parentID, name string, voice bool) bool {
	return f.channels[parentID+"/"+name+fmt.Sprint(voice)]
}

func (f *fakeGuild) CreateChannel(guildID, parentID, name string, voice bool) error {
	f.channels[parentID+"/"+name+fmt.Sprint(voice)] = true
	return nil
}

func (f *fakeGuild) EveryoneRoleID(guildID string) string { return "everyone-id" }

func (f *fakeGuild) Log(guildID, message string) {
	f.logs = append(f.logs, message)
}

func sampleSession() *Session {
	return &Session{
		Roles: []string{"Member", "Moderator"},
		Categories: []Category{
			{
				Name:          "Community",
				TextChannels:  []string{"general", "memes"},
				VoiceChannels: []string{"Lounge"},
				Permissions:   Permissions{Allow: []string{"Member"}},
			},
			{
				Name:         "Staff",
				TextChannels: []string{"mod-chat"},
				Permissions:  Permissions{Allow: []string{"Moderator"}},
			},
		},
	}
}

func TestCreateBuildsEverything(t *testing.T) {
	guild := newFakeGuild()
	session := sampleSession()

	result := Create(guild, "g1", session)

	if result.RolesCreated != 2 {
		t.Fatalf("expected 2 roles created, got %d", result.RolesCreated)
	}
	if result.CategoriesMade != 2 {
		t.Fatalf("expected 2 categories, got %d", result.CategoriesMade)
	}
	if result.ChannelsCreated != 4 {
		t.Fatalf("expected 4 channels, got %d", result.ChannelsCreated)
	}
	if !session.Finished {
		t.Fatalf("expected session marked finished")
	}
}

func TestCreateIsIdempotent(t *testing.T) {
	guild := newFakeGuild()
	session := sampleSession()

	Create(guild, "g1", session)
	second := Create(guild, "g1", session)

	if second.RolesCreated != 0 || second.CategoriesMade != 0 || second.ChannelsCreated != 0 {
		t.Fatalf("second run must create nothing, got %+v", second)
	}
	if second.Skipped == 0 {
		t.Fatalf("expected existing entities skipped")
	}
}

func TestCreateDeniesDefaultRoleView(t *testing.T) {
	guild := newFakeGuild()
	session := sampleSession()

	Create(guild, "g1", session)

	overwrites := guild.overwrites["Community"]
	foundEveryoneDeny := false
	foundMemberAllow := false
	for _, overwrite := range overwrites {
		if overwrite.RoleID == "everyone-id" && !overwrite.Allow {
			foundEveryoneDeny = true
		}
		if overwrite.RoleID == guild.roles["Member"] && overwrite.Allow {
			foundMemberAllow = true
		}
	}
	if !foundEveryoneDeny {
		t.Fatalf("expected default role view denied, got %v", overwrites)
	}
	if !foundMemberAllow {
		t.Fatalf("expected allow-listed role granted view, got %v", overwrites)
	}
}

func TestCreateEveryoneAllowListSkipsDeny(t *testing.T) {
	guild := newFakeGuild()
	session := &Session{
		Categories: []Category{{
			Name:        "Public",
			Permissions: Permissions{Allow: []string{"everyone"}},
		}},
	}

	Create(guild, "g1", session)

	for _, overwrite := range guild.overwrites["Public"] {
		if overwrite.RoleID == "everyone-id" && !overwrite.Allow {
			t.Fatalf("everyone allow-listed but still denied")
		}
	}
}

func TestCreateLogsFailuresAndContinues(t *testing.T) {
	guild := newFakeGuild()
	guild.failRoles = true
	session := sampleSession()

	result := Create(guild, "g1", session)

	if result.Failures == 0 {
		t.Fatalf("expected role failures recorded")
	}
	if result.CategoriesMade != 2 {
		t.Fatalf("expected categories still created, got %d", result.CategoriesMade)
	}
	if len(guild.logs) == 0 || !strings.Contains(guild.logs[0], "could not create role") {
		t.Fatalf("expected failure logged, got %v", guild.logs)
	}
	if !session.Finished {
		t.Fatalf("failures must not block completion")
	}
}
