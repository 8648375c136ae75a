package setup

// Platform is the slice of the chat platform the creation phase needs.
// Lookups are by name so re-running creation against an existing guild is
// idempotent.
type Platform interface {
	RoleByName(guildID, name string) (string, bool)
	CreateRole(guildID, name string) (string, error)
	CategoryByName(guildID, name string) (string, bool)
	CreateCategory(guildID, name string, overwrites []Overwrite) (string, error)
	ChannelExists(guildID, parentID, name string, voice bool) bool
	CreateChannel(guildID, parentID, name string, voice bool) error
	EveryoneRoleID(guildID string) string
	Log(guildID, message string)
}

// Overwrite is a view-permission overwrite applied to a new category.
type Overwrite struct {
	RoleID string
	Allow  bool
}

// Result summarizes one creation run.
type Result struct {
	RolesCreated    int
	CategoriesMade  int
	ChannelsCreated int
	Skipped         int
	Failures        int
}

// Create materializes the session: roles first, then categories with their
// permission overwrites, then channels nested under each category. Entities
// that already exist by name are skipped, so running the phase twice never
// duplicates anything. Individual failures are logged and skipped, never
// fatal; the session is marked finished after every entity was attempted.
func Create(p Platform, guildID string, session *Session) Result {
	var result Result

	roleIDs := make(map[string]string)
	for _, name := range session.Roles {
		if id, ok := p.RoleByName(guildID, name); ok {
			roleIDs[name] = id
			result.Skipped++
			continue
		}
		id, err := p.CreateRole(guildID, name)
		if err != nil {
			p.Log(guildID, "could not create role "+name+": "+err.Error())
			result.Failures++
			continue
		}
		roleIDs[name] = id
		result.RolesCreated++
	}

	for _, category := range session.Categories {
		parentID, exists := p.CategoryByName(guildID, category.Name)
		if !exists {
			overwrites := buildOverwrites(p, guildID, category, roleIDs)
			id, err := p.CreateCategory(guildID, category.Name, overwrites)
			if err != nil {
				p.Log(guildID, "could not create category "+category.Name+": "+err.Error())
				result.Failures++
				continue
			}
			parentID = id
			result.CategoriesMade++
		} else {
			result.Skipped++
		}

		for _, name := range category.TextChannels {
			createChannel(p, guildID, parentID, name, false, &result)
		}
		for _, name := range category.VoiceChannels {
			createChannel(p, guildID, parentID, name, true, &result)
		}
	}

	session.Finished = true
	return result
}

func createChannel(p Platform, guildID, parentID, name string, voice bool, result *Result) {
	if p.ChannelExists(guildID, parentID, name, voice) {
		result.Skipped++
		return
	}
	if err := p.CreateChannel(guildID, parentID, name, voice); err != nil {
		p.Log(guildID, "could not create channel "+name+": "+err.Error())
		result.Failures++
		return
	}
	result.ChannelsCreated++
}

// buildOverwrites denies view access for the default role unless it is
// explicitly allow-listed, and allows each allow-listed role. Roles named
// in the permission lists but absent from the guild are created on demand.
func buildOverwrites(p Platform, guildID string, category Category, roleIDs map[string]string) []Overwrite {
	overwrites := []Overwrite{}

	everyoneAllowed := false
	for _, name := range category.Permissions.Allow {
		if name == "everyone" || name == "@everyone" {
			everyoneAllowed = true
			continue
		}
		id := resolveRole(p, guildID, name, roleIDs)
		if id == "" {
			continue
		}
		overwrites = append(overwrites, Overwrite{RoleID: id, Allow: true})
	}
	for _, name := range category.Permissions.Deny {
		id := resolveRole(p, guildID, name, roleIDs)
		if id == "" {
			continue
		}
		overwrites = append(overwrites, Overwrite{RoleID: id, Allow: false})
	}

	if !everyoneAllowed {
		if everyone := p.EveryoneRoleID(guildID); everyone != "" {
			overwrites = append(overwrites, Overwrite{RoleID: everyone, Allow: false})
		}
	}
	return overwrites
}

func resolveRole(p Platform, guildID, name string, roleIDs map[string]string) string {
	if id, ok := roleIDs[name]; ok {
		return id
	}
	if id, ok := p.RoleByName(guildID, name); ok {
		roleIDs[name] = id
		return id
	}
	id, err := p.CreateRole(guildID, name)
	if err != nil {
		p.Log(guildID, "could not create role "+name+": "+err.Error())
		return ""
	}
	roleIDs[name] = id
	return id
}
