package perm

import (
	"github.com/bwmarrin/discordgo"
)

// HasCapability reports whether the member holds the given permission bit.
// The guild owner and any member with the administrator bit pass every check.
func HasCapability(guild *discordgo.Guild, member *discordgo.Member, capability int64) bool {
	if guild == nil || member == nil || member.User == nil {
		return false
	}
	if guild.OwnerID == member.User.ID {
		return true
	}

	perms := effectivePermissions(guild, member)
	if perms&discordgo.PermissionAdministrator != 0 {
		return true
	}
	if capability == 0 {
		return true
	}
	return perms&capability != 0
}

// RankAbove reports whether the actor's top role sits strictly above the
// target's. The guild owner outranks everyone; nobody outranks the owner.
func RankAbove(guild *discordgo.Guild, actor, target *discordgo.Member) bool {
	if guild == nil || actor == nil || target == nil {
		return false
	}
	if actor.User != nil && guild.OwnerID == actor.User.ID {
		return true
	}
	if target.User != nil && guild.OwnerID == target.User.ID {
		return false
	}
	return TopRolePosition(guild, actor) > TopRolePosition(guild, target)
}

// TopRolePosition returns the highest role position held by the member.
// A member with no roles sits at the everyone-role position of 0.
func TopRolePosition(guild *discordgo.Guild, member *discordgo.Member) int {
	if guild == nil || member == nil {
		return 0
	}
	roleMap := make(map[string]*discordgo.Role, len(guild.Roles))
	for _, role := range guild.Roles {
		roleMap[role.ID] = role
	}

	top := 0
	for _, roleID := range member.Roles {
		if role := roleMap[roleID]; role != nil && role.Position > top {
			top = role.Position
		}
	}
	return top
}

func effectivePermissions(guild *discordgo.Guild, member *discordgo.Member) int64 {
	perms := int64(0)
	for _, role := range guild.Roles {
		if role.ID == guild.ID {
			perms |= role.Permissions
			break
		}
	}
	roleMap := make(map[string]*discordgo.Role, len(guild.Roles))
	for _, role := range guild.Roles {
		roleMap[role.ID] = role
	}
	for _, roleID := range member.Roles {
		if role := roleMap[roleID]; role != nil {
			perms |= role.Permissions
		}
	}
	return perms
}
