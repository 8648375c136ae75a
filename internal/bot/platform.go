package bot

import (
	"strings"

	"github.com/SX2s/SX2-Enforcer/internal/setup"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// reactionAdapter backs the reaction-role handlers with the live session.
type reactionAdapter struct {
	b *Bot
}

func (b *Bot) reactionPlatform() reactionAdapter {
	return reactionAdapter{b: b}
}

func (a reactionAdapter) RoleExists(guildID, roleID string) bool {
	return a.b.roleByID(guildID, roleID) != nil
}

func (a reactionAdapter) IsBot(guildID, userID string) bool {
	if userID == a.b.botUserID() {
		return true
	}
	member := a.b.member(guildID, userID)
	return member != nil && member.User != nil && member.User.Bot
}

func (a reactionAdapter) GrantRole(guildID, userID, roleID string) error {
	err := a.b.session.GuildMemberRoleAdd(guildID, userID, roleID)
	if err != nil {
		a.b.logger.Warn("reaction role grant failed",
			zap.String("guild_id", guildID),
			zap.String("role_id", roleID),
			zap.Error(err))
	}
	return err
}

func (a reactionAdapter) RevokeRole(guildID, userID, roleID string) error {
	err := a.b.session.GuildMemberRoleRemove(guildID, userID, roleID)
	if err != nil {
		a.b.logger.Warn("reaction role revoke failed",
			zap.String("guild_id", guildID),
			zap.String("role_id", roleID),
			zap.Error(err))
	}
	return err
}

func (a reactionAdapter) NotifyMember(userID, message string) {
	a.b.dmUser(userID, message)
}

// setupAdapter backs the wizard's creation phase with the live session.
type setupAdapter struct {
	b *Bot
}

func (b *Bot) setupPlatform() setupAdapter {
	return setupAdapter{b: b}
}

func (a setupAdapter) RoleByName(guildID, name string) (string, bool) {
	if role := a.b.roleByName(guildID, name); role != nil {
		return role.ID, true
	}
	return "", false
}

func (a setupAdapter) CreateRole(guildID, name string) (string, error) {
	role, err := a.b.session.GuildRoleCreate(guildID, &discordgo.RoleParams{Name: name})
	if err != nil {
		return "", err
	}
	return role.ID, nil
}

func (a setupAdapter) CategoryByName(guildID, name string) (string, bool) {
	guild := a.b.guild(guildID)
	if guild == nil {
		return "", false
	}
	for _, channel := range guild.Channels {
		if channel != nil && channel.Type == discordgo.ChannelTypeGuildCategory && strings.EqualFold(channel.Name, name) {
			return channel.ID, true
		}
	}
	return "", false
}

func (a setupAdapter) CreateCategory(guildID, name string, overwrites []setup.Overwrite) (string, error) {
	var permissionOverwrites []*discordgo.PermissionOverwrite
	for _, overwrite := range overwrites {
		po := &discordgo.PermissionOverwrite{
			ID:   overwrite.RoleID,
			Type: discordgo.PermissionOverwriteTypeRole,
		}
		if overwrite.Allow {
			po.Allow = discordgo.PermissionViewChannel
		} else {
			po.Deny = discordgo.PermissionViewChannel
		}
		permissionOverwrites = append(permissionOverwrites, po)
	}

	channel, err := a.b.session.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:                 name,
		Type:                 discordgo.ChannelTypeGuildCategory,
		PermissionOverwrites: permissionOverwrites,
	})
	if err != nil {
		return "", err
	}
	return channel.ID, nil
}

func (a setupAdapter) ChannelExists(guildID, parentID, name string, voice bool) bool {
	guild := a.b.guild(guildID)
	if guild == nil {
		return false
	}
	wantType := discordgo.ChannelTypeGuildText
	if voice {
		wantType = discordgo.ChannelTypeGuildVoice
	}
	for _, channel := range guild.Channels {
		if channel == nil || channel.Type != wantType {
			continue
		}
		if channel.ParentID == parentID && strings.EqualFold(channel.Name, name) {
			return true
		}
	}
	return false
}

func (a setupAdapter) CreateChannel(guildID, parentID, name string, voice bool) error {
	channelType := discordgo.ChannelTypeGuildText
	if voice {
		channelType = discordgo.ChannelTypeGuildVoice
	}
	_, err := a.b.session.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:     name,
		Type:     channelType,
		ParentID: parentID,
	})
	return err
}

func (a setupAdapter) EveryoneRoleID(guildID string) string {
	// The everyone role shares the guild's ID.
	return guildID
}

func (a setupAdapter) Log(guildID, message string) {
	a.b.logger.Warn("setup creation issue", zap.String("guild_id", guildID), zap.String("detail", message))
	if channel := a.b.channelByName(guildID, a.b.cfg.ModLogChannel); channel != nil {
		a.b.sendText(channel.ID, "Setup: "+message)
	}
}
