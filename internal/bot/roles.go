package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/SX2s/SX2-Enforcer/internal/command"
	"github.com/SX2s/SX2-Enforcer/internal/modules/audit"
	"github.com/SX2s/SX2-Enforcer/internal/modules/grants"
	"github.com/SX2s/SX2-Enforcer/internal/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

func (b *Bot) cmdAddRole(s *discordgo.Session, m *discordgo.MessageCreate, args command.Args) error {
	name := args.String("name")
	if existing := b.roleByName(m.GuildID, name); existing != nil {
		b.sendError(m.ChannelID, fmt.Sprintf("A role named **%s** already exists.", name))
		return nil
	}
	role, err := s.GuildRoleCreate(m.GuildID, &discordgo.RoleParams{Name: name})
	if err != nil {
		return err
	}
	b.sendSuccess(m.ChannelID, fmt.Sprintf("Created role <@&%s>.", role.ID))
	return nil
}

func (b *Bot) cmdDeleteRole(s *discordgo.Session, m *discordgo.MessageCreate, args command.Args) error {
	role := args.Role("role")
	if role == nil {
		b.sendError(m.ChannelID, "Could not find that role.")
		return nil
	}
	if err := s.GuildRoleDelete(m.GuildID, role.ID); err != nil {
		return err
	}
	b.sendSuccess(m.ChannelID, fmt.Sprintf("Deleted role **%s**.", role.Name))
	return nil
}

func (b *Bot) cmdRenameRole(s *discordgo.Session, m *discordgo.MessageCreate, args command.Args) error {
	role := args.Role("role")
	if role == nil {
		b.sendError(m.ChannelID, "Could not find that role.")
		return nil
	}
	name := args.String("name")
	if _, err := s.GuildRoleEdit(m.GuildID, role.ID, &discordgo.RoleParams{Name: name}); err != nil {
		return err
	}
	b.sendSuccess(m.ChannelID, fmt.Sprintf("Renamed **%s** to **%s**.", role.Name, name))
	return nil
}

func (b *Bot) cmdGiveRole(s *discordgo.Session, m *discordgo.MessageCreate, args command.Args) error {
	target := args.Member("member")
	role := args.Role("role")
	if target == nil || target.User == nil || role == nil {
		b.sendError(m.ChannelID, "Could not find that member or role.")
		return nil
	}
	if err := s.GuildMemberRoleAdd(m.GuildID, target.User.ID, role.ID); err != nil {
		return err
	}
	b.sendSuccess(m.ChannelID, fmt.Sprintf("Gave **%s** the role **%s**.", target.User.Username, role.Name))
	return nil
}

func (b *Bot) cmdTakeRole(s *discordgo.Session, m *discordgo.MessageCreate, args command.Args) error {
	target := args.Member("member")
	role := args.Role("role")
	if target == nil || target.User == nil || role == nil {
		b.sendError(m.ChannelID, "Could not find that member or role.")
		return nil
	}
	if err := s.GuildMemberRoleRemove(m.GuildID, target.User.ID, role.ID); err != nil {
		return err
	}
	b.sendSuccess(m.ChannelID, fmt.Sprintf("Took the role **%s** from **%s**.", role.Name, target.User.Username))
	return nil
}

func (b *Bot) cmdTempRole(s *discordgo.Session, m *discordgo.MessageCreate, args command.Args) error {
	target := args.Member("member")
	role := args.Role("role")
	if target == nil || target.User == nil || role == nil {
		b.sendError(m.ChannelID, "Could not find that member or role.")
		return nil
	}
	duration := args.Duration("duration")

	if err := s.GuildMemberRoleAdd(m.GuildID, target.User.ID, role.ID); err != nil {
		return err
	}
	if err := b.grants.Schedule(context.Background(), m.GuildID, target.User.ID, role.ID, grants.KindRole, duration); err != nil {
		return err
	}
	b.audit.Record(context.Background(), audit.Entry{
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		ActorID:   m.Author.ID,
		TargetID:  target.User.ID,
		Action:    "temprole",
		Reason:    "Granted " + role.Name,
		Note:      "Duration: " + utils.FormatDuration(duration),
	})
	return nil
}

func (b *Bot) cmdMassRole(s *discordgo.Session, m *discordgo.MessageCreate, args command.Args) error {
	role := args.Role("role")
	if role == nil {
		b.sendError(m.ChannelID, "Could not find that role.")
		return nil
	}

	granted, failed := 0, 0
	after := ""
	for {
		members, err := s.GuildMembers(m.GuildID, after, 1000)
		if err != nil {
			return err
		}
		if len(members) == 0 {
			break
		}
		for _, member := range members {
			if member.User == nil || member.User.Bot {
				continue
			}
			if hasRole(member, role.ID) {
				continue
			}
			if err := s.GuildMemberRoleAdd(m.GuildID, member.User.ID, role.ID); err != nil {
				failed++
				b.logger.Warn("massrole grant failed",
					zap.String("user_id", member.User.ID), zap.Error(err))
				continue
			}
			granted++
		}
		after = members[len(members)-1].User.ID
		if len(members) < 1000 {
			break
		}
	}

	summary := fmt.Sprintf("Gave **%s** to %d members.", role.Name, granted)
	if failed > 0 {
		summary += fmt.Sprintf(" %d grants failed.", failed)
	}
	b.sendSuccess(m.ChannelID, summary)
	return nil
}

func (b *Bot) cmdRoleInfo(s *discordgo.Session, m *discordgo.MessageCreate, args command.Args) error {
	role := args.Role("role")
	if role == nil {
		b.sendError(m.ChannelID, "Could not find that role.")
		return nil
	}

	holders := 0
	if guild := b.guild(m.GuildID); guild != nil {
		for _, member := range guild.Members {
			if hasRole(member, role.ID) {
				holders++
			}
		}
	}

	b.sendEmbed(m.ChannelID, &discordgo.MessageEmbed{
		Title: role.Name,
		Color: role.Color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "ID", Value: role.ID, Inline: true},
			{Name: "Position", Value: fmt.Sprintf("%d", role.Position), Inline: true},
			{Name: "Members", Value: fmt.Sprintf("%d", holders), Inline: true},
			{Name: "Mentionable", Value: fmt.Sprintf("%t", role.Mentionable), Inline: true},
			{Name: "Hoisted", Value: fmt.Sprintf("%t", role.Hoist), Inline: true},
			{Name: "Color", Value: fmt.Sprintf("#%06X", role.Color), Inline: true},
		},
	})
	return nil
}

func (b *Bot) cmdAddText(s *discordgo.Session, m *discordgo.MessageCreate, args command.Args) error {
	return b.createChannelUnder(s, m, args, discordgo.ChannelTypeGuildText)
}

func (b *Bot) cmdAddVoice(s *discordgo.Session, m *discordgo.MessageCreate, args command.Args) error {
	return b.createChannelUnder(s, m, args, discordgo.ChannelTypeGuildVoice)
}

func (b *Bot) createChannelUnder(s *discordgo.Session, m *discordgo.MessageCreate, args command.Args, kind discordgo.ChannelType) error {
	parent := args.Channel("category")
	if parent == nil || parent.Type != discordgo.ChannelTypeGuildCategory {
		b.sendError(m.ChannelID, "Could not find that category.")
		return nil
	}
	name := args.String("name")

	channel, err := s.GuildChannelCreateComplex(m.GuildID, discordgo.GuildChannelCreateData{
		Name:     name,
		Type:     kind,
		ParentID: parent.ID,
	})
	if err != nil {
		return err
	}
	b.sendSuccess(m.ChannelID, fmt.Sprintf("Created <#%s> under **%s**.", channel.ID, parent.Name))
	return nil
}

func (b *Bot) cmdDeleteChannel(s *discordgo.Session, m *discordgo.MessageCreate, args command.Args) error {
	channel := args.Channel("channel")
	if channel == nil {
		b.sendError(m.ChannelID, "Could not find that channel.")
		return nil
	}
	if _, err := s.ChannelDelete(channel.ID); err != nil {
		return err
	}
	if channel.ID != m.ChannelID {
		b.sendSuccess(m.ChannelID, fmt.Sprintf("Deleted channel **%s**.", channel.Name))
	}
	return nil
}

func (b *Bot) cmdRenameChannel(s *discordgo.Session, m *discordgo.MessageCreate, args command.Args) error {
	channel := args.Channel("channel")
	if channel == nil {
		b.sendError(m.ChannelID, "Could not find that channel.")
		return nil
	}
	name := args.String("name")
	if _, err := s.ChannelEditComplex(channel.ID, &discordgo.ChannelEdit{Name: name}); err != nil {
		return err
	}
	b.sendSuccess(m.ChannelID, fmt.Sprintf("Renamed **%s** to **%s**.", channel.Name, name))
	return nil
}

func (b *Bot) cmdReactionRole(s *discordgo.Session, m *discordgo.MessageCreate, args command.Args) error {
	action := strings.ToLower(args.String("action"))
	rest := strings.Fields(args.String("args"))

	switch action {
	case "add":
		if len(rest) < 3 {
			b.sendError(m.ChannelID, fmt.Sprintf("Usage: `%sreactionrole add <messageID> <emoji> <role>`", b.cfg.Prefix))
			return nil
		}
		return b.reactionRoleAdd(s, m, rest[0], rest[1], strings.Join(rest[2:], " "))
	case "list":
		return b.reactionRoleList(m)
	case "remove":
		if len(rest) < 2 {
			b.sendError(m.ChannelID, fmt.Sprintf("Usage: `%sreactionrole remove <messageID> <emoji>`", b.cfg.Prefix))
			return nil
		}
		if b.reactions.Remove(rest[0], normalizeEmoji(rest[1])) {
			b.sendSuccess(m.ChannelID, "Reaction role removed.")
		} else {
			b.sendError(m.ChannelID, "No reaction role matched that message and emoji.")
		}
		return nil
	case "clear":
		if len(rest) < 1 {
			b.sendError(m.ChannelID, fmt.Sprintf("Usage: `%sreactionrole clear <messageID>`", b.cfg.Prefix))
			return nil
		}
		if b.reactions.Clear(rest[0]) {
			b.sendSuccess(m.ChannelID, "All reaction roles removed from that message.")
		} else {
			b.sendError(m.ChannelID, "That message has no reaction roles.")
		}
		return nil
	default:
		b.sendError(m.ChannelID, "Available actions: `add`, `list`, `remove`, `clear`.")
		return nil
	}
}

func (b *Bot) reactionRoleAdd(s *discordgo.Session, m *discordgo.MessageCreate, messageID, emoji, roleRef string) error {
	role := b.resolveRoleRef(m.GuildID, roleRef)
	if role == nil {
		b.sendError(m.ChannelID, fmt.Sprintf("Could not find role `%s`.", roleRef))
		return nil
	}

	key := normalizeEmoji(emoji)

	// Verify the message and place the clickable reaction before anything
	// is recorded. A bad message ID or a missing permission must not leave
	// a mapping behind.
	if _, err := s.ChannelMessage(m.ChannelID, messageID); err != nil {
		return err
	}
	if err := s.MessageReactionAdd(m.ChannelID, messageID, key); err != nil {
		return err
	}
	b.reactions.Add(messageID, key, role.ID)
	b.sendSuccess(m.ChannelID, fmt.Sprintf("Reacting with %s on that message now grants **%s**.", emoji, role.Name))
	return nil
}

func (b *Bot) reactionRoleList(m *discordgo.MessageCreate) error {
	all := b.reactions.All()
	if len(all) == 0 {
		b.sendInfo(m.ChannelID, "Reaction roles", "No reaction roles are configured.")
		return nil
	}
	var lines []string
	for messageID, entries := range all {
		for emoji, roleID := range entries {
			lines = append(lines, fmt.Sprintf("`%s` %s → <@&%s>", messageID, emoji, roleID))
		}
	}
	b.sendInfo(m.ChannelID, "Reaction roles", strings.Join(lines, "\n"))
	return nil
}

func (b *Bot) resolveRoleRef(guildID, ref string) *discordgo.Role {
	if id := parseMention(ref, "<@&"); id != "" {
		return b.roleByID(guildID, id)
	}
	if isSnowflake(ref) {
		if role := b.roleByID(guildID, ref); role != nil {
			return role
		}
	}
	return b.roleByName(guildID, ref)
}

// normalizeEmoji converts a typed custom emoji like <a:party:1234> into the
// name:id form the gateway reports. Unicode emoji pass through unchanged.
func normalizeEmoji(emoji string) string {
	if strings.HasPrefix(emoji, "<") && strings.HasSuffix(emoji, ">") {
		inner := strings.Trim(emoji, "<>")
		inner = strings.TrimPrefix(inner, "a")
		inner = strings.TrimPrefix(inner, ":")
		return inner
	}
	return emoji
}

func hasRole(member *discordgo.Member, roleID string) bool {
	for _, id := range member.Roles {
		if id == roleID {
			return true
		}
	}
	return false
}
