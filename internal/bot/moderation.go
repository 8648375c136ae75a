package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/SX2s/SX2-Enforcer/internal/command"
	"github.com/SX2s/SX2-Enforcer/internal/modules/audit"
	"github.com/SX2s/SX2-Enforcer/internal/modules/grants"
	"github.com/SX2s/SX2-Enforcer/internal/perm"
	"github.com/SX2s/SX2-Enforcer/internal/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// guardTarget rejects self-targeting, bot-targeting, and targets the actor
// does not outrank. It reports to the channel itself; a false return means
// the handler should stop without doing anything.
func (b *Bot) guardTarget(m *discordgo.MessageCreate, target *discordgo.Member) bool {
	if target == nil || target.User == nil {
		b.sendError(m.ChannelID, "Could not load that member.")
		return false
	}
	if target.User.ID == m.Author.ID {
		b.sendError(m.ChannelID, "You cannot target yourself.")
		return false
	}
	if target.User.ID == b.botUserID() {
		b.sendError(m.ChannelID, "You cannot target me with that command.")
		return false
	}
	guild := b.guild(m.GuildID)
	if guild == nil {
		b.sendError(m.ChannelID, "Could not load this server.")
		return false
	}
	actor := m.Member
	if actor != nil && actor.User == nil {
		actor.User = m.Author
	}
	if actor == nil {
		actor = b.member(m.GuildID, m.Author.ID)
	}
	if !perm.RankAbove(guild, actor, target) {
		b.sendError(m.ChannelID, "You cannot target a member ranked at or above you.")
		return false
	}
	return true
}

func reasonOrDefault(args command.Args) string {
	reason := args.String("reason")
	if reason == "" {
		return "No reason given"
	}
	return reason
}

func (b *Bot) recordAction(m *discordgo.MessageCreate, target *discordgo.Member, action, reason string) {
	b.audit.Record(context.Background(), audit.Entry{
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		ActorID:   m.Author.ID,
		TargetID:  target.User.ID,
		Action:    action,
		Reason:    reason,
	})
}

func (b *Bot) cmdKick(s *discordgo.Session, m *discordgo.MessageCreate, args command.Args) error {
	target := args.Member("member")
	if !b.guardTarget(m, target) {
		return nil
	}
	reason := reasonOrDefault(args)

	if b.cfg.Notifications.DMOnAction {
		b.dmUser(target.User.ID, fmt.Sprintf("You were kicked from **%s**. Reason: %s", b.guildName(m.GuildID), reason))
	}
	if err := s.GuildMemberDeleteWithReason(m.GuildID, target.User.ID, reason); err != nil {
		return err
	}
	b.recordAction(m, target, "kick", reason)
	return nil
}

func (b *Bot) cmdBan(s *discordgo.Session, m *discordgo.MessageCreate, args command.Args) error {
	target := args.Member("member")
	if !b.guardTarget(m, target) {
		return nil
	}
	reason := reasonOrDefault(args)

	if b.cfg.Notifications.DMOnAction {
		b.dmUser(target.User.ID, fmt.Sprintf("You were banned from **%s**. Reason: %s", b.guildName(m.GuildID), reason))
	}
	if err := s.GuildBanCreateWithReason(m.GuildID, target.User.ID, reason, 0); err != nil {
		return err
	}
	b.recordAction(m, target, "ban", reason)
	return nil
}

func (b *Bot) cmdSoftban(s *discordgo.Session, m *discordgo.MessageCreate, args command.Args) error {
	target := args.Member("member")
	if !b.guardTarget(m, target) {
		return nil
	}
	reason := reasonOrDefault(args)

	if b.cfg.Notifications.DMOnAction {
		b.dmUser(target.User.ID, fmt.Sprintf("You were softbanned from **%s** to purge your recent messages. Reason: %s", b.guildName(m.GuildID), reason))
	}
	if err := s.GuildBanCreateWithReason(m.GuildID, target.User.ID, reason, 1); err != nil {
		return err
	}
	if err := s.GuildBanDelete(m.GuildID, target.User.ID); err != nil {
		return err
	}
	b.recordAction(m, target, "softban", reason)
	return nil
}

func (b *Bot) cmdUnban(s *discordgo.Session, m *discordgo.MessageCreate, args command.Args) error {
	ref := strings.TrimSpace(args.String("user"))

	userID := ""
	if isSnowflake(ref) {
		userID = ref
	} else {
		bans, err := s.GuildBans(m.GuildID, 0, "", "")
		if err != nil {
			return err
		}
		for _, ban := range bans {
			if ban.User == nil {
				continue
			}
			tag := ban.User.Username + "#" + ban.User.Discriminator
			if strings.EqualFold(tag, ref) || strings.EqualFold(ban.User.Username, ref) {
				userID = ban.User.ID
				break
			}
		}
	}
	if userID == "" {
		b.sendError(m.ChannelID, fmt.Sprintf("No ban found for `%s`.", ref))
		return nil
	}

	if err := s.GuildBanDelete(m.GuildID, userID); err != nil {
		return err
	}
	b.audit.Record(context.Background(), audit.Entry{
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		ActorID:   m.Author.ID,
		TargetID:  userID,
		Action:    "unban",
		Reason:    "No reason given",
	})
	return nil
}

func (b *Bot) cmdWarn(s *discordgo.Session, m *discordgo.MessageCreate, args command.Args) error {
	target := args.Member("member")
	if !b.guardTarget(m, target) {
		return nil
	}
	reason := reasonOrDefault(args)

	total := b.warnings.Add(m.GuildID, target.User.ID, reason)
	if b.cfg.Notifications.DMOnAction {
		b.dmUser(target.User.ID, fmt.Sprintf("You were warned in **%s**. Reason: %s (warning #%d)", b.guildName(m.GuildID), reason, total))
	}
	b.audit.Record(context.Background(), audit.Entry{
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		ActorID:   m.Author.ID,
		TargetID:  target.User.ID,
		Action:    "warn",
		Reason:    reason,
		Note:      fmt.Sprintf("Warning #%d", total),
	})
	return nil
}

func (b *Bot) cmdCheckWarnings(s *discordgo.Session, m *discordgo.MessageCreate, args command.Args) error {
	target := args.Member("member")
	if target == nil || target.User == nil {
		b.sendError(m.ChannelID, "Could not load that member.")
		return nil
	}

	reasons := b.warnings.List(m.GuildID, target.User.ID)
	if len(reasons) == 0 {
		b.sendInfo(m.ChannelID, "Warnings", fmt.Sprintf("**%s** has no warnings.", target.User.Username))
		return nil
	}
	lines := make([]string, 0, len(reasons))
	for i, reason := range reasons {
		lines = append(lines, fmt.Sprintf("`%d.` %s", i+1, reason))
	}
	b.sendInfo(m.ChannelID,
		fmt.Sprintf("Warnings for %s (%d)", target.User.Username, len(reasons)),
		strings.Join(lines, "\n"))
	return nil
}

func (b *Bot) cmdClearWarn(s *discordgo.Session, m *discordgo.MessageCreate, args command.Args) error {
	target := args.Member("member")
	if target == nil || target.User == nil {
		b.sendError(m.ChannelID, "Could not load that member.")
		return nil
	}

	removed := b.warnings.Clear(m.GuildID, target.User.ID)
	if removed == 0 {
		b.sendInfo(m.ChannelID, "Warnings", fmt.Sprintf("**%s** had no warnings.", target.User.Username))
		return nil
	}
	b.audit.Record(context.Background(), audit.Entry{
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		ActorID:   m.Author.ID,
		TargetID:  target.User.ID,
		Action:    "clearwarn",
		Reason:    fmt.Sprintf("Cleared %d warnings", removed),
	})
	return nil
}

// ensureMutedRole finds the configured muted role, creating it with
// send-message denies on every text channel when it does not exist yet.
func (b *Bot) ensureMutedRole(s *discordgo.Session, guildID string) (*discordgo.Role, error) {
	if role := b.roleByName(guildID, b.cfg.MutedRoleName); role != nil {
		return role, nil
	}
	role, err := s.GuildRoleCreate(guildID, &discordgo.RoleParams{Name: b.cfg.MutedRoleName})
	if err != nil {
		return nil, err
	}
	guild := b.guild(guildID)
	if guild != nil {
		for _, channel := range guild.Channels {
			if channel.Type != discordgo.ChannelTypeGuildText {
				continue
			}
			if err := s.ChannelPermissionSet(channel.ID, role.ID, discordgo.PermissionOverwriteTypeRole, 0, discordgo.PermissionSendMessages); err != nil {
				b.logger.Warn("could not deny sends for muted role",
					zap.String("channel_id", channel.ID), zap.Error(err))
			}
		}
	}
	return role, nil
}

func (b *Bot) applyMute(s *discordgo.Session, m *discordgo.MessageCreate, target *discordgo.Member, reason string) (*discordgo.Role, error) {
	role, err := b.ensureMutedRole(s, m.GuildID)
	if err != nil {
		return nil, err
	}
	if err := s.GuildMemberRoleAdd(m.GuildID, target.User.ID, role.ID); err != nil {
		return nil, err
	}
	return role, nil
}

func (b *Bot) cmdMute(s *discordgo.Session, m *discordgo.MessageCreate, args command.Args) error {
	target := args.Member("member")
	if !b.guardTarget(m, target) {
		return nil
	}
	reason := reasonOrDefault(args)

	if _, err := b.applyMute(s, m, target, reason); err != nil {
		return err
	}
	if b.cfg.Notifications.DMOnAction {
		b.dmUser(target.User.ID, fmt.Sprintf("You were muted in **%s**. Reason: %s", b.guildName(m.GuildID), reason))
	}
	b.recordAction(m, target, "mute", reason)
	return nil
}

func (b *Bot) cmdTempmute(s *discordgo.Session, m *discordgo.MessageCreate, args command.Args) error {
	target := args.Member("member")
	if !b.guardTarget(m, target) {
		return nil
	}
	duration := args.Duration("duration")
	reason := reasonOrDefault(args)

	role, err := b.applyMute(s, m, target, reason)
	if err != nil {
		return err
	}
	if err := b.grants.Schedule(context.Background(), m.GuildID, target.User.ID, role.ID, grants.KindMute, duration); err != nil {
		return err
	}
	if b.cfg.Notifications.DMOnAction {
		b.dmUser(target.User.ID, fmt.Sprintf("You were muted in **%s** for %s. Reason: %s",
			b.guildName(m.GuildID), utils.FormatDuration(duration), reason))
	}
	b.audit.Record(context.Background(), audit.Entry{
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		ActorID:   m.Author.ID,
		TargetID:  target.User.ID,
		Action:    "tempmute",
		Reason:    reason,
		Note:      "Duration: " + utils.FormatDuration(duration),
	})
	return nil
}

func (b *Bot) cmdMutetime(s *discordgo.Session, m *discordgo.MessageCreate, args command.Args) error {
	target := args.Member("member")
	if target == nil || target.User == nil {
		b.sendError(m.ChannelID, "Could not load that member.")
		return nil
	}

	remaining, ok, err := b.grants.Remaining(context.Background(), m.GuildID, target.User.ID, grants.KindMute)
	if err != nil {
		return err
	}
	if !ok {
		b.sendInfo(m.ChannelID, "Mute", fmt.Sprintf("**%s** is not temporarily muted.", target.User.Username))
		return nil
	}
	b.sendInfo(m.ChannelID, "Mute",
		fmt.Sprintf("**%s** is muted for another %s.", target.User.Username, utils.FormatDuration(remaining)))
	return nil
}

func (b *Bot) cmdUnmute(s *discordgo.Session, m *discordgo.MessageCreate, args command.Args) error {
	target := args.Member("member")
	if target == nil || target.User == nil {
		b.sendError(m.ChannelID, "Could not load that member.")
		return nil
	}

	role := b.roleByName(m.GuildID, b.cfg.MutedRoleName)
	if role == nil {
		b.sendError(m.ChannelID, fmt.Sprintf("There is no `%s` role in this server.", b.cfg.MutedRoleName))
		return nil
	}
	if err := s.GuildMemberRoleRemove(m.GuildID, target.User.ID, role.ID); err != nil {
		return err
	}
	if _, err := b.grants.Cancel(context.Background(), m.GuildID, target.User.ID, grants.KindMute); err != nil {
		b.logger.Warn("could not cancel mute timer", zap.Error(err))
	}
	b.recordAction(m, target, "unmute", "No reason given")
	return nil
}

func (b *Bot) cmdLockdown(s *discordgo.Session, m *discordgo.MessageCreate, args command.Args) error {
	if err := s.ChannelPermissionSet(m.ChannelID, m.GuildID, discordgo.PermissionOverwriteTypeRole, 0, discordgo.PermissionSendMessages); err != nil {
		return err
	}
	b.sendSuccess(m.ChannelID, "Channel locked. Members can no longer send messages here.")
	return nil
}

func (b *Bot) cmdUnlock(s *discordgo.Session, m *discordgo.MessageCreate, args command.Args) error {
	if err := s.ChannelPermissionSet(m.ChannelID, m.GuildID, discordgo.PermissionOverwriteTypeRole, discordgo.PermissionSendMessages, 0); err != nil {
		return err
	}
	b.sendSuccess(m.ChannelID, "Channel unlocked.")
	return nil
}

func (b *Bot) cmdSlowmode(s *discordgo.Session, m *discordgo.MessageCreate, args command.Args) error {
	seconds := args.Int("seconds")
	if seconds < 0 || seconds > 21600 {
		b.sendError(m.ChannelID, "Slowmode must be between 0 and 21600 seconds.")
		return nil
	}
	if _, err := s.ChannelEditComplex(m.ChannelID, &discordgo.ChannelEdit{RateLimitPerUser: &seconds}); err != nil {
		return err
	}
	if seconds == 0 {
		b.sendSuccess(m.ChannelID, "Slowmode disabled.")
	} else {
		b.sendSuccess(m.ChannelID, fmt.Sprintf("Slowmode set to %d seconds.", seconds))
	}
	return nil
}

func (b *Bot) cmdNick(s *discordgo.Session, m *discordgo.MessageCreate, args command.Args) error {
	target := args.Member("member")
	if !b.guardTarget(m, target) {
		return nil
	}
	name := args.String("name")

	if err := s.GuildMemberNickname(m.GuildID, target.User.ID, name); err != nil {
		return err
	}
	b.sendSuccess(m.ChannelID, fmt.Sprintf("Renamed **%s** to **%s**.", target.User.Username, name))
	return nil
}

func (b *Bot) cmdAnnounce(s *discordgo.Session, m *discordgo.MessageCreate, args command.Args) error {
	channel := args.Channel("channel")
	if channel == nil {
		b.sendError(m.ChannelID, "Could not find that channel.")
		return nil
	}
	text := args.String("text")

	_, err := s.ChannelMessageSendEmbed(channel.ID, &discordgo.MessageEmbed{
		Title:       "Announcement",
		Description: text,
		Color:       b.cfg.Notifications.EmbedColors.Info,
		Footer:      &discordgo.MessageEmbedFooter{Text: "Posted by " + m.Author.Username},
	})
	if err != nil {
		return err
	}
	b.sendSuccess(m.ChannelID, fmt.Sprintf("Announcement posted to <#%s>.", channel.ID))
	return nil
}

func (b *Bot) cmdPurgeBot(s *discordgo.Session, m *discordgo.MessageCreate, args command.Args) error {
	messages, err := s.ChannelMessages(m.ChannelID, 100, m.ID, "", "")
	if err != nil {
		return err
	}
	ids := make([]string, 0)
	for _, message := range messages {
		if message.Author != nil && message.Author.ID == b.botUserID() {
			ids = append(ids, message.ID)
		}
	}
	if len(ids) == 0 {
		b.sendInfo(m.ChannelID, "Purge", "Nothing of mine to delete here.")
		return nil
	}
	if err := s.ChannelMessagesBulkDelete(m.ChannelID, ids); err != nil {
		return err
	}
	b.sendSuccess(m.ChannelID, fmt.Sprintf("Deleted %d of my messages.", len(ids)))
	return nil
}

func (b *Bot) guildName(guildID string) string {
	if guild := b.guild(guildID); guild != nil {
		return guild.Name
	}
	return "this server"
}
