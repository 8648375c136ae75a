package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/SX2s/SX2-Enforcer/internal/command"

	"github.com/bwmarrin/discordgo"
)

const (
	categoryGeneral    = "General"
	categoryModeration = "Moderation"
	categorySetup      = "Setup"
	categoryRoles      = "Roles & Channels"
)

func (b *Bot) registerCommands() {
	r := b.registry

	// General
	r.Register(command.Spec{
		Name: "help", Category: categoryGeneral,
		Description: "Show the command catalog",
		Usage:       "help [category]",
		Params:      []command.Param{{Name: "category", Kind: command.KindRest}},
		Run:         b.cmdHelp,
	})
	r.Register(command.Spec{
		Name: "ping", Category: categoryGeneral,
		Description: "Check the bot's latency",
		Usage:       "ping",
		Run:         b.cmdPing,
	})
	r.Register(command.Spec{
		Name: "bot_info", Aliases: []string{"botinfo"}, Category: categoryGeneral,
		Description: "Show runtime and host statistics",
		Usage:       "bot_info",
		Run:         b.cmdBotInfo,
	})
	r.Register(command.Spec{
		Name: "invite", Category: categoryGeneral,
		Description: "Get a link to invite the bot",
		Usage:       "invite",
		Run:         b.cmdInvite,
	})
	r.Register(command.Spec{
		Name: "serverinfo", Category: categoryGeneral,
		Description: "Show information about this server",
		Usage:       "serverinfo",
		Run:         b.cmdServerInfo,
	})
	r.Register(command.Spec{
		Name: "userinfo", Category: categoryGeneral,
		Description: "Show information about a member",
		Usage:       "userinfo [member]",
		Params:      []command.Param{{Name: "member", Kind: command.KindMember}},
		Run:         b.cmdUserInfo,
	})
	r.Register(command.Spec{
		Name: "say", Category: categoryGeneral,
		Description: "Make the bot repeat a message",
		Usage:       "say <text>",
		Capability:  discordgo.PermissionManageMessages,
		Params:      []command.Param{{Name: "text", Kind: command.KindRest, Required: true}},
		Run:         b.cmdSay,
	})
	r.Register(command.Spec{
		Name: "clear", Category: categoryGeneral,
		Description: "Delete recent messages in this channel",
		Usage:       "clear [count]",
		Capability:  discordgo.PermissionManageMessages,
		Params:      []command.Param{{Name: "count", Kind: command.KindInt, Default: "10"}},
		Run:         b.cmdClear,
	})

	// Moderation
	r.Register(command.Spec{
		Name: "kick", Category: categoryModeration,
		Description: "Kick a member from the server",
		Usage:       "kick <member> [reason]",
		Capability:  discordgo.PermissionKickMembers,
		Params: []command.Param{
			{Name: "member", Kind: command.KindMember, Required: true},
			{Name: "reason", Kind: command.KindRest},
		},
		Run: b.cmdKick,
	})
	r.Register(command.Spec{
		Name: "ban", Category: categoryModeration,
		Description: "Ban a member from the server",
		Usage:       "ban <member> [reason]",
		Capability:  discordgo.PermissionBanMembers,
		Params: []command.Param{
			{Name: "member", Kind: command.KindMember, Required: true},
			{Name: "reason", Kind: command.KindRest},
		},
		Run: b.cmdBan,
	})
	r.Register(command.Spec{
		Name: "softban", Category: categoryModeration,
		Description: "Ban and immediately unban to purge a member's messages",
		Usage:       "softban <member> [reason]",
		Capability:  discordgo.PermissionBanMembers,
		Params: []command.Param{
			{Name: "member", Kind: command.KindMember, Required: true},
			{Name: "reason", Kind: command.KindRest},
		},
		Run: b.cmdSoftban,
	})
	r.Register(command.Spec{
		Name: "unban", Category: categoryModeration,
		Description: "Remove a ban by user ID or name#discriminator",
		Usage:       "unban <user>",
		Capability:  discordgo.PermissionBanMembers,
		Params:      []command.Param{{Name: "user", Kind: command.KindRest, Required: true}},
		Run:         b.cmdUnban,
	})
	r.Register(command.Spec{
		Name: "warn", Category: categoryModeration,
		Description: "Warn a member",
		Usage:       "warn <member> [reason]",
		Capability:  discordgo.PermissionKickMembers,
		Params: []command.Param{
			{Name: "member", Kind: command.KindMember, Required: true},
			{Name: "reason", Kind: command.KindRest},
		},
		Run: b.cmdWarn,
	})
	r.Register(command.Spec{
		Name: "checkwarnings", Aliases: []string{"warnings"}, Category: categoryModeration,
		Description: "List a member's warnings",
		Usage:       "checkwarnings <member>",
		Capability:  discordgo.PermissionKickMembers,
		Params:      []command.Param{{Name: "member", Kind: command.KindMember, Required: true}},
		Run:         b.cmdCheckWarnings,
	})
	r.Register(command.Spec{
		Name: "clearwarn", Category: categoryModeration,
		Description: "Clear all warnings for a member",
		Usage:       "clearwarn <member>",
		Capability:  discordgo.PermissionKickMembers,
		Params:      []command.Param{{Name: "member", Kind: command.KindMember, Required: true}},
		Run:         b.cmdClearWarn,
	})
	r.Register(command.Spec{
		Name: "mute", Category: categoryModeration,
		Description: "Mute a member indefinitely",
		Usage:       "mute <member> [reason]",
		Capability:  discordgo.PermissionManageRoles,
		Params: []command.Param{
			{Name: "member", Kind: command.KindMember, Required: true},
			{Name: "reason", Kind: command.KindRest},
		},
		Run: b.cmdMute,
	})
	r.Register(command.Spec{
		Name: "tempmute", Category: categoryModeration,
		Description: "Mute a member for a limited time",
		Usage:       "tempmute <member> <duration> [reason]",
		Capability:  discordgo.PermissionManageRoles,
		Params: []command.Param{
			{Name: "member", Kind: command.KindMember, Required: true},
			{Name: "duration", Kind: command.KindDuration, Required: true},
			{Name: "reason", Kind: command.KindRest},
		},
		Run: b.cmdTempmute,
	})
	r.Register(command.Spec{
		Name: "mutetime", Category: categoryModeration,
		Description: "Show how long a member stays muted",
		Usage:       "mutetime <member>",
		Capability:  discordgo.PermissionManageRoles,
		Params:      []command.Param{{Name: "member", Kind: command.KindMember, Required: true}},
		Run:         b.cmdMutetime,
	})
	r.Register(command.Spec{
		Name: "unmute", Category: categoryModeration,
		Description: "Unmute a member",
		Usage:       "unmute <member>",
		Capability:  discordgo.PermissionManageRoles,
		Params:      []command.Param{{Name: "member", Kind: command.KindMember, Required: true}},
		Run:         b.cmdUnmute,
	})
	r.Register(command.Spec{
		Name: "lockdown", Category: categoryModeration,
		Description: "Prevent members from sending messages in this channel",
		Usage:       "lockdown",
		Capability:  discordgo.PermissionManageChannels,
		Run:         b.cmdLockdown,
	})
	r.Register(command.Spec{
		Name: "unlock", Category: categoryModeration,
		Description: "Lift a channel lockdown",
		Usage:       "unlock",
		Capability:  discordgo.PermissionManageChannels,
		Run:         b.cmdUnlock,
	})
	r.Register(command.Spec{
		Name: "slowmode", Category: categoryModeration,
		Description: "Set this channel's slowmode delay in seconds",
		Usage:       "slowmode <seconds>",
		Capability:  discordgo.PermissionManageChannels,
		Params:      []command.Param{{Name: "seconds", Kind: command.KindInt, Required: true}},
		Run:         b.cmdSlowmode,
	})
	r.Register(command.Spec{
		Name: "nick", Category: categoryModeration,
		Description: "Change a member's nickname",
		Usage:       "nick <member> <name>",
		Capability:  discordgo.PermissionManageNicknames,
		Params: []command.Param{
			{Name: "member", Kind: command.KindMember, Required: true},
			{Name: "name", Kind: command.KindRest, Required: true},
		},
		Run: b.cmdNick,
	})
	r.Register(command.Spec{
		Name: "announce", Category: categoryModeration,
		Description: "Post an announcement to a channel",
		Usage:       "announce <channel> <text>",
		Capability:  discordgo.PermissionManageServer,
		Params: []command.Param{
			{Name: "channel", Kind: command.KindChannel, Required: true},
			{Name: "text", Kind: command.KindRest, Required: true},
		},
		Run: b.cmdAnnounce,
	})
	r.Register(command.Spec{
		Name: "purgebot", Category: categoryModeration,
		Description: "Delete the bot's recent messages in this channel",
		Usage:       "purgebot",
		Capability:  discordgo.PermissionManageMessages,
		Run:         b.cmdPurgeBot,
	})

	// Setup
	r.Register(command.Spec{
		Name: "setupserver", Category: categorySetup,
		Description: "Run the interactive server setup wizard",
		Usage:       "setupserver",
		Capability:  discordgo.PermissionAdministrator,
		Run:         b.cmdSetupServer,
	})
	r.Register(command.Spec{
		Name: "setup", Category: categorySetup,
		Description: "Edit the setup session step by step",
		Usage:       "setup <addrole|addcategory|addchannel|permissions|summary|confirm|cancel|template> [args]",
		Capability:  discordgo.PermissionAdministrator,
		Params: []command.Param{
			{Name: "action", Kind: command.KindString, Required: true},
			{Name: "args", Kind: command.KindRest},
		},
		Run: b.cmdSetup,
	})

	// Roles & channels
	r.Register(command.Spec{
		Name: "add_role", Category: categoryRoles,
		Description: "Create a new role",
		Usage:       "add_role <name>",
		Capability:  discordgo.PermissionManageRoles,
		Params:      []command.Param{{Name: "name", Kind: command.KindRest, Required: true}},
		Run:         b.cmdAddRole,
	})
	r.Register(command.Spec{
		Name: "deleterole", Category: categoryRoles,
		Description: "Delete a role",
		Usage:       "deleterole <role>",
		Capability:  discordgo.PermissionManageRoles,
		Params:      []command.Param{{Name: "role", Kind: command.KindRole, Required: true}},
		Run:         b.cmdDeleteRole,
	})
	r.Register(command.Spec{
		Name: "renamerole", Category: categoryRoles,
		Description: "Rename a role",
		Usage:       "renamerole <role> <name>",
		Capability:  discordgo.PermissionManageRoles,
		Params: []command.Param{
			{Name: "role", Kind: command.KindRole, Required: true},
			{Name: "name", Kind: command.KindRest, Required: true},
		},
		Run: b.cmdRenameRole,
	})
	r.Register(command.Spec{
		Name: "addrole", Category: categoryRoles,
		Description: "Give a role to a member",
		Usage:       "addrole <member> <role>",
		Capability:  discordgo.PermissionManageRoles,
		Params: []command.Param{
			{Name: "member", Kind: command.KindMember, Required: true},
			{Name: "role", Kind: command.KindRole, Required: true},
		},
		Run: b.cmdGiveRole,
	})
	r.Register(command.Spec{
		Name: "removerole", Category: categoryRoles,
		Description: "Take a role from a member",
		Usage:       "removerole <member> <role>",
		Capability:  discordgo.PermissionManageRoles,
		Params: []command.Param{
			{Name: "member", Kind: command.KindMember, Required: true},
			{Name: "role", Kind: command.KindRole, Required: true},
		},
		Run: b.cmdTakeRole,
	})
	r.Register(command.Spec{
		Name: "temprole", Category: categoryRoles,
		Description: "Give a role that expires after a duration",
		Usage:       "temprole <member> <role> <duration>",
		Capability:  discordgo.PermissionManageRoles,
		Params: []command.Param{
			{Name: "member", Kind: command.KindMember, Required: true},
			{Name: "role", Kind: command.KindRole, Required: true},
			{Name: "duration", Kind: command.KindDuration, Required: true},
		},
		Run: b.cmdTempRole,
	})
	r.Register(command.Spec{
		Name: "massrole", Category: categoryRoles,
		Description: "Give a role to every member",
		Usage:       "massrole <role>",
		Capability:  discordgo.PermissionManageRoles,
		Params:      []command.Param{{Name: "role", Kind: command.KindRole, Required: true}},
		Run:         b.cmdMassRole,
	})
	r.Register(command.Spec{
		Name: "roleinfo", Category: categoryRoles,
		Description: "Show information about a role",
		Usage:       "roleinfo <role>",
		Params:      []command.Param{{Name: "role", Kind: command.KindRole, Required: true}},
		Run:         b.cmdRoleInfo,
	})
	r.Register(command.Spec{
		Name: "addtext", Category: categoryRoles,
		Description: "Create a text channel under a category",
		Usage:       "addtext <category> <name>",
		Capability:  discordgo.PermissionManageChannels,
		Params: []command.Param{
			{Name: "category", Kind: command.KindChannel, Required: true},
			{Name: "name", Kind: command.KindRest, Required: true},
		},
		Run: b.cmdAddText,
	})
	r.Register(command.Spec{
		Name: "addvoice", Category: categoryRoles,
		Description: "Create a voice channel under a category",
		Usage:       "addvoice <category> <name>",
		Capability:  discordgo.PermissionManageChannels,
		Params: []command.Param{
			{Name: "category", Kind: command.KindChannel, Required: true},
			{Name: "name", Kind: command.KindRest, Required: true},
		},
		Run: b.cmdAddVoice,
	})
	r.Register(command.Spec{
		Name: "deletechannel", Category: categoryRoles,
		Description: "Delete a channel",
		Usage:       "deletechannel <channel>",
		Capability:  discordgo.PermissionManageChannels,
		Params:      []command.Param{{Name: "channel", Kind: command.KindChannel, Required: true}},
		Run:         b.cmdDeleteChannel,
	})
	r.Register(command.Spec{
		Name: "renamechannel", Category: categoryRoles,
		Description: "Rename a channel",
		Usage:       "renamechannel <channel> <name>",
		Capability:  discordgo.PermissionManageChannels,
		Params: []command.Param{
			{Name: "channel", Kind: command.KindChannel, Required: true},
			{Name: "name", Kind: command.KindRest, Required: true},
		},
		Run: b.cmdRenameChannel,
	})
	r.Register(command.Spec{
		Name: "reactionrole", Category: categoryRoles,
		Description: "Manage emoji reaction roles",
		Usage:       "reactionrole <add|list|remove|clear> [args]",
		Capability:  discordgo.PermissionManageRoles,
		Params: []command.Param{
			{Name: "action", Kind: command.KindString, Required: true},
			{Name: "args", Kind: command.KindRest},
		},
		Run: b.cmdReactionRole,
	})
}

func (b *Bot) cmdHelp(s *discordgo.Session, m *discordgo.MessageCreate, args command.Args) error {
	category := args.String("category")
	if category == "" {
		categories := b.registry.Categories()
		lines := make([]string, 0, len(categories))
		for _, name := range categories {
			lines = append(lines, fmt.Sprintf("`%shelp %s`", b.cfg.Prefix, strings.ToLower(name)))
		}
		b.sendInfo(m.ChannelID, "Help",
			"Pick a category:\n"+strings.Join(lines, "\n"))
		return nil
	}

	matched := ""
	for _, name := range b.registry.Categories() {
		if strings.EqualFold(name, category) {
			matched = name
			break
		}
	}
	if matched == "" {
		b.sendError(m.ChannelID, fmt.Sprintf("No category named `%s`.", category))
		return nil
	}

	page, ok := b.registry.Help(matched, 0)
	if !ok {
		b.sendError(m.ChannelID, fmt.Sprintf("No category named `%s`.", category))
		return nil
	}

	msg, err := s.ChannelMessageSendComplex(m.ChannelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{b.buildHelpEmbed(page)},
		Components: helpComponents(),
	})
	if err != nil || msg == nil {
		return err
	}

	b.helpMu.Lock()
	b.pruneHelpViews(time.Now())
	b.helpView[msg.ID] = &helpState{authorID: m.Author.ID, category: matched, created: time.Now()}
	b.helpMu.Unlock()
	return nil
}

func (b *Bot) buildHelpEmbed(page command.HelpPage) *discordgo.MessageEmbed {
	fields := make([]*discordgo.MessageEmbedField, 0, len(page.Entries))
	for _, entry := range page.Entries {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  b.cfg.Prefix + entry.Usage,
			Value: entry.Description,
		})
	}
	return &discordgo.MessageEmbed{
		Title:  page.Category + " commands",
		Color:  b.cfg.Notifications.EmbedColors.Info,
		Fields: fields,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Page %d/%d", page.Page+1, page.TotalPages),
		},
	}
}

func helpComponents() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{Label: "Prev", Style: discordgo.SecondaryButton, CustomID: "help:prev"},
				discordgo.Button{Label: "Next", Style: discordgo.SecondaryButton, CustomID: "help:next"},
			},
		},
	}
}

func (b *Bot) cmdPing(s *discordgo.Session, m *discordgo.MessageCreate, args command.Args) error {
	b.sendSuccess(m.ChannelID, fmt.Sprintf("Pong! Gateway latency: %s", s.HeartbeatLatency().Round(time.Millisecond)))
	return nil
}

func (b *Bot) cmdBotInfo(s *discordgo.Session, m *discordgo.MessageCreate, args command.Args) error {
	counts := b.stats.Counts()
	system := b.stats.System()

	embed := &discordgo.MessageEmbed{
		Title: "Bot info",
		Color: b.cfg.Notifications.EmbedColors.Info,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Servers", Value: fmt.Sprintf("%d", counts.Guilds), Inline: true},
			{Name: "Users", Value: fmt.Sprintf("%d", counts.Users), Inline: true},
			{Name: "Uptime", Value: formatRemaining(counts.Uptime), Inline: true},
			{Name: "Go version", Value: system.GoVersion, Inline: true},
			{Name: "Goroutines", Value: fmt.Sprintf("%d", system.Goroutines), Inline: true},
			{Name: "CPU", Value: fmt.Sprintf("%d cores, %.1f%%", system.CPUCount, system.CPUPercent), Inline: true},
			{Name: "Memory", Value: fmt.Sprintf("%.1f%% (%d MB / %d MB)", system.MemPercent, system.MemUsedMB, system.MemTotalMB), Inline: true},
			{Name: "Latency", Value: s.HeartbeatLatency().Round(time.Millisecond).String(), Inline: true},
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
	if system.Platform != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Host", Value: system.Platform, Inline: true,
		})
	}
	b.sendEmbed(m.ChannelID, embed)
	return nil
}

func (b *Bot) cmdInvite(s *discordgo.Session, m *discordgo.MessageCreate, args command.Args) error {
	url := fmt.Sprintf("https://discord.com/oauth2/authorize?client_id=%s&scope=bot&permissions=8", b.botUserID())
	message := fmt.Sprintf("[Invite me to your server](%s)", url)
	if b.cfg.SupportServer != "" {
		message += fmt.Sprintf("\n[Support server](%s)", b.cfg.SupportServer)
	}
	b.sendInfo(m.ChannelID, "Invite", message)
	return nil
}

func (b *Bot) cmdServerInfo(s *discordgo.Session, m *discordgo.MessageCreate, args command.Args) error {
	guild := b.guild(m.GuildID)
	if guild == nil {
		b.sendError(m.ChannelID, "Could not load this server.")
		return nil
	}

	textChannels, voiceChannels := 0, 0
	for _, channel := range guild.Channels {
		switch channel.Type {
		case discordgo.ChannelTypeGuildText:
			textChannels++
		case discordgo.ChannelTypeGuildVoice:
			voiceChannels++
		}
	}

	embed := &discordgo.MessageEmbed{
		Title: guild.Name,
		Color: b.cfg.Notifications.EmbedColors.Info,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Owner", Value: mention(guild.OwnerID), Inline: true},
			{Name: "Members", Value: fmt.Sprintf("%d", guild.MemberCount), Inline: true},
			{Name: "Roles", Value: fmt.Sprintf("%d", len(guild.Roles)), Inline: true},
			{Name: "Text channels", Value: fmt.Sprintf("%d", textChannels), Inline: true},
			{Name: "Voice channels", Value: fmt.Sprintf("%d", voiceChannels), Inline: true},
			{Name: "Created", Value: creationTime(guild.ID), Inline: true},
		},
	}
	if guild.Icon != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: guild.IconURL("")}
	}
	b.sendEmbed(m.ChannelID, embed)
	return nil
}

func (b *Bot) cmdUserInfo(s *discordgo.Session, m *discordgo.MessageCreate, args command.Args) error {
	member := args.Member("member")
	if member == nil {
		member = b.member(m.GuildID, m.Author.ID)
	}
	if member == nil || member.User == nil {
		b.sendError(m.ChannelID, "Could not load that member.")
		return nil
	}

	roles := make([]string, 0, len(member.Roles))
	for _, roleID := range member.Roles {
		roles = append(roles, "<@&"+roleID+">")
	}
	roleValue := "None"
	if len(roles) > 0 {
		roleValue = strings.Join(roles, " ")
	}
	joined := "Unknown"
	if !member.JoinedAt.IsZero() {
		joined = member.JoinedAt.Format("2006-01-02")
	}

	b.sendEmbed(m.ChannelID, &discordgo.MessageEmbed{
		Title:     member.User.Username,
		Color:     b.cfg.Notifications.EmbedColors.Info,
		Thumbnail: &discordgo.MessageEmbedThumbnail{URL: member.User.AvatarURL("")},
		Fields: []*discordgo.MessageEmbedField{
			{Name: "ID", Value: member.User.ID, Inline: true},
			{Name: "Joined", Value: joined, Inline: true},
			{Name: "Account created", Value: creationTime(member.User.ID), Inline: true},
			{Name: "Warnings", Value: fmt.Sprintf("%d", b.warnings.Count(m.GuildID, member.User.ID)), Inline: true},
			{Name: "Roles", Value: roleValue, Inline: false},
		},
	})
	return nil
}

func (b *Bot) cmdSay(s *discordgo.Session, m *discordgo.MessageCreate, args command.Args) error {
	_ = s.ChannelMessageDelete(m.ChannelID, m.ID)
	b.sendText(m.ChannelID, args.String("text"))
	return nil
}

func (b *Bot) cmdClear(s *discordgo.Session, m *discordgo.MessageCreate, args command.Args) error {
	count := args.Int("count")
	if count < 1 {
		count = 1
	}
	if count > 100 {
		count = 100
	}

	messages, err := s.ChannelMessages(m.ChannelID, count, m.ID, "", "")
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(messages))
	for _, message := range messages {
		ids = append(ids, message.ID)
	}
	_ = s.ChannelMessageDelete(m.ChannelID, m.ID)
	if len(ids) == 0 {
		return nil
	}
	if err := s.ChannelMessagesBulkDelete(m.ChannelID, ids); err != nil {
		return err
	}
	b.sendSuccess(m.ChannelID, fmt.Sprintf("Deleted %d messages.", len(ids)))
	return nil
}

func creationTime(snowflake string) string {
	ts, err := discordgo.SnowflakeTimestamp(snowflake)
	if err != nil {
		return "Unknown"
	}
	return ts.Format("2006-01-02")
}
