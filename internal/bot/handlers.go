package bot

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SX2s/SX2-Enforcer/internal/command"
	"github.com/SX2s/SX2-Enforcer/internal/perm"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("discord ready",
		zap.String("user", session.State.User.Username),
		zap.Int("guilds", len(event.Guilds)))
	b.refreshStats()
}

func (b *Bot) onMessageCreate(session *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	if m.GuildID == "" {
		return
	}

	// Wizard prompts consume the author's next message before dispatch.
	if b.deliverToWaiter(m) {
		return
	}

	verb, tokens, ok := command.Split(m.Content, b.cfg.Prefix)
	if !ok {
		return
	}
	b.dispatch(session, m, verb, tokens)
}

// dispatch resolves, authorizes, parses, and runs one command. Every
// failure is rendered to the invoking channel; nothing propagates.
func (b *Bot) dispatch(session *discordgo.Session, m *discordgo.MessageCreate, verb string, tokens []string) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("command handler panicked",
				zap.String("command", verb),
				zap.Any("panic", r))
			b.sendError(m.ChannelID, "Something went wrong while running that command.")
		}
	}()

	spec, ok := b.registry.Lookup(verb)
	if !ok {
		err := &command.UnknownCommandError{Name: verb, Suggestion: b.registry.Suggest(verb)}
		b.renderCommandError(m.ChannelID, err)
		return
	}

	if spec.Capability != 0 {
		guild := b.guild(m.GuildID)
		member := m.Member
		if member != nil && member.User == nil {
			member.User = m.Author
		}
		if member == nil {
			member = b.member(m.GuildID, m.Author.ID)
		}
		if !perm.HasCapability(guild, member, spec.Capability) {
			b.sendError(m.ChannelID, "You do not have permission to use this command.")
			return
		}
	}

	args, err := command.Parse(spec, tokens, guildResolver{b: b, guildID: m.GuildID})
	if err != nil {
		b.renderCommandError(m.ChannelID, err)
		return
	}

	if err := spec.Run(session, m, args); err != nil {
		b.renderRunError(m.ChannelID, verb, err)
	}
}

func (b *Bot) renderCommandError(channelID string, err error) {
	var missing *command.MissingArgumentError
	var bad *command.BadArgumentError
	var unknown *command.UnknownCommandError

	switch {
	case errors.As(err, &missing):
		b.sendError(channelID, fmt.Sprintf("Missing required argument `%s`.", missing.Param))
	case errors.As(err, &bad):
		b.sendError(channelID, fmt.Sprintf("Could not understand `%s` for `%s`.", bad.Value, bad.Param))
	case errors.As(err, &unknown):
		message := fmt.Sprintf("Unknown command `%s`.", unknown.Name)
		if unknown.Suggestion != "" {
			message += fmt.Sprintf(" Did you mean `%s%s`?", b.cfg.Prefix, unknown.Suggestion)
		}
		b.sendError(channelID, message)
	default:
		b.sendError(channelID, "Could not process that command.")
	}
}

func (b *Bot) renderRunError(channelID, verb string, err error) {
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil {
		switch rest.Response.StatusCode {
		case 403:
			b.sendError(channelID, "I do not have permission to do that.")
			return
		case 404:
			b.sendError(channelID, "The target no longer exists.")
			return
		}
	}
	b.logger.Error("command failed", zap.String("command", verb), zap.Error(err))
	b.sendError(channelID, "An unexpected error occurred.")
}

func (b *Bot) onGuildMemberAdd(session *discordgo.Session, event *discordgo.GuildMemberAdd) {
	if event.Member == nil || event.Member.User == nil || event.GuildID == "" {
		return
	}
	channel := b.channelByName(event.GuildID, b.cfg.WelcomeChannel)
	if channel == nil {
		return
	}

	guild := b.guild(event.GuildID)
	guildName := event.GuildID
	if guild != nil {
		guildName = guild.Name
	}
	b.sendEmbed(channel.ID, &discordgo.MessageEmbed{
		Title:       "Welcome!",
		Description: fmt.Sprintf("Welcome to **%s**, %s!", guildName, event.Member.User.Mention()),
		Color:       b.cfg.Notifications.EmbedColors.Success,
		Thumbnail:   &discordgo.MessageEmbedThumbnail{URL: event.Member.User.AvatarURL("")},
	})
}

// onGuildMemberUpdate notifies a member by DM when their role set changes.
func (b *Bot) onGuildMemberUpdate(session *discordgo.Session, event *discordgo.GuildMemberUpdate) {
	if event.Member == nil || event.Member.User == nil || event.BeforeUpdate == nil {
		return
	}
	if event.Member.User.Bot {
		return
	}

	added, removed := diffRoles(event.BeforeUpdate.Roles, event.Member.Roles)
	for _, roleID := range added {
		if role := b.roleByID(event.GuildID, roleID); role != nil {
			b.dmUser(event.Member.User.ID, fmt.Sprintf("You were given the role **%s**.", role.Name))
		}
	}
	for _, roleID := range removed {
		if role := b.roleByID(event.GuildID, roleID); role != nil {
			b.dmUser(event.Member.User.ID, fmt.Sprintf("Your role **%s** was removed.", role.Name))
		}
	}
}

func diffRoles(before, after []string) (added, removed []string) {
	beforeSet := make(map[string]struct{}, len(before))
	for _, id := range before {
		beforeSet[id] = struct{}{}
	}
	afterSet := make(map[string]struct{}, len(after))
	for _, id := range after {
		afterSet[id] = struct{}{}
	}
	for _, id := range after {
		if _, ok := beforeSet[id]; !ok {
			added = append(added, id)
		}
	}
	for _, id := range before {
		if _, ok := afterSet[id]; !ok {
			removed = append(removed, id)
		}
	}
	return added, removed
}

func (b *Bot) onReactionAdd(session *discordgo.Session, event *discordgo.MessageReactionAdd) {
	if event.GuildID == "" {
		return
	}
	b.reactions.HandleAdd(b.reactionPlatform(), event.GuildID, event.MessageID, event.Emoji.APIName(), event.UserID)
}

func (b *Bot) onReactionRemove(session *discordgo.Session, event *discordgo.MessageReactionRemove) {
	if event.GuildID == "" {
		return
	}
	b.reactions.HandleRemove(b.reactionPlatform(), event.GuildID, event.MessageID, event.Emoji.APIName(), event.UserID)
}

func (b *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if interaction.Type != discordgo.InteractionMessageComponent {
		return
	}
	if interaction.Message == nil || interaction.Member == nil || interaction.Member.User == nil {
		return
	}

	customID := interaction.MessageComponentData().CustomID
	if !strings.HasPrefix(customID, "help:") {
		return
	}

	b.helpMu.Lock()
	state := b.helpView[interaction.Message.ID]
	if state != nil && time.Since(state.created) > helpViewTTL {
		delete(b.helpView, interaction.Message.ID)
		state = nil
	}
	if state == nil {
		b.helpMu.Unlock()
		b.respond(session, interaction, "This help menu has expired.", true)
		return
	}
	if interaction.Member.User.ID != state.authorID {
		b.helpMu.Unlock()
		b.respond(session, interaction, "Only the member who asked for help can turn these pages.", true)
		return
	}

	switch customID {
	case "help:prev":
		state.page--
	case "help:next":
		state.page++
	}
	page, ok := b.registry.Help(state.category, state.page)
	if ok {
		state.page = page.Page
	}
	b.helpMu.Unlock()

	if !ok {
		b.respond(session, interaction, "This help menu has expired.", true)
		return
	}

	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{b.buildHelpEmbed(page)},
			Components: helpComponents(),
		},
	})
}

func (b *Bot) respond(session *discordgo.Session, interaction *discordgo.InteractionCreate, content string, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   flags,
		},
	})
}
