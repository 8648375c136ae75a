package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/SX2s/SX2-Enforcer/internal/command"
	"github.com/SX2s/SX2-Enforcer/internal/setup"

	"github.com/bwmarrin/discordgo"
)

var (
	errWizardCancelled = errors.New("wizard cancelled")
	errWizardTimeout   = errors.New("wizard timed out")
)

// wizardRun carries the state of one interactive setupserver conversation.
type wizardRun struct {
	bot     *Bot
	m       *discordgo.MessageCreate
	session *setup.Session
	timeout time.Duration
}

// prompt asks a question and waits for the author's next message in the same
// channel. Cancel keywords abort the whole run from any step.
func (w *wizardRun) prompt(question string) (string, error) {
	w.bot.sendInfo(w.m.ChannelID, "Server setup", question)
	reply, ok := w.bot.awaitMessage(w.m.ChannelID, w.m.Author.ID, w.timeout)
	if !ok {
		return "", errWizardTimeout
	}
	content := strings.TrimSpace(reply.Content)
	if setup.IsCancel(content) {
		return "", errWizardCancelled
	}
	return content, nil
}

func (w *wizardRun) promptInt(question string, min, max int) (int, error) {
	for {
		reply, err := w.prompt(question)
		if err != nil {
			return 0, err
		}
		n, convErr := strconv.Atoi(reply)
		if convErr != nil || n < min || n > max {
			w.bot.sendError(w.m.ChannelID, fmt.Sprintf("Please answer with a number between %d and %d.", min, max))
			continue
		}
		return n, nil
	}
}

// save persists the in-progress session so a restart resumes mid-wizard.
func (w *wizardRun) save() {
	w.bot.sessions.Put(w.m.GuildID, w.session)
}

func (b *Bot) cmdSetupServer(s *discordgo.Session, m *discordgo.MessageCreate, args command.Args) error {
	run := &wizardRun{
		bot:     b,
		m:       m,
		session: &setup.Session{},
		timeout: time.Duration(b.cfg.Setup.WizardTimeoutSeconds) * time.Second,
	}

	if existing, ok := b.sessions.Session(m.GuildID); ok && !existing.Finished {
		reply, err := run.prompt("An unfinished setup session exists for this server. Resume it? (yes/no)")
		if err != nil {
			return run.finish(err)
		}
		if setup.IsYes(reply) {
			run.session = existing
		} else {
			b.sessions.Delete(m.GuildID)
		}
	}

	if err := run.collect(); err != nil {
		return run.finish(err)
	}
	return run.finish(run.confirmAndCreate())
}

func (w *wizardRun) finish(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errWizardCancelled):
		w.bot.sessions.Delete(w.m.GuildID)
		w.bot.sendInfo(w.m.ChannelID, "Server setup", "Setup cancelled. Nothing was created.")
		return nil
	case errors.Is(err, errWizardTimeout):
		w.bot.sendInfo(w.m.ChannelID, "Server setup",
			fmt.Sprintf("Timed out waiting for a reply. Your progress is saved; run `%ssetupserver` to resume.", w.bot.cfg.Prefix))
		return nil
	default:
		return err
	}
}

// collect walks the remaining steps, skipping anything the resumed session
// already answered.
func (w *wizardRun) collect() error {
	if len(w.session.Roles) == 0 {
		count, err := w.promptInt("How many roles should I create? (0-25)", 0, 25)
		if err != nil {
			return err
		}
		for len(w.session.Roles) < count {
			name, err := w.prompt(fmt.Sprintf("Name for role %d of %d?", len(w.session.Roles)+1, count))
			if err != nil {
				return err
			}
			w.session.Roles = append(w.session.Roles, name)
			w.save()
		}
	}

	if len(w.session.Categories) == 0 {
		count, err := w.promptInt("How many categories should I create? (0-15)", 0, 15)
		if err != nil {
			return err
		}
		for len(w.session.Categories) < count {
			category, err := w.collectCategory(len(w.session.Categories)+1, count)
			if err != nil {
				return err
			}
			w.session.Categories = append(w.session.Categories, *category)
			w.save()
		}
	}
	return nil
}

func (w *wizardRun) collectCategory(index, total int) (*setup.Category, error) {
	name, err := w.prompt(fmt.Sprintf("Name for category %d of %d?", index, total))
	if err != nil {
		return nil, err
	}
	category := &setup.Category{Name: name}

	text, err := w.prompt("Text channels for this category, comma separated? (`none` for none)")
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(text, "none") {
		category.TextChannels = setup.ParseRoleList(text)
	}

	voice, err := w.prompt("Voice channels for this category, comma separated? (`none` for none)")
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(voice, "none") {
		category.VoiceChannels = setup.ParseRoleList(voice)
	}

	allow, err := w.prompt("Which roles may view this category, comma separated? (`everyone` for all)")
	if err != nil {
		return nil, err
	}
	category.Permissions.Allow = setup.ParseRoleList(allow)

	deny, err := w.prompt("Any roles to explicitly deny, comma separated? (`none` for none)")
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(deny, "none") {
		category.Permissions.Deny = setup.ParseRoleList(deny)
	}
	return category, nil
}

func (w *wizardRun) confirmAndCreate() error {
	w.bot.sendEmbed(w.m.ChannelID, w.bot.buildSetupSummary(w.session))
	w.bot.sendInfo(w.m.ChannelID, "Server setup",
		fmt.Sprintf("Reply `confirm` within %d seconds to create everything, or `cancel` to discard.", w.bot.cfg.Setup.ConfirmTimeoutSeconds))

	reply, ok := w.bot.awaitMessage(w.m.ChannelID, w.m.Author.ID,
		time.Duration(w.bot.cfg.Setup.ConfirmTimeoutSeconds)*time.Second)
	if !ok {
		return errWizardTimeout
	}
	content := strings.TrimSpace(reply.Content)
	if setup.IsCancel(content) {
		return errWizardCancelled
	}
	if !setup.IsConfirm(content) {
		// Not a confirmation: keep the session so the run can be resumed.
		w.save()
		w.bot.sendInfo(w.m.ChannelID, "Server setup",
			fmt.Sprintf("Not confirmed. Your plan is saved; run `%ssetupserver` or `%ssetup confirm` when ready.",
				w.bot.cfg.Prefix, w.bot.cfg.Prefix))
		return nil
	}

	w.bot.runSetupCreation(w.m, w.session)
	return nil
}

// runSetupCreation materializes the plan and reports the result.
func (b *Bot) runSetupCreation(m *discordgo.MessageCreate, session *setup.Session) {
	result := setup.Create(b.setupPlatform(), m.GuildID, session)
	b.sessions.Put(m.GuildID, session)

	summary := fmt.Sprintf("Created %d roles, %d categories, and %d channels.",
		result.RolesCreated, result.CategoriesMade, result.ChannelsCreated)
	if result.Skipped > 0 {
		summary += fmt.Sprintf(" Skipped %d that already existed.", result.Skipped)
	}
	if result.Failures > 0 {
		summary += fmt.Sprintf(" %d creations failed; see the mod log.", result.Failures)
	}
	b.sendSuccess(m.ChannelID, summary)
}

func (b *Bot) buildSetupSummary(session *setup.Session) *discordgo.MessageEmbed {
	roles := "None"
	if len(session.Roles) > 0 {
		roles = strings.Join(session.Roles, ", ")
	}
	fields := []*discordgo.MessageEmbedField{
		{Name: "Roles", Value: roles},
	}
	for _, category := range session.Categories {
		var lines []string
		if len(category.TextChannels) > 0 {
			lines = append(lines, "Text: "+strings.Join(category.TextChannels, ", "))
		}
		if len(category.VoiceChannels) > 0 {
			lines = append(lines, "Voice: "+strings.Join(category.VoiceChannels, ", "))
		}
		if len(category.Permissions.Allow) > 0 {
			lines = append(lines, "Visible to: "+strings.Join(category.Permissions.Allow, ", "))
		}
		if len(category.Permissions.Deny) > 0 {
			lines = append(lines, "Denied: "+strings.Join(category.Permissions.Deny, ", "))
		}
		value := "No channels"
		if len(lines) > 0 {
			value = strings.Join(lines, "\n")
		}
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  "Category: " + category.Name,
			Value: value,
		})
	}
	return &discordgo.MessageEmbed{
		Title:  "Setup plan",
		Color:  b.cfg.Notifications.EmbedColors.Info,
		Fields: fields,
	}
}

// cmdSetup edits the saved session one field at a time, without the
// conversational flow.
func (b *Bot) cmdSetup(s *discordgo.Session, m *discordgo.MessageCreate, args command.Args) error {
	action := strings.ToLower(args.String("action"))
	rest := strings.TrimSpace(args.String("args"))

	if action == "template" {
		return b.setupTemplate(m, rest)
	}

	session, ok := b.sessions.Session(m.GuildID)
	if !ok {
		session = &setup.Session{}
	}

	switch action {
	case "addrole":
		if rest == "" {
			b.sendError(m.ChannelID, fmt.Sprintf("Usage: `%ssetup addrole <name>[, <name>...]`", b.cfg.Prefix))
			return nil
		}
		names := setup.ParseRoleList(rest)
		session.Roles = append(session.Roles, names...)
		session.Finished = false
		b.sessions.Put(m.GuildID, session)
		b.sendSuccess(m.ChannelID, fmt.Sprintf("Added %d roles to the plan.", len(names)))

	case "addcategory":
		if rest == "" {
			b.sendError(m.ChannelID, fmt.Sprintf("Usage: `%ssetup addcategory <name>`", b.cfg.Prefix))
			return nil
		}
		session.Categories = append(session.Categories, setup.Category{Name: rest})
		session.Finished = false
		b.sessions.Put(m.GuildID, session)
		b.sendSuccess(m.ChannelID, fmt.Sprintf("Added category **%s** to the plan.", rest))

	case "addchannel":
		parts := strings.Fields(rest)
		if len(parts) < 3 || (parts[1] != "text" && parts[1] != "voice") {
			b.sendError(m.ChannelID, fmt.Sprintf("Usage: `%ssetup addchannel <category> <text|voice> <name>`", b.cfg.Prefix))
			return nil
		}
		category := findCategory(session, parts[0])
		if category == nil {
			b.sendError(m.ChannelID, fmt.Sprintf("The plan has no category named `%s`.", parts[0]))
			return nil
		}
		name := strings.Join(parts[2:], " ")
		if parts[1] == "voice" {
			category.VoiceChannels = append(category.VoiceChannels, name)
		} else {
			category.TextChannels = append(category.TextChannels, name)
		}
		session.Finished = false
		b.sessions.Put(m.GuildID, session)
		b.sendSuccess(m.ChannelID, fmt.Sprintf("Added %s channel **%s** under **%s**.", parts[1], name, category.Name))

	case "permissions":
		parts := strings.SplitN(rest, " ", 3)
		if len(parts) < 3 || (parts[1] != "allow" && parts[1] != "deny") {
			b.sendError(m.ChannelID, fmt.Sprintf("Usage: `%ssetup permissions <category> <allow|deny> <role>[, <role>...]`", b.cfg.Prefix))
			return nil
		}
		category := findCategory(session, parts[0])
		if category == nil {
			b.sendError(m.ChannelID, fmt.Sprintf("The plan has no category named `%s`.", parts[0]))
			return nil
		}
		names := setup.ParseRoleList(parts[2])
		if parts[1] == "allow" {
			category.Permissions.Allow = append(category.Permissions.Allow, names...)
		} else {
			category.Permissions.Deny = append(category.Permissions.Deny, names...)
		}
		session.Finished = false
		b.sessions.Put(m.GuildID, session)
		b.sendSuccess(m.ChannelID, fmt.Sprintf("Updated permissions for **%s**.", category.Name))

	case "summary":
		if len(session.Roles) == 0 && len(session.Categories) == 0 {
			b.sendInfo(m.ChannelID, "Server setup", "The plan is empty.")
			return nil
		}
		b.sendEmbed(m.ChannelID, b.buildSetupSummary(session))

	case "confirm":
		if len(session.Roles) == 0 && len(session.Categories) == 0 {
			b.sendError(m.ChannelID, "The plan is empty; nothing to create.")
			return nil
		}
		b.runSetupCreation(m, session)

	case "cancel":
		if b.sessions.Delete(m.GuildID) {
			b.sendSuccess(m.ChannelID, "Setup session discarded.")
		} else {
			b.sendInfo(m.ChannelID, "Server setup", "There is no setup session for this server.")
		}

	default:
		b.sendError(m.ChannelID, "Available actions: `addrole`, `addcategory`, `addchannel`, `permissions`, `summary`, `confirm`, `cancel`, `template`.")
	}
	return nil
}

func (b *Bot) setupTemplate(m *discordgo.MessageCreate, rest string) error {
	parts := strings.Fields(rest)
	if len(parts) == 0 {
		b.sendError(m.ChannelID, fmt.Sprintf("Usage: `%ssetup template <save|use|list|delete> [name]`", b.cfg.Prefix))
		return nil
	}

	switch strings.ToLower(parts[0]) {
	case "list":
		names := b.sessions.TemplateNames()
		if len(names) == 0 {
			b.sendInfo(m.ChannelID, "Templates", "No templates saved.")
			return nil
		}
		b.sendInfo(m.ChannelID, "Templates", "`"+strings.Join(names, "`, `")+"`")

	case "save":
		if len(parts) < 2 {
			b.sendError(m.ChannelID, "Give the template a name.")
			return nil
		}
		session, ok := b.sessions.Session(m.GuildID)
		if !ok || (len(session.Roles) == 0 && len(session.Categories) == 0) {
			b.sendError(m.ChannelID, "There is no plan to save.")
			return nil
		}
		b.sessions.SaveTemplate(parts[1], session)
		b.sendSuccess(m.ChannelID, fmt.Sprintf("Saved the current plan as template `%s`.", parts[1]))

	case "use":
		if len(parts) < 2 {
			b.sendError(m.ChannelID, "Which template?")
			return nil
		}
		template, ok := b.sessions.Template(parts[1])
		if !ok {
			b.sendError(m.ChannelID, fmt.Sprintf("No template named `%s`.", parts[1]))
			return nil
		}
		template.Finished = false
		b.sessions.Put(m.GuildID, template)
		b.sendSuccess(m.ChannelID,
			fmt.Sprintf("Loaded template `%s`. Review it with `%ssetup summary`, then `%ssetup confirm`.",
				parts[1], b.cfg.Prefix, b.cfg.Prefix))

	case "delete":
		if len(parts) < 2 {
			b.sendError(m.ChannelID, "Which template?")
			return nil
		}
		if b.sessions.DeleteTemplate(parts[1]) {
			b.sendSuccess(m.ChannelID, fmt.Sprintf("Deleted template `%s`.", parts[1]))
		} else {
			b.sendError(m.ChannelID, fmt.Sprintf("No template named `%s`.", parts[1]))
		}

	default:
		b.sendError(m.ChannelID, "Available template actions: `save`, `use`, `list`, `delete`.")
	}
	return nil
}

func findCategory(session *setup.Session, name string) *setup.Category {
	for i := range session.Categories {
		if strings.EqualFold(session.Categories[i].Name, name) {
			return &session.Categories[i]
		}
	}
	return nil
}
