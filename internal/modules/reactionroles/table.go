package reactionroles

import (
	"sync"

	"github.com/SX2s/SX2-Enforcer/internal/store"
)

const documentName = "reaction_roles.json"

// Platform is the slice of the chat platform the reaction handlers need.
// The production implementation is backed by the live session; tests use
// an in-memory fake.
type Platform interface {
	RoleExists(guildID, roleID string) bool
	IsBot(guildID, userID string) bool
	GrantRole(guildID, userID, roleID string) error
	RevokeRole(guildID, userID, roleID string) error
	NotifyMember(userID, message string)
}

// Table maps message IDs to emoji-to-role bindings. Entries referencing a
// role deleted on the platform side stay in the table and no-op until an
// operator removes them.
type Table struct {
	mu       sync.RWMutex
	mappings map[string]map[string]string
	docs     *store.Store
}

func New(docs *store.Store) (*Table, error) {
	t := &Table{
		mappings: make(map[string]map[string]string),
		docs:     docs,
	}
	if err := docs.Load(documentName, &t.mappings); err != nil {
		return nil, err
	}
	if t.mappings == nil {
		t.mappings = make(map[string]map[string]string)
	}
	docs.RegisterSnapshot(documentName, t.save)
	return t, nil
}

func (t *Table) Add(messageID, emoji, roleID string) {
	t.mu.Lock()
	entry := t.mappings[messageID]
	if entry == nil {
		entry = make(map[string]string)
		t.mappings[messageID] = entry
	}
	entry[emoji] = roleID
	t.mu.Unlock()

	_ = t.save()
}

// Remove deletes one binding, pruning the message entry when it empties.
func (t *Table) Remove(messageID, emoji string) bool {
	t.mu.Lock()
	entry := t.mappings[messageID]
	_, existed := entry[emoji]
	if existed {
		delete(entry, emoji)
		if len(entry) == 0 {
			delete(t.mappings, messageID)
		}
	}
	t.mu.Unlock()

	if existed {
		_ = t.save()
	}
	return existed
}

// Clear deletes every binding for a message.
func (t *Table) Clear(messageID string) bool {
	t.mu.Lock()
	_, existed := t.mappings[messageID]
	delete(t.mappings, messageID)
	t.mu.Unlock()

	if existed {
		_ = t.save()
	}
	return existed
}

// All returns a deep copy of the full table for rendering.
func (t *Table) All() map[string]map[string]string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]map[string]string, len(t.mappings))
	for messageID, entry := range t.mappings {
		copied := make(map[string]string, len(entry))
		for emoji, roleID := range entry {
			copied[emoji] = roleID
		}
		out[messageID] = copied
	}
	return out
}

func (t *Table) lookup(messageID, emoji string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	roleID, ok := t.mappings[messageID][emoji]
	return roleID, ok
}

// HandleAdd grants the bound role when a tracked reaction is added.
// Unknown messages, unknown emoji, missing roles, and bot reactions all
// fall through silently.
func (t *Table) HandleAdd(p Platform, guildID, messageID, emoji, userID string) {
	roleID, ok := t.lookup(messageID, emoji)
	if !ok {
		return
	}
	if p.IsBot(guildID, userID) {
		return
	}
	if !p.RoleExists(guildID, roleID) {
		return
	}
	if err := p.GrantRole(guildID, userID, roleID); err != nil {
		return
	}
	p.NotifyMember(userID, "You have been given a role for reacting with "+emoji+".")
}

// HandleRemove revokes the bound role when a tracked reaction is removed.
func (t *Table) HandleRemove(p Platform, guildID, messageID, emoji, userID string) {
	roleID, ok := t.lookup(messageID, emoji)
	if !ok {
		return
	}
	if p.IsBot(guildID, userID) {
		return
	}
	if !p.RoleExists(guildID, roleID) {
		return
	}
	if err := p.RevokeRole(guildID, userID, roleID); err != nil {
		return
	}
	p.NotifyMember(userID, "Your role for reacting with "+emoji+" has been removed.")
}

func (t *Table) save() error {
	return t.docs.Save(documentName, t.All())
}
