package warnings

import (
	"sync"

	"github.com/SX2s/SX2-Enforcer/internal/store"
)

const documentName = "warnings.json"

// Ledger tracks warning reasons per guild member, in the order they were
// issued. The full ledger is flushed to the document store on mutation and
// by the periodic snapshot loop.
type Ledger struct {
	mu      sync.RWMutex
	entries map[string]map[string][]string
	docs    *store.Store
}

func New(docs *store.Store) (*Ledger, error) {
	l := &Ledger{
		entries: make(map[string]map[string][]string),
		docs:    docs,
	}
	if err := docs.Load(documentName, &l.entries); err != nil {
		return nil, err
	}
	if l.entries == nil {
		l.entries = make(map[string]map[string][]string)
	}
	docs.RegisterSnapshot(documentName, l.save)
	return l, nil
}

// Add appends a reason and returns the member's new warning count.
func (l *Ledger) Add(guildID, memberID, reason string) int {
	l.mu.Lock()
	guild := l.entries[guildID]
	if guild == nil {
		guild = make(map[string][]string)
		l.entries[guildID] = guild
	}
	guild[memberID] = append(guild[memberID], reason)
	count := len(guild[memberID])
	l.mu.Unlock()

	_ = l.save()
	return count
}

// List returns a copy of the member's warning reasons in issue order.
func (l *Ledger) List(guildID, memberID string) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	reasons := l.entries[guildID][memberID]
	return append([]string{}, reasons...)
}

func (l *Ledger) Count(guildID, memberID string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries[guildID][memberID])
}

// Clear removes all warnings for a member and returns how many were held.
func (l *Ledger) Clear(guildID, memberID string) int {
	l.mu.Lock()
	removed := len(l.entries[guildID][memberID])
	if guild := l.entries[guildID]; guild != nil {
		delete(guild, memberID)
		if len(guild) == 0 {
			delete(l.entries, guildID)
		}
	}
	l.mu.Unlock()

	if removed > 0 {
		_ = l.save()
	}
	return removed
}

func (l *Ledger) save() error {
	l.mu.RLock()
	snapshot := make(map[string]map[string][]string, len(l.entries))
	for guildID, members := range l.entries {
		copied := make(map[string][]string, len(members))
		for memberID, reasons := range members {
			copied[memberID] = append([]string{}, reasons...)
		}
		snapshot[guildID] = copied
	}
	l.mu.RUnlock()
	return l.docs.Save(documentName, snapshot)
}
