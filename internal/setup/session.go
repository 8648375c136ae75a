package setup

import (
	"strings"
	"sync"

	"github.com/SX2s/SX2-Enforcer/internal/store"
)

const (
	sessionsDocument  = "setup_sessions.json"
	templatesDocument = "setup_templates.json"
)

// Session is the accumulated state of one guided server-scaffolding run.
// It is persisted after every accepted prompt so a restart loses at most
// the in-flight answer.
type Session struct {
	Roles      []string   `json:"roles"`
	Categories []Category `json:"categories"`
	Finished   bool       `json:"finished"`
}

type Category struct {
	Name          string      `json:"name"`
	TextChannels  []string    `json:"text_channels"`
	VoiceChannels []string    `json:"voice_channels"`
	Permissions   Permissions `json:"permissions"`
}

type Permissions struct {
	Allow []string `json:"allow"`
	Deny  []string `json:"deny"`
}

func (s *Session) clone() *Session {
	copied := &Session{Finished: s.Finished}
	copied.Roles = append([]string{}, s.Roles...)
	for _, category := range s.Categories {
		copied.Categories = append(copied.Categories, Category{
			Name:          category.Name,
			TextChannels:  append([]string{}, category.TextChannels...),
			VoiceChannels: append([]string{}, category.VoiceChannels...),
			Permissions: Permissions{
				Allow: append([]string{}, category.Permissions.Allow...),
				Deny:  append([]string{}, category.Permissions.Deny...),
			},
		})
	}
	return copied
}

// Manager owns the per-guild sessions and the named templates, both backed
// by JSON documents.
type Manager struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	templates map[string]*Session
	docs      *store.Store
}

func NewManager(docs *store.Store) (*Manager, error) {
	m := &Manager{
		sessions:  make(map[string]*Session),
		templates: make(map[string]*Session),
		docs:      docs,
	}
	if err := docs.Load(sessionsDocument, &m.sessions); err != nil {
		return nil, err
	}
	if err := docs.Load(templatesDocument, &m.templates); err != nil {
		return nil, err
	}
	if m.sessions == nil {
		m.sessions = make(map[string]*Session)
	}
	if m.templates == nil {
		m.templates = make(map[string]*Session)
	}
	docs.RegisterSnapshot(sessionsDocument, m.saveSessions)
	docs.RegisterSnapshot(templatesDocument, m.saveTemplates)
	return m, nil
}

// Session returns a copy of the guild's session, if one exists.
func (m *Manager) Session(guildID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[guildID]
	if !ok {
		return nil, false
	}
	return session.clone(), true
}

// Put stores the guild's session and persists it immediately.
func (m *Manager) Put(guildID string, session *Session) {
	m.mu.Lock()
	m.sessions[guildID] = session.clone()
	m.mu.Unlock()
	_ = m.saveSessions()
}

func (m *Manager) Delete(guildID string) bool {
	m.mu.Lock()
	_, existed := m.sessions[guildID]
	delete(m.sessions, guildID)
	m.mu.Unlock()
	if existed {
		_ = m.saveSessions()
	}
	return existed
}

func (m *Manager) SaveTemplate(name string, session *Session) {
	m.mu.Lock()
	m.templates[name] = session.clone()
	m.mu.Unlock()
	_ = m.saveTemplates()
}

func (m *Manager) Template(name string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	template, ok := m.templates[name]
	if !ok {
		return nil, false
	}
	return template.clone(), true
}

func (m *Manager) DeleteTemplate(name string) bool {
	m.mu.Lock()
	_, existed := m.templates[name]
	delete(m.templates, name)
	m.mu.Unlock()
	if existed {
		_ = m.saveTemplates()
	}
	return existed
}

func (m *Manager) TemplateNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.templates))
	for name := range m.templates {
		names = append(names, name)
	}
	return names
}

func (m *Manager) saveSessions() error {
	m.mu.RLock()
	snapshot := make(map[string]*Session, len(m.sessions))
	for guildID, session := range m.sessions {
		snapshot[guildID] = session.clone()
	}
	m.mu.RUnlock()
	return m.docs.Save(sessionsDocument, snapshot)
}

func (m *Manager) saveTemplates() error {
	m.mu.RLock()
	snapshot := make(map[string]*Session, len(m.templates))
	for name, template := range m.templates {
		snapshot[name] = template.clone()
	}
	m.mu.RUnlock()
	return m.docs.Save(templatesDocument, snapshot)
}

// IsCancel matches the keywords that terminate a wizard session.
func IsCancel(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "cancel", "stop", "abort":
		return true
	}
	return false
}

// IsConfirm matches the keywords that advance the summary step.
func IsConfirm(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "confirm", "yes", "y":
		return true
	}
	return false
}

func IsYes(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "yes", "y":
		return true
	}
	return false
}

// ParseRoleList splits a comma-separated role-name list, trimming blanks.
func ParseRoleList(input string) []string {
	parts := strings.Split(input, ",")
	names := make([]string, 0, len(parts))
	for _, part := range parts {
		name := strings.TrimSpace(part)
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}
