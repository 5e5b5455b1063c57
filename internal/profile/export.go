package profile

import "strings"

// openClawAuthor is the author tag stamped on every exported manifest.
const openClawAuthor = "alm-agent"

// OpenClawMetadata carries the marketplace-facing trust fields.
type OpenClawMetadata struct {
	AgentID    string `json:"agentId"`
	Reputation int    `json:"reputation"`
}

// OpenClawManifest is the publishable profile shape the OpenClaw
// marketplace ingests.
type OpenClawManifest struct {
	Name        string           `json:"name"`
	Version     string           `json:"version"`
	Description string           `json:"description"`
	Author      string           `json:"author"`
	Skills      []string         `json:"skills"`
	Metadata    OpenClawMetadata `json:"metadata"`
}

// ExportOpenClaw projects the profile into the marketplace manifest. The
// second return is false before Initialize.
func (m *Manager) ExportOpenClaw() (OpenClawManifest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.agentID == "" {
		return OpenClawManifest{}, false
	}

	var skills []string
	for _, c := range m.caps {
		if c.Enabled {
			skills = append(skills, c.Name)
		}
	}

	manifest := OpenClawManifest{
		Name:        Slug(m.identity.Name),
		Version:     m.identity.Version,
		Description: m.identity.Description,
		Author:      openClawAuthor,
		Skills:      skills,
		Metadata:    OpenClawMetadata{AgentID: m.agentID},
	}
	if p, ok := m.registry.Get(m.agentID); ok {
		manifest.Metadata.Reputation = p.Reputation
	}
	return manifest, true
}

// Slug converts an agent name into a marketplace-safe identifier:
// lowercase, spaces and underscores to hyphens, everything outside
// [a-z0-9-] dropped, runs of hyphens collapsed.
func Slug(name string) string {
	var b strings.Builder
	lastHyphen := false

	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		case r == ' ' || r == '_' || r == '-':
			if !lastHyphen && b.Len() > 0 {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	return strings.TrimSuffix(b.String(), "-")
}
