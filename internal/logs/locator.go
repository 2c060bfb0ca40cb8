package logs

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrInvalidIdentifier is returned for project or session identifiers that
// fail the allowed-character policy.
var ErrInvalidIdentifier = errors.New("invalid identifier")

const maxIdentifierLen = 256

// ValidateID enforces the identifier policy applied to every project key and
// session id that crosses an external boundary: 1-256 characters, only
// [A-Za-z0-9_-], no "..", path separators or NUL. This is the sole hard
// security boundary in the core; it blocks crafted identifiers from turning
// into arbitrary file reads.
func ValidateID(id string) error {
	if id == "" || len(id) > maxIdentifierLen {
		return ErrInvalidIdentifier
	}
	if strings.Contains(id, "..") ||
		strings.ContainsAny(id, "/\\\x00") {
		return ErrInvalidIdentifier
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_' || r == '-':
		default:
			return ErrInvalidIdentifier
		}
	}
	return nil
}

// NameFunc decodes a project directory key into a human-readable project
// name. See projects.Resolver.
type NameFunc func(projectKey string) string

// Locator maps (projectKey, sessionID) pairs onto session files under the
// data root, validating identifiers before any filesystem access. A missing
// data root degrades to empty results everywhere, never an error.
type Locator struct {
	root string
	name NameFunc
}

// NewLocator creates a Locator over root. name may be nil, in which case the
// raw directory key doubles as the project name.
func NewLocator(root string, name NameFunc) *Locator {
	if name == nil {
		name = func(key string) string { return key }
	}
	return &Locator{root: root, name: name}
}

// Root returns the data root directory.
func (l *Locator) Root() string { return l.root }

// ProjectName decodes a project key into its display name.
func (l *Locator) ProjectName(projectKey string) string { return l.name(projectKey) }

// SessionPath resolves the file path for a session after validating both
// identifiers.
func (l *Locator) SessionPath(projectKey, sessionID string) (string, error) {
	if err := ValidateID(projectKey); err != nil {
		return "", err
	}
	if err := ValidateID(sessionID); err != nil {
		return "", err
	}
	return filepath.Join(l.root, projectKey, sessionID+".jsonl"), nil
}

// ListProjects returns the project directory keys under the data root,
// sorted. A missing root yields an empty list.
func (l *Locator) ListProjects() []string {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		return nil
	}

	var projects []string
	for _, entry := range entries {
		if entry.IsDir() {
			projects = append(projects, entry.Name())
		}
	}
	sort.Strings(projects)
	return projects
}

// SessionFiles returns the .jsonl file paths of a project directory together
// with their session ids (base name, no extension), in directory order.
func (l *Locator) SessionFiles(projectKey string) (paths, ids []string) {
	entries, err := os.ReadDir(filepath.Join(l.root, projectKey))
	if err != nil {
		return nil, nil
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".jsonl") {
			continue
		}
		paths = append(paths, filepath.Join(l.root, projectKey, name))
		ids = append(ids, strings.TrimSuffix(name, ".jsonl"))
	}
	return paths, ids
}

// ListSessions parses every session of a project, newest lastMessageTime
// first. Files without a qualifying message are skipped.
func (l *Locator) ListSessions(projectKey string) []*Session {
	if err := ValidateID(projectKey); err != nil {
		return nil
	}

	paths, ids := l.SessionFiles(projectKey)
	projectName := l.name(projectKey)

	var sessions []*Session
	for i, path := range paths {
		session := ParseSessionMeta(projectKey, ids[i], path)
		if session == nil {
			continue
		}
		session.ProjectName = projectName
		sessions = append(sessions, session)
	}

	// ISO-8601 timestamps order lexicographically.
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].LastMessageTime > sessions[j].LastMessageTime
	})
	return sessions
}

// GetSession parses one session's metadata, or nil when the identifiers are
// invalid, the file is missing, or the file has no qualifying message line.
func (l *Locator) GetSession(projectKey, sessionID string) *Session {
	path, err := l.SessionPath(projectKey, sessionID)
	if err != nil {
		return nil
	}
	session := ParseSessionMeta(projectKey, sessionID, path)
	if session != nil {
		session.ProjectName = l.name(projectKey)
	}
	return session
}

// GetMessages parses one session's display message list. Invalid identifiers
// or a missing file yield an empty list.
func (l *Locator) GetMessages(projectKey, sessionID string) []Message {
	path, err := l.SessionPath(projectKey, sessionID)
	if err != nil {
		return nil
	}
	return ParseMessages(path)
}
