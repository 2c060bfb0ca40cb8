// Package projects decodes session project directory keys into
// human-readable project paths.
//
// The assistant host encodes each project's absolute path into a directory
// name by replacing every path separator (and dot) with "-", which is lossy:
// "-home-user-my-app" could have been /home/user/my-app or /home/user/my/app.
// The host's own configuration file records the real paths, so a Resolver is
// built once from it and consulted for exact decoding, falling back to naive
// character replacement for unknown keys.
package projects

import (
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// configFile mirrors the shape of the host configuration
// ({"projects": {"<absolute-path>": {...}}}); only the keys matter.
type configFile struct {
	Projects map[string]json.RawMessage `json:"projects"`
}

// Resolver maps encoded directory keys to the recorded project paths. It is
// built once at startup and reused for the process lifetime: the underlying
// mapping only grows when the assistant host records a new project, and a
// restart picks that up. Read-only after construction, so safe for
// concurrent use.
type Resolver struct {
	byKey map[string]string
}

// NewResolver builds a Resolver from the mapping file at path. A missing or
// malformed file degrades to an empty resolver; every lookup then falls back
// to naive decoding.
func NewResolver(path string) *Resolver {
	r := &Resolver{byKey: make(map[string]string)}

	data, err := os.ReadFile(path) // #nosec G304 -- fixed config location
	if err != nil {
		return r
	}

	var cfg configFile
	if err := json.Unmarshal(data, &cfg); err != nil {
		log.Debug().Err(err).Str("path", path).Msg("project mapping file unreadable, using raw keys")
		return r
	}

	for projectPath := range cfg.Projects {
		r.byKey[EncodeKey(projectPath)] = projectPath
	}
	return r
}

// EncodeKey converts an absolute project path to its directory-key form.
func EncodeKey(path string) string {
	key := strings.ReplaceAll(path, "/", "-")
	key = strings.ReplaceAll(key, "\\", "-")
	return strings.ReplaceAll(key, ".", "-")
}

// Name returns the recorded project path for a directory key, or a naive
// decoding when the key is not in the mapping.
func (r *Resolver) Name(projectKey string) string {
	if path, ok := r.byKey[projectKey]; ok {
		return path
	}
	return naiveDecode(projectKey)
}

// naiveDecode reverses the separator encoding without disambiguating
// hyphens that were part of the original path.
func naiveDecode(projectKey string) string {
	if !strings.HasPrefix(projectKey, "-") {
		return projectKey
	}
	return strings.ReplaceAll(projectKey, "-", "/")
}
