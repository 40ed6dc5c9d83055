// Package session fronts a live conversation: it owns the visible
// message list, mirrors it into short-term memory, and drives episodes.
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// DefaultIdentityPath returns the default location of the persisted
// user identity file.
func DefaultIdentityPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("DefaultIdentityPath: %w", err)
	}
	return filepath.Join(dir, "nocmem", "user_id"), nil
}

// ResolveUserID returns the stable local user identity, creating it on
// first use.
//
// The identity is a uuid persisted at path. If path is empty the
// default location under the user config directory is used. All
// sessions on the same machine resolve to the same identity.
func ResolveUserID(path string) (string, error) {
	if path == "" {
		var err error
		path, err = DefaultIdentityPath()
		if err != nil {
			return "", err
		}
	}

	data, err := os.ReadFile(path)
	if err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return id, nil
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("ResolveUserID: %w", err)
	}

	id := uuid.NewString()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("ResolveUserID: %w", err)
	}
	if err := os.WriteFile(path, []byte(id), 0o600); err != nil {
		return "", fmt.Errorf("ResolveUserID: %w", err)
	}

	return id, nil
}
