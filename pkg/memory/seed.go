package memory

import (
	"fmt"
	"os"
	"path/filepath"
)

var seedFiles = map[string]string{
	"USER.md": "# User\n\n- Name:\n- Preferred language:\n- Notes:\n",
	"SOUL.md": "# Soul\n\nBe direct and concise. Prefer doing over explaining. " +
		"Use tools when they give a better answer than memory.\n",
	"IDENTITY.md":                         "# Identity\n\nYou are RedClaw, a small self-hosted assistant running on the user's machine.\n",
	filepath.Join("memory", longTermFile): "",
}

// SeedWorkspace creates the workspace with starter bootstrap documents and
// an empty long-term note. Existing files are left untouched. It returns the
// files it created, relative to workspace.
func SeedWorkspace(workspace string) ([]string, error) {
	if _, err := EnsureMemoryDirectory(workspace); err != nil {
		return nil, err
	}

	var created []string
	for _, name := range append(append([]string{}, BootstrapFiles...), filepath.Join("memory", longTermFile)) {
		path := filepath.Join(workspace, name)
		exists, err := FileExists(path)
		if err != nil {
			return created, err
		}
		if exists {
			continue
		}
		if err := os.WriteFile(path, []byte(seedFiles[name]), 0644); err != nil {
			return created, fmt.Errorf("failed to write %s: %w", name, err)
		}
		created = append(created, name)
	}

	return created, nil
}
