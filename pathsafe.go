package junebench

import (
	"path/filepath"
	"strings"
)

// resolveInWorkspace joins a relative rel onto workspaceDir (an absolute rel
// is checked as given), resolves both sides to
// their real (symlink-free, absolute) form, and verifies the result still
// lives under the workspace root. This is the one check every path-taking
// tool call must pass before touching the filesystem.
//
// Unlike a plain HasPrefix(filepath.Clean(...)) check, this also catches
// escapes hidden behind a symlink that itself lives inside the workspace
// but points outside it.
func resolveInWorkspace(workspaceDir, rel string) (string, error) {
	root, err := filepath.Abs(workspaceDir)
	if err != nil {
		return "", &ErrPathEscape{Path: rel}
	}
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}

	candidate := filepath.Join(root, rel)
	if filepath.IsAbs(rel) {
		candidate = filepath.Clean(rel)
	}
	resolvedCandidate := candidate
	if resolved, err := filepath.EvalSymlinks(candidate); err == nil {
		resolvedCandidate = resolved
	} else {
		// Target may not exist yet (e.g. write_file creating a new path);
		// fall back to resolving its parent directory instead.
		parent := filepath.Dir(candidate)
		if resolvedParent, err := filepath.EvalSymlinks(parent); err == nil {
			resolvedCandidate = filepath.Join(resolvedParent, filepath.Base(candidate))
		}
	}

	relPath, err := filepath.Rel(root, resolvedCandidate)
	if err != nil || relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return "", &ErrPathEscape{Path: rel}
	}
	return candidate, nil
}
