package sync

import (
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// IgnoreList holds gitignore-style patterns for paths that are left alone
// in both trees. Ignored files are never copied or deleted.
// A nil IgnoreList ignores nothing.
type IgnoreList struct {
	patterns []string
	ignore   *gitignore.GitIgnore
}

// NewIgnoreList compiles the given patterns. Blank patterns are dropped.
func NewIgnoreList(patterns ...string) *IgnoreList {
	var cleaned []string
	for _, pattern := range patterns {
		if pattern = strings.TrimSpace(pattern); pattern != "" {
			cleaned = append(cleaned, pattern)
		}
	}

	if len(cleaned) == 0 {
		return nil
	}
	return &IgnoreList{
		patterns: cleaned,
		ignore:   gitignore.CompileIgnoreLines(cleaned...),
	}
}

// Patterns returns the patterns the list was compiled from.
func (l *IgnoreList) Patterns() []string {
	if l == nil {
		return nil
	}
	return append([]string{}, l.patterns...)
}

// ShouldIgnore returns whether the slash-separated relative path matches any
// pattern.
func (l *IgnoreList) ShouldIgnore(relPath string) bool {
	if l == nil || l.ignore == nil {
		return false
	}
	return l.ignore.MatchesPath(relPath)
}

// shouldIgnoreDir also checks the directory form of the path so that
// patterns such as `build/` prune the whole subtree.
func (l *IgnoreList) shouldIgnoreDir(relPath string) bool {
	return l.ShouldIgnore(relPath) || l.ShouldIgnore(relPath+"/")
}
