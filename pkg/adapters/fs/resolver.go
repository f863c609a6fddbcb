package fs

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/aretw0/notebox/pkg/core"
)

// NoteExt is the only extension recognized as a note.
const NoteExt = ".md"

// Policy names accepted by NewResolver.
const (
	PolicyFlat   = "flat"
	PolicyNested = "nested"
)

// DefaultPrefix is the subdirectory holding notes under the nested policy.
const DefaultPrefix = "notes"

// Location is a resolved note address.
type Location struct {
	ID   string // identifier as reported to callers
	Path string // slash-separated, relative to the workspace root
	Name string // base name including extension
	Abs  string // absolute filesystem path
}

// Resolver maps caller identifiers to paths inside a workspace.
// A deployment uses exactly one resolver; the two policies accept
// different identifier grammars and must not be mixed.
type Resolver interface {
	// Policy returns the policy name (PolicyFlat or PolicyNested).
	Policy() string

	// NotesDir returns the absolute directory holding the notes of root.
	NotesDir(root string) (string, error)

	// Resolve validates id and returns its location under root.
	// Failures wrap core.ErrInvalidID.
	Resolve(root, id string) (Location, error)

	// Locate maps a slash-separated path relative to NotesDir back to a
	// location. It reports false for files that Resolve could never produce.
	Locate(root, rel string) (Location, bool)

	// Recursive reports whether notes may live in nested directories.
	Recursive() bool
}

// NewResolver builds the resolver for a policy name.
// dir is the notes subdirectory: optional for flat, the required prefix for nested.
func NewResolver(policy, dir string) (Resolver, error) {
	if err := validateDir(dir); err != nil {
		return nil, err
	}
	switch policy {
	case "", PolicyFlat:
		return &FlatResolver{Dir: dir}, nil
	case PolicyNested:
		if dir == "" {
			dir = DefaultPrefix
		}
		return &PathResolver{Prefix: dir}, nil
	default:
		return nil, fmt.Errorf("unknown sanitization policy: %s", policy)
	}
}

func validateDir(dir string) error {
	if dir == "" {
		return nil
	}
	if filepath.IsAbs(dir) || strings.HasPrefix(filepath.ToSlash(dir), "/") {
		return fmt.Errorf("notes directory must be relative: %s", dir)
	}
	for _, seg := range strings.Split(filepath.ToSlash(dir), "/") {
		if seg == ".." {
			return fmt.Errorf("notes directory must not leave the workspace: %s", dir)
		}
	}
	return nil
}

// SanitizeID strips every character outside [A-Za-z0-9_-].
func SanitizeID(id string) string {
	var b strings.Builder
	b.Grow(len(id))
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '-':
			b.WriteRune(c)
		}
	}
	return b.String()
}

// FlatResolver implements the character allow-list policy.
// Every note is <sanitized-id>.md directly inside the notes directory.
// Distinct ids that differ only in stripped characters collide.
type FlatResolver struct {
	// Dir is an optional subdirectory of the root. Empty means the root itself.
	Dir string
}

func (f *FlatResolver) Policy() string  { return PolicyFlat }
func (f *FlatResolver) Recursive() bool { return false }

func (f *FlatResolver) NotesDir(root string) (string, error) {
	abs, err := absRoot(root)
	if err != nil {
		return "", err
	}
	return filepath.Join(abs, filepath.FromSlash(f.Dir)), nil
}

func (f *FlatResolver) Resolve(root, id string) (Location, error) {
	clean := SanitizeID(id)
	if clean == "" {
		return Location{}, fmt.Errorf("%w: %q has no allowed characters", core.ErrInvalidID, id)
	}

	notesDir, err := f.NotesDir(root)
	if err != nil {
		return Location{}, err
	}

	name := clean + NoteExt
	loc := Location{
		ID:   clean,
		Path: path.Join(filepath.ToSlash(f.Dir), name),
		Name: name,
		Abs:  filepath.Join(notesDir, name),
	}
	if err := contain(notesDir, loc.Abs); err != nil {
		return Location{}, fmt.Errorf("%w: %q: %v", core.ErrInvalidID, id, err)
	}
	return loc, nil
}

func (f *FlatResolver) Locate(root, rel string) (Location, bool) {
	if strings.Contains(rel, "/") || !strings.HasSuffix(rel, NoteExt) {
		return Location{}, false
	}
	loc, err := f.Resolve(root, strings.TrimSuffix(rel, NoteExt))
	if err != nil || loc.Name != rel {
		return Location{}, false
	}
	return loc, true
}

// PathResolver implements the path allow-list policy.
// Identifiers start with Prefix and may contain nested segments,
// e.g. "notes/2024/standup.md". Parent segments are always rejected.
type PathResolver struct {
	Prefix string
}

func (p *PathResolver) Policy() string  { return PolicyNested }
func (p *PathResolver) Recursive() bool { return true }

func (p *PathResolver) prefix() string {
	prefix := strings.Trim(filepath.ToSlash(p.Prefix), "/")
	if prefix == "" {
		return DefaultPrefix
	}
	return prefix
}

func (p *PathResolver) NotesDir(root string) (string, error) {
	abs, err := absRoot(root)
	if err != nil {
		return "", err
	}
	return filepath.Join(abs, filepath.FromSlash(p.prefix())), nil
}

func (p *PathResolver) Resolve(root, id string) (Location, error) {
	clean, err := p.cleanPath(id)
	if err != nil {
		return Location{}, fmt.Errorf("%w: %q: %v", core.ErrInvalidID, id, err)
	}

	abs, err := absRoot(root)
	if err != nil {
		return Location{}, err
	}
	notesDir := filepath.Join(abs, filepath.FromSlash(p.prefix()))

	loc := Location{
		ID:   clean,
		Path: clean,
		Name: path.Base(clean),
		Abs:  filepath.Join(abs, filepath.FromSlash(clean)),
	}
	if err := contain(notesDir, loc.Abs); err != nil {
		return Location{}, fmt.Errorf("%w: %q: %v", core.ErrInvalidID, id, err)
	}
	return loc, nil
}

// cleanPath validates the identifier grammar and returns the canonical
// slash-separated path, always ending in NoteExt.
func (p *PathResolver) cleanPath(id string) (string, error) {
	if strings.IndexFunc(id, unicode.IsControl) >= 0 {
		return "", fmt.Errorf("contains control characters")
	}
	if filepath.IsAbs(id) || filepath.VolumeName(id) != "" {
		return "", fmt.Errorf("absolute paths are not allowed")
	}

	// Backslash is a separator on some platforms; treat it as one everywhere.
	slashed := strings.ReplaceAll(id, `\`, "/")
	if strings.HasPrefix(slashed, "/") {
		return "", fmt.Errorf("absolute paths are not allowed")
	}

	var segments []string
	for _, seg := range strings.Split(slashed, "/") {
		switch {
		case seg == "" || seg == ".":
			continue
		case seg == "..":
			return "", fmt.Errorf("parent directory segments are not allowed")
		case strings.HasPrefix(seg, "."):
			return "", fmt.Errorf("hidden segment %q is not allowed", seg)
		}
		segments = append(segments, seg)
	}

	clean := strings.Join(segments, "/")
	prefix := p.prefix()
	if !strings.HasPrefix(clean, prefix+"/") || len(clean) == len(prefix)+1 {
		return "", fmt.Errorf("path must start with %s/", prefix)
	}
	if !strings.HasSuffix(clean, NoteExt) {
		clean += NoteExt
	}
	return clean, nil
}

func (p *PathResolver) Locate(root, rel string) (Location, bool) {
	if !strings.HasSuffix(rel, NoteExt) {
		return Location{}, false
	}
	want := p.prefix() + "/" + rel
	loc, err := p.Resolve(root, want)
	if err != nil || loc.ID != want {
		return Location{}, false
	}
	return loc, true
}

func absRoot(root string) (string, error) {
	if strings.TrimSpace(root) == "" {
		return "", fmt.Errorf("%w: root cannot be empty", core.ErrInvalidRoot)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrInvalidRoot, err)
	}
	return abs, nil
}

// contain verifies that target lies strictly inside base, both lexically
// and after resolving symlinks of the deepest existing ancestors.
func contain(base, target string) error {
	if !within(base, target) {
		return fmt.Errorf("path escapes the notes directory")
	}
	if !within(resolveSymlinks(base), resolveSymlinks(target)) {
		return fmt.Errorf("path resolves outside the notes directory")
	}
	return nil
}

func within(base, target string) bool {
	rel, err := filepath.Rel(base, target)
	if err != nil || filepath.IsAbs(rel) {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// resolveSymlinks evaluates symlinks in p. For paths that do not exist yet
// it resolves the deepest existing ancestor and re-appends the rest.
func resolveSymlinks(p string) string {
	var rest []string
	current := filepath.Clean(p)
	for {
		if resolved, err := filepath.EvalSymlinks(current); err == nil {
			for i := len(rest) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, rest[i])
			}
			return resolved
		}
		parent := filepath.Dir(current)
		if parent == current {
			return filepath.Clean(p)
		}
		rest = append(rest, filepath.Base(current))
		current = parent
	}
}
