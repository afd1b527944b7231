package fat32

import (
	"strings"

	"github.com/aligator/checkpoint"
)

// resolvedPath is the result of walking a path: the directory that contains
// (or would contain) the final component, and the component itself. entry is
// nil when the final component does not exist, which is exactly what create
// operations need from the same walk.
type resolvedPath struct {
	// parentCluster is the first cluster of the containing directory's
	// chain. It equals the root cluster for top-level names.
	parentCluster uint32
	// name is the final path component, empty for the root itself.
	name string
	// entry is the located final component, nil when absent.
	entry *ExtendedEntryHeader
	// isRoot is true when the path names the root directory.
	isRoot bool
}

// splitPath normalizes separators and drops empty components.
func splitPath(p string) []string {
	p = strings.ReplaceAll(p, "\\", "/")
	parts := strings.Split(p, "/")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" && part != "." {
			out = append(out, part)
		}
	}
	return out
}

// matches compares a path component against both names of an entry,
// case-insensitively.
func matches(e *ExtendedEntryHeader, component string) bool {
	if e.ExtendedName != "" && strings.EqualFold(e.ExtendedName, component) {
		return true
	}
	return strings.EqualFold(e.ShortNameString(), component)
}

// resolve walks path from the root directory. Intermediate components must
// exist and be directories; the final component may be absent. Deleted and
// volume-label entries never match.
func (fs *FS) resolve(path string) (resolvedPath, error) {
	components := splitPath(path)
	if len(components) == 0 {
		return resolvedPath{parentCluster: fs.params.RootCluster, isRoot: true}, nil
	}

	dirCluster := fs.params.RootCluster
	for i, component := range components {
		last := i == len(components)-1

		entries, err := fs.readDirEntries(dirCluster)
		if err != nil {
			return resolvedPath{}, err
		}
		var found *ExtendedEntryHeader
		for j := range entries {
			e := &entries[j]
			if e.IsVolumeLabel() {
				continue
			}
			if matches(e, component) {
				found = e
				break
			}
		}

		if last {
			return resolvedPath{
				parentCluster: dirCluster,
				name:          component,
				entry:         found,
			}, nil
		}

		if found == nil {
			return resolvedPath{}, checkpoint.From(ErrNotFound)
		}
		if !found.IsDirectory() {
			return resolvedPath{}, checkpoint.From(ErrNotADirectory)
		}
		next := found.FirstCluster()
		if next == 0 {
			// ".." entries pointing at the root store cluster 0.
			next = fs.params.RootCluster
		}
		dirCluster = next
	}
	// Unreachable: the loop always returns on the last component.
	return resolvedPath{}, checkpoint.From(ErrNotFound)
}

// mustResolve is resolve plus the requirement that the final component
// exists.
func (fs *FS) mustResolve(path string) (resolvedPath, error) {
	rp, err := fs.resolve(path)
	if err != nil {
		return resolvedPath{}, err
	}
	if !rp.isRoot && rp.entry == nil {
		return resolvedPath{}, checkpoint.From(ErrNotFound)
	}
	return rp, nil
}
