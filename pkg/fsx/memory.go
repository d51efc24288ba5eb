package fsx

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Memory is an in-memory FS used by every core package's tests, so
// invariants can be checked without touching the real disk. It models
// two link kinds explicitly (symlink vs hardlink) and a "volume" tag per
// path so multi-volume staging (spec.md S4) can be exercised.
type Memory struct {
	mu     sync.RWMutex
	nodes  map[string]*memNode
	volume map[string]int // path prefix -> volume id, longest-prefix wins
}

type memNode struct {
	name     string
	mode     fs.FileMode
	modTime  time.Time
	content  []byte
	isDir    bool
	isLink   bool
	linkDest string
	// hardTo, when set, means this path is a hard link sharing content
	// storage with the node at that path (mutations propagate).
	hardTo   string
	children map[string]*memNode
}

// NewMemory returns an empty in-memory filesystem rooted at "/".
func NewMemory() *Memory {
	return &Memory{
		nodes: map[string]*memNode{
			"/": {name: "/", mode: fs.ModeDir | 0755, modTime: time.Now(), isDir: true, children: map[string]*memNode{}},
		},
		volume: map[string]int{"/": 0},
	}
}

// SetVolume tags every path under prefix as belonging to the given volume
// id, so SameVolume can simulate a staging area on a different disk than
// the game directory (spec.md S4, multi-volume mode).
func (m *Memory) SetVolume(prefix string, volume int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volume[clean(prefix)] = volume
}

func (m *Memory) volumeOf(path string) int {
	path = clean(path)
	best := ""
	bestVol := 0
	for prefix, vol := range m.volume {
		if (path == prefix || strings.HasPrefix(path, prefix+"/")) && len(prefix) >= len(best) {
			best, bestVol = prefix, vol
		}
	}
	return bestVol
}

func (m *Memory) SameVolume(a, b string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.volumeOf(a) == m.volumeOf(b), nil
}

func clean(p string) string {
	if !filepath.IsAbs(p) {
		p = "/" + p
	}
	return filepath.Clean(p)
}

func (m *Memory) get(path string) (*memNode, error) {
	path = clean(path)
	n, ok := m.nodes[path]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	return n, nil
}

func (m *Memory) resolve(path string) (*memNode, error) {
	n, err := m.get(path)
	if err != nil {
		return nil, err
	}
	if n.hardTo != "" {
		return m.get(n.hardTo)
	}
	return n, nil
}

func (m *Memory) parentAndName(path string) (*memNode, string, error) {
	path = clean(path)
	dir, name := filepath.Dir(path), filepath.Base(path)
	parent, err := m.get(dir)
	if err != nil {
		return nil, "", err
	}
	if !parent.isDir {
		return nil, "", &fs.PathError{Op: "open", Path: dir, Err: errors.New("not a directory")}
	}
	return parent, name, nil
}

func (m *Memory) Stat(name string) (fs.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, err := m.get(name)
	if err != nil {
		return nil, err
	}
	if n.isLink {
		target := n.linkDest
		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(clean(name)), target)
		}
		return m.Stat(target)
	}
	real, err := m.resolve(name)
	if err != nil {
		return nil, err
	}
	return &memInfo{node: real, name: filepath.Base(name)}, nil
}

func (m *Memory) Lstat(name string) (fs.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, err := m.get(name)
	if err != nil {
		return nil, err
	}
	return &memInfo{node: n, name: filepath.Base(name)}, nil
}

func (m *Memory) ReadFile(name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, err := m.get(name)
	if err != nil {
		return nil, err
	}
	if n.isLink {
		target := n.linkDest
		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(clean(name)), target)
		}
		m.mu.RUnlock()
		data, err := m.ReadFile(target)
		m.mu.RLock()
		return data, err
	}
	real, err := m.resolve(name)
	if err != nil {
		return nil, err
	}
	if real.isDir {
		return nil, &fs.PathError{Op: "read", Path: name, Err: errors.New("is a directory")}
	}
	out := make([]byte, len(real.content))
	copy(out, real.content)
	return out, nil
}

func (m *Memory) WriteFile(name string, data []byte, perm fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	path := clean(name)
	if existing, ok := m.nodes[path]; ok && existing.hardTo != "" {
		target, err := m.get(existing.hardTo)
		if err != nil {
			return err
		}
		target.content = append([]byte(nil), data...)
		target.modTime = time.Now()
		return nil
	}
	parent, filename, err := m.parentAndName(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if err := m.mkdirAll(filepath.Dir(path), 0755); err != nil {
				return err
			}
			parent, filename, err = m.parentAndName(path)
			if err != nil {
				return err
			}
		} else {
			return err
		}
	}
	node := &memNode{name: filename, mode: perm, modTime: time.Now(), content: append([]byte(nil), data...)}
	parent.children[filename] = node
	m.nodes[path] = node
	return nil
}

func (m *Memory) MkdirAll(path string, perm fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mkdirAll(path, perm)
}

func (m *Memory) mkdirAll(path string, perm fs.FileMode) error {
	path = clean(path)
	if n, err := m.get(path); err == nil {
		if !n.isDir {
			return &fs.PathError{Op: "mkdir", Path: path, Err: errors.New("file exists")}
		}
		return nil
	}
	parts := strings.Split(path, "/")
	current := "/"
	currentNode := m.nodes["/"]
	for i := 1; i < len(parts); i++ {
		if parts[i] == "" {
			continue
		}
		next := filepath.Join(current, parts[i])
		if child, ok := currentNode.children[parts[i]]; ok {
			if !child.isDir {
				return &fs.PathError{Op: "mkdir", Path: next, Err: errors.New("not a directory")}
			}
			currentNode, current = child, next
			continue
		}
		dir := &memNode{name: parts[i], mode: fs.ModeDir | perm, modTime: time.Now(), isDir: true, children: map[string]*memNode{}}
		currentNode.children[parts[i]] = dir
		m.nodes[next] = dir
		currentNode, current = dir, next
	}
	return nil
}

func (m *Memory) ReadDir(name string) ([]fs.DirEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, err := m.get(name)
	if err != nil {
		return nil, err
	}
	if !n.isDir {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: errors.New("not a directory")}
	}
	entries := make([]fs.DirEntry, 0, len(n.children))
	for cname, child := range n.children {
		entries = append(entries, &memDirEntry{name: cname, info: &memInfo{node: child, name: cname}})
	}
	return entries, nil
}

func (m *Memory) Symlink(oldname, newname string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	path := clean(newname)
	if _, err := m.get(path); err == nil {
		return &fs.PathError{Op: "symlink", Path: newname, Err: os.ErrExist}
	}
	parent, filename, err := m.parentAndName(path)
	if err != nil {
		return err
	}
	node := &memNode{name: filename, mode: fs.ModeSymlink | 0777, modTime: time.Now(), isLink: true, linkDest: oldname}
	parent.children[filename] = node
	m.nodes[path] = node
	return nil
}

// Link creates a hard link: newname shares storage with oldname. Fails
// (mirroring the OS) if the two paths are tagged as different volumes.
func (m *Memory) Link(oldname, newname string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.volumeOf(oldname) != m.volumeOf(newname) {
		return &fs.PathError{Op: "link", Path: newname, Err: errors.New("cross-device link")}
	}
	oldPath := clean(oldname)
	if _, err := m.get(oldPath); err != nil {
		return err
	}
	newPath := clean(newname)
	if _, err := m.get(newPath); err == nil {
		return &fs.PathError{Op: "link", Path: newname, Err: os.ErrExist}
	}
	parent, filename, err := m.parentAndName(newPath)
	if err != nil {
		return err
	}
	node := &memNode{name: filename, mode: 0644, modTime: time.Now(), hardTo: oldPath}
	parent.children[filename] = node
	m.nodes[newPath] = node
	return nil
}

func (m *Memory) Readlink(name string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, err := m.get(name)
	if err != nil {
		return "", err
	}
	if !n.isLink {
		return "", &fs.PathError{Op: "readlink", Path: name, Err: errors.New("not a symbolic link")}
	}
	return n.linkDest, nil
}

func (m *Memory) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	path := clean(name)
	n, err := m.get(path)
	if err != nil {
		return err
	}
	if n.isDir && len(n.children) > 0 {
		return &fs.PathError{Op: "remove", Path: name, Err: errors.New("directory not empty")}
	}
	parent, filename, err := m.parentAndName(path)
	if err != nil {
		return err
	}
	delete(parent.children, filename)
	delete(m.nodes, path)
	return nil
}

func (m *Memory) RemoveAll(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = clean(path)
	var toRemove []string
	for p := range m.nodes {
		if p == path || strings.HasPrefix(p, path+"/") {
			toRemove = append(toRemove, p)
		}
	}
	for _, p := range toRemove {
		delete(m.nodes, p)
		if dir := filepath.Dir(p); dir != p {
			if parent, ok := m.nodes[dir]; ok && parent.isDir {
				delete(parent.children, filepath.Base(p))
			}
		}
	}
	return nil
}

// Sync flushes nothing, since the in-memory filesystem has no backing
// storage; it only reports an error if name does not exist.
func (m *Memory) Sync(name string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, err := m.get(name)
	return err
}

func (m *Memory) Rename(oldpath, newpath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	oldPath, newPath := clean(oldpath), clean(newpath)
	n, err := m.get(oldPath)
	if err != nil {
		return err
	}
	oldParent, oldName, err := m.parentAndName(oldPath)
	if err != nil {
		return err
	}
	if _, err := m.get(newPath); err == nil {
		_ = m.removeLocked(newPath)
	}
	newParent, newName, err := m.parentAndName(newPath)
	if err != nil {
		return err
	}
	delete(oldParent.children, oldName)
	delete(m.nodes, oldPath)
	n.name = newName
	newParent.children[newName] = n
	m.nodes[newPath] = n
	return nil
}

func (m *Memory) removeLocked(path string) error {
	n, err := m.get(path)
	if err != nil {
		return err
	}
	parent, filename, err := m.parentAndName(path)
	if err != nil {
		return err
	}
	_ = n
	delete(parent.children, filename)
	delete(m.nodes, path)
	return nil
}

type memInfo struct {
	node *memNode
	name string
}

func (fi *memInfo) Name() string       { return fi.name }
func (fi *memInfo) Size() int64        { return int64(len(fi.node.content)) }
func (fi *memInfo) Mode() fs.FileMode  { return fi.node.mode }
func (fi *memInfo) ModTime() time.Time { return fi.node.modTime }
func (fi *memInfo) IsDir() bool        { return fi.node.isDir }
func (fi *memInfo) Sys() interface{}   { return fi.node }

type memDirEntry struct {
	name string
	info fs.FileInfo
}

func (de *memDirEntry) Name() string               { return de.name }
func (de *memDirEntry) IsDir() bool                { return de.info.IsDir() }
func (de *memDirEntry) Type() fs.FileMode          { return de.info.Mode().Type() }
func (de *memDirEntry) Info() (fs.FileInfo, error) { return de.info, nil }
