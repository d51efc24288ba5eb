package vma

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/modforge/modforge/pkg/events"
	"github.com/modforge/modforge/pkg/fsx"
	"github.com/modforge/modforge/pkg/gamemode"
	"github.com/modforge/modforge/pkg/ledger"
	"github.com/modforge/modforge/pkg/linkprimitive"
	"github.com/modforge/modforge/pkg/merr"
	"github.com/modforge/modforge/pkg/model"
)

// Activator is the Virtual Mod Activator. It holds the authoritative
// in-memory VirtualLink set, reconciles it with the game directory
// through a Primitive, and delegates ownership decisions to an
// OwnershipOracle (normally *ledger.Ledger).
type Activator struct {
	mu sync.RWMutex

	stagingRoot string
	gameRoot    string
	fs          fsx.FS
	lp          *linkprimitive.Primitive
	oracle      ledger.OwnershipOracle
	game        gamemode.Descriptor
	bus         *events.Bus

	// links is keyed by the normalized virtual path; each path may hold
	// one VirtualLink per mod that has staged a file there.
	links   map[string][]*VirtualLink
	modInfo map[model.ModKey]VirtualModInfo
	state   map[model.ModKey]State

	insertionCounter int64

	// MultiVolume, when true, mirrors a mod's staged file onto the
	// game's volume before attempting a hard link, per spec.md §4.3.
	MultiVolume bool
	MirrorDir   string
}

// New returns an Activator staging mods under stagingRoot and
// materializing into gameRoot, consulting oracle for ownership and game
// for path adjustment and link-kind hints.
func New(fs fsx.FS, lp *linkprimitive.Primitive, oracle ledger.OwnershipOracle, game gamemode.Descriptor, stagingRoot, gameRoot string, bus *events.Bus) *Activator {
	return &Activator{
		stagingRoot: stagingRoot,
		gameRoot:    gameRoot,
		fs:          fs,
		lp:          lp,
		oracle:      oracle,
		game:        game,
		bus:         bus,
		links:       make(map[string][]*VirtualLink),
		modInfo:     make(map[model.ModKey]VirtualModInfo),
		state:       make(map[model.ModKey]State),
	}
}

// IsActive implements ledger.ActiveModSet.
func (a *Activator) IsActive(key model.ModKey) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state[key] == Active
}

// StageMod registers mod's overlay metadata and transitions it to
// Staged, the entry point of the state machine in spec.md §4.3.
func (a *Activator) StageMod(info VirtualModInfo) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.modInfo[info.ModKey] = info
	if _, ok := a.state[info.ModKey]; !ok {
		a.state[info.ModKey] = Staged
	}
}

// UnstageMod drops mod's overlay metadata and state entirely, the
// inverse of StageMod. Callers must have already removed every
// VirtualLink the mod held (RemoveFileLink for each); UnstageMod does
// not touch a.links itself.
func (a *Activator) UnstageMod(mod model.ModKey) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.modInfo, mod)
	delete(a.state, mod)
}

// ModInfoOf returns mod's registered overlay metadata, or false if it
// was never staged.
func (a *Activator) ModInfoOf(mod model.ModKey) (VirtualModInfo, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	info, ok := a.modInfo[mod]
	return info, ok
}

func (a *Activator) stagingPath(mod model.ModKey, virtualPath string) string {
	return filepath.Join(a.stagingRoot, string(mod), virtualPath)
}

func (a *Activator) gamePath(virtualPath string) string {
	return filepath.Join(a.gameRoot, virtualPath)
}

func (a *Activator) nextInsertion() int64 {
	return atomic.AddInt64(&a.insertionCounter, 1)
}

// AddFileLink registers a VirtualLink for mod at baseFilePath, adjusted
// through the game mode's path hook, and reconciles materialization for
// its virtual path (spec.md §4.3). switching, for mid-profile-swap
// callers, skips the ledger's AddFile call altogether: no OriginalValues
// backup is captured, and no ledger ownership entry is recorded for mod
// at that path either.
func (a *Activator) AddFileLink(ctx context.Context, mod model.ModKey, baseFilePath string, switching bool, priority int) (string, error) {
	a.mu.Lock()
	virtualPath := a.game.AdjustPath(baseFilePath)
	link := &VirtualLink{
		ModKey:         mod,
		RealPath:       a.stagingPath(mod, virtualPath),
		VirtualPath:    virtualPath,
		Priority:       priority,
		insertionOrder: a.nextInsertion(),
	}
	key := normVirtualPath(virtualPath)
	a.links[key] = append(a.links[key], link)
	a.mu.Unlock()

	if !switching {
		if err := a.oracle.AddFile(mod, virtualPath); err != nil {
			return "", err
		}
	}

	if err := a.reconcile(ctx, key); err != nil {
		return "", err
	}
	return virtualPath, nil
}

// RemoveFileLink deletes the (mod, virtualPath) record. If mod was the
// materialized owner, the materialization is removed and the new
// winner (if any) is materialized in its place.
func (a *Activator) RemoveFileLink(ctx context.Context, virtualPath string, mod model.ModKey) error {
	key := normVirtualPath(virtualPath)

	a.mu.Lock()
	list := a.links[key]
	idx := -1
	for i, l := range list {
		if l.ModKey == mod {
			idx = i
			break
		}
	}
	if idx < 0 {
		a.mu.Unlock()
		return nil
	}
	removed := list[idx]
	a.links[key] = append(list[:idx], list[idx+1:]...)
	if len(a.links[key]) == 0 {
		delete(a.links, key)
	}
	wasActive := removed.IsActive
	a.mu.Unlock()

	if wasActive {
		if err := a.lp.RemoveLink(ctx, a.gamePath(virtualPath), nil, true); err != nil {
			return err
		}
	}

	// The materialization is removed first, so OriginalValues bytes the
	// ledger writes back when its stack empties are not deleted with it.
	if err := a.oracle.RemoveFile(mod, virtualPath); err != nil {
		return err
	}
	return a.reconcile(ctx, key)
}

// winnerLocked returns the active-mod link with the max (priority,
// insertionOrder) key for path, or nil if none is active. Callers must
// hold a.mu.
func (a *Activator) winnerLocked(key string) *VirtualLink {
	var winner *VirtualLink
	for _, l := range a.links[key] {
		if a.state[l.ModKey] != Active {
			continue
		}
		if winner == nil || l.Priority > winner.Priority ||
			(l.Priority == winner.Priority && l.insertionOrder > winner.insertionOrder) {
			winner = l
		}
	}
	return winner
}

// reconcile recomputes the winner for the virtual path key and
// materializes/re-materializes/un-materializes accordingly, implementing
// the invariant "Mirror consistency" (spec.md §8) and the "Priority
// winner" tie-break (highest priority, then latest insertion).
func (a *Activator) reconcile(ctx context.Context, key string) error {
	a.mu.Lock()
	winner := a.winnerLocked(key)
	var toDemote []*VirtualLink
	for _, l := range a.links[key] {
		if l != winner && l.IsActive {
			toDemote = append(toDemote, l)
		}
	}
	a.mu.Unlock()

	for _, l := range toDemote {
		if err := a.lp.RemoveLink(ctx, a.gamePath(l.VirtualPath), nil, true); err != nil {
			return err
		}
		a.mu.Lock()
		l.IsActive = false
		a.mu.Unlock()
	}

	if winner == nil {
		if len(toDemote) > 0 {
			virtualPath := toDemote[0].VirtualPath
			return a.oracle.RestoreOriginalContent(virtualPath)
		}
		return nil
	}

	a.mu.RLock()
	alreadyMaterialized := winner.IsActive
	a.mu.RUnlock()
	if alreadyMaterialized {
		return nil
	}

	src, err := a.stageSource(winner)
	if err != nil {
		return err
	}
	if _, err := a.fs.Stat(src); err != nil {
		return merr.Wrap(err, merr.ErrStagingCorrupt, "staged source missing").
			WithDetail("realPath", src)
	}

	hint := a.game.LinkHint(winner.VirtualPath)
	if _, err := a.lp.CreateLink(ctx, src, a.gamePath(winner.VirtualPath), hint); err != nil {
		return merr.Wrap(err, merr.ErrLinkCreationFailed, "materializing virtual link").
			WithDetail("virtualPath", winner.VirtualPath)
	}

	a.mu.Lock()
	winner.IsActive = true
	a.mu.Unlock()
	return nil
}

// stageSource returns the staged source path to link from, mirroring it
// onto the game's volume first when MultiVolume is enabled and the two
// don't already share a volume (spec.md §4.3, scenario S4).
func (a *Activator) stageSource(link *VirtualLink) (string, error) {
	if !a.MultiVolume {
		return link.RealPath, nil
	}
	same, err := a.fs.SameVolume(link.RealPath, a.gamePath(link.VirtualPath))
	if err != nil || same {
		return link.RealPath, nil
	}

	mirrorPath := filepath.Join(a.MirrorDir, string(link.ModKey), link.VirtualPath)
	content, err := a.fs.ReadFile(link.RealPath)
	if err != nil {
		return "", merr.Wrap(err, merr.ErrStagingCorrupt, "reading staged source for mirror").
			WithDetail("realPath", link.RealPath)
	}
	if err := a.fs.MkdirAll(filepath.Dir(mirrorPath), 0755); err != nil {
		return "", err
	}
	if err := a.fs.WriteFile(mirrorPath, content, 0644); err != nil {
		return "", err
	}
	return mirrorPath, nil
}

// EnableMod transitions mod to Active and materializes every file it
// stages, under a single logical operation. File-level work fans out
// concurrently via errgroup; the first failure cancels the group.
func (a *Activator) EnableMod(ctx context.Context, mod model.ModKey) error {
	a.mu.Lock()
	a.state[mod] = Active
	keys := a.linkKeysForModLocked(mod)
	a.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, key := range keys {
		key := key
		g.Go(func() error { return a.reconcile(gctx, key) })
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if a.bus != nil {
		a.bus.Publish(events.ModActivationChanged{ModKey: mod, Active: true})
	}
	return nil
}

// DisableMod transitions mod to Staged and un-materializes every link
// it currently owns, materializing the next-highest winner (if any) in
// its place.
func (a *Activator) DisableMod(ctx context.Context, mod model.ModKey) error {
	a.mu.Lock()
	a.state[mod] = Staged
	keys := a.linkKeysForModLocked(mod)
	a.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, key := range keys {
		key := key
		g.Go(func() error { return a.reconcile(gctx, key) })
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if a.bus != nil {
		a.bus.Publish(events.ModActivationChanged{ModKey: mod, Active: false})
	}
	return nil
}

func (a *Activator) linkKeysForModLocked(mod model.ModKey) []string {
	var keys []string
	for key, list := range a.links {
		for _, l := range list {
			if l.ModKey == mod {
				keys = append(keys, key)
				break
			}
		}
	}
	return keys
}

// UpdateLinkPriority recomputes the winner for link.VirtualPath after
// its priority changes, re-materializing if the winner changed
// (spec.md §4.3, scenario S6).
func (a *Activator) UpdateLinkPriority(ctx context.Context, link *VirtualLink, newPriority int) error {
	a.mu.Lock()
	link.Priority = newPriority
	key := normVirtualPath(link.VirtualPath)
	a.mu.Unlock()
	return a.reconcile(ctx, key)
}

// PurgeLinks removes every materialization from the game directory,
// leaving staging intact, and restores OriginalValues wherever present
// (spec.md §4.3). Work fans out per virtual path via errgroup.
func (a *Activator) PurgeLinks(ctx context.Context) error {
	a.mu.RLock()
	type target struct {
		virtualPath string
		wasActive   bool
	}
	var targets []target
	for _, list := range a.links {
		for _, l := range list {
			targets = append(targets, target{virtualPath: l.VirtualPath, wasActive: l.IsActive})
			l.IsActive = false
		}
	}
	a.mu.RUnlock()

	g, _ := errgroup.WithContext(ctx)
	for _, t := range targets {
		t := t
		if !t.wasActive {
			continue
		}
		g.Go(func() error {
			if err := a.lp.RemoveLink(ctx, a.gamePath(t.virtualPath), nil, true); err != nil {
				return err
			}
			return a.oracle.RestoreOriginalContent(t.virtualPath)
		})
	}
	return g.Wait()
}

// FindLink returns the live VirtualLink registered for (virtualPath,
// mod), or nil if none exists. Unlike Links, the returned pointer
// aliases internal state and is the correct handle to pass to
// UpdateLinkPriority.
func (a *Activator) FindLink(virtualPath string, mod model.ModKey) *VirtualLink {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, l := range a.links[normVirtualPath(virtualPath)] {
		if l.ModKey == mod {
			return l
		}
	}
	return nil
}

// Links returns a snapshot of every VirtualLink registered for
// virtualPath.
func (a *Activator) Links(virtualPath string) []VirtualLink {
	a.mu.RLock()
	defer a.mu.RUnlock()
	list := a.links[normVirtualPath(virtualPath)]
	out := make([]VirtualLink, len(list))
	for i, l := range list {
		out[i] = *l
	}
	return out
}

// StateOf returns mod's current position in the VMA state machine.
func (a *Activator) StateOf(mod model.ModKey) State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state[mod]
}
