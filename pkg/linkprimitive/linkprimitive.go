// Package linkprimitive implements the Link Primitive (LP) of spec.md
// §4.1: a platform-abstracted single-file link creator with no state of
// its own. It tries symbolic link, then hard link, then byte copy, and
// reports which strategy won.
package linkprimitive

import (
	"context"
	"fmt"
	"path/filepath"

	synthfs "github.com/arthur-debert/synthfs/pkg/synthfs"
	"github.com/arthur-debert/synthfs/pkg/synthfs/core"
	synthfilesystem "github.com/arthur-debert/synthfs/pkg/synthfs/filesystem"
	"github.com/arthur-debert/synthfs/pkg/synthfs/operations"

	"github.com/modforge/modforge/pkg/fsx"
	"github.com/modforge/modforge/pkg/linkkind"
	"github.com/modforge/modforge/pkg/merr"
	"github.com/modforge/modforge/pkg/mlog"
)

// Primitive creates and removes single-file links. It holds no
// ownership state; every call is self-contained, per spec.md §4.1.
type Primitive struct {
	fs fsx.FS
	// pipelineFS backs the synthfs-driven symlink/copy/delete path when
	// fs is real-disk backed. It is rooted at "/" like the teacher's
	// SynthfsExecutor, since synthfs operations address paths relative
	// to a filesystem root.
	pipelineFS synthfs.FileSystem
	// useSynthfs is true only when fs is an fsx.OS. Test doubles (and
	// any future non-OS backend) go through fs directly instead, so
	// unit tests never reach past the injected filesystem seam onto
	// real disk.
	useSynthfs bool
}

// New returns a Primitive whose strategies operate against fsys. When
// fsys is the real OS filesystem, the symbolic/copy/delete strategies
// are driven through the teacher's synthfs pipeline executor, matching
// its own SynthfsExecutor. Any other backend (fsx.Memory in tests) uses
// fsys's own Symlink/ReadFile/WriteFile/Remove directly, so behavior
// stays observable through the same seam callers already control.
func New(fsys fsx.FS) *Primitive {
	_, isOS := fsys.(fsx.OS)
	return &Primitive{
		fs:         fsys,
		pipelineFS: synthfilesystem.NewOSFileSystem("/"),
		useSynthfs: isOS,
	}
}

// CreateLink implements spec.md §4.1's createLink(src, dst, hint)
// contract: try symbolic (unless hinted otherwise), then hard, then
// copy, returning the first strategy that succeeds.
func (p *Primitive) CreateLink(ctx context.Context, src, dst string, hint linkkind.Hint) (linkkind.Kind, error) {
	log := mlog.Get("linkprimitive")

	if hint != linkkind.RequireHard {
		if err := p.trySymlink(ctx, src, dst); err == nil {
			return linkkind.Symbolic, nil
		} else {
			log.Debug().Err(err).Str("dst", dst).Msg("symbolic link failed, falling back")
		}
	}

	same, err := p.fs.SameVolume(src, dst)
	if err == nil && same {
		if err := p.fs.Link(src, dst); err == nil {
			return linkkind.Hard, nil
		} else {
			log.Debug().Err(err).Str("dst", dst).Msg("hard link failed, falling back to copy")
		}
	}

	if err := p.tryCopy(ctx, src, dst); err != nil {
		return linkkind.None, merr.Wrap(err, merr.ErrLinkCreationFailed, "all link strategies exhausted").
			WithDetail("src", src).WithDetail("dst", dst)
	}
	return linkkind.Copy, nil
}

// RemoveLink deletes dst regardless of the strategy that created it. If
// force is false and dst is a regular file whose content differs from
// knownContent (the staged realPath's bytes, when the caller has them),
// removal is refused per spec.md §4.1.
func (p *Primitive) RemoveLink(ctx context.Context, dst string, knownContent []byte, force bool) error {
	if !force && knownContent != nil {
		info, err := p.fs.Lstat(dst)
		if err == nil && info.Mode().IsRegular() {
			actual, err := p.fs.ReadFile(dst)
			if err == nil && string(actual) != string(knownContent) {
				return merr.New(merr.ErrLinkRemovalFailed, "destination content diverges from staged copy").
					WithDetail("dst", dst)
			}
		}
	}
	if err := p.runDelete(ctx, dst); err != nil {
		return merr.Wrap(err, merr.ErrLinkRemovalFailed, "failed to remove link").WithDetail("dst", dst)
	}
	return nil
}

// Probe returns the best link kind the host currently supports, by
// attempting each strategy against a throwaway pair of paths under dir.
// Callers invoke this once at startup to surface capability warnings.
func (p *Primitive) Probe(ctx context.Context, dir string) (linkkind.Kind, error) {
	probeSrc := filepath.Join(dir, ".modforge-probe-src")
	probeDst := filepath.Join(dir, ".modforge-probe-dst")
	if err := p.fs.WriteFile(probeSrc, []byte("probe"), 0644); err != nil {
		return linkkind.None, err
	}
	defer p.fs.Remove(probeSrc)

	kind, err := p.CreateLink(ctx, probeSrc, probeDst, linkkind.NoHint)
	if err == nil {
		_ = p.RemoveLink(ctx, probeDst, nil, true)
	}
	return kind, err
}

func (p *Primitive) trySymlink(ctx context.Context, src, dst string) error {
	if !p.useSynthfs {
		return p.fs.Symlink(src, dst)
	}

	relPath, err := filepath.Rel("/", dst)
	if err != nil {
		return fmt.Errorf("rel dst: %w", err)
	}
	relSrc, err := filepath.Rel("/", src)
	if err != nil {
		return fmt.Errorf("rel src: %w", err)
	}

	opID := core.OperationID(fmt.Sprintf("symlink-%s", dst))
	symlinkOp := operations.NewCreateSymlinkOperation(opID, relPath)
	symlinkOp.SetDescriptionDetail("target", relSrc)

	pipeline := synthfs.NewMemPipeline()
	if err := pipeline.Add(synthfs.NewOperationsPackageAdapter(symlinkOp)); err != nil {
		return err
	}
	result := synthfs.NewExecutor().Run(ctx, pipeline, p.pipelineFS)
	return result.GetError()
}

func (p *Primitive) tryCopy(ctx context.Context, src, dst string) error {
	if !p.useSynthfs {
		content, err := p.fs.ReadFile(src)
		if err != nil {
			return err
		}
		return p.fs.WriteFile(dst, content, 0644)
	}

	relSrc, err := filepath.Rel("/", src)
	if err != nil {
		return fmt.Errorf("rel src: %w", err)
	}
	relDst, err := filepath.Rel("/", dst)
	if err != nil {
		return fmt.Errorf("rel dst: %w", err)
	}

	opID := core.OperationID(fmt.Sprintf("copy-%s-to-%s", filepath.Base(src), dst))
	copyOp := operations.NewCopyOperation(opID, relDst)
	copyOp.SetPaths(relSrc, relDst)

	pipeline := synthfs.NewMemPipeline()
	if err := pipeline.Add(synthfs.NewOperationsPackageAdapter(copyOp)); err != nil {
		return err
	}
	result := synthfs.NewExecutor().Run(ctx, pipeline, p.pipelineFS)
	return result.GetError()
}

func (p *Primitive) runDelete(ctx context.Context, dst string) error {
	if !p.useSynthfs {
		return p.fs.Remove(dst)
	}

	relPath, err := filepath.Rel("/", dst)
	if err != nil {
		return fmt.Errorf("rel dst: %w", err)
	}
	opID := core.OperationID(fmt.Sprintf("delete-%s", dst))
	deleteOp := operations.NewDeleteOperation(opID, relPath)

	pipeline := synthfs.NewMemPipeline()
	if err := pipeline.Add(synthfs.NewOperationsPackageAdapter(deleteOp)); err != nil {
		return err
	}
	result := synthfs.NewExecutor().Run(ctx, pipeline, p.pipelineFS)
	return result.GetError()
}
