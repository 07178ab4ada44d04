// Package fuseadapter translates the bazil.org/fuse kernel protocol
// into calls on a *catfs.Core. It is deliberately thin: every method
// here either maps straight onto a Core façade method or manages the
// small amount of state (open FileHandles, directory node identity)
// the kernel protocol itself requires (spec.md section 1: "the kernel
// adapter is out of scope for the core" / section 6).
package fuseadapter

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"

	"github.com/kahing/catfs/catfs"
	"github.com/kahing/catfs/internal/catlog"
)

// FS is the bazil.org/fuse root filesystem object for one mount.
type FS struct {
	core *catfs.Core
}

// New wraps an already-constructed Core for serving.
func New(core *catfs.Core) *FS { return &FS{core: core} }

// Mount mounts the filesystem at mountpoint and serves requests until
// the connection is closed, mirroring the teacher's cmd/mountlib mount
// loop (fuse.Mount + fs.Serve + waiting on conn.Close).
func (f *FS) Mount(mountpoint string, opt catfs.Options) error {
	options := []fuse.MountOption{
		fuse.FSName("catfs"),
		fuse.Subtype("catfs"),
		fuse.LocalVolume(),
		fuse.VolumeName(filepath.Base(opt.SourceRoot)),
	}
	if opt.AllowOther {
		options = append(options, fuse.AllowOther())
	}
	for _, extra := range opt.ExtraMountOptions {
		options = append(options, fuse.MountOption(extra))
	}

	conn, err := fuse.Mount(mountpoint, options...)
	if err != nil {
		return err
	}
	defer conn.Close()

	catlog.Infof(mountpoint, "serving fuse connection")
	if err := fs.Serve(conn, f); err != nil {
		return err
	}

	<-conn.Ready
	return conn.MountError
}

// Root implements fs.FS.
func (f *FS) Root() (fs.Node, error) {
	return &Node{fs: f, rel: ""}, nil
}

// Node is one path within the mount. bazil.org/fuse identifies nodes
// by the fs.Node value returned from Lookup, so Node carries its own
// relative path rather than an inode number (spec.md has no notion of
// inodes; everything is addressed by path, as in the source/cache
// model itself).
type Node struct {
	fs  *FS
	rel string
}

var (
	_ fs.Node                = (*Node)(nil)
	_ fs.NodeRequestLookuper = (*Node)(nil)
	_ fs.HandleReadDirAller  = (*Node)(nil)
	_ fs.NodeOpener          = (*Node)(nil)
	_ fs.NodeCreater         = (*Node)(nil)
	_ fs.NodeMkdirer         = (*Node)(nil)
	_ fs.NodeRemover         = (*Node)(nil)
	_ fs.NodeRenamer         = (*Node)(nil)
	_ fs.NodeSymlinker       = (*Node)(nil)
	_ fs.NodeReadlinker      = (*Node)(nil)
	_ fs.NodeSetattrer       = (*Node)(nil)
	_ fs.NodeGetxattrer      = (*Node)(nil)
	_ fs.NodeSetxattrer      = (*Node)(nil)
	_ fs.NodeListxattrer     = (*Node)(nil)
	_ fs.NodeRemovexattrer   = (*Node)(nil)
	_ fs.FSStatfser          = (*FS)(nil)
)

func toFuseErr(err error) error {
	if err == nil {
		return nil
	}
	return fuse.Errno(catfs.Errno(err))
}

func attrToFuse(a catfs.Attr, out *fuse.Attr) {
	out.Size = uint64(a.Size)
	out.Mtime = a.ModTime
	out.Mode = a.Mode
	out.Uid = a.UID
	out.Gid = a.GID
	if a.IsDir {
		out.Mode |= os.ModeDir
	}
}

// Attr implements fs.Node.
func (n *Node) Attr(ctx context.Context, out *fuse.Attr) error {
	a, err := n.fs.core.Getattr(n.rel)
	if err != nil {
		return toFuseErr(err)
	}
	attrToFuse(a, out)
	return nil
}

// Lookup implements fs.NodeRequestLookuper.
func (n *Node) Lookup(ctx context.Context, req *fuse.LookupRequest, resp *fuse.LookupResponse) (fs.Node, error) {
	child := filepath.Join(n.rel, req.Name)
	a, err := n.fs.core.Lookup(child)
	if err != nil {
		return nil, toFuseErr(err)
	}
	attrToFuse(a, &resp.Attr)
	return &Node{fs: n.fs, rel: child}, nil
}

// ReadDirAll implements fs.HandleReadDirAller.
func (n *Node) ReadDirAll(ctx context.Context) ([]fuse.Dirent, error) {
	ents, err := n.fs.core.Readdir(n.rel)
	if err != nil {
		return nil, toFuseErr(err)
	}
	out := make([]fuse.Dirent, 0, len(ents))
	for _, e := range ents {
		typ := fuse.DT_File
		if e.IsDir() {
			typ = fuse.DT_Dir
		}
		out = append(out, fuse.Dirent{Name: e.Name(), Type: typ})
	}
	return out, nil
}

// Open implements fs.NodeOpener, translating the kernel's open flags
// into catfs's openFlags and wrapping the resulting *catfs.FileHandle
// in a Handle (spec.md section 4.3 "open").
func (n *Node) Open(ctx context.Context, req *fuse.OpenRequest, resp *fuse.OpenResponse) (fs.Handle, error) {
	flags := catfs.OpenFlags{
		Read:  req.Flags.IsReadOnly() || req.Flags.IsReadWrite(),
		Write: req.Flags.IsWriteOnly() || req.Flags.IsReadWrite(),
	}
	fh, err := n.fs.core.Open(n.rel, flags)
	if err != nil {
		return nil, toFuseErr(err)
	}
	return &Handle{fh: fh}, nil
}

// Create implements fs.NodeCreater: combined create+open.
func (n *Node) Create(ctx context.Context, req *fuse.CreateRequest, resp *fuse.CreateResponse, respLookup *fuse.LookupResponse) (fs.Node, fs.Handle, error) {
	child := filepath.Join(n.rel, req.Name)
	flags := catfs.OpenFlags{Read: true, Write: true, Create: true}
	fh, err := n.fs.core.Open(child, flags)
	if err != nil {
		return nil, nil, toFuseErr(err)
	}
	a, aerr := n.fs.core.Getattr(child)
	if aerr == nil {
		attrToFuse(a, &respLookup.Attr)
	}
	return &Node{fs: n.fs, rel: child}, &Handle{fh: fh}, nil
}

// Mkdir implements fs.NodeMkdirer.
func (n *Node) Mkdir(ctx context.Context, req *fuse.MkdirRequest) (fs.Node, error) {
	child := filepath.Join(n.rel, req.Name)
	if err := n.fs.core.Mkdir(child, req.Mode); err != nil {
		return nil, toFuseErr(err)
	}
	return &Node{fs: n.fs, rel: child}, nil
}

// Remove implements fs.NodeRemover (both unlink and rmdir).
func (n *Node) Remove(ctx context.Context, req *fuse.RemoveRequest) error {
	child := filepath.Join(n.rel, req.Name)
	if req.Dir {
		return toFuseErr(n.fs.core.Rmdir(child))
	}
	return toFuseErr(n.fs.core.Unlink(child))
}

// Rename implements fs.NodeRenamer.
func (n *Node) Rename(ctx context.Context, req *fuse.RenameRequest, newDir fs.Node) error {
	newParent, ok := newDir.(*Node)
	if !ok {
		return fuse.EIO
	}
	oldChild := filepath.Join(n.rel, req.OldName)
	newChild := filepath.Join(newParent.rel, req.NewName)
	return toFuseErr(n.fs.core.Rename(oldChild, newChild))
}

// Symlink implements fs.NodeSymlinker.
func (n *Node) Symlink(ctx context.Context, req *fuse.SymlinkRequest) (fs.Node, error) {
	child := filepath.Join(n.rel, req.NewName)
	if err := n.fs.core.Symlink(req.Target, child); err != nil {
		return nil, toFuseErr(err)
	}
	return &Node{fs: n.fs, rel: child}, nil
}

// Readlink implements fs.NodeReadlinker.
func (n *Node) Readlink(ctx context.Context, req *fuse.ReadlinkRequest) (string, error) {
	target, err := n.fs.core.Readlink(n.rel)
	return target, toFuseErr(err)
}

// Setattr implements fs.NodeSetattrer: chmod/chown/truncate/utimens,
// dispatched per the valid-field bitmask the kernel sets.
func (n *Node) Setattr(ctx context.Context, req *fuse.SetattrRequest, resp *fuse.SetattrResponse) error {
	if req.Valid.Mode() {
		if err := n.fs.core.Chmod(n.rel, req.Mode); err != nil {
			return toFuseErr(err)
		}
	}
	if req.Valid.Uid() || req.Valid.Gid() {
		if err := n.fs.core.Chown(n.rel, int(req.Uid), int(req.Gid)); err != nil {
			return toFuseErr(err)
		}
	}
	if req.Valid.Mtime() || req.Valid.Atime() {
		if err := n.fs.core.Utimens(n.rel, req.Atime, req.Mtime); err != nil {
			return toFuseErr(err)
		}
	}
	if req.Valid.Size() {
		fh, err := n.fs.core.Open(n.rel, catfs.OpenFlags{Read: true, Write: true})
		if err != nil {
			return toFuseErr(err)
		}
		terr := fh.Truncate(int64(req.Size))
		_ = fh.Release()
		if terr != nil {
			return toFuseErr(terr)
		}
	}
	a, err := n.fs.core.Getattr(n.rel)
	if err != nil {
		return toFuseErr(err)
	}
	attrToFuse(a, &resp.Attr)
	return nil
}

// Getxattr/Setxattr/Listxattr/Removexattr implement the xattr
// passthrough family, with the reserved fingerprint key filtered by
// Core itself (spec.md section 6).
func (n *Node) Getxattr(ctx context.Context, req *fuse.GetxattrRequest, resp *fuse.GetxattrResponse) error {
	v, err := n.fs.core.Getxattr(n.rel, req.Name)
	if err != nil {
		return toFuseErr(err)
	}
	resp.Xattr = v
	return nil
}

func (n *Node) Setxattr(ctx context.Context, req *fuse.SetxattrRequest) error {
	return toFuseErr(n.fs.core.Setxattr(n.rel, req.Name, req.Xattr))
}

func (n *Node) Listxattr(ctx context.Context, req *fuse.ListxattrRequest, resp *fuse.ListxattrResponse) error {
	names, err := n.fs.core.Listxattr(n.rel)
	if err != nil {
		return toFuseErr(err)
	}
	for _, name := range names {
		resp.Append(name)
	}
	return nil
}

func (n *Node) Removexattr(ctx context.Context, req *fuse.RemovexattrRequest) error {
	return toFuseErr(n.fs.core.Removexattr(n.rel, req.Name))
}

// Statfs implements fs.FSStatfser.
func (f *FS) Statfs(ctx context.Context, req *fuse.StatfsRequest, resp *fuse.StatfsResponse) error {
	space, err := f.core.Statfs()
	if err != nil {
		return toFuseErr(err)
	}
	const bsize = 4096
	resp.Bsize = bsize
	resp.Blocks = space.Total / bsize
	resp.Bfree = space.Free / bsize
	resp.Bavail = space.Free / bsize
	return nil
}

// Handle is the per-open-file bazil.org/fuse handle, wrapping a
// *catfs.FileHandle (spec.md section 3 "FileHandle").
type Handle struct {
	fh *catfs.FileHandle
}

var (
	_ fs.HandleReader   = (*Handle)(nil)
	_ fs.HandleWriter   = (*Handle)(nil)
	_ fs.HandleFlusher  = (*Handle)(nil)
	_ fs.HandleReleaser = (*Handle)(nil)
	_ fs.HandleFsyncer  = (*Handle)(nil)
)

func (h *Handle) Read(ctx context.Context, req *fuse.ReadRequest, resp *fuse.ReadResponse) error {
	buf := make([]byte, req.Size)
	n, err := h.fh.Read(req.Offset, buf)
	if err != nil && err != io.EOF {
		return toFuseErr(err)
	}
	resp.Data = buf[:n]
	return nil
}

func (h *Handle) Write(ctx context.Context, req *fuse.WriteRequest, resp *fuse.WriteResponse) error {
	n, err := h.fh.Write(req.Offset, req.Data)
	resp.Size = n
	return toFuseErr(err)
}

func (h *Handle) Flush(ctx context.Context, req *fuse.FlushRequest) error {
	return toFuseErr(h.fh.Flush())
}

func (h *Handle) Release(ctx context.Context, req *fuse.ReleaseRequest) error {
	return toFuseErr(h.fh.Release())
}

func (h *Handle) Fsync(ctx context.Context, req *fuse.FsyncRequest) error {
	return toFuseErr(h.fh.Sync())
}
