// Command catfs mounts a pass-through caching filesystem: reads are
// served from a local cache, paged in from a source directory on
// miss; writes land in both (spec.md section 1/6).
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kahing/catfs/catfs"
	"github.com/kahing/catfs/fuseadapter"
	"github.com/kahing/catfs/internal/catlog"
)

// Exit codes follow spec.md section 6: 0 success, 1 usage error, 2
// source unreadable, 3 cache xattr unsupported, 4 mount failed.
const (
	exitOK = iota
	exitUsage
	exitSourceUnreadable
	exitXattrUnsupported
	exitMountFailed
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	root, flags := newRootCommand()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		return flags.exitCode
	}
	return exitOK
}

type rootFlags struct {
	free       string
	uid        int32
	gid        int32
	allowOther bool
	mountOpts  []string
	verbose    bool

	exitCode int
}

func newRootCommand() (*cobra.Command, *rootFlags) {
	rf := &rootFlags{uid: -1, gid: -1, exitCode: exitUsage}

	cmd := &cobra.Command{
		Use:   "catfs [flags] <source-dir> <cache-dir> <mountpoint>",
		Short: "Pass-through caching filesystem",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 3 {
				return fmt.Errorf("expected exactly 3 arguments, got %d", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMount(rf, args[0], args[1], args[2])
		},
		SilenceUsage:  false,
		SilenceErrors: false,
	}

	fl := cmd.Flags()
	fl.StringVar(&rf.free, "free", "10%", "minimum free space to keep on the cache filesystem (bytes, or K/M/G/T suffix, or a percentage)")
	fl.Int32Var(&rf.uid, "uid", -1, "override reported file owner (-1: use the source's own)")
	fl.Int32Var(&rf.gid, "gid", -1, "override reported file group (-1: use the source's own)")
	fl.BoolVarP(&rf.verbose, "verbose", "v", false, "enable debug logging")
	fl.StringArrayVarP(&rf.mountOpts, "option", "o", nil, "additional FUSE mount option (key or key=value); allow_other is recognized specially")

	return cmd, rf
}

func runMount(rf *rootFlags, sourceDir, cacheDir, mountpoint string) error {
	if rf.verbose {
		catlog.SetLevel(logrus.DebugLevel)
	}

	free, err := catfs.ParseFreeSpace(rf.free)
	if err != nil {
		return err
	}

	opt := catfs.DefaultOptions()
	opt.SourceRoot = sourceDir
	opt.CacheRoot = cacheDir
	opt.Free = free

	var extra []string
	for _, o := range rf.mountOpts {
		if o == "allow_other" {
			opt.AllowOther = true
			continue
		}
		extra = append(extra, o)
	}
	opt.ExtraMountOptions = extra

	if rf.uid >= 0 {
		u := uint32(rf.uid)
		opt.UID = &u
	}
	if rf.gid >= 0 {
		g := uint32(rf.gid)
		opt.GID = &g
	}

	core, err := catfs.NewCore(opt)
	if err != nil {
		switch catfs.KindOf(err) {
		case catfs.KindSourceNotFound:
			rf.exitCode = exitSourceUnreadable
		case catfs.KindXattrUnsupported:
			rf.exitCode = exitXattrUnsupported
		default:
			rf.exitCode = exitMountFailed
		}
		return err
	}
	defer core.Close()

	adapter := fuseadapter.New(core)
	if err := adapter.Mount(mountpoint, opt); err != nil {
		rf.exitCode = exitMountFailed
		return err
	}
	return nil
}
