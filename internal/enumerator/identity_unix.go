//go:build !windows

package enumerator

import (
	"io/fs"
	"syscall"
	"time"
)

// fileIdentity extracts the (device, inode) pair used for hardlink
// detection in the Duplicate Comparator.
func fileIdentity(info fs.FileInfo) (dev, ino uint64) {
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		return uint64(stat.Dev), uint64(stat.Ino)
	}
	return 0, 0
}

// createdTime returns the best available creation time. Most unix
// filesystems don't expose birth time through syscall.Stat_t; modification
// time is used as a stable fallback.
func createdTime(info fs.FileInfo) time.Time {
	return info.ModTime()
}
