//go:build windows

package enumerator

import (
	"io/fs"
	"syscall"
	"time"
)

// fileIdentity has no portable hardlink identity on Windows through
// os.FileInfo alone (it would require re-opening the file with
// GetFileInformationByHandle); returning zero values means hardlink
// exclusion is simply never triggered on this platform, which is safe —
// it only widens the comparison set, it never drops a real match.
func fileIdentity(info fs.FileInfo) (dev, ino uint64) {
	return 0, 0
}

// createdTime reads the Win32 creation time exposed on *syscall.Win32FileAttributeData.
func createdTime(info fs.FileInfo) time.Time {
	if data, ok := info.Sys().(*syscall.Win32FileAttributeData); ok {
		return time.Unix(0, data.CreationTime.Nanoseconds())
	}
	return info.ModTime()
}
