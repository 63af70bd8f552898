//go:build linux

package joblog

import (
	"os"
	"syscall"
	"time"
)

// creationTime reports the inode change time (st_ctim), which is set when the
// log file is created and is what runs are ordered by.
func creationTime(info os.FileInfo) time.Time {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return info.ModTime()
	}
	return time.Unix(int64(st.Ctim.Sec), int64(st.Ctim.Nsec))
}
