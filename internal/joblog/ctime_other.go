//go:build !darwin && !linux

package joblog

import (
	"os"
	"time"
)

// creationTime falls back to the modification time where no portable change
// time is exposed.
func creationTime(info os.FileInfo) time.Time {
	return info.ModTime()
}
