//go:build linux

package storage

import (
	"fmt"
	"syscall"
)

// Superblock magics from statfs(2). Unknown types are reported in hex.
var linuxFilesystems = map[int64]string{
	0x01021994: "tmpfs",
	0x01021997: "9p",
	0x58465342: "xfs",
	0x6969:     "nfs",
	0x517B:     "smbfs",
	0x65735546: "fuse",
	0x794C7630: "overlay",
	0x9123683E: "btrfs",
	0xEF53:     "ext4",
	0xFE534D42: "smb2",
	0xFF534D42: "cifs",
}

func filesystemType(dir string) (string, error) {
	var st syscall.Statfs_t
	if err := syscall.Statfs(dir, &st); err != nil {
		return "", fmt.Errorf("statfs %s: %w", dir, err)
	}
	magic := int64(uint32(st.Type))
	if name, ok := linuxFilesystems[magic]; ok {
		return name, nil
	}
	return fmt.Sprintf("0x%x", magic), nil
}
