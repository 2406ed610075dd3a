//go:build !windows

package util

import "os"

// IsAdmin 非 Windows 平台按 root 判断
func IsAdmin() bool {
	return os.Geteuid() == 0
}
