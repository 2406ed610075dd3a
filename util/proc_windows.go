//go:build windows

package util

import (
	"os/exec"
	"syscall"
)

// hideWindow 隐藏子进程控制台窗口
func hideWindow(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: 0x08000000, // CREATE_NO_WINDOW
	}
}
