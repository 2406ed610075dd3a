//go:build !windows

package util

import "os/exec"

func hideWindow(cmd *exec.Cmd) {}
