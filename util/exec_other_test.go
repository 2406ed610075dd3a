//go:build !windows

package util

import "strconv"

func exitCodeCommand(code int) []string {
	return []string{"sh", "-c", "exit " + strconv.Itoa(code)}
}
