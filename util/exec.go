package util

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

var (
	// DefaultCmdTimeout 普通命令超时
	DefaultCmdTimeout = 10 * time.Minute
	// LongCmdTimeout dism / msiexec 等长耗时命令超时
	LongCmdTimeout = 60 * time.Minute
)

// CmdResult 外部命令执行结果
// ExitCode 为 -1 表示进程未能启动或被取消
type CmdResult struct {
	ExitCode int
	Output   string
	Err      error
}

// Succeeded 进程以 0 退出
func (r CmdResult) Succeeded() bool {
	return r.Err == nil && r.ExitCode == 0
}

// RunPowerShell 执行 PowerShell 命令（隐藏窗口，UTF-8 输出）
func RunPowerShell(script string) (string, error) {
	// 在脚本开头设置 UTF-8 输出编码
	fullScript := "[Console]::OutputEncoding = [System.Text.Encoding]::UTF8; " + script

	ctx, cancel := context.WithTimeout(context.Background(), DefaultCmdTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "powershell", "-NoProfile", "-NonInteractive", "-WindowStyle", "Hidden", "-Command", fullScript)
	hideWindow(cmd)

	output, err := cmd.Output()
	if err != nil {
		return "", err
	}

	return string(output), nil
}

// RunPowerShellCombined 执行 PowerShell 命令，返回 stdout + stderr
func RunPowerShellCombined(script string) (string, error) {
	fullScript := "[Console]::OutputEncoding = [System.Text.Encoding]::UTF8; " + script

	ctx, cancel := context.WithTimeout(context.Background(), DefaultCmdTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "powershell", "-NoProfile", "-NonInteractive", "-WindowStyle", "Hidden", "-Command", fullScript)
	hideWindow(cmd)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return string(output), err
	}

	return string(output), nil
}

// RunCmd 执行普通命令（隐藏窗口）
func RunCmd(name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultCmdTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	hideWindow(cmd)

	output, err := cmd.Output()
	if err != nil {
		return "", err
	}

	// appcmd / netsh 等命令可能输出 GBK 编码，尝试转换
	utf8Output, convErr := GBKToUTF8(output)
	if convErr != nil {
		return string(output), nil
	}

	return string(utf8Output), nil
}

// RunCmdCombined 执行普通命令，返回 stdout + stderr
func RunCmdCombined(name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultCmdTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	hideWindow(cmd)

	output, err := cmd.CombinedOutput()

	// 尝试 GBK 转 UTF-8
	utf8Output, convErr := GBKToUTF8(output)
	if convErr != nil {
		return string(output), err
	}

	return string(utf8Output), err
}

// RunCmdResult 执行命令并保留退出码
// 非零退出码不算 Err，只有进程无法启动、超时或被取消时 Err 才非空
func RunCmdResult(ctx context.Context, timeout time.Duration, name string, args ...string) CmdResult {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	hideWindow(cmd)

	output, err := cmd.CombinedOutput()
	text := string(output)
	if utf8Output, convErr := GBKToUTF8(output); convErr == nil {
		text = string(utf8Output)
	}

	result := CmdResult{Output: text}
	if err == nil {
		return result
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		result.ExitCode = exitErr.ExitCode()
		return result
	}

	result.ExitCode = -1
	if ctx.Err() != nil {
		result.Err = ctx.Err()
	} else {
		result.Err = err
	}
	return result
}

// GBKToUTF8 将 GBK 编码转换为 UTF-8
// 如果已经是有效的 UTF-8 且包含中文，则不转换
func GBKToUTF8(data []byte) ([]byte, error) {
	// 如果已经是有效的 UTF-8，直接返回
	if utf8.Valid(data) && containsChineseUTF8(data) {
		return data, nil
	}

	reader := transform.NewReader(bytes.NewReader(data), simplifiedchinese.GBK.NewDecoder())
	var buf bytes.Buffer
	_, err := buf.ReadFrom(reader)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// containsChineseUTF8 检查是否包含 UTF-8 编码的中文字符
func containsChineseUTF8(data []byte) bool {
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r >= 0x4E00 && r <= 0x9FFF {
			return true
		}
		data = data[size:]
	}
	return false
}
