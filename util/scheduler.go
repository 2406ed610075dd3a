package util

import (
	"fmt"
	"os"
	"strings"
)

const DefaultTaskName = "IISProvision"

// IsTaskExists 检查任务是否存在
func IsTaskExists(taskName string) bool {
	if err := ValidateTaskName(taskName); err != nil {
		return false
	}

	output, err := RunCmdCombined("schtasks", "/query", "/tn", taskName)
	if err != nil {
		return false
	}
	return strings.Contains(output, taskName)
}

// BuildTaskCommand 构造计划任务执行的命令行
func BuildTaskCommand(exePath string, args ...string) string {
	parts := []string{fmt.Sprintf("\"%s\"", exePath)}
	for _, arg := range args {
		if strings.ContainsAny(arg, " \t") {
			arg = fmt.Sprintf("\"%s\"", arg)
		}
		parts = append(parts, arg)
	}
	return strings.Join(parts, " ")
}

// CreateTask 创建周期性重新执行配置的计划任务
// intervalHours: 执行间隔（小时）；args 追加到本程序命令行
func CreateTask(taskName string, intervalHours int, args ...string) error {
	if err := ValidateTaskName(taskName); err != nil {
		return fmt.Errorf("无效的任务名称: %w", err)
	}
	if intervalHours < 1 || intervalHours > 23 {
		return fmt.Errorf("执行间隔必须在 1-23 小时之间")
	}

	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("获取程序路径失败: %v", err)
	}

	// 删除已存在的任务（如果有）
	DeleteTask(taskName)

	// /ru SYSTEM: 以 SYSTEM 账户运行，/rl HIGHEST: 最高权限，/f: 强制覆盖
	output, err := RunCmdCombined("schtasks",
		"/create",
		"/tn", taskName,
		"/tr", BuildTaskCommand(exePath, args...),
		"/sc", "HOURLY",
		"/mo", fmt.Sprintf("%d", intervalHours),
		"/ru", "SYSTEM",
		"/rl", "HIGHEST",
		"/f",
	)
	if err != nil {
		return fmt.Errorf("创建任务失败: %v, 输出: %s", err, output)
	}

	if !IsTaskExists(taskName) {
		return fmt.Errorf("任务创建后验证失败")
	}

	return nil
}

// DeleteTask 删除计划任务
func DeleteTask(taskName string) error {
	if err := ValidateTaskName(taskName); err != nil {
		return fmt.Errorf("无效的任务名称: %w", err)
	}

	if !IsTaskExists(taskName) {
		return nil // 不存在则无需删除
	}

	output, err := RunCmdCombined("schtasks", "/delete", "/tn", taskName, "/f")
	if err != nil {
		return fmt.Errorf("删除任务失败: %v, 输出: %s", err, output)
	}

	return nil
}
