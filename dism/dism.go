package dism

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"iisprov/util"
)

// runCmdResult 测试时替换
var runCmdResult = util.RunCmdResult

// 功能状态（dism /English 输出）
const (
	StateEnabled        = "Enabled"
	StateEnablePending  = "Enable Pending"
	StateDisabled       = "Disabled"
	StateDisablePending = "Disable Pending"
)

var stateRegex = regexp.MustCompile(`(?m)^\s*State\s*:\s*(.+?)\s*$`)

// ParseFeatureState 从 get-featureinfo 输出中解析 State 行
func ParseFeatureState(output string) string {
	m := stateRegex.FindStringSubmatch(output)
	if m == nil {
		return ""
	}
	return m[1]
}

// IsEnabled 已启用或等待重启后启用
func IsEnabled(state string) bool {
	return strings.EqualFold(state, StateEnabled) || strings.EqualFold(state, StateEnablePending)
}

// GetFeatureInfo 查询功能状态，返回 State 字段
func GetFeatureInfo(ctx context.Context, feature string) (string, error) {
	if err := util.ValidateFeatureName(feature); err != nil {
		return "", err
	}

	result := runCmdResult(ctx, util.DefaultCmdTimeout, "dism", "/online", "/English",
		"/get-featureinfo", "/featurename:"+feature)
	if result.Err != nil {
		return "", fmt.Errorf("执行 dism 失败: %w", result.Err)
	}
	if result.ExitCode != 0 {
		return "", fmt.Errorf("dism 查询功能 %s 失败 (退出码 %s): %s",
			feature, FormatExitCode(result.ExitCode), util.TruncateString(strings.TrimSpace(result.Output), 200))
	}

	state := ParseFeatureState(result.Output)
	if state == "" {
		return "", fmt.Errorf("无法解析功能 %s 的状态", feature)
	}
	return state, nil
}

// EnableFeature 启用功能（含父功能，不重启）
func EnableFeature(ctx context.Context, feature string) util.CmdResult {
	if err := util.ValidateFeatureName(feature); err != nil {
		return util.CmdResult{ExitCode: -1, Err: err}
	}

	return runCmdResult(ctx, util.LongCmdTimeout, "dism", "/online", "/English",
		"/enable-feature", "/featurename:"+feature, "/all", "/norestart")
}

// FormatExitCode 以十六进制显示 HRESULT 形式的退出码
func FormatExitCode(code int) string {
	if code < 0 || code > 0xFFFF {
		return fmt.Sprintf("0x%08X", uint32(code))
	}
	return fmt.Sprintf("%d", code)
}
