package provision

import (
	"context"
	"fmt"
	"strings"

	"iisprov/dism"
	"iisprov/util"
)

// EnsureFeature 确保功能已启用
// 查询失败按未启用处理，仍然执行启用
func (p *Provisioner) EnsureFeature(ctx context.Context, feature string) FeatureResult {
	result := FeatureResult{Feature: feature}

	state, err := p.Features.GetFeatureInfo(ctx, feature)
	if err != nil {
		util.Debug("查询功能 %s 失败: %v", feature, err)
	} else if dism.IsEnabled(state) {
		result.Outcome = FeatureAlreadyEnabled
		util.Info("[成功] 功能 %s 已启用", feature)
		return result
	}

	util.Info("启用功能 %s ...", feature)
	cmd := p.Features.EnableFeature(ctx, feature)

	switch dism.Classify(cmd) {
	case dism.StatusEnabled:
		result.Outcome = FeatureEnabled
		if cmd.ExitCode == dism.ExitRebootRequired {
			util.Info("[成功] 功能 %s 已启用（需要重启）", feature)
		} else {
			util.Info("[成功] 功能 %s 已启用", feature)
		}
	case dism.StatusUnsupported:
		result.Outcome = FeatureUnsupported
		result.Err = fmt.Errorf("%w: 功能 %s 不适用于当前系统", ErrUnsupported, feature)
		util.Warn("[警告] 功能 %s 不适用于当前系统，跳过", feature)
	default:
		result.Outcome = FeatureFailed
		if cmd.Err != nil {
			result.Err = fmt.Errorf("启用功能 %s 失败: %w", feature, cmd.Err)
		} else {
			result.Err = fmt.Errorf("启用功能 %s 失败 (退出码 %s): %s", feature,
				dism.FormatExitCode(cmd.ExitCode), util.TruncateString(strings.TrimSpace(cmd.Output), 200))
		}
		util.Error("[失败] %v", result.Err)
	}
	return result
}

// EnsureFeatures 按顺序处理所有功能，单个失败不影响后续
func (p *Provisioner) EnsureFeatures(ctx context.Context, features []string) []FeatureResult {
	results := make([]FeatureResult, 0, len(features))
	for _, feature := range features {
		if ctx.Err() != nil {
			break
		}
		results = append(results, p.EnsureFeature(ctx, feature))
	}
	return results
}
