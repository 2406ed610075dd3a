package provision

import (
	"context"
	"fmt"

	"iisprov/config"
	"iisprov/fetch"
	"iisprov/msi"
	"iisprov/util"
)

// EnsureModule 确保 IIS 扩展模块已安装
// 模块文件存在时不访问网络；安装后无论结果如何都删除暂存的安装包
func (p *Provisioner) EnsureModule(ctx context.Context, mod config.ModuleConfig) ModuleResult {
	result := ModuleResult{Module: mod.Name}

	if p.ModuleFS.Exists(mod.BinaryPath) {
		result.Outcome = ModuleAlreadyInstalled
		util.Info("[成功] %s 已安装", mod.Name)
		return result
	}

	util.Info("%s 未安装，开始下载: %s", mod.Name, mod.DownloadURL)
	if err := p.Downloader.Download(ctx, mod.DownloadURL, mod.StagingPath, fetch.LogProgress(mod.Name)); err != nil {
		result.Outcome = ModuleDownloadFailed
		result.Err = fmt.Errorf("%w: 下载 %s 失败: %v", ErrTransient, mod.Name, err)
		util.Error("[失败] %v", result.Err)
		return result
	}
	defer func() {
		if !p.ModuleFS.Remove(mod.StagingPath) {
			util.Warn("[警告] 未能删除安装包 %s", mod.StagingPath)
		}
	}()

	if err := p.Installer.VerifySignature(mod.StagingPath, mod.TrustedSigner); err != nil {
		result.Outcome = ModuleDownloadFailed
		result.Err = fmt.Errorf("%w: %v", ErrTransient, err)
		util.Error("[失败] %s 安装包校验失败: %v", mod.Name, err)
		return result
	}

	util.Info("安装 %s ...", mod.Name)
	cmd := p.Installer.Install(ctx, mod.StagingPath)

	switch msi.Classify(cmd) {
	case msi.StatusAlreadyInstalled:
		result.Outcome = ModuleAlreadyInstalled
		util.Info("[成功] %s 已安装其他版本", mod.Name)
	case msi.StatusSucceeded:
		if p.ModuleFS.Exists(mod.BinaryPath) {
			result.Outcome = ModuleInstalled
			util.Info("[成功] %s 安装完成", mod.Name)
		} else {
			result.Outcome = ModuleInstallAttempted
			result.Err = fmt.Errorf("%w: 安装程序返回 %d，但未找到 %s", ErrUnverified, cmd.ExitCode, mod.BinaryPath)
			util.Warn("[警告] %s: %v", mod.Name, result.Err)
		}
	default:
		result.Outcome = ModuleInstallFailed
		if cmd.Err != nil {
			result.Err = fmt.Errorf("安装 %s 失败: %w", mod.Name, cmd.Err)
		} else {
			result.Err = fmt.Errorf("安装 %s 失败: %s", mod.Name, msi.Describe(cmd.ExitCode))
		}
		util.Error("[失败] %v", result.Err)
	}
	return result
}
