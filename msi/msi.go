package msi

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"iisprov/util"
)

// 测试时替换
var (
	runCmdResult  = util.RunCmdResult
	runPowerShell = util.RunPowerShell
)

// msiexec 退出码
const (
	ExitSuccess          = 0
	ExitRebootInitiated  = 1641 // ERROR_SUCCESS_REBOOT_INITIATED
	ExitAnotherVersion   = 1638 // ERROR_PRODUCT_VERSION
	ExitRebootRequired   = 3010 // ERROR_SUCCESS_REBOOT_REQUIRED
	ExitInstallInProcess = 1618 // ERROR_INSTALL_ALREADY_RUNNING
)

// Status 安装结果分类
type Status int

const (
	StatusFailed           Status = iota
	StatusSucceeded               // 安装程序报告成功，还需检查文件
	StatusAlreadyInstalled        // 已安装其他版本
)

func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "Succeeded"
	case StatusAlreadyInstalled:
		return "AlreadyInstalled"
	default:
		return "Failed"
	}
}

// Install 静默安装 MSI，不重启
func Install(ctx context.Context, packagePath string) util.CmdResult {
	absPath, err := filepath.Abs(packagePath)
	if err != nil {
		return util.CmdResult{ExitCode: -1, Err: fmt.Errorf("获取绝对路径失败: %w", err)}
	}
	if _, err := os.Stat(absPath); err != nil {
		return util.CmdResult{ExitCode: -1, Err: fmt.Errorf("安装包不存在: %w", err)}
	}

	return runCmdResult(ctx, util.LongCmdTimeout, "msiexec", "/i", absPath, "/qn", "/norestart")
}

// Classify 根据 msiexec 退出码判断结果
func Classify(result util.CmdResult) Status {
	if result.Err != nil {
		return StatusFailed
	}
	switch result.ExitCode {
	case ExitSuccess, ExitRebootRequired, ExitRebootInitiated:
		return StatusSucceeded
	case ExitAnotherVersion:
		return StatusAlreadyInstalled
	default:
		return StatusFailed
	}
}

// Describe 常见失败退出码的说明
func Describe(code int) string {
	switch code {
	case ExitInstallInProcess:
		return "另一个安装程序正在运行"
	case 1603:
		return "安装过程中出现严重错误"
	case 1619:
		return "无法打开安装包"
	case 1620:
		return "安装包无效"
	case 1625:
		return "系统策略禁止安装"
	case 1633:
		return "安装包不支持当前平台"
	default:
		return fmt.Sprintf("退出码 %d", code)
	}
}

// VerifySignature 检查安装包 Authenticode 签名有效，且签名者主题包含 signer
// signer 为空时跳过检查
func VerifySignature(packagePath, signer string) error {
	if signer == "" {
		return nil
	}

	script := fmt.Sprintf(`
$sig = Get-AuthenticodeSignature -FilePath '%s'
Write-Output "Status: $($sig.Status)"
if ($sig.SignerCertificate) {
    Write-Output "Signer: $($sig.SignerCertificate.Subject)"
}
`, util.EscapePowerShellString(packagePath))

	output, err := runPowerShell(script)
	if err != nil {
		return fmt.Errorf("读取安装包签名失败: %w", err)
	}

	status, subject := parseSignatureOutput(output)
	if !strings.EqualFold(status, "Valid") {
		return fmt.Errorf("安装包签名无效: %s", status)
	}
	if !strings.Contains(strings.ToLower(subject), strings.ToLower(signer)) {
		return fmt.Errorf("安装包签名者不受信任: %s", subject)
	}
	return nil
}

func parseSignatureOutput(output string) (status, subject string) {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if v, ok := strings.CutPrefix(line, "Status: "); ok {
			status = strings.TrimSpace(v)
		} else if v, ok := strings.CutPrefix(line, "Signer: "); ok {
			subject = strings.TrimSpace(v)
		}
	}
	return status, subject
}
