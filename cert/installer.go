package cert

import (
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"iisprov/util"
)

// ImportPFX 导入 PFX 证书到 LocalMachine\My，返回证书指纹
func ImportPFX(pfxPath, password string) (string, error) {
	if _, err := os.Stat(pfxPath); os.IsNotExist(err) {
		return "", fmt.Errorf("PFX 文件不存在: %s", pfxPath)
	}

	absPath, err := filepath.Abs(pfxPath)
	if err != nil {
		return "", fmt.Errorf("获取绝对路径失败: %w", err)
	}

	script := fmt.Sprintf(`
$password = ConvertTo-SecureString -String '%s' -Force -AsPlainText
$cert = Import-PfxCertificate -FilePath '%s' -CertStoreLocation Cert:\LocalMachine\My -Password $password -Exportable
if ($cert) {
    Write-Output "Thumbprint: $($cert.Thumbprint)"
} else {
    Write-Error "导入失败"
}
`, util.EscapePowerShellString(password), util.EscapePowerShellString(absPath))

	output, err := runPowerShellCombined(script)
	if err != nil {
		return "", fmt.Errorf("%s", simplifyPFXError(output))
	}

	thumbprint := ""
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "Thumbprint: ") {
			thumbprint = strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(line, "Thumbprint: ")))
			break
		}
	}

	if thumbprint == "" {
		return "", fmt.Errorf("导入成功但未能获取证书指纹")
	}

	return thumbprint, nil
}

// splitPEMCertChain 拆分 PEM 证书链，返回叶子证书和其余中间证书
func splitPEMCertChain(pemData string) (string, string) {
	rest := []byte(pemData)
	leaf := ""
	var chain strings.Builder

	for {
		block, remaining := pem.Decode(rest)
		if block == nil {
			break
		}
		rest = remaining
		if block.Type != "CERTIFICATE" {
			continue
		}
		encoded := pem.EncodeToMemory(block)
		if leaf == "" {
			leaf = string(encoded)
		} else {
			chain.Write(encoded)
		}
	}

	if leaf == "" {
		return pemData, ""
	}
	return leaf, chain.String()
}

// simplifyPFXError 简化 PFX 导入错误信息
func simplifyPFXError(output string) string {
	outputLower := strings.ToLower(output)

	if strings.Contains(outputLower, "password") || strings.Contains(outputLower, "密码") {
		return "密码错误或证书文件损坏"
	}
	if strings.Contains(outputLower, "access") || strings.Contains(outputLower, "denied") {
		return "访问被拒绝，请以管理员权限运行"
	}
	if strings.Contains(outputLower, "not found") || strings.Contains(outputLower, "找不到") {
		return "文件不存在"
	}
	if strings.Contains(outputLower, "invalid") || strings.Contains(outputLower, "无效") {
		return "无效的证书文件格式"
	}

	return "导入失败: " + util.TruncateString(strings.TrimSpace(output), 100)
}
