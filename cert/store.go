package cert

import (
	"bufio"
	"fmt"
	"regexp"
	"strings"
	"time"

	"iisprov/util"
)

// 测试时替换
var (
	runPowerShell         = util.RunPowerShell
	runPowerShellCombined = util.RunPowerShellCombined
)

// parseTimeMultiFormat 尝试多种日期格式解析时间字符串
// 非英文 Windows 的 PowerShell 可能输出不同的日期格式
func parseTimeMultiFormat(value string) time.Time {
	type layout struct {
		format string
		local  bool
	}
	formats := []layout{
		{"2006-01-02 15:04:05", true},        // ISO 格式 (PowerShell ToString 指定)
		{"2006/01/02 15:04:05", true},        // 斜杠格式
		{"01/02/2006 15:04:05", true},        // US 格式 (MM/DD/YYYY)
		{"1/2/2006 3:04:05 PM", true},        // US 12小时格式
		{"2006-01-02T15:04:05Z07:00", false}, // ISO 8601 with timezone
		{"2006-01-02", true},                 // 仅日期
	}
	for _, f := range formats {
		var (
			t   time.Time
			err error
		)
		if f.local {
			t, err = time.ParseInLocation(f.format, value, time.Local)
		} else {
			t, err = time.Parse(f.format, value)
		}
		if err == nil {
			return t
		}
	}
	util.Warn("无法解析日期 %q，所有格式均失败", value)
	return time.Time{}
}

// CertInfo 证书信息
type CertInfo struct {
	Thumbprint   string
	Subject      string
	Issuer       string
	NotBefore    time.Time
	NotAfter     time.Time
	FriendlyName string
	HasPrivKey   bool
	DNSNames     []string // SAN 中的 DNS 名称
}

const listCertificatesScript = `
Get-ChildItem -Path Cert:\LocalMachine\My | ForEach-Object {
    $cert = $_
    Write-Output "===CERT==="
    Write-Output "Thumbprint: $($cert.Thumbprint)"
    Write-Output "Subject: $($cert.Subject)"
    Write-Output "Issuer: $($cert.Issuer)"
    Write-Output "NotBefore: $($cert.NotBefore.ToString('yyyy-MM-dd HH:mm:ss'))"
    Write-Output "NotAfter: $($cert.NotAfter.ToString('yyyy-MM-dd HH:mm:ss'))"
    Write-Output "FriendlyName: $($cert.FriendlyName)"
    Write-Output "HasPrivateKey: $($cert.HasPrivateKey)"
    $san = $cert.Extensions | Where-Object { $_.Oid.Value -eq "2.5.29.17" }
    if ($san) {
        $sanStr = $san.Format($false)
        $dnsNames = [regex]::Matches($sanStr, '(?:DNS Name=|DNS:|DNS 名称=)([^\s,]+)') | ForEach-Object { $_.Groups[1].Value }
        if ($dnsNames) {
            Write-Output "DNSNames: $($dnsNames -join ',')"
        }
    }
}
`

// ListCertificates 列出本机证书存储中的证书 (LocalMachine\My)，保持存储枚举顺序
func ListCertificates() ([]CertInfo, error) {
	output, err := runPowerShell(listCertificatesScript)
	if err != nil {
		return nil, fmt.Errorf("获取证书列表失败: %w", err)
	}

	return parseCertList(output), nil
}

// parseCertList 解析 PowerShell 输出
func parseCertList(output string) []CertInfo {
	certs := make([]CertInfo, 0)
	var current *CertInfo

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if line == "===CERT===" {
			if current != nil {
				certs = append(certs, *current)
			}
			current = &CertInfo{}
			continue
		}

		if current == nil {
			continue
		}

		idx := strings.Index(line, ": ")
		if idx <= 0 {
			continue
		}
		key := line[:idx]
		value := strings.TrimSpace(line[idx+2:])

		switch key {
		case "Thumbprint":
			current.Thumbprint = strings.ToUpper(value)
		case "Subject":
			current.Subject = value
		case "Issuer":
			current.Issuer = value
		case "NotBefore":
			current.NotBefore = parseTimeMultiFormat(value)
		case "NotAfter":
			current.NotAfter = parseTimeMultiFormat(value)
		case "FriendlyName":
			current.FriendlyName = value
		case "HasPrivateKey":
			current.HasPrivKey = strings.EqualFold(value, "True")
		case "DNSNames":
			if value != "" {
				current.DNSNames = strings.Split(value, ",")
			}
		}
	}

	if current != nil {
		certs = append(certs, *current)
	}

	return certs
}

// ContainsThumbprint 证书列表中是否已有指定指纹
func ContainsThumbprint(certs []CertInfo, thumbprint string) bool {
	thumbprint, err := util.NormalizeThumbprint(thumbprint)
	if err != nil {
		return false
	}
	for _, c := range certs {
		if strings.EqualFold(c.Thumbprint, thumbprint) {
			return true
		}
	}
	return false
}

// DisplayName 获取证书显示名称
func (c *CertInfo) DisplayName() string {
	if c.FriendlyName != "" {
		return c.FriendlyName
	}
	if cn := extractCN(c.Subject); cn != "" {
		return cn
	}
	return c.Subject
}

// cnRegex 用于从证书主题中提取 CN
var cnRegex = regexp.MustCompile(`CN=([^,]+)`)

// extractCN 从证书主题中提取 CN
func extractCN(subject string) string {
	matches := cnRegex.FindStringSubmatch(subject)
	if len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}
	return ""
}

// MatchesDomain 检查证书 CN 或 SAN 是否匹配指定域名（通配符只匹配一级）
func (c *CertInfo) MatchesDomain(domain string) bool {
	if util.MatchDomain(domain, extractCN(c.Subject)) {
		return true
	}
	for _, dns := range c.DNSNames {
		if util.MatchDomain(domain, dns) {
			return true
		}
	}
	return false
}

// IsExpired 证书在 now 时刻是否已过期，到期时间无法解析时按过期处理
func (c *CertInfo) IsExpired(now time.Time) bool {
	return c.NotAfter.IsZero() || c.NotAfter.Before(now)
}
