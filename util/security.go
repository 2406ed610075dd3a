package util

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/idna"
)

// ===== PowerShell 转义 =====

// EscapePowerShellString 转义 PowerShell 单引号字符串
// 在 PowerShell 单引号字符串中，只需要将单引号转义为两个单引号
func EscapePowerShellString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// ===== 域名规范化 =====

// isASCII 检查字符串是否全部为 ASCII 字符
func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 127 {
			return false
		}
	}
	return true
}

// NormalizeDomain 将域名规范化为小写 ASCII (Punycode) 形式
// 纯 ASCII 直通；非 ASCII 尝试转 Punycode，失败则 fallback 到小写原串
func NormalizeDomain(domain string) string {
	domain = strings.TrimSpace(domain)
	if domain == "" {
		return domain
	}
	if isASCII(domain) {
		return strings.ToLower(domain)
	}

	prefix, rest := "", domain
	if strings.HasPrefix(domain, "*.") {
		prefix, rest = "*.", domain[2:]
	}
	ascii, err := idna.Lookup.ToASCII(rest)
	if err != nil {
		return strings.ToLower(domain)
	}
	return prefix + strings.ToLower(ascii)
}

// ===== 验证函数 =====

// thumbprintRegex 证书指纹正则：40位十六进制字符
var thumbprintRegex = regexp.MustCompile(`^[A-Fa-f0-9]{40}$`)

// NormalizeThumbprint 规范化并验证证书指纹
// 返回大写的40位十六进制字符串
func NormalizeThumbprint(thumbprint string) (string, error) {
	// 移除空格和连字符
	cleaned := strings.ReplaceAll(thumbprint, " ", "")
	cleaned = strings.ReplaceAll(cleaned, "-", "")
	cleaned = strings.ToUpper(cleaned)

	if !thumbprintRegex.MatchString(cleaned) {
		return "", fmt.Errorf("证书指纹必须是40位十六进制字符")
	}
	return cleaned, nil
}

// hostnameRegex 主机名正则
var hostnameRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?)*$`)

// ValidateHostname 验证主机名格式
func ValidateHostname(hostname string) error {
	if hostname == "" {
		return fmt.Errorf("主机名不能为空")
	}
	normalized := NormalizeDomain(hostname)
	if len(normalized) > 253 {
		return fmt.Errorf("主机名长度不能超过253个字符")
	}
	if !hostnameRegex.MatchString(normalized) {
		return fmt.Errorf("主机名格式无效")
	}
	return nil
}

// domainRegex 域名正则（支持通配符）
var domainRegex = regexp.MustCompile(`^(\*\.)?[a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?)*$`)

// ValidateDomain 验证域名格式（支持通配符如 *.example.com）
func ValidateDomain(domain string) error {
	if domain == "" {
		return fmt.Errorf("域名不能为空")
	}
	normalized := NormalizeDomain(domain)
	if len(normalized) > 253 {
		return fmt.Errorf("域名长度不能超过253个字符")
	}
	if !domainRegex.MatchString(normalized) {
		return fmt.Errorf("域名格式无效")
	}
	return nil
}

// ValidateSiteName 验证 IIS 站点名称（白名单模式）
// 只允许：字母、数字、空格、连字符、下划线、点、中文（CJK）
func ValidateSiteName(siteName string) error {
	if siteName == "" {
		return fmt.Errorf("站点名称不能为空")
	}
	if len(siteName) > 260 {
		return fmt.Errorf("站点名称长度不能超过260个字符")
	}

	// 白名单验证：只允许特定字符
	for _, r := range siteName {
		// 允许：字母、数字
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			continue
		}
		// 允许：空格、连字符、下划线、点
		if r == ' ' || r == '-' || r == '_' || r == '.' {
			continue
		}
		// 允许：中文 CJK 基本区 (U+4E00-U+9FFF)
		if r >= 0x4E00 && r <= 0x9FFF {
			continue
		}
		// 允许：中文 CJK 扩展 A (U+3400-U+4DBF)
		if r >= 0x3400 && r <= 0x4DBF {
			continue
		}
		// 其他字符一律拒绝
		return fmt.Errorf("站点名称包含不允许的字符: %q", r)
	}

	return nil
}

// taskNameRegex 任务计划名称正则
var taskNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_\-\.]+$`)

// ValidateTaskName 验证任务计划名称
func ValidateTaskName(taskName string) error {
	if taskName == "" {
		return fmt.Errorf("任务名称不能为空")
	}
	if len(taskName) > 260 {
		return fmt.Errorf("任务名称长度不能超过260个字符")
	}
	if !taskNameRegex.MatchString(taskName) {
		return fmt.Errorf("任务名称只能包含字母、数字、下划线、连字符和点")
	}
	return nil
}

// featureNameRegex DISM 可选功能名称
var featureNameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.\-]{0,127}$`)

// ValidateFeatureName 验证 Windows 可选功能名称（如 IIS-WebServerRole）
func ValidateFeatureName(name string) error {
	if name == "" {
		return fmt.Errorf("功能名称不能为空")
	}
	if !featureNameRegex.MatchString(name) {
		return fmt.Errorf("功能名称格式无效: %s", name)
	}
	return nil
}

// ValidateRuleName 验证重写规则名称
// 规则名称会出现在 appcmd 的 [name='...'] 选择器中
func ValidateRuleName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("规则名称不能为空")
	}
	if len(name) > 128 {
		return fmt.Errorf("规则名称长度不能超过128个字符")
	}
	if strings.ContainsAny(name, "'\"[]\r\n") {
		return fmt.Errorf("规则名称包含不允许的字符")
	}
	return nil
}

// windowsPathRegex 盘符绝对路径、UNC 路径或以环境变量开头的路径
var windowsPathRegex = regexp.MustCompile(`^([A-Za-z]:\\|\\\\[^\\]+\\|%[A-Za-z_]+%)`)

// ValidatePhysicalPath 验证站点物理路径
func ValidatePhysicalPath(path string) error {
	if path == "" {
		return fmt.Errorf("物理路径不能为空")
	}
	if len(path) > 248 {
		return fmt.Errorf("物理路径长度不能超过248个字符")
	}
	if strings.ContainsAny(path, "\"<>|*?\r\n") {
		return fmt.Errorf("物理路径包含不允许的字符")
	}
	if !windowsPathRegex.MatchString(path) {
		return fmt.Errorf("物理路径必须是绝对路径: %s", path)
	}
	return nil
}

// ValidatePort 验证端口号
func ValidatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("端口号必须在 1-65535 之间")
	}
	return nil
}

// MatchDomain 检查绑定域名是否匹配证书域名（支持通配符）
// bindingHost: IIS 绑定的域名 (如 www.example.com)
// certDomain: 证书的域名 (如 *.example.com 或 www.example.com)
// 返回 true 表示匹配成功
//
// 匹配规则：
//   - 精确匹配: www.example.com 匹配 www.example.com
//   - 通配符匹配: *.example.com 匹配 www.example.com, api.example.com
//   - 通配符只匹配单级子域名: *.example.com 不匹配 a.b.example.com
func MatchDomain(bindingHost, certDomain string) bool {
	bindingHost = NormalizeDomain(bindingHost)
	certDomain = NormalizeDomain(certDomain)

	if bindingHost == "" || certDomain == "" {
		return false
	}

	// 精确匹配
	if bindingHost == certDomain {
		return true
	}

	// 通配符证书匹配: *.example.com 匹配 www.example.com
	if strings.HasPrefix(certDomain, "*.") {
		suffix := certDomain[1:] // ".example.com"
		// 校验通配符格式：后缀至少有 ".x" 且不含连续点
		if len(suffix) < 2 || strings.Contains(suffix[1:], "..") {
			return false
		}
		if strings.HasSuffix(bindingHost, suffix) {
			// 确保只有一级子域名 (www.example.com 匹配，但 a.b.example.com 不匹配)
			prefix := bindingHost[:len(bindingHost)-len(suffix)]
			if !strings.Contains(prefix, ".") && prefix != "" {
				return true
			}
		}
	}

	return false
}
