package iis

import (
	"bufio"
	"fmt"
	"regexp"
	"strings"

	"iisprov/util"
)

// AppID netsh http sslcert 绑定使用的应用程序标识
const AppID = "{4dc3e181-e14b-4a21-b022-59fc669b0914}"

// 正则表达式匹配（支持中英文和全角/半角冒号）
var (
	// SNI 绑定: "Hostname:port", "主机名:端口"
	sniBindingRe = regexp.MustCompile(`(?i)(?:Hostname:port|主机名[:：]端口)\s*[:：]\s*(.+)`)
	// IP 绑定: "IP:port", "IP:端口"
	ipBindingRe = regexp.MustCompile(`(?i)(?:IP:port|IP[:：]端口)\s*[:：]\s*(.+)`)
	certHashRe  = regexp.MustCompile(`(?i)(?:Certificate Hash|证书哈希)\s*[:：]\s*([a-fA-F0-9]+)`)
	appIDRe     = regexp.MustCompile(`(?i)(?:Application ID|应用程序\s*ID)\s*[:：]\s*(\{[^}]+\})`)
	storeRe     = regexp.MustCompile(`(?i)(?:Certificate Store Name|证书存储名称)\s*[:：]\s*(.+)`)
)

// BindCertificate 绑定证书到指定的主机名和端口 (SNI 模式)
// 已有绑定会被覆盖
func BindCertificate(hostname string, port int, certHash string) error {
	if port == 0 {
		port = 443
	}

	if err := util.ValidateHostname(hostname); err != nil {
		return fmt.Errorf("无效的主机名: %w", err)
	}
	if err := util.ValidatePort(port); err != nil {
		return fmt.Errorf("无效的端口: %w", err)
	}
	certHash, err := util.NormalizeThumbprint(certHash)
	if err != nil {
		return fmt.Errorf("无效的证书指纹: %w", err)
	}
	certHash = strings.ToLower(certHash)

	hostnamePort := fmt.Sprintf("%s:%d", hostname, port)

	// 先尝试删除已有绑定（不存在时 netsh 返回错误，忽略）
	_ = UnbindCertificate(hostname, port)

	output, err := runCmdCombined("netsh", "http", "add", "sslcert",
		"hostnameport="+hostnamePort,
		"certhash="+certHash,
		"appid="+AppID,
		"certstorename=MY")

	// 检查输出是否包含成功信息
	isSuccess := strings.Contains(strings.ToLower(output), "success") ||
		strings.Contains(output, "成功")

	if err != nil && !isSuccess {
		return fmt.Errorf("绑定证书失败: %w, 输出: %s", err, strings.TrimSpace(output))
	}

	// 验证绑定是否真正生效
	binding, verifyErr := GetBindingForHost(hostname, port)
	if verifyErr != nil || binding == nil {
		if isSuccess {
			return nil // 命令报告成功，信任它
		}
		if verifyErr != nil {
			return fmt.Errorf("绑定后验证失败: %w", verifyErr)
		}
		return fmt.Errorf("绑定未生效: 未找到绑定记录，输出: %s", strings.TrimSpace(output))
	}
	if !strings.EqualFold(binding.CertHash, certHash) {
		return fmt.Errorf("绑定证书不匹配: 期望 %s, 实际 %s", certHash, binding.CertHash)
	}

	return nil
}

// UnbindCertificate 解除主机名端口的证书绑定 (SNI)
func UnbindCertificate(hostname string, port int) error {
	if port == 0 {
		port = 443
	}

	if err := util.ValidateHostname(hostname); err != nil {
		return fmt.Errorf("无效的主机名: %w", err)
	}
	if err := util.ValidatePort(port); err != nil {
		return fmt.Errorf("无效的端口: %w", err)
	}

	output, err := runCmdCombined("netsh", "http", "delete", "sslcert",
		fmt.Sprintf("hostnameport=%s:%d", hostname, port))
	if err != nil {
		return fmt.Errorf("解除绑定失败: %w, 输出: %s", err, strings.TrimSpace(output))
	}

	return nil
}

// ListSSLBindings 列出所有 SSL 证书绑定
func ListSSLBindings() ([]SSLBinding, error) {
	output, err := runCmd("netsh", "http", "show", "sslcert")
	if err != nil {
		return nil, fmt.Errorf("获取 SSL 绑定列表失败: %w", err)
	}

	return parseSSLBindings(output), nil
}

// parseSSLBindings 解析 netsh 输出
func parseSSLBindings(output string) []SSLBinding {
	bindings := make([]SSLBinding, 0)

	var current *SSLBinding
	scanner := bufio.NewScanner(strings.NewReader(output))

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		// 新的绑定条目（优先检查 SNI 绑定）
		if matches := sniBindingRe.FindStringSubmatch(line); matches != nil {
			if current != nil {
				bindings = append(bindings, *current)
			}
			current = &SSLBinding{HostnamePort: strings.TrimSpace(matches[1])}
			continue
		}
		if matches := ipBindingRe.FindStringSubmatch(line); matches != nil {
			if current != nil {
				bindings = append(bindings, *current)
			}
			current = &SSLBinding{HostnamePort: strings.TrimSpace(matches[1]), IsIPBinding: true}
			continue
		}

		if current == nil {
			continue
		}

		if matches := certHashRe.FindStringSubmatch(line); matches != nil {
			current.CertHash = strings.ToLower(strings.TrimSpace(matches[1]))
		} else if matches := appIDRe.FindStringSubmatch(line); matches != nil {
			current.AppID = strings.TrimSpace(matches[1])
		} else if matches := storeRe.FindStringSubmatch(line); matches != nil {
			current.CertStoreName = strings.TrimSpace(matches[1])
		}
	}

	if current != nil {
		bindings = append(bindings, *current)
	}

	return bindings
}

// GetBindingForHost 获取指定主机的 SNI 绑定，未找到返回 nil, nil
func GetBindingForHost(hostname string, port int) (*SSLBinding, error) {
	if port == 0 {
		port = 443
	}

	bindings, err := ListSSLBindings()
	if err != nil {
		return nil, err
	}

	target := fmt.Sprintf("%s:%d", hostname, port)
	for _, b := range bindings {
		if !b.IsIPBinding && strings.EqualFold(b.HostnamePort, target) {
			return &b, nil
		}
	}

	return nil, nil
}
