package iis

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"iisprov/util"
)

// 测试时替换
var (
	runCmd         = util.RunCmd
	runCmdCombined = util.RunCmdCombined
)

// validateBindingParams 验证绑定参数
func validateBindingParams(siteName, protocol, host string, port int) error {
	if err := util.ValidateSiteName(siteName); err != nil {
		return fmt.Errorf("无效的站点名称: %w", err)
	}
	if protocol != "http" && protocol != "https" {
		return fmt.Errorf("不支持的协议: %s", protocol)
	}
	if host != "" {
		if err := util.ValidateDomain(host); err != nil {
			return fmt.Errorf("无效的主机名: %w", err)
		}
	}
	if err := util.ValidatePort(port); err != nil {
		return fmt.Errorf("无效的端口: %w", err)
	}
	return nil
}

// appcmd XML 输出结构
type appcmdSiteList struct {
	XMLName xml.Name     `xml:"appcmd"`
	Sites   []appcmdSite `xml:"SITE"`
}

type appcmdSite struct {
	Name     string `xml:"SITE.NAME,attr"`
	ID       string `xml:"SITE.ID,attr"`
	Bindings string `xml:"bindings,attr"`
	State    string `xml:"state,attr"`
}

// AppcmdPath 获取 appcmd.exe 路径
func AppcmdPath() string {
	windir := os.Getenv("windir")
	if windir == "" {
		windir = "C:\\Windows"
	}
	return filepath.Join(windir, "System32", "inetsrv", "appcmd.exe")
}

// CheckInstalled 检查 appcmd.exe 是否存在（IIS 管理工具随 IIS-WebServerManagementTools 安装）
func CheckInstalled() error {
	path := AppcmdPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("IIS 未安装或 appcmd.exe 不存在: %s", path)
	}
	return nil
}

// ListSites 列出所有 IIS 站点
func ListSites() ([]SiteInfo, error) {
	output, err := runCmd(AppcmdPath(), "list", "site", "/xml")
	if err != nil {
		return nil, fmt.Errorf("执行 appcmd 失败: %w", err)
	}
	return parseSiteList(output)
}

func parseSiteList(output string) ([]SiteInfo, error) {
	var result appcmdSiteList
	if err := xml.Unmarshal([]byte(output), &result); err != nil {
		return nil, fmt.Errorf("解析 XML 失败: %w", err)
	}

	sites := make([]SiteInfo, 0, len(result.Sites))
	for _, s := range result.Sites {
		id, _ := strconv.ParseInt(s.ID, 10, 64)
		sites = append(sites, SiteInfo{
			ID:       id,
			Name:     s.Name,
			State:    s.State,
			Bindings: parseBindings(s.Bindings),
		})
	}

	return sites, nil
}

// parseBindings 解析绑定字符串
// 格式: "http/*:80:,https/*:443:example.com"
func parseBindings(bindingsStr string) []BindingInfo {
	bindings := make([]BindingInfo, 0)
	if bindingsStr == "" {
		return bindings
	}

	for _, part := range strings.Split(bindingsStr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		// 格式: protocol/ip:port:host
		slashIdx := strings.Index(part, "/")
		if slashIdx < 0 {
			continue
		}

		protocol := part[:slashIdx]
		colonParts := strings.SplitN(part[slashIdx+1:], ":", 3)
		if len(colonParts) < 2 {
			continue
		}

		ip := colonParts[0]
		if ip == "*" {
			ip = "0.0.0.0"
		}

		port, _ := strconv.Atoi(colonParts[1])

		host := ""
		if len(colonParts) > 2 {
			host = colonParts[2]
		}

		bindings = append(bindings, BindingInfo{
			Protocol: protocol,
			IP:       ip,
			Port:     port,
			Host:     host,
			HasSSL:   strings.EqualFold(protocol, "https"),
		})
	}

	return bindings
}

// bindingInformation 生成 "*:port:host" 形式的绑定信息
func bindingInformation(host string, port int) string {
	return fmt.Sprintf("*:%d:%s", port, host)
}

// AddSite 创建站点，同时添加 http/*:80:<domain> 绑定
func AddSite(name, physicalPath, domain string) error {
	if err := validateBindingParams(name, "http", domain, 80); err != nil {
		return err
	}
	if err := util.ValidatePhysicalPath(physicalPath); err != nil {
		return fmt.Errorf("无效的物理路径: %w", err)
	}

	output, err := runCmdCombined(AppcmdPath(), "add", "site",
		"/name:"+name,
		"/physicalPath:"+physicalPath,
		"/bindings:http/"+bindingInformation(domain, 80))
	if err != nil {
		return fmt.Errorf("创建站点失败: %w, 输出: %s", err, strings.TrimSpace(output))
	}

	return nil
}

// AddBinding 为站点添加绑定，https 绑定启用 SNI
func AddBinding(siteName, protocol, host string, port int) error {
	protocol = strings.ToLower(protocol)
	if err := validateBindingParams(siteName, protocol, host, port); err != nil {
		return err
	}

	attrs := fmt.Sprintf("protocol='%s',bindingInformation='%s'", protocol, bindingInformation(host, port))
	if protocol == "https" {
		// sslFlags=1 表示启用 SNI（服务器名称指示）
		attrs += ",sslFlags='1'"
	}

	output, err := runCmdCombined(AppcmdPath(), "set", "site",
		"/site.name:"+siteName,
		fmt.Sprintf("/+bindings.[%s]", attrs))
	if err != nil {
		return fmt.Errorf("添加绑定失败: %w, 输出: %s", err, strings.TrimSpace(output))
	}

	return nil
}
