package iis

import "strings"

// SiteInfo IIS 站点信息
type SiteInfo struct {
	ID       int64
	Name     string
	State    string
	Bindings []BindingInfo
}

// BindingInfo 绑定信息
type BindingInfo struct {
	Protocol string
	IP       string
	Port     int
	Host     string
	HasSSL   bool
}

// HasBinding 站点是否已有指定协议/主机名/端口的绑定（主机名不区分大小写）
func (s SiteInfo) HasBinding(protocol, host string, port int) bool {
	for _, b := range s.Bindings {
		if strings.EqualFold(b.Protocol, protocol) && strings.EqualFold(b.Host, host) && b.Port == port {
			return true
		}
	}
	return false
}

// FindSite 按名称查找站点（IIS 站点名不区分大小写）
func FindSite(sites []SiteInfo, name string) (SiteInfo, bool) {
	for _, s := range sites {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return SiteInfo{}, false
}

// RewriteCondition 重写规则条件
type RewriteCondition struct {
	Input   string
	Pattern string
}

// RewriteAction 重写规则动作
type RewriteAction struct {
	Type         string // Redirect / Rewrite / None ...
	URL          string
	RedirectType string // Permanent / Found / SeeOther / Temporary
}

// RewriteRule system.webServer/rewrite/globalRules 下的一条规则
type RewriteRule struct {
	Name           string
	StopProcessing bool
	MatchURL       string
	Conditions     []RewriteCondition
	Action         RewriteAction
}

// SSLBinding netsh http 中的 SSL 证书绑定
type SSLBinding struct {
	HostnamePort  string
	CertHash      string
	AppID         string
	CertStoreName string
	IsIPBinding   bool // true: IP:port 绑定（空主机名），false: Hostname:port 绑定（SNI）
}
