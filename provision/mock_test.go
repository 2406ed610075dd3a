package provision

import (
	"context"
	"fmt"
	"strings"
	"time"

	"iisprov/cert"
	"iisprov/fetch"
	"iisprov/iis"
	"iisprov/util"
)

// fakeHost 模拟一台 Windows 主机，记录所有修改操作
type fakeHost struct {
	enabled     map[string]bool
	unsupported map[string]bool
	files       map[string]bool
	dirs        map[string]bool
	sites       []iis.SiteInfo
	rules       []iis.RewriteRule
	ssl         map[string]string // host:port -> thumbprint
	certs       []cert.CertInfo
	appcmdReady bool

	// 可选覆盖
	DownloadFunc func(ctx context.Context, url, dest string) error
	InstallFunc  func(ctx context.Context, path string) util.CmdResult
	EnableFunc   func(ctx context.Context, feature string) util.CmdResult
	ImportFunc   func(path, password string) (string, error)

	// moduleBinary 安装成功后出现的文件
	moduleBinary string

	mutations []string
	calls     []string
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		enabled:     map[string]bool{},
		unsupported: map[string]bool{},
		files:       map[string]bool{},
		dirs:        map[string]bool{},
		ssl:         map[string]string{},
		appcmdReady: true,
	}
}

func (h *fakeHost) mutate(format string, args ...interface{}) {
	h.mutations = append(h.mutations, fmt.Sprintf(format, args...))
}

func (h *fakeHost) call(format string, args ...interface{}) {
	h.calls = append(h.calls, fmt.Sprintf(format, args...))
}

// called 是否发生过以 prefix 开头的调用
func (h *fakeHost) called(prefix string) bool {
	for _, c := range h.calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

func (h *fakeHost) provisioner() *Provisioner {
	return &Provisioner{
		Features:   h,
		ModuleFS:   h,
		Downloader: h,
		Installer:  h,
		Web:        h,
		SSL:        h,
		Certs:      h,
		Dirs:       h,
		Now: func() time.Time {
			return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
		},
	}
}

// FeatureManager

func (h *fakeHost) GetFeatureInfo(ctx context.Context, feature string) (string, error) {
	h.call("GetFeatureInfo %s", feature)
	if h.unsupported[feature] {
		return "", fmt.Errorf("feature unknown")
	}
	if h.enabled[feature] {
		return "Enabled", nil
	}
	return "Disabled", nil
}

func (h *fakeHost) EnableFeature(ctx context.Context, feature string) util.CmdResult {
	h.call("EnableFeature %s", feature)
	h.mutate("EnableFeature %s", feature)
	if h.EnableFunc != nil {
		return h.EnableFunc(ctx, feature)
	}
	if h.unsupported[feature] {
		return util.CmdResult{ExitCode: 0x800F080C, Output: "Error: 0x800f080c\nFeature name " + feature + " is unknown."}
	}
	h.enabled[feature] = true
	return util.CmdResult{ExitCode: 0, Output: "The operation completed successfully."}
}

// ModuleFS / Directories

func (h *fakeHost) Exists(path string) bool {
	return h.files[path] || h.dirs[path]
}

func (h *fakeHost) Remove(path string) bool {
	h.call("Remove %s", path)
	delete(h.files, path)
	return true
}

func (h *fakeHost) MkdirAll(path string) error {
	h.call("MkdirAll %s", path)
	h.mutate("MkdirAll %s", path)
	h.dirs[path] = true
	return nil
}

// Downloader

func (h *fakeHost) Download(ctx context.Context, url, destPath string, onProgress fetch.ProgressCallback) error {
	h.call("Download %s", url)
	if h.DownloadFunc != nil {
		if err := h.DownloadFunc(ctx, url, destPath); err != nil {
			return err
		}
	}
	h.files[destPath] = true
	return nil
}

// PackageInstaller

func (h *fakeHost) Install(ctx context.Context, packagePath string) util.CmdResult {
	h.call("Install %s", packagePath)
	h.mutate("Install %s", packagePath)
	if h.InstallFunc != nil {
		return h.InstallFunc(ctx, packagePath)
	}
	if h.moduleBinary != "" {
		h.files[h.moduleBinary] = true
	}
	return util.CmdResult{ExitCode: 0}
}

func (h *fakeHost) VerifySignature(packagePath, signer string) error {
	h.call("VerifySignature %s", packagePath)
	return nil
}

// WebAdmin

func (h *fakeHost) CheckInstalled() error {
	if !h.appcmdReady {
		return fmt.Errorf("IIS 未安装或 appcmd.exe 不存在")
	}
	return nil
}

func (h *fakeHost) ListSites() ([]iis.SiteInfo, error) {
	h.call("ListSites")
	out := make([]iis.SiteInfo, len(h.sites))
	copy(out, h.sites)
	return out, nil
}

func (h *fakeHost) AddSite(name, physicalPath, domain string) error {
	h.call("AddSite %s", name)
	h.mutate("AddSite %s", name)
	if _, ok := iis.FindSite(h.sites, name); ok {
		return fmt.Errorf("站点 %s 已存在", name)
	}
	h.sites = append(h.sites, iis.SiteInfo{
		ID:       int64(len(h.sites) + 1),
		Name:     name,
		Bindings: []iis.BindingInfo{{Protocol: "http", IP: "0.0.0.0", Port: 80, Host: domain}},
	})
	return nil
}

func (h *fakeHost) AddBinding(siteName, protocol, host string, port int) error {
	h.call("AddBinding %s %s", siteName, protocol)
	h.mutate("AddBinding %s %s/%s:%d", siteName, protocol, host, port)
	for i := range h.sites {
		if strings.EqualFold(h.sites[i].Name, siteName) {
			if h.sites[i].HasBinding(protocol, host, port) {
				return fmt.Errorf("绑定重复")
			}
			h.sites[i].Bindings = append(h.sites[i].Bindings, iis.BindingInfo{
				Protocol: protocol, IP: "0.0.0.0", Port: port, Host: host, HasSSL: protocol == "https",
			})
			return nil
		}
	}
	return fmt.Errorf("站点 %s 不存在", siteName)
}

func (h *fakeHost) ListGlobalRules() ([]iis.RewriteRule, error) {
	h.call("ListGlobalRules")
	return append([]iis.RewriteRule(nil), h.rules...), nil
}

func (h *fakeHost) AddGlobalRule(rule iis.RewriteRule) error {
	h.call("AddGlobalRule %s", rule.Name)
	h.mutate("AddGlobalRule %s", rule.Name)
	h.rules = append(h.rules, rule)
	return nil
}

// SSLBinder

func (h *fakeHost) GetBindingForHost(hostname string, port int) (*iis.SSLBinding, error) {
	h.call("GetBindingForHost %s", hostname)
	key := fmt.Sprintf("%s:%d", hostname, port)
	if thumb, ok := h.ssl[key]; ok {
		return &iis.SSLBinding{HostnamePort: key, CertHash: thumb, AppID: iis.AppID, CertStoreName: "MY"}, nil
	}
	return nil, nil
}

func (h *fakeHost) BindCertificate(hostname string, port int, certHash string) error {
	h.call("BindCertificate %s", hostname)
	h.mutate("BindCertificate %s:%d %s", hostname, port, certHash)
	h.ssl[fmt.Sprintf("%s:%d", hostname, port)] = strings.ToLower(certHash)
	return nil
}

// CertStore

func (h *fakeHost) ListCertificates() ([]cert.CertInfo, error) {
	h.call("ListCertificates")
	return append([]cert.CertInfo(nil), h.certs...), nil
}

func (h *fakeHost) ImportPFX(pfxPath, password string) (string, error) {
	h.call("ImportPFX %s", pfxPath)
	h.mutate("ImportPFX %s", pfxPath)
	if h.ImportFunc != nil {
		return h.ImportFunc(pfxPath, password)
	}
	return "", fmt.Errorf("未配置导入结果")
}

func (h *fakeHost) PEMFilesToPFX(certPath, keyPath, password string) (string, error) {
	h.call("PEMFilesToPFX %s", certPath)
	return certPath + ".pfx", nil
}

// testCert 生成一张带私钥、在测试时间点有效的证书
func testCert(thumbprint, cn string, dnsNames ...string) cert.CertInfo {
	return cert.CertInfo{
		Thumbprint: thumbprint,
		Subject:    "CN=" + cn,
		NotBefore:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		NotAfter:   time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
		HasPrivKey: true,
		DNSNames:   dnsNames,
	}
}
