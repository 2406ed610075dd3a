package provision

import (
	"context"
	"os"

	"iisprov/cert"
	"iisprov/dism"
	"iisprov/fetch"
	"iisprov/iis"
	"iisprov/msi"
	"iisprov/util"
)

// defaultFeatureManager 调用 dism
type defaultFeatureManager struct{}

func (d *defaultFeatureManager) GetFeatureInfo(ctx context.Context, feature string) (string, error) {
	return dism.GetFeatureInfo(ctx, feature)
}

func (d *defaultFeatureManager) EnableFeature(ctx context.Context, feature string) util.CmdResult {
	return dism.EnableFeature(ctx, feature)
}

// osFS 本地文件系统
type osFS struct{}

func (osFS) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (osFS) Remove(path string) bool {
	return util.CleanupTempFileSync(path)
}

func (osFS) MkdirAll(path string) error {
	return os.MkdirAll(path, 0755)
}

// defaultInstaller 调用 msiexec
type defaultInstaller struct{}

func (d *defaultInstaller) Install(ctx context.Context, packagePath string) util.CmdResult {
	return msi.Install(ctx, packagePath)
}

func (d *defaultInstaller) VerifySignature(packagePath, signer string) error {
	return msi.VerifySignature(packagePath, signer)
}

// defaultWebAdmin 调用 appcmd
type defaultWebAdmin struct{}

func (d *defaultWebAdmin) CheckInstalled() error {
	return iis.CheckInstalled()
}

func (d *defaultWebAdmin) ListSites() ([]iis.SiteInfo, error) {
	return iis.ListSites()
}

func (d *defaultWebAdmin) AddSite(name, physicalPath, domain string) error {
	return iis.AddSite(name, physicalPath, domain)
}

func (d *defaultWebAdmin) AddBinding(siteName, protocol, host string, port int) error {
	return iis.AddBinding(siteName, protocol, host, port)
}

func (d *defaultWebAdmin) ListGlobalRules() ([]iis.RewriteRule, error) {
	return iis.ListGlobalRules()
}

func (d *defaultWebAdmin) AddGlobalRule(rule iis.RewriteRule) error {
	return iis.AddGlobalRule(rule)
}

// defaultSSLBinder 调用 netsh http
type defaultSSLBinder struct{}

func (d *defaultSSLBinder) GetBindingForHost(hostname string, port int) (*iis.SSLBinding, error) {
	return iis.GetBindingForHost(hostname, port)
}

func (d *defaultSSLBinder) BindCertificate(hostname string, port int, certHash string) error {
	return iis.BindCertificate(hostname, port, certHash)
}

// defaultCertStore LocalMachine\My
type defaultCertStore struct{}

func (d *defaultCertStore) ListCertificates() ([]cert.CertInfo, error) {
	return cert.ListCertificates()
}

func (d *defaultCertStore) ImportPFX(pfxPath, password string) (string, error) {
	return cert.ImportPFX(pfxPath, password)
}

func (d *defaultCertStore) PEMFilesToPFX(certPath, keyPath, password string) (string, error) {
	return cert.PEMFilesToPFX(certPath, keyPath, password)
}

// DefaultProvisioner 创建操作本机的配置执行器
func DefaultProvisioner() *Provisioner {
	fs := osFS{}
	return &Provisioner{
		Features:   &defaultFeatureManager{},
		ModuleFS:   fs,
		Downloader: fetch.NewHTTPDownloader(),
		Installer:  &defaultInstaller{},
		Web:        &defaultWebAdmin{},
		SSL:        &defaultSSLBinder{},
		Certs:      &defaultCertStore{},
		Dirs:       fs,
	}
}
