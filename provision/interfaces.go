package provision

import (
	"context"
	"time"

	"iisprov/cert"
	"iisprov/fetch"
	"iisprov/iis"
	"iisprov/util"
)

// FeatureManager Windows 可选功能接口
type FeatureManager interface {
	// GetFeatureInfo 查询功能状态，返回 State 字段
	GetFeatureInfo(ctx context.Context, feature string) (string, error)
	// EnableFeature 启用功能，返回退出码和输出
	EnableFeature(ctx context.Context, feature string) util.CmdResult
}

// ModuleFS 模块文件检查与暂存文件清理
type ModuleFS interface {
	// Exists 文件或目录是否存在
	Exists(path string) bool
	// Remove 删除文件，返回 true 表示已删除或不存在
	Remove(path string) bool
}

// Downloader 安装包下载接口
type Downloader interface {
	Download(ctx context.Context, url, destPath string, onProgress fetch.ProgressCallback) error
}

// PackageInstaller 安装包接口
type PackageInstaller interface {
	// Install 同步执行安装，返回安装程序退出码
	Install(ctx context.Context, packagePath string) util.CmdResult
	// VerifySignature 校验安装包签名者，signer 为空时不校验
	VerifySignature(packagePath, signer string) error
}

// WebAdmin IIS 管理接口（appcmd）
type WebAdmin interface {
	// CheckInstalled 管理工具是否可用
	CheckInstalled() error
	ListSites() ([]iis.SiteInfo, error)
	// AddSite 创建站点并添加 http/*:80:<domain> 绑定
	AddSite(name, physicalPath, domain string) error
	AddBinding(siteName, protocol, host string, port int) error
	ListGlobalRules() ([]iis.RewriteRule, error)
	// AddGlobalRule 在 applicationHost.config 全局作用域添加规则
	AddGlobalRule(rule iis.RewriteRule) error
}

// SSLBinder netsh http SSL 证书关联接口
type SSLBinder interface {
	// GetBindingForHost 查询 SNI 绑定，未找到返回 nil, nil
	GetBindingForHost(hostname string, port int) (*iis.SSLBinding, error)
	// BindCertificate 绑定证书（覆盖已有关联）
	BindCertificate(hostname string, port int, certHash string) error
}

// CertStore 本机证书存储接口
type CertStore interface {
	ListCertificates() ([]cert.CertInfo, error)
	// ImportPFX 导入 PFX 到 LocalMachine\My，返回指纹
	ImportPFX(pfxPath, password string) (string, error)
	// PEMFilesToPFX 将 PEM 证书与私钥文件转换为临时 PFX
	PEMFilesToPFX(certPath, keyPath, password string) (string, error)
}

// Directories 站点物理目录接口
type Directories interface {
	Exists(path string) bool
	MkdirAll(path string) error
}

// Provisioner 配置执行器，聚合所有依赖
type Provisioner struct {
	Features   FeatureManager
	ModuleFS   ModuleFS
	Downloader Downloader
	Installer  PackageInstaller
	Web        WebAdmin
	SSL        SSLBinder
	Certs      CertStore
	Dirs       Directories

	// Now 证书过期判断使用的时间，测试时替换
	Now func() time.Time
}

func (p *Provisioner) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}
