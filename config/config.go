package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"iisprov/util"
)

// DataDirName 数据目录名称
const DataDirName = "iisprov"

// 证书选择策略
const (
	CertPolicyMatch = "match" // 按域名匹配、未过期、带私钥
	CertPolicyFirst = "first" // 取存储中的第一张证书
)

// ModuleConfig IIS 扩展模块（URL Rewrite）
type ModuleConfig struct {
	Name          string `yaml:"name" validate:"required"`
	BinaryPath    string `yaml:"binary_path" validate:"required"`      // 安装后应存在的文件
	DownloadURL   string `yaml:"download_url" validate:"required,url"` // MSI 下载地址
	StagingPath   string `yaml:"staging_path" validate:"required"`     // 下载暂存位置，安装后删除
	TrustedSigner string `yaml:"trusted_signer"`                       // 安装包签名者，为空不校验签名
	Skip          bool   `yaml:"skip"`                                 // 跳过模块安装步骤
}

// RedirectConfig 全局 HTTP→HTTPS 重写规则
type RedirectConfig struct {
	RuleName string `yaml:"rule_name" validate:"required,max=128"`
	Skip     bool   `yaml:"skip"`
}

// SiteConfig 站点定义
type SiteConfig struct {
	Name         string `yaml:"name" validate:"required,sitename"`
	PhysicalPath string `yaml:"physical_path" validate:"required,winpath"`
	Domain       string `yaml:"domain" validate:"required,fqdn"`
}

// CertFileConfig 需要导入到 LocalMachine\My 的证书文件
// Path 为 .pfx/.p12 时 KeyPath 留空；为 PEM 证书时 KeyPath 指向私钥
type CertFileConfig struct {
	Path     string `yaml:"path" validate:"required"`
	KeyPath  string `yaml:"key_path"`
	Password string `yaml:"password"` // 明文、env:NAME 或 v1: DPAPI 密文
}

// Config 期望状态
type Config struct {
	Features          []string         `yaml:"features" validate:"dive,required"`
	Module            ModuleConfig     `yaml:"module"`
	Redirect          RedirectConfig   `yaml:"redirect"`
	Certificates      []CertFileConfig `yaml:"certificates" validate:"dive"`
	Sites             []SiteConfig     `yaml:"sites" validate:"dive"`
	CertPolicy        string           `yaml:"cert_policy" validate:"oneof=match first"`
	ReconcileExisting bool             `yaml:"reconcile_existing"` // 已存在的站点也校正绑定
}

// DefaultFeatures 需要启用的 Windows 可选功能（按顺序）
var DefaultFeatures = []string{
	"IIS-WebServerRole",
	"IIS-WebServer",
	"IIS-CommonHttpFeatures",
	"IIS-StaticContent",
	"IIS-DefaultDocument",
	"IIS-HttpErrors",
	"IIS-HttpRedirect",
	"IIS-HealthAndDiagnostics",
	"IIS-HttpLogging",
	"IIS-Security",
	"IIS-RequestFiltering",
	"IIS-Performance",
	"IIS-HttpCompressionStatic",
	"IIS-WebServerManagementTools",
	"IIS-ManagementConsole",
}

const (
	defaultModuleURL = "https://download.microsoft.com/download/1/2/8/128E2E22-C1B9-44A4-BE2A-5859ED1D4592/rewrite_amd64_en-US.msi"
	defaultRuleName  = "HTTP to HTTPS Redirect"
)

// DefaultConfig 内置的期望状态（无配置文件时使用）
// 证书策略默认为 match: 只绑定域名匹配的证书，CN 不匹配的证书不会被使用。
// 需要"取存储中第一张证书"的行为时配置 cert_policy: first
func DefaultConfig() *Config {
	return &Config{
		Features: append([]string(nil), DefaultFeatures...),
		Module: ModuleConfig{
			Name:          "URL Rewrite 2.1",
			BinaryPath:    filepath.Join(windowsDir(), "System32", "inetsrv", "rewrite.dll"),
			DownloadURL:   defaultModuleURL,
			StagingPath:   filepath.Join(os.TempDir(), "rewrite_amd64_en-US.msi"),
			TrustedSigner: "Microsoft Corporation",
		},
		Redirect: RedirectConfig{
			RuleName: defaultRuleName,
		},
		Sites: []SiteConfig{
			{Name: "Portal", PhysicalPath: `C:\inetpub\portal`, Domain: "portal.example.com"},
			{Name: "Api", PhysicalPath: `C:\inetpub\api`, Domain: "api.example.com"},
		},
		CertPolicy: CertPolicyMatch,
	}
}

func windowsDir() string {
	windir := os.Getenv("windir")
	if windir == "" {
		windir = `C:\Windows`
	}
	return windir
}

// GetDataDir 获取数据目录（程序同目录下的 iisprov 文件夹）
func GetDataDir() string {
	exe, err := os.Executable()
	if err != nil {
		return DataDirName
	}
	dataDir := filepath.Join(filepath.Dir(exe), DataDirName)
	os.MkdirAll(dataDir, 0700)
	return dataDir
}

// GetLogDir 获取日志目录
func GetLogDir() string {
	logDir := filepath.Join(GetDataDir(), "logs")
	os.MkdirAll(logDir, 0700)
	return logDir
}

// Load 读取 YAML 期望状态，未出现的字段沿用内置默认值
// path 为空时直接返回内置默认值
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("解析配置文件失败: %w", err)
		}
	}

	if cfg.CertPolicy == "" {
		cfg.CertPolicy = CertPolicyMatch
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置校验失败: %w", err)
	}

	cfg.expandPaths()
	return cfg, nil
}

// expandPaths 展开路径中的环境变量（校验之后执行，校验针对原始写法）
func (c *Config) expandPaths() {
	c.Module.BinaryPath = util.ExpandEnv(c.Module.BinaryPath)
	c.Module.StagingPath = util.ExpandEnv(c.Module.StagingPath)
	for i := range c.Sites {
		c.Sites[i].PhysicalPath = util.ExpandEnv(c.Sites[i].PhysicalPath)
	}
	for i := range c.Certificates {
		c.Certificates[i].Path = util.ExpandEnv(c.Certificates[i].Path)
		c.Certificates[i].KeyPath = util.ExpandEnv(c.Certificates[i].KeyPath)
	}
}

// Marshal 输出 YAML（用于 print-config 查看生效的期望状态）
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
