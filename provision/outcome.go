package provision

import "errors"

// 错误分类，记录在各步骤结果的 Err 中，用 errors.Is 判断
var (
	// ErrUnsupported 功能不适用于当前系统，仅提示
	ErrUnsupported = errors.New("不支持")
	// ErrTransient 下载等网络错误，本步骤中止，后续步骤继续
	ErrTransient = errors.New("临时失败")
	// ErrUnverified 安装程序报告成功但未找到模块文件
	ErrUnverified = errors.New("未验证")
	// ErrMissingPrerequisite 缺少证书，站点仅配置 HTTP
	ErrMissingPrerequisite = errors.New("缺少前置条件")
	// ErrFatalPrerequisite IIS 管理工具不可用，整个流程中止
	ErrFatalPrerequisite = errors.New("IIS 管理工具不可用")
)

// FeatureOutcome 功能启用结果
type FeatureOutcome int

const (
	FeatureFailed FeatureOutcome = iota
	FeatureAlreadyEnabled
	FeatureEnabled
	FeatureUnsupported
)

func (o FeatureOutcome) String() string {
	switch o {
	case FeatureAlreadyEnabled:
		return "AlreadyEnabled"
	case FeatureEnabled:
		return "Enabled"
	case FeatureUnsupported:
		return "Unsupported"
	default:
		return "Failed"
	}
}

// ModuleOutcome 模块安装结果
type ModuleOutcome int

const (
	ModuleInstallFailed ModuleOutcome = iota
	ModuleAlreadyInstalled
	ModuleInstalled
	ModuleDownloadFailed
	ModuleInstallAttempted
)

func (o ModuleOutcome) String() string {
	switch o {
	case ModuleAlreadyInstalled:
		return "AlreadyInstalled"
	case ModuleInstalled:
		return "Installed"
	case ModuleDownloadFailed:
		return "DownloadFailed"
	case ModuleInstallAttempted:
		return "InstallAttempted"
	default:
		return "InstallFailed"
	}
}

// RedirectOutcome 全局跳转规则结果
type RedirectOutcome int

const (
	RedirectFailed RedirectOutcome = iota
	RedirectAlreadyExists
	RedirectCreated
)

func (o RedirectOutcome) String() string {
	switch o {
	case RedirectAlreadyExists:
		return "AlreadyExists"
	case RedirectCreated:
		return "Created"
	default:
		return "Failed"
	}
}

// CertImportOutcome 证书导入结果
type CertImportOutcome int

const (
	CertImportFailed CertImportOutcome = iota
	CertAlreadyPresent
	CertImported
)

func (o CertImportOutcome) String() string {
	switch o {
	case CertAlreadyPresent:
		return "AlreadyPresent"
	case CertImported:
		return "Imported"
	default:
		return "ImportFailed"
	}
}

// SiteOutcome 站点创建结果
type SiteOutcome int

const (
	SiteFailed SiteOutcome = iota
	SiteCreated
	SiteAlreadyExists
)

func (o SiteOutcome) String() string {
	switch o {
	case SiteCreated:
		return "Created"
	case SiteAlreadyExists:
		return "AlreadyExists"
	default:
		return "Failed"
	}
}

// BindingOutcome 站点绑定结果
type BindingOutcome int

const (
	BindingNone BindingOutcome = iota // 未处理（站点已存在且未开启 reconcile_existing，或站点创建失败）
	BindingConfigured
	BindingSkippedExisting
	BindingNoCertificate
	BindingNoMatchingCertificate
	BindingFailed
)

func (o BindingOutcome) String() string {
	switch o {
	case BindingConfigured:
		return "Configured"
	case BindingSkippedExisting:
		return "SkippedExisting"
	case BindingNoCertificate:
		return "NoCertificate"
	case BindingNoMatchingCertificate:
		return "NoMatchingCertificate"
	case BindingFailed:
		return "Failed"
	default:
		return "-"
	}
}

// FeatureResult 单个功能的处理结果
type FeatureResult struct {
	Feature string
	Outcome FeatureOutcome
	Err     error
}

// ModuleResult 模块安装结果
type ModuleResult struct {
	Module  string
	Outcome ModuleOutcome
	Err     error
}

// RedirectResult 全局规则结果
type RedirectResult struct {
	Rule    string
	Outcome RedirectOutcome
	Err     error
}

// CertImportResult 单个证书文件的导入结果
type CertImportResult struct {
	Path       string
	Thumbprint string
	Outcome    CertImportOutcome
	Err        error
}

// SiteResult 单个站点的处理结果
type SiteResult struct {
	Site         string
	Domain       string
	PhysicalPath string
	Outcome      SiteOutcome
	Binding      BindingOutcome
	Thumbprint   string // 绑定使用的证书，未绑定 HTTPS 时为空
	Err          error
}

// HTTPS 是否已配置 HTTPS 绑定
func (r SiteResult) HTTPS() bool {
	return r.Binding == BindingConfigured || r.Binding == BindingSkippedExisting
}

// Report 一次执行的全部结果，被跳过的步骤为 nil
type Report struct {
	Features     []FeatureResult
	Module       *ModuleResult
	Redirect     *RedirectResult
	Certificates []CertImportResult
	Sites        []SiteResult
}
