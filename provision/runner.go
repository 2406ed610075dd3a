package provision

import (
	"context"
	"fmt"

	"iisprov/config"
	"iisprov/iis"
	"iisprov/util"
)

// Run 按顺序执行全部步骤
// 只有 IIS 管理工具不可用时返回 ErrFatalPrerequisite，其余失败记录在 Report 中
func (p *Provisioner) Run(ctx context.Context, cfg *config.Config) (*Report, error) {
	report := &Report{}

	util.Info("=== 启用 Windows 功能 (%d) ===", len(cfg.Features))
	report.Features = p.EnsureFeatures(ctx, cfg.Features)
	if err := ctx.Err(); err != nil {
		return report, err
	}

	if err := p.Web.CheckInstalled(); err != nil {
		util.Error("[失败] %v", err)
		return report, fmt.Errorf("%w: %v", ErrFatalPrerequisite, err)
	}

	if cfg.Module.Skip {
		util.Info("跳过模块安装")
	} else {
		util.Info("=== 检查 %s ===", cfg.Module.Name)
		r := p.EnsureModule(ctx, cfg.Module)
		report.Module = &r
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	if cfg.Redirect.Skip {
		util.Info("跳过全局跳转规则")
	} else {
		util.Info("=== 检查全局 HTTP→HTTPS 规则 ===")
		r := p.EnsureGlobalRedirect(iis.HTTPSRedirectRule(cfg.Redirect.RuleName))
		report.Redirect = &r
	}

	if len(cfg.Certificates) > 0 {
		util.Info("=== 导入证书 (%d) ===", len(cfg.Certificates))
		report.Certificates = p.ImportCertificates(cfg.Certificates)
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	util.Info("=== 配置站点 (%d) ===", len(cfg.Sites))
	report.Sites = p.EnsureSites(cfg.Sites, SiteOptions{
		CertPolicy:        cfg.CertPolicy,
		ReconcileExisting: cfg.ReconcileExisting,
	})

	ok, failed := report.Counts()
	util.Success("执行完成: 成功 %d, 失败 %d", ok, failed)
	return report, nil
}

// Counts 统计成功（含已满足、仅提示）与失败的步骤数
func (r *Report) Counts() (ok, failed int) {
	count := func(bad bool) {
		if bad {
			failed++
		} else {
			ok++
		}
	}
	for _, f := range r.Features {
		count(f.Outcome == FeatureFailed)
	}
	if r.Module != nil {
		count(r.Module.Outcome == ModuleDownloadFailed || r.Module.Outcome == ModuleInstallFailed)
	}
	if r.Redirect != nil {
		count(r.Redirect.Outcome == RedirectFailed)
	}
	for _, c := range r.Certificates {
		count(c.Outcome == CertImportFailed)
	}
	for _, s := range r.Sites {
		count(s.Outcome == SiteFailed || s.Binding == BindingFailed)
	}
	return ok, failed
}
