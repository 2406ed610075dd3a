package provision

import (
	"errors"
	"fmt"
	"strings"

	"iisprov/cert"
	"iisprov/config"
	"iisprov/iis"
	"iisprov/util"
)

const (
	httpPort  = 80
	httpsPort = 443
)

// SiteOptions 站点处理选项
type SiteOptions struct {
	CertPolicy        string // match | first
	ReconcileExisting bool   // 已存在的站点也补齐绑定
}

// EnsureSite 确保站点存在，并尽可能配置 HTTPS 绑定
// 站点已存在时默认不做任何修改
func (p *Provisioner) EnsureSite(def config.SiteConfig, opts SiteOptions) SiteResult {
	result := SiteResult{
		Site:         def.Name,
		Domain:       def.Domain,
		PhysicalPath: def.PhysicalPath,
		Outcome:      SiteFailed,
	}

	sites, err := p.Web.ListSites()
	if err != nil {
		result.Err = fmt.Errorf("读取站点列表失败: %w", err)
		util.Error("[失败] 站点 %s: %v", def.Name, result.Err)
		return result
	}

	site, exists := iis.FindSite(sites, def.Name)
	if exists {
		result.Outcome = SiteAlreadyExists
		if !opts.ReconcileExisting {
			util.Info("[成功] 站点 %s 已存在，跳过", def.Name)
			return result
		}
		util.Info("站点 %s 已存在，检查绑定", def.Name)
	} else {
		if !p.Dirs.Exists(def.PhysicalPath) {
			if err := p.Dirs.MkdirAll(def.PhysicalPath); err != nil {
				result.Err = fmt.Errorf("创建目录 %s 失败: %w", def.PhysicalPath, err)
				util.Error("[失败] 站点 %s: %v", def.Name, result.Err)
				return result
			}
			util.Debug("已创建目录 %s", def.PhysicalPath)
		}

		if err := p.Web.AddSite(def.Name, def.PhysicalPath, def.Domain); err != nil {
			result.Err = err
			util.Error("[失败] 创建站点 %s: %v", def.Name, err)
			return result
		}
		result.Outcome = SiteCreated
		util.Info("[成功] 已创建站点 %s (http://%s)", def.Name, def.Domain)

		site = iis.SiteInfo{
			Name: def.Name,
			Bindings: []iis.BindingInfo{
				{Protocol: "http", IP: "0.0.0.0", Port: httpPort, Host: def.Domain},
			},
		}
	}

	created := result.Outcome == SiteCreated
	result.Binding, result.Thumbprint, result.Err = p.ensureBindings(site, def.Domain, opts.CertPolicy, created)
	return result
}

// ensureBindings 按协议补齐 http/https 绑定和 SSL 证书关联
// 新建的站点总是重新选择证书并覆盖 host:443 上的旧关联
func (p *Provisioner) ensureBindings(site iis.SiteInfo, domain, policy string, created bool) (BindingOutcome, string, error) {
	if !site.HasBinding("http", domain, httpPort) {
		if err := p.Web.AddBinding(site.Name, "http", domain, httpPort); err != nil {
			util.Error("[失败] 站点 %s 添加 HTTP 绑定: %v", site.Name, err)
			return BindingFailed, "", err
		}
		util.Info("已添加绑定 http/*:%d:%s", httpPort, domain)
	}

	httpsBound := site.HasBinding("https", domain, httpsPort)

	var kept *iis.SSLBinding
	if !created {
		kept = p.keptAssociation(domain)
	}

	if httpsBound && kept != nil {
		util.Info("[成功] 站点 %s HTTPS 绑定已存在", site.Name)
		return BindingSkippedExisting, kept.CertHash, nil
	}

	// 已有有效的证书关联时只补 https 绑定，不覆盖关联
	thumbprint := ""
	if kept != nil {
		thumbprint = kept.CertHash
	} else {
		outcome, selected, err := p.selectCertificate(domain, policy)
		if selected == nil {
			if outcome == BindingFailed {
				util.Error("[失败] 站点 %s: %v", site.Name, err)
			} else {
				util.Warn("[警告] 站点 %s 没有可用证书，仅配置 HTTP: %v", site.Name, err)
			}
			return outcome, "", err
		}
		thumbprint = selected.Thumbprint
		util.Info("站点 %s 使用证书 %s (%s)", site.Name, selected.DisplayName(), thumbprint)
	}

	if !httpsBound {
		if err := p.Web.AddBinding(site.Name, "https", domain, httpsPort); err != nil {
			util.Error("[失败] 站点 %s 添加 HTTPS 绑定: %v", site.Name, err)
			return BindingFailed, "", err
		}
		util.Info("已添加绑定 https/*:%d:%s", httpsPort, domain)
	}

	if kept == nil {
		if err := p.SSL.BindCertificate(domain, httpsPort, thumbprint); err != nil {
			util.Error("[失败] 站点 %s 绑定证书: %v", site.Name, err)
			return BindingFailed, "", err
		}
	}

	util.Info("[成功] 站点 %s 已配置 https://%s", site.Name, domain)
	return BindingConfigured, thumbprint, nil
}

// keptAssociation 返回 host:443 上可以保留的证书关联
// 关联的证书已不在本机存储中时返回 nil，由调用方重新选择并覆盖
func (p *Provisioner) keptAssociation(domain string) *iis.SSLBinding {
	binding, err := p.SSL.GetBindingForHost(domain, httpsPort)
	if err != nil {
		util.Debug("查询 %s:%d SSL 绑定失败: %v", domain, httpsPort, err)
		return nil
	}
	if binding == nil {
		return nil
	}

	certs, err := p.Certs.ListCertificates()
	if err != nil {
		util.Debug("读取证书存储失败: %v", err)
		return nil
	}
	for _, c := range certs {
		if strings.EqualFold(c.Thumbprint, binding.CertHash) {
			return binding
		}
	}
	util.Warn("[警告] %s:%d 关联的证书 %s 已不在存储中，将重新选择", domain, httpsPort, binding.CertHash)
	return nil
}

// selectCertificate 从本机存储按策略挑选证书，selected 为 nil 时 outcome 说明原因
func (p *Provisioner) selectCertificate(domain, policy string) (BindingOutcome, *cert.CertInfo, error) {
	certs, err := p.Certs.ListCertificates()
	if err != nil {
		return BindingFailed, nil, err
	}

	selected, err := cert.SelectCertificate(certs, domain, policy, p.now())
	switch {
	case errors.Is(err, cert.ErrStoreEmpty):
		return BindingNoCertificate, nil, fmt.Errorf("%w: %v", ErrMissingPrerequisite, err)
	case errors.Is(err, cert.ErrNoMatch):
		return BindingNoMatchingCertificate, nil, fmt.Errorf("%w: %v", ErrMissingPrerequisite, err)
	case err != nil:
		return BindingFailed, nil, err
	}
	return BindingConfigured, selected, nil
}

// EnsureSites 依次处理所有站点，单个失败不影响后续
func (p *Provisioner) EnsureSites(defs []config.SiteConfig, opts SiteOptions) []SiteResult {
	results := make([]SiteResult, 0, len(defs))
	for _, def := range defs {
		results = append(results, p.EnsureSite(def, opts))
	}
	return results
}
