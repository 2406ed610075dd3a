package provision

import (
	"fmt"

	"iisprov/iis"
	"iisprov/util"
)

// EnsureGlobalRedirect 确保全局 HTTP→HTTPS 规则存在，按名称判断，不会重复创建
func (p *Provisioner) EnsureGlobalRedirect(rule iis.RewriteRule) RedirectResult {
	result := RedirectResult{Rule: rule.Name}

	rules, err := p.Web.ListGlobalRules()
	if err != nil {
		result.Outcome = RedirectFailed
		result.Err = err
		util.Error("[失败] 读取全局规则失败（URL Rewrite 是否已安装？）: %v", err)
		return result
	}

	if _, ok := iis.FindRule(rules, rule.Name); ok {
		result.Outcome = RedirectAlreadyExists
		util.Info("[成功] 全局规则 %q 已存在", rule.Name)
		return result
	}

	if err := p.Web.AddGlobalRule(rule); err != nil {
		result.Outcome = RedirectFailed
		result.Err = fmt.Errorf("创建全局规则 %q 失败: %w", rule.Name, err)
		util.Error("[失败] %v", result.Err)
		return result
	}

	result.Outcome = RedirectCreated
	util.Info("[成功] 已创建全局规则 %q", rule.Name)
	return result
}
