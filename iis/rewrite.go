package iis

import (
	"encoding/xml"
	"fmt"
	"strings"

	"iisprov/util"
)

// GlobalRulesSection URL Rewrite 全局规则配置节
const GlobalRulesSection = "system.webServer/rewrite/globalRules"

// HTTPSRedirectRule 所有 HTTP 请求 301 跳转到 HTTPS
func HTTPSRedirectRule(name string) RewriteRule {
	return RewriteRule{
		Name:           name,
		StopProcessing: true,
		MatchURL:       "(.*)",
		Conditions: []RewriteCondition{
			{Input: "{HTTPS}", Pattern: "^OFF$"},
		},
		Action: RewriteAction{
			Type:         "Redirect",
			URL:          "https://{HTTP_HOST}{REQUEST_URI}",
			RedirectType: "Permanent",
		},
	}
}

// appcmd list config 输出结构
type appcmdConfigList struct {
	XMLName xml.Name       `xml:"appcmd"`
	Configs []appcmdConfig `xml:"CONFIG"`
}

type appcmdConfig struct {
	Section string            `xml:"CONFIG.SECTION,attr"`
	Body    appcmdGlobalRules `xml:",any"`
}

type appcmdGlobalRules struct {
	Rules []appcmdRule `xml:"rule"`
}

type appcmdRule struct {
	Name           string `xml:"name,attr"`
	StopProcessing string `xml:"stopProcessing,attr"`
	Match          struct {
		URL string `xml:"url,attr"`
	} `xml:"match"`
	Conditions []struct {
		Input   string `xml:"input,attr"`
		Pattern string `xml:"pattern,attr"`
	} `xml:"conditions>add"`
	Action struct {
		Type         string `xml:"type,attr"`
		URL          string `xml:"url,attr"`
		RedirectType string `xml:"redirectType,attr"`
	} `xml:"action"`
}

// ListGlobalRules 列出 applicationHost.config 中的全局重写规则
// URL Rewrite 未安装时配置节不存在，返回错误
func ListGlobalRules() ([]RewriteRule, error) {
	output, err := runCmd(AppcmdPath(), "list", "config",
		"/section:"+GlobalRulesSection, "/config:*", "/xml")
	if err != nil {
		return nil, fmt.Errorf("读取全局重写规则失败: %w", err)
	}
	return parseGlobalRules(output)
}

func parseGlobalRules(output string) ([]RewriteRule, error) {
	var result appcmdConfigList
	if err := xml.Unmarshal([]byte(output), &result); err != nil {
		return nil, fmt.Errorf("解析 XML 失败: %w", err)
	}

	rules := make([]RewriteRule, 0)
	for _, cfg := range result.Configs {
		for _, r := range cfg.Body.Rules {
			rule := RewriteRule{
				Name:           r.Name,
				StopProcessing: strings.EqualFold(r.StopProcessing, "true"),
				MatchURL:       r.Match.URL,
				Action: RewriteAction{
					Type:         r.Action.Type,
					URL:          r.Action.URL,
					RedirectType: r.Action.RedirectType,
				},
			}
			for _, c := range r.Conditions {
				rule.Conditions = append(rule.Conditions, RewriteCondition{Input: c.Input, Pattern: c.Pattern})
			}
			rules = append(rules, rule)
		}
	}
	return rules, nil
}

// FindRule 按名称查找规则（不区分大小写）
func FindRule(rules []RewriteRule, name string) (RewriteRule, bool) {
	for _, r := range rules {
		if strings.EqualFold(r.Name, name) {
			return r, true
		}
	}
	return RewriteRule{}, false
}

// AddGlobalRule 在全局作用域添加重写规则
// 所有属性在一次 appcmd 调用中提交，避免留下半成品规则
func AddGlobalRule(rule RewriteRule) error {
	if err := util.ValidateRuleName(rule.Name); err != nil {
		return err
	}

	args := []string{"set", "config", "/section:" + GlobalRulesSection}
	args = append(args, globalRuleArgs(rule)...)
	args = append(args, "/commit:apphost")

	for _, a := range args {
		if strings.ContainsAny(a, "\"\r\n") {
			return fmt.Errorf("规则参数包含不允许的字符: %s", a)
		}
	}

	output, err := runCmdCombined(AppcmdPath(), args...)
	if err != nil {
		return fmt.Errorf("添加全局重写规则失败: %w, 输出: %s", err, strings.TrimSpace(output))
	}
	return nil
}

// globalRuleArgs 生成 appcmd set config 的属性参数
func globalRuleArgs(rule RewriteRule) []string {
	sel := fmt.Sprintf("/[name='%s']", rule.Name)

	add := fmt.Sprintf("/+[name='%s'", rule.Name)
	if rule.StopProcessing {
		add += ",stopProcessing='True'"
	}
	add += "]"

	args := []string{add}
	if rule.MatchURL != "" {
		args = append(args, sel+".match.url:"+rule.MatchURL)
	}
	for _, c := range rule.Conditions {
		args = append(args, fmt.Sprintf("/+[name='%s'].conditions.[input='%s',pattern='%s']", rule.Name, c.Input, c.Pattern))
	}
	if rule.Action.Type != "" {
		args = append(args, sel+".action.type:"+rule.Action.Type)
	}
	if rule.Action.URL != "" {
		args = append(args, sel+".action.url:"+rule.Action.URL)
	}
	if rule.Action.RedirectType != "" {
		args = append(args, sel+".action.redirectType:"+rule.Action.RedirectType)
	}
	return args
}
