package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"iisprov/util"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("sitename", func(fl validator.FieldLevel) bool {
		return util.ValidateSiteName(fl.Field().String()) == nil
	})
	v.RegisterValidation("winpath", func(fl validator.FieldLevel) bool {
		return util.ValidatePhysicalPath(fl.Field().String()) == nil
	})
	return v
}

// Validate 校验期望状态
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s 不满足 %s", fe.Namespace(), fe.Tag()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}

	for _, f := range c.Features {
		if err := util.ValidateFeatureName(f); err != nil {
			return err
		}
	}

	if !c.Redirect.Skip {
		if err := util.ValidateRuleName(c.Redirect.RuleName); err != nil {
			return err
		}
	}

	names := make(map[string]bool)
	domains := make(map[string]string)
	for _, site := range c.Sites {
		key := strings.ToLower(site.Name)
		if names[key] {
			return fmt.Errorf("站点名称重复: %s", site.Name)
		}
		names[key] = true

		if err := util.ValidateDomain(site.Domain); err != nil {
			return fmt.Errorf("站点 %s 域名无效: %w", site.Name, err)
		}
		domain := util.NormalizeDomain(site.Domain)
		if other, ok := domains[domain]; ok {
			return fmt.Errorf("域名 %s 同时配置在站点 %s 和 %s", site.Domain, other, site.Name)
		}
		domains[domain] = site.Name
	}

	for _, cf := range c.Certificates {
		if isPEMPath(cf.Path) && cf.KeyPath == "" {
			return fmt.Errorf("PEM 证书 %s 缺少 key_path", cf.Path)
		}
	}

	return nil
}

// isPEMPath 按扩展名判断证书文件格式，.pfx/.p12 以外都按 PEM 处理
func isPEMPath(path string) bool {
	lower := strings.ToLower(path)
	return !strings.HasSuffix(lower, ".pfx") && !strings.HasSuffix(lower, ".p12")
}

// IsPFX 证书文件是否为 PKCS#12
func (c CertFileConfig) IsPFX() bool {
	return !isPEMPath(c.Path)
}
