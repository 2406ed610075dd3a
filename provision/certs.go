package provision

import (
	"fmt"
	"path/filepath"
	"strings"

	"iisprov/cert"
	"iisprov/config"
	"iisprov/util"
)

// 测试时替换
var (
	pfxThumbprint   = cert.PFXFileThumbprint
	pemThumbprint   = cert.PEMFileThumbprint
	resolvePassword = config.ResolvePassword
)

// ImportCertificate 导入证书文件到 LocalMachine\My，已有相同指纹时跳过
// existing 为导入前的存储快照
func (p *Provisioner) ImportCertificate(cf config.CertFileConfig, existing []cert.CertInfo) CertImportResult {
	result := CertImportResult{Path: cf.Path, Outcome: CertImportFailed}

	fail := func(err error) CertImportResult {
		result.Err = err
		util.Error("[失败] 导入证书 %s: %v", cf.Path, err)
		return result
	}

	password, err := resolvePassword(cf.Password)
	if err != nil {
		return fail(err)
	}

	pfx := cf.IsPFX()
	if !pfx && cf.KeyPath == "" {
		return fail(fmt.Errorf("PEM 证书需要配置 key_path"))
	}

	var thumbprint string
	if pfx {
		thumbprint, err = pfxThumbprint(cf.Path, password)
	} else {
		thumbprint, err = pemThumbprint(cf.Path)
	}
	if err != nil {
		return fail(err)
	}
	result.Thumbprint = thumbprint

	if cert.ContainsThumbprint(existing, thumbprint) {
		result.Outcome = CertAlreadyPresent
		util.Info("[成功] 证书 %s 已在存储中 (%s)", filepath.Base(cf.Path), thumbprint)
		return result
	}

	pfxPath := cf.Path
	if !pfx {
		pfxPath, err = p.Certs.PEMFilesToPFX(cf.Path, cf.KeyPath, password)
		if err != nil {
			return fail(err)
		}
		defer util.CleanupTempFileSync(pfxPath)
	}

	imported, err := p.Certs.ImportPFX(pfxPath, password)
	if err != nil {
		return fail(err)
	}
	if !strings.EqualFold(imported, thumbprint) {
		util.Warn("[警告] 导入后的指纹 %s 与文件指纹 %s 不一致", imported, thumbprint)
		result.Thumbprint = imported
	}

	result.Outcome = CertImported
	util.Info("[成功] 已导入证书 %s (%s)", filepath.Base(cf.Path), result.Thumbprint)
	return result
}

// ImportCertificates 依次导入所有证书文件，单个失败不影响后续
func (p *Provisioner) ImportCertificates(files []config.CertFileConfig) []CertImportResult {
	if len(files) == 0 {
		return nil
	}

	existing, err := p.Certs.ListCertificates()
	if err != nil {
		util.Warn("[警告] 读取证书存储失败，按空存储处理: %v", err)
		existing = nil
	}

	results := make([]CertImportResult, 0, len(files))
	for _, cf := range files {
		r := p.ImportCertificate(cf, existing)
		if r.Outcome == CertImported {
			existing = append(existing, cert.CertInfo{Thumbprint: r.Thumbprint})
		}
		results = append(results, r)
	}
	return results
}
