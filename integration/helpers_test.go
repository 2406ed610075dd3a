//go:build windows && integration

package integration

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"iisprov/iis"
	"iisprov/util"
)

// RequireAdmin 要求管理员权限，否则跳过测试
func RequireAdmin(t *testing.T) {
	t.Helper()
	if !util.IsAdmin() {
		t.Skip("此测试需要管理员权限")
	}
}

// RequireIIS 要求 IIS 管理工具已安装，否则跳过测试
func RequireIIS(t *testing.T) {
	t.Helper()
	if err := iis.CheckInstalled(); err != nil {
		t.Skipf("此测试需要 IIS: %v", err)
	}
}

// writeSelfSignedPEM 生成自签名证书和私钥文件，返回两个文件路径
func writeSelfSignedPEM(t *testing.T, domain string) (certPath, keyPath string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: domain},
		DNSNames:     []string{domain},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)

	dir := t.TempDir()
	certPath = filepath.Join(dir, "site.crt")
	keyPath = filepath.Join(dir, "site.key")
	require.NoError(t, os.WriteFile(certPath, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0600))
	require.NoError(t, os.WriteFile(keyPath, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER}), 0600))
	return certPath, keyPath
}

// TestCleanup 测试结束后删除创建的站点、SSL 绑定和证书
type TestCleanup struct {
	t           *testing.T
	sites       []string
	sniBindings []string
	thumbprints []string
}

func NewTestCleanup(t *testing.T) *TestCleanup {
	c := &TestCleanup{t: t}
	t.Cleanup(c.Cleanup)
	return c
}

func (c *TestCleanup) AddSite(name string) {
	c.sites = append(c.sites, name)
}

func (c *TestCleanup) AddSNIBinding(host string) {
	c.sniBindings = append(c.sniBindings, host)
}

func (c *TestCleanup) AddCertificate(thumbprint string) {
	c.thumbprints = append(c.thumbprints, thumbprint)
}

// Cleanup 先解除绑定，再删站点和证书
func (c *TestCleanup) Cleanup() {
	for _, host := range c.sniBindings {
		if err := iis.UnbindCertificate(host, 443); err != nil {
			c.t.Logf("清理 SNI 绑定 %s 失败: %v", host, err)
		}
	}
	for _, name := range c.sites {
		if out, err := util.RunCmdCombined(iis.AppcmdPath(), "delete", "site", "/site.name:"+name); err != nil {
			c.t.Logf("清理站点 %s 失败: %v %s", name, err, out)
		}
	}
	for _, thumb := range c.thumbprints {
		script := fmt.Sprintf(`Remove-Item -Path 'Cert:\LocalMachine\My\%s' -ErrorAction SilentlyContinue`,
			util.EscapePowerShellString(thumb))
		if _, err := util.RunPowerShell(script); err != nil {
			c.t.Logf("清理证书 %s 失败: %v", thumb, err)
		}
	}
}
