package cert

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// generateTestCertAndKey 生成自签名测试证书和私钥 PEM
func generateTestCertAndKey() (certPEM, keyPEM string) {
	key, _ := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "test.example.com"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		DNSNames:     []string{"test.example.com", "www.test.example.com"},
	}

	certDER, _ := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)

	certBlock := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	keyDER, _ := x509.MarshalECPrivateKey(key)
	keyBlock := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})

	return string(certBlock), string(keyBlock)
}

// writeTempFile 写入测试目录并返回路径
func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

// fakePowerShell 替换 PowerShell 执行函数，记录脚本
func fakePowerShell(t *testing.T, output string, err error) *[]string {
	t.Helper()
	scripts := &[]string{}
	origRun, origCombined := runPowerShell, runPowerShellCombined
	fn := func(script string) (string, error) {
		*scripts = append(*scripts, script)
		return output, err
	}
	runPowerShell = fn
	runPowerShellCombined = fn
	t.Cleanup(func() {
		runPowerShell = origRun
		runPowerShellCombined = origCombined
	})
	return scripts
}
