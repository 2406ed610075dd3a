package cert

import (
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"

	"software.sslmate.com/src/go-pkcs12"
)

// PEMToPFX 将 PEM 格式的证书和私钥转换为 PFX 格式
// 返回临时 PFX 文件路径，调用方负责删除
func PEMToPFX(certPEM, keyPEM, intermediatePEM, password string) (string, error) {
	privateKey, err := parsePrivateKeyFromPEM(keyPEM, password)
	if err != nil {
		return "", fmt.Errorf("解析私钥失败: %w", err)
	}

	cert, err := ParseCertificate(certPEM)
	if err != nil {
		return "", err
	}

	if ok, err := publicKeyMatches(cert, privateKey); err != nil || !ok {
		return "", fmt.Errorf("证书与私钥不匹配")
	}

	var caCerts []*x509.Certificate
	remaining := []byte(intermediatePEM)
	for {
		block, rest := pem.Decode(remaining)
		if block == nil {
			break
		}
		if block.Type == "CERTIFICATE" {
			if caCert, err := x509.ParseCertificate(block.Bytes); err == nil {
				caCerts = append(caCerts, caCert)
			}
		}
		remaining = rest
	}

	pfxData, err := pkcs12.Modern.Encode(privateKey, cert, caCerts, password)
	if err != nil {
		return "", fmt.Errorf("生成 PFX 失败: %w", err)
	}

	suffix, err := generateRandomString(8)
	if err != nil {
		return "", err
	}
	pfxPath := filepath.Join(os.TempDir(), fmt.Sprintf("iisprov_%s.pfx", suffix))

	if err := os.WriteFile(pfxPath, pfxData, 0600); err != nil {
		return "", fmt.Errorf("写入 PFX 文件失败: %w", err)
	}

	return pfxPath, nil
}

// PEMFilesToPFX 读取 PEM 证书（可含中间证书链）和私钥文件，转换为临时 PFX
func PEMFilesToPFX(certPath, keyPath, password string) (string, error) {
	certBytes, err := os.ReadFile(certPath)
	if err != nil {
		return "", fmt.Errorf("读取证书文件失败: %w", err)
	}
	keyBytes, err := os.ReadFile(keyPath)
	if err != nil {
		return "", fmt.Errorf("读取私钥文件失败: %w", err)
	}

	leafPEM, chainPEM := splitPEMCertChain(string(certBytes))
	return PEMToPFX(leafPEM, string(keyBytes), chainPEM, password)
}

// generateRandomString 生成随机字符串
func generateRandomString(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("生成随机数失败: %w", err)
	}
	for i := range b {
		b[i] = charset[int(b[i])%len(charset)]
	}
	return string(b), nil
}
