package cert

import (
	"crypto/sha1"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"os"
	"strings"

	"software.sslmate.com/src/go-pkcs12"
)

// ParseCertificate 解析第一个 CERTIFICATE 块
func ParseCertificate(certPEM string) (*x509.Certificate, error) {
	rest := []byte(certPEM)
	for {
		block, remaining := pem.Decode(rest)
		if block == nil {
			return nil, fmt.Errorf("无法解析证书 PEM")
		}
		rest = remaining
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("解析证书失败: %w", err)
		}
		return cert, nil
	}
}

// Thumbprint 证书 SHA1 指纹（大写十六进制，与 Windows 证书存储一致）
func Thumbprint(cert *x509.Certificate) string {
	sum := sha1.Sum(cert.Raw)
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// PEMFileThumbprint 读取 PEM 证书文件的叶子证书指纹
func PEMFileThumbprint(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("读取证书文件失败: %w", err)
	}
	cert, err := ParseCertificate(string(data))
	if err != nil {
		return "", err
	}
	return Thumbprint(cert), nil
}

// PFXFileThumbprint 解开 PFX 文件，返回叶子证书指纹
func PFXFileThumbprint(path, password string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("读取 PFX 文件失败: %w", err)
	}
	_, cert, _, err := pkcs12.DecodeChain(data, password)
	if err != nil {
		return "", fmt.Errorf("解析 PFX 失败: %w", err)
	}
	return Thumbprint(cert), nil
}
