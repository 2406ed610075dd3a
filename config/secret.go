package config

import (
	"fmt"
	"os"
	"strings"
)

// EncryptionPrefix 加密版本前缀
const EncryptionPrefix = "v1:"

const envPrefix = "env:"

// ResolvePassword 解析证书密码配置
//   - "v1:..." DPAPI 密文（iisprov encrypt 生成）
//   - "env:NAME" 读取环境变量
//   - 其他按明文处理
func ResolvePassword(raw string) (string, error) {
	switch {
	case raw == "":
		return "", nil
	case strings.HasPrefix(raw, EncryptionPrefix):
		plain, err := DecryptSecret(raw)
		if err != nil {
			return "", fmt.Errorf("解密证书密码失败: %w", err)
		}
		return plain, nil
	case strings.HasPrefix(raw, envPrefix):
		name := strings.TrimPrefix(raw, envPrefix)
		value, ok := os.LookupEnv(name)
		if !ok {
			return "", fmt.Errorf("环境变量 %s 未设置", name)
		}
		return value, nil
	default:
		return raw, nil
	}
}
