//go:build !windows

package config

import "errors"

var errNoDPAPI = errors.New("DPAPI 仅在 Windows 上可用")

func EncryptSecret(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	return "", errNoDPAPI
}

func DecryptSecret(encrypted string) (string, error) {
	if encrypted == "" {
		return "", nil
	}
	return "", errNoDPAPI
}
