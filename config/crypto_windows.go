//go:build windows

package config

import (
	"encoding/base64"
	"errors"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"
)

// 以本机范围保护：计划任务以 SYSTEM 运行时也能解密
const protectFlags = windows.CRYPTPROTECT_UI_FORBIDDEN | windows.CRYPTPROTECT_LOCAL_MACHINE

// EncryptSecret 使用 DPAPI 加密证书密码
func EncryptSecret(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	input := []byte(plaintext)
	in := windows.DataBlob{Size: uint32(len(input)), Data: &input[0]}
	var out windows.DataBlob
	if err := windows.CryptProtectData(&in, nil, nil, 0, nil, protectFlags, &out); err != nil {
		return "", err
	}
	defer windows.LocalFree(windows.Handle(unsafe.Pointer(out.Data)))

	output := make([]byte, out.Size)
	copy(output, unsafe.Slice(out.Data, out.Size))

	return EncryptionPrefix + base64.StdEncoding.EncodeToString(output), nil
}

// DecryptSecret 使用 DPAPI 解密证书密码
func DecryptSecret(encrypted string) (string, error) {
	if encrypted == "" {
		return "", nil
	}
	if !strings.HasPrefix(encrypted, EncryptionPrefix) {
		return "", errors.New("无效的加密格式")
	}

	input, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(encrypted, EncryptionPrefix))
	if err != nil || len(input) == 0 {
		return "", errors.New("无效的加密数据")
	}

	in := windows.DataBlob{Size: uint32(len(input)), Data: &input[0]}
	var out windows.DataBlob
	if err := windows.CryptUnprotectData(&in, nil, nil, 0, nil, windows.CRYPTPROTECT_UI_FORBIDDEN, &out); err != nil {
		return "", errors.New("解密失败")
	}
	defer windows.LocalFree(windows.Handle(unsafe.Pointer(out.Data)))

	output := make([]byte, out.Size)
	copy(output, unsafe.Slice(out.Data, out.Size))

	return string(output), nil
}
