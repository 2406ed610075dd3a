package util

import (
	"os"
	"strings"
	"unicode/utf8"
)

// TruncateString 安全截断字符串，不会切断多字节 UTF-8 字符
// maxBytes: 最大字节数
func TruncateString(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	// 从 maxBytes 位置往回找到有效的 UTF-8 边界
	for maxBytes > 0 && !utf8.RuneStart(s[maxBytes]) {
		maxBytes--
	}
	return s[:maxBytes]
}

// ExpandEnv 展开 $VAR / ${VAR} 与 Windows 风格的 %VAR%
// 未定义的 %VAR% 保持原样，%% 转义为 %
func ExpandEnv(path string) string {
	expanded := os.ExpandEnv(path)
	if !strings.Contains(expanded, "%") {
		return expanded
	}

	var builder strings.Builder
	builder.Grow(len(expanded))

	for i := 0; i < len(expanded); i++ {
		if expanded[i] != '%' {
			builder.WriteByte(expanded[i])
			continue
		}

		end := strings.IndexByte(expanded[i+1:], '%')
		if end < 0 {
			builder.WriteByte(expanded[i])
			continue
		}
		end = i + 1 + end

		if end == i+1 {
			builder.WriteByte('%')
			i = end
			continue
		}

		key := expanded[i+1 : end]
		if value, ok := os.LookupEnv(key); ok {
			builder.WriteString(value)
		} else {
			builder.WriteString(expanded[i : end+1])
		}
		i = end
	}

	return builder.String()
}
