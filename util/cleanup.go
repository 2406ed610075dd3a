package util

import (
	"os"
	"time"
)

// CleanupTempFileSync 同步清理临时文件（带重试）
// 最多重试 3 次，每次间隔 1 秒（msiexec 退出后文件句柄可能短暂未释放）
// 返回 true 表示删除成功或文件不存在
func CleanupTempFileSync(path string) bool {
	if path == "" {
		return true
	}

	for i := 0; i < 3; i++ {
		if i > 0 {
			time.Sleep(time.Second)
		}

		if err := os.Remove(path); err == nil {
			return true
		}

		// 检查文件是否已不存在
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return true
		}
	}

	Warn("无法删除临时文件 %s", path)
	return false
}
