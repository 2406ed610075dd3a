package dism

import (
	"strings"

	"iisprov/util"
)

// Status 启用功能的结果分类
type Status int

const (
	StatusFailed Status = iota
	StatusEnabled
	StatusUnsupported
)

func (s Status) String() string {
	switch s {
	case StatusEnabled:
		return "Enabled"
	case StatusUnsupported:
		return "Unsupported"
	default:
		return "Failed"
	}
}

// dism 退出码
const (
	ExitSuccess        = 0
	ExitRebootRequired = 3010
	ExitUnknownFeature = 0x800F080C // CBS_E_UNKNOWN_UPDATE
)

var exitCodeTable = map[uint32]Status{
	ExitSuccess:        StatusEnabled,
	ExitRebootRequired: StatusEnabled,
	ExitUnknownFeature: StatusUnsupported,
}

// 退出码无法判断时按输出文本兜底（中文系统未加 /English 时输出为本地化文本）
var textTable = []struct {
	substr string
	status Status
}{
	{"is unknown", StatusUnsupported},
	{"not recognized", StatusUnsupported},
	{"未知", StatusUnsupported},
	{"completed successfully", StatusEnabled},
	{"操作成功完成", StatusEnabled},
}

// Classify 根据退出码和输出判断启用结果
func Classify(result util.CmdResult) Status {
	if result.Err != nil {
		return StatusFailed
	}

	if status, ok := exitCodeTable[uint32(result.ExitCode)]; ok {
		return status
	}

	lower := strings.ToLower(result.Output)
	for _, entry := range textTable {
		if strings.Contains(lower, entry.substr) {
			return entry.status
		}
	}
	return StatusFailed
}
