package contract

import (
	"path"
	"strings"
)

// NormalizeFileID 规范化路径，统一为跨平台稳定的 FileID。
// 规则：
// - 使用正斜杠分隔符
// - 清理多余分隔符与路径片段（.、..）
// - 保留相对/绝对语义，不做隐式绝对化
func NormalizeFileID(p string) FileID {
	return FileID(path.Clean(strings.ReplaceAll(p, "\\", "/")))
}

// HasExt 判断 FileID 是否以给定后缀之一结尾（大小写敏感，按原样比较）。
func (id FileID) HasExt(exts ...string) bool {
	for _, e := range exts {
		if e != "" && strings.HasSuffix(string(id), e) {
			return true
		}
	}
	return false
}
