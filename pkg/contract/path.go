package contract

import (
	"path"
	"strings"
)

// StdinFileID 为 STDIN 输入的 FileID；其内容按 Format 1 摘要处理。
const StdinFileID FileID = "stdin"

// NormalizeFileID 规范化路径，统一为跨平台稳定的 FileID。
// 规则：
// - 使用正斜杠分隔符
// - 清理多余分隔符与路径片段（.、..）
// - 保留相对/绝对语义，不做隐式绝对化
func NormalizeFileID(p string) FileID {
	return FileID(path.Clean(strings.ReplaceAll(p, "\\", "/")))
}

// Base 返回 FileID 的基名。
func (id FileID) Base() string { return path.Base(string(id)) }

// Ext 返回 FileID 的扩展名（含点）。
func (id FileID) Ext() string { return path.Ext(string(id)) }

// Stem 返回去掉扩展名后的完整路径（a/b/x.a1 → a/b/x），用于配对同名文件。
func (id FileID) Stem() string {
	s := string(id)
	return strings.TrimSuffix(s, path.Ext(s))
}
