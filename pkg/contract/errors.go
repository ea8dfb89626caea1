package contract

import (
	"errors"
	"fmt"
)

// 最小错误分类（用于上层策略判定）。
var (
	// ErrUnknownCategory: 标注引用了三类之外的类别；对当前文档致命。
	ErrUnknownCategory = errors.New("unknown category")
	// ErrOutOfRange: 偏移超出正文范围。
	ErrOutOfRange = errors.New("offset out of range")
	// ErrMalformedAnnotation: 标注行无法解析或与正文不一致。
	ErrMalformedAnnotation = errors.New("malformed annotation")
	// ErrInvalidInput: 输入不满足最小前置条件（空正文、非法 UTF-8 等）。
	ErrInvalidInput = errors.New("invalid input")
	// ErrPathInvalid: 目标标识映射为无效/越界路径（例如绝对路径或 '..' 逃逸）。
	ErrPathInvalid = errors.New("path invalid")
	// ErrInvariantViolation: 领域不变量违例（通用哨兵）。
	ErrInvariantViolation = errors.New("invariant violation")
	// ErrOutputLocked: 目标工件正被另一次运行写入。
	ErrOutputLocked = errors.New("output locked")
)

// UnknownCategoryError 携带无法识别的类别名。
type UnknownCategoryError struct {
	Label string
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("unknown category %q", e.Label)
}

func (e *UnknownCategoryError) Is(target error) bool { return target == ErrUnknownCategory }

// OutOfRangeError 携带越界偏移与正文长度（rune 计）。
type OutOfRangeError struct {
	What   string
	Offset int
	Len    int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("%s offset %d out of range [0,%d]", e.What, e.Offset, e.Len)
}

func (e *OutOfRangeError) Is(target error) bool { return target == ErrOutOfRange }

// MalformedAnnotationError 携带出错的标注文件、行号与原因。
// Line 为 0 表示与行无关（例如来自对齐阶段的区间校验）。
type MalformedAnnotationError struct {
	File   FileID
	Line   int
	Reason string
}

func (e *MalformedAnnotationError) Error() string {
	switch {
	case e.File != "" && e.Line > 0:
		return fmt.Sprintf("malformed annotation %s:%d: %s", e.File, e.Line, e.Reason)
	case e.File != "":
		return fmt.Sprintf("malformed annotation %s: %s", e.File, e.Reason)
	default:
		return "malformed annotation: " + e.Reason
	}
}

func (e *MalformedAnnotationError) Is(target error) bool { return target == ErrMalformedAnnotation }
