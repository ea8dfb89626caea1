package contract

import (
	"context"
	"io"
)

// ArtifactID 标识一次运行的输出工件（训练文件与其报告）。
type ArtifactID = FileID

// Writer 将渲染好的训练数据落盘。
// 每次运行对同一 ArtifactID 只写一次；内容原样透传。
// 目标被其他运行占用时返回 ErrOutputLocked。
type Writer interface {
	Write(ctx context.Context, id ArtifactID, r io.Reader) error
}
