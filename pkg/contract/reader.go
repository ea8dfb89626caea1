package contract

import (
	"context"
	"io"
)

// Reader 枚举输入根（文件、目录或 "-"）下的标注文件字节流。
// 每个文件回调一次 yield；rc 由调用方关闭。
// FileID 使用正斜杠；压缩输入解压后以原扩展名交付；不解析内容。
type Reader interface {
	Iterate(ctx context.Context, roots []string, yield func(fileID FileID, rc io.ReadCloser) error) error
}
