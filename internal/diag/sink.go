package diag

import (
	"io"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// SinkOptions 为日志文件的轮转参数。
type SinkOptions struct {
	Dir        string
	MaxSizeMB  int
	MaxBackups int
	Compress   bool
}

const logFileName = "bionlptag.log"

// NewFileSink 返回按大小轮转的日志文件（<dir>/bionlptag.log）。
// 文件在首次写入时创建；调用方负责 Close。
func NewFileSink(o SinkOptions) io.WriteCloser {
	dir := o.Dir
	if dir == "" {
		dir = "logs"
	}
	size := o.MaxSizeMB
	if size <= 0 {
		size = 10
	}
	return &lumberjack.Logger{
		Filename:   filepath.Join(dir, logFileName),
		MaxSize:    size,
		MaxBackups: o.MaxBackups,
		Compress:   o.Compress,
	}
}
