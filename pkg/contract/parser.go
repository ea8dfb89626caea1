package contract

import "context"

// Parser: 标注源协作方。负责文件格式发现与 .a1/.txt 解析。
// 约束：
//  1. Discover 只看文件名与必要的内容可用性，不解析实体；
//  2. Discover 返回顺序即处理顺序，须稳定；
//  3. Parse 完成类别名归一、偏移解析；核心对齐器假定其输出已归一；
//  4. 无内部并发、无 I/O（内容由 Files 提供）。
type Parser interface {
	Discover(ctx context.Context, files Files) (sources []Source, unusable []FileID, err error)
	Parse(ctx context.Context, src Source, files Files) (Document, error)
}
