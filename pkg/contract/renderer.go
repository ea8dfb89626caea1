package contract

import (
	"context"
	"io"
)

// Renderer: 将 TaggedLine 序列渲染为最终文本（单工件）。
// 约束：
//  1. 保持序列顺序，每个 TaggedLine 对应一行输出；
//  2. 空行标记渲染为真正的空行；
//  3. 不引入跨运行状态。
type Renderer interface {
	Render(ctx context.Context, lines []TaggedLine) (io.Reader, error)
}
