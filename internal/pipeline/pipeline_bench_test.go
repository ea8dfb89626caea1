package pipeline

import (
	"context"
	"fmt"
	"io"
	"testing"

	"bionlptag/pkg/contract"
)

// discardWriter 丢弃所有输出，避免磁盘开销。
type discardWriter struct{}

func (discardWriter) Write(ctx context.Context, id contract.ArtifactID, r io.Reader) error {
	_, err := io.Copy(io.Discard, r)
	return err
}

// BenchmarkPipeline 测试完整流水线的性能（内存输入，规则分句）。
func BenchmarkPipeline(b *testing.B) {
	for _, n := range []int{10, 500} {
		b.Run(fmt.Sprintf("docs=%d", n), func(b *testing.B) {
			files := make(memReader, n)
			for i := 0; i < n; i++ {
				files[contract.FileID(fmt.Sprintf("BB-norm-%05d.a1", i))] = goodA1
			}
			comp := components(b, files, discardWriter{})
			set := settings(PolicySkip)
			ctx := context.Background()
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := Run(ctx, comp, set, nil); err != nil {
					b.Fatalf("运行失败: %v", err)
				}
			}
		})
	}
}
