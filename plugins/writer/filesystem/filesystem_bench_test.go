package filesystem

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"bionlptag/pkg/contract"
)

// conllPayload 构造约 n 行的 word<TAB>tag 载荷（每 8 行一个空行）。
func conllPayload(n int) []byte {
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i%8 == 7 {
			b.WriteString("\n")
			continue
		}
		fmt.Fprintf(&b, "token%d\tB-MORG\n", i)
	}
	return []byte(b.String())
}

// BenchmarkWrite 对比原子替换与加锁的开销。
func BenchmarkWrite(b *testing.B) {
	off := false
	modes := []struct {
		name string
		opts Options
	}{
		{"atomic+lock", Options{}},
		{"atomic", Options{Lock: &off}},
		{"direct", Options{Atomic: &off, Lock: &off}},
	}
	for _, lines := range []int{100, 100000} {
		data := conllPayload(lines)
		for _, m := range modes {
			b.Run(fmt.Sprintf("%s/lines=%d", m.name, lines), func(b *testing.B) {
				opts := m.opts
				opts.OutputDir = b.TempDir()
				w, err := New(&opts)
				if err != nil {
					b.Fatalf("创建 Writer 失败: %v", err)
				}
				id := contract.ArtifactID("train.conll")
				ctx := context.Background()
				b.SetBytes(int64(len(data)))
				b.ReportAllocs()
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					if err := w.Write(ctx, id, bytes.NewReader(data)); err != nil {
						b.Fatalf("写入失败: %v", err)
					}
				}
			})
		}
	}
}
