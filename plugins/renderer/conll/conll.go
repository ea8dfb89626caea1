package conll

import (
	"context"
	"fmt"
	"io"
	"strings"

	"bionlptag/pkg/contract"
)

// Options 为 CoNLL 渲染器配置。
type Options struct {
	// Separator: 词与标签之间的分隔符。为空取 "\t"。
	Separator string `json:"separator"`
}

type renderer struct {
	sep string
}

// New 创建 CoNLL 渲染器；分隔符不得含换行。
func New(opts *Options) (contract.Renderer, error) {
	sep := "\t"
	if opts != nil && opts.Separator != "" {
		sep = opts.Separator
	}
	if strings.ContainsAny(sep, "\r\n") {
		return nil, fmt.Errorf("%w: separator must not contain line breaks", contract.ErrInvalidInput)
	}
	return &renderer{sep: sep}, nil
}

// Render 逐行输出 "word<sep>tag\n"，空行标记输出 "\n"。
// 词或标签中出现换行即返回 ErrInvariantViolation，不产出部分文本。
func (r *renderer) Render(ctx context.Context, lines []contract.TaggedLine) (io.Reader, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	var b strings.Builder
	for i, l := range lines {
		if l.Blank {
			b.WriteByte('\n')
			continue
		}
		if strings.ContainsAny(l.Word, "\r\n") || strings.ContainsAny(l.Tag, "\r\n") {
			return nil, fmt.Errorf("%w: line %d contains a line break", contract.ErrInvariantViolation, i+1)
		}
		b.WriteString(l.Word)
		b.WriteString(r.sep)
		b.WriteString(l.Tag)
		b.WriteByte('\n')
	}
	return strings.NewReader(b.String()), nil
}

var _ contract.Renderer = (*renderer)(nil)
