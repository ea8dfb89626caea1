package contract

import "context"

// Segmenter: 句子切分协作方。给定正文，返回句边界偏移序列。
// 约束：
//  1. 偏移以 rune 计，严格递增；
//  2. 第 k 个值 = 前 k 句长度之和 + k（即每句末尾分隔空格之后的位置）；
//  3. 与对齐器共享“单空格分词”的约定，否则偏移无法对齐；
//  4. 纯计算，不做 I/O。
type Segmenter interface {
	Segment(ctx context.Context, text string) ([]int, error)
}
