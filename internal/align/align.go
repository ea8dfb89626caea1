// Package align 将正文 + 字符偏移实体标注 + 句边界偏移转换为逐词 IOB 标注序列。
//
// 分词与句切分之间存在显式耦合：两者都以“单个空格”为唯一分隔符，
// 偏移以 rune 计。句边界偏移必须按同一约定计算（每句长度 + 1 的累计值），
// 否则句末标点拆分与空行位置会错位。所有偏移在使用前做越界校验。
package align

import (
	"context"
	"strings"
	"unicode/utf8"

	"bionlptag/pkg/contract"
)

// BuildSpanMap 为每条标注的每个子词生成一条 offset → TokenSpan 记录。
// 首个子词为 B-<CAT>，其后为 I-<CAT>；offset 从 Start 起按 len(token)+1 推进。
// 不同标注的子词落在同一 offset 时，按处理顺序后者覆盖前者。
func BuildSpanMap(passageLen int, anns []contract.EntityAnnotation) (map[int]contract.TokenSpan, error) {
	spans := make(map[int]contract.TokenSpan, len(anns))
	for _, a := range anns {
		if err := contract.ValidateAnnotation(a, passageLen); err != nil {
			return nil, err
		}
		idx := a.Start
		for k, tok := range strings.Split(a.Text, " ") {
			if idx >= passageLen {
				return nil, &contract.OutOfRangeError{What: "sub-token", Offset: idx, Len: passageLen}
			}
			tag := a.Category.InsideTag()
			if k == 0 {
				tag = a.Category.BeginTag()
			}
			// TODO: 重叠标注目前静默覆盖，需要与标注方确认是否应报 ErrMalformedAnnotation。
			spans[idx] = contract.TokenSpan{Offset: idx, Token: tok, Tag: tag}
			idx += utf8.RuneCountInString(tok) + 1
		}
	}
	return spans, nil
}

// Align 生成逐词标注序列（含句间空行）。
// 错误原样上抛，不产生部分结果。
func Align(passage string, anns []contract.EntityAnnotation, breaks []int) ([]contract.TaggedLine, error) {
	if passage == "" {
		return nil, contract.ErrInvalidInput
	}
	n := utf8.RuneCountInString(passage)
	if err := contract.ValidateBreaks(breaks, n); err != nil {
		return nil, err
	}
	spans, err := BuildSpanMap(n, anns)
	if err != nil {
		return nil, err
	}
	isBreak := make(map[int]struct{}, len(breaks))
	for _, b := range breaks {
		isBreak[b] = struct{}{}
	}

	words := strings.Split(passage, " ")
	out := make([]contract.TaggedLine, 0, len(words)+len(breaks))
	i := 0
	for _, word := range words {
		wl := utf8.RuneCountInString(word)
		if word == "" {
			// 连续空格产生的空片段：不输出，但偏移照常推进
			i += wl + 1
			continue
		}
		tag := contract.OutsideTag
		if s, ok := spans[i]; ok {
			tag = s.Tag
		}
		end := i + wl + 1
		if _, ok := isBreak[end]; ok && strings.HasSuffix(word, ".") {
			// 句末句点单独成行，且恒为 O
			out = append(out,
				contract.TaggedLine{Word: strings.TrimSuffix(word, "."), Tag: tag},
				contract.TaggedLine{Word: ".", Tag: contract.OutsideTag},
			)
		} else {
			out = append(out, contract.TaggedLine{Word: word, Tag: tag})
		}
		i = end
		if _, ok := isBreak[i]; ok {
			out = append(out, contract.BlankLine())
		}
	}
	return out, nil
}

// Summary 为一篇文档的输出统计。
type Summary struct {
	Lines     int `json:"lines"`
	Words     int `json:"words"`
	Sentences int `json:"sentences"`
	Entities  int `json:"entities"`
}

// Summarize 统计行数、词行数、句数与实体数（B- 标签数）。
func Summarize(lines []contract.TaggedLine) Summary {
	s := Summary{Lines: len(lines)}
	for _, l := range lines {
		if l.Blank {
			s.Sentences++
			continue
		}
		s.Words++
		if strings.HasPrefix(l.Tag, "B-") {
			s.Entities++
		}
	}
	return s
}

// Document 对单篇文档执行 segment → align。
func Document(ctx context.Context, seg contract.Segmenter, doc contract.Document) ([]contract.TaggedLine, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	breaks, err := seg.Segment(ctx, doc.Passage)
	if err != nil {
		return nil, err
	}
	return Align(doc.Passage, doc.Annotations, breaks)
}
