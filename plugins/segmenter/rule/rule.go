// Package rule 提供确定性的句子切分器，面向生物医学摘要文本。
//
// 切分与对齐器共享同一分词约定：按单个空格切分，偏移以 rune 计，
// 每个片段（含空片段）推进 len(word)+1。
package rule

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"bionlptag/pkg/contract"
)

// 内置缩写（小写比较）。单字母 + "." 与含内部句点的词另行判定。
var builtinAbbrev = []string{
	"e.g.", "i.e.", "al.", "sp.", "spp.", "subsp.", "var.", "fig.", "figs.",
	"cf.", "ca.", "approx.", "vs.", "etc.", "no.", "nos.", "str.", "ser.",
	"dr.", "prof.", "resp.", "ref.", "refs.", "eq.", "tab.", "vol.", "pp.",
	"min.", "max.", "temp.", "conc.", "wt.", "mol.",
}

const (
	closers = `)]}"'’”»`
	openers = `([{"'‘“«`
)

// Options 为 rule Segmenter 的可选配置。
type Options struct {
	// ExtraAbbreviations: 追加的缩写（含末尾句点，大小写不敏感）。
	ExtraAbbreviations []string `json:"extra_abbreviations"`
}

// Segmenter 实现 contract.Segmenter。
type Segmenter struct {
	abbrev map[string]struct{}
}

var _ contract.Segmenter = (*Segmenter)(nil)

// New 创建 rule Segmenter。
func New(opts *Options) *Segmenter {
	ab := make(map[string]struct{}, len(builtinAbbrev))
	for _, a := range builtinAbbrev {
		ab[a] = struct{}{}
	}
	if opts != nil {
		for _, a := range opts.ExtraAbbreviations {
			a = strings.ToLower(strings.TrimSpace(a))
			if a == "" {
				continue
			}
			ab[a] = struct{}{}
		}
	}
	return &Segmenter{abbrev: ab}
}

type word struct {
	text string
	end  int
}

// Segment 返回句边界偏移（每句末词之后的位置）。末词总是闭合最后一句。
func (s *Segmenter) Segment(ctx context.Context, text string) ([]int, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	var words []word
	i := 0
	for _, w := range strings.Split(text, " ") {
		i += utf8.RuneCountInString(w) + 1
		if w != "" {
			words = append(words, word{text: w, end: i})
		}
	}
	var breaks []int
	for k, w := range words {
		if k == len(words)-1 {
			breaks = append(breaks, w.end)
			break
		}
		if s.closes(w.text) && opensSentence(words[k+1].text) {
			breaks = append(breaks, w.end)
		}
	}
	return breaks, nil
}

// closes 报告 w 是否可能是句末词：以 . ! ? 结尾（允许其后跟闭合括号/引号），且不是缩写。
func (s *Segmenter) closes(w string) bool {
	core := strings.TrimRight(w, closers)
	if core == "" {
		return false
	}
	last, _ := utf8.DecodeLastRuneInString(core)
	switch last {
	case '!', '?':
		return true
	case '.':
		return !s.isAbbrev(strings.TrimLeft(core, openers))
	}
	return false
}

func (s *Segmenter) isAbbrev(w string) bool {
	lw := strings.ToLower(w)
	if _, ok := s.abbrev[lw]; ok {
		return true
	}
	body := strings.TrimSuffix(w, ".")
	// 属名缩写，如 "S." "E."
	if utf8.RuneCountInString(body) == 1 {
		r, _ := utf8.DecodeRuneInString(body)
		return unicode.IsLetter(r)
	}
	// 内部含句点且各段均为字母，如 "U.S." "n.d."；"7.5." 不算
	if !strings.Contains(body, ".") {
		return false
	}
	for _, part := range strings.Split(body, ".") {
		if part == "" || strings.IndexFunc(part, func(r rune) bool { return !unicode.IsLetter(r) }) >= 0 {
			return false
		}
	}
	return true
}

// opensSentence 报告下一词是否可作为句首：大写字母、数字或开括号/引号开头。
func opensSentence(w string) bool {
	r, _ := utf8.DecodeRuneInString(w)
	return unicode.IsUpper(r) || unicode.IsDigit(r) || strings.ContainsRune(openers, r)
}

func ctxErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
