// Package punkt 封装 Punkt（无监督）英文句子切分模型。
package punkt

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"

	"bionlptag/pkg/contract"
)

// Options 为 punkt Segmenter 的可选配置。
type Options struct {
	// ExtraAbbreviations: 额外缩写（含末尾句点，大小写不敏感）。
	// 模型在这些词后切分时，与下一句合并。
	ExtraAbbreviations []string `json:"extra_abbreviations"`
}

type tokenizer interface {
	Tokenize(text string) []*sentences.Sentence
}

// Segmenter 实现 contract.Segmenter。
type Segmenter struct {
	tok    tokenizer
	abbrev map[string]struct{}
}

var _ contract.Segmenter = (*Segmenter)(nil)

// New 加载内置英文模型。
func New(opts *Options) (*Segmenter, error) {
	tok, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return nil, fmt.Errorf("punkt: load english model: %w", err)
	}
	s := &Segmenter{tok: tok, abbrev: make(map[string]struct{})}
	if opts != nil {
		for _, a := range opts.ExtraAbbreviations {
			if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
				s.abbrev[a] = struct{}{}
			}
		}
	}
	return s, nil
}

// Segment 返回累计 len(sentence)+1 形式的句边界（rune 计，句子去首尾空白后计长）。
func (s *Segmenter) Segment(ctx context.Context, text string) ([]int, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	var breaks []int
	idx := 0
	sents := s.tok.Tokenize(text)
	last := len(sents) - 1
	for last >= 0 && strings.TrimSpace(sents[last].Text) == "" {
		last--
	}
	for i, sent := range sents {
		t := strings.TrimSpace(sent.Text)
		if t == "" {
			continue
		}
		idx += utf8.RuneCountInString(t) + 1
		// 末句恒给边界；额外缩写之后不切分，长度并入下一句
		if i < last && s.endsWithAbbrev(t) {
			continue
		}
		breaks = append(breaks, idx)
	}
	return breaks, nil
}

func (s *Segmenter) endsWithAbbrev(sent string) bool {
	if len(s.abbrev) == 0 {
		return false
	}
	last := sent
	if i := strings.LastIndexByte(sent, ' '); i >= 0 {
		last = sent[i+1:]
	}
	_, ok := s.abbrev[strings.ToLower(last)]
	return ok
}
