// Package bionlp 实现 BioNLP Bacteria Biotope 标注文件的格式发现与解析。
//
// 两种输入格式：
//   - Format 1（BB-norm-<PMID>.a1）：单个 .a1 文件，Title/Paragraph 行给出正文，其余 T 行为实体；
//   - Format 2（BB-norm-F-<PMID>-<NNN>.a1 + .txt）：.txt 为正文，.a1 为实体。
package bionlp

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"bionlptag/pkg/contract"
)

const (
	// DefaultAbstractPattern 匹配 Format 1 的 .a1 基名。
	DefaultAbstractPattern = `^BB-norm-\w+\.a1$`
	// DefaultPassagePattern 匹配 Format 2 的 .a1 基名。
	DefaultPassagePattern = `^BB-norm-F-\w+-\w{3}\.a1$`

	labelTitle     = "Title"
	labelParagraph = "Paragraph"
)

// Options 为 BioNLP Parser 的可选配置。
type Options struct {
	// AbstractPattern: Format 1 基名正则。为空取默认。
	AbstractPattern string `json:"abstract_pattern"`
	// PassagePattern: Format 2 基名正则。为空取默认。
	PassagePattern string `json:"passage_pattern"`
	// VerifyText: 连续区间标注须与正文切片一致（NFC 归一后比较）。默认 true。
	VerifyText *bool `json:"verify_text,omitempty"`
}

// Parser 实现 contract.Parser。
type Parser struct {
	abstractRe *regexp.Regexp
	passageRe  *regexp.Regexp
	verify     bool
}

var _ contract.Parser = (*Parser)(nil)

// New 创建 Parser；正则非法时返回错误。
func New(opts *Options) (*Parser, error) {
	ap, pp := DefaultAbstractPattern, DefaultPassagePattern
	verify := true
	if opts != nil {
		if opts.AbstractPattern != "" {
			ap = opts.AbstractPattern
		}
		if opts.PassagePattern != "" {
			pp = opts.PassagePattern
		}
		if opts.VerifyText != nil {
			verify = *opts.VerifyText
		}
	}
	are, err := regexp.Compile(ap)
	if err != nil {
		return nil, fmt.Errorf("bionlp: abstract_pattern: %w", err)
	}
	pre, err := regexp.Compile(pp)
	if err != nil {
		return nil, fmt.Errorf("bionlp: passage_pattern: %w", err)
	}
	return &Parser{abstractRe: are, passageRe: pre, verify: verify}, nil
}

// Discover 按基名识别两种格式。
// 返回顺序：全部 Format 1（按 ID），再全部 Format 2（按 ID）。
// 不足两行的 Format 1 文件与缺少 .txt 的 Format 2 文件计入 unusable。
// STDIN 输入（contract.StdinFileID）视为 Format 1。
func (p *Parser) Discover(ctx context.Context, files contract.Files) ([]contract.Source, []contract.FileID, error) {
	ids := make([]contract.FileID, 0, len(files))
	for id := range files {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var abstracts, passages []contract.Source
	var unusable []contract.FileID
	for _, id := range ids {
		if err := ctxErr(ctx); err != nil {
			return nil, nil, err
		}
		base := id.Base()
		// 自定义正则可能重叠，Format 2 优先
		switch {
		case p.passageRe.MatchString(base):
			txt := contract.FileID(id.Stem() + ".txt")
			if _, ok := files[txt]; !ok {
				unusable = append(unusable, id)
				continue
			}
			passages = append(passages, contract.Source{ID: contract.FileID(id.Stem()), Kind: contract.KindPassage, A1: id, Text: txt})
		case p.abstractRe.MatchString(base) || id == contract.StdinFileID:
			if countLines(files[id]) <= 1 {
				unusable = append(unusable, id)
				continue
			}
			abstracts = append(abstracts, contract.Source{ID: contract.FileID(id.Stem()), Kind: contract.KindAbstract, A1: id})
		}
	}
	return append(abstracts, passages...), unusable, nil
}

// Parse 解析单个 Source 为 Document。
func (p *Parser) Parse(ctx context.Context, src contract.Source, files contract.Files) (contract.Document, error) {
	if err := ctxErr(ctx); err != nil {
		return contract.Document{}, err
	}
	raw, ok := files[src.A1]
	if !ok {
		return contract.Document{}, fmt.Errorf("%w: missing annotation file %s", contract.ErrInvalidInput, src.A1)
	}
	lines, err := splitLines(src.A1, raw)
	if err != nil {
		return contract.Document{}, err
	}
	rows, err := parseRows(src.A1, lines)
	if err != nil {
		return contract.Document{}, err
	}

	var passage string
	switch src.Kind {
	case contract.KindAbstract:
		passage = abstractPassage(rows)
	case contract.KindPassage:
		traw, ok := files[src.Text]
		if !ok {
			return contract.Document{}, fmt.Errorf("%w: missing text file %s", contract.ErrInvalidInput, src.Text)
		}
		tl, err := splitLines(src.Text, traw)
		if err != nil {
			return contract.Document{}, err
		}
		for i := range tl {
			tl[i] = strings.TrimSpace(tl[i])
		}
		passage = strings.Join(tl, " ")
	default:
		return contract.Document{}, fmt.Errorf("%w: unknown source kind %q", contract.ErrInvalidInput, src.Kind)
	}

	var prunes []rune
	if p.verify {
		prunes = []rune(passage)
	}
	anns := make([]contract.EntityAnnotation, 0, len(rows))
	for _, r := range rows {
		if !r.entity() {
			continue
		}
		cat, err := contract.ParseCategory(r.label)
		if err != nil {
			return contract.Document{}, fmt.Errorf("%s:%d: %w", src.A1, r.line, err)
		}
		a := contract.EntityAnnotation{Start: r.start, End: r.end, Category: cat, Text: r.text}
		if p.verify && !r.discontinuous && a.Start >= 0 && a.Start < a.End && a.End <= len(prunes) {
			got := norm.NFC.String(string(prunes[a.Start:a.End]))
			if got != norm.NFC.String(a.Text) {
				return contract.Document{}, &contract.MalformedAnnotationError{
					File:   src.A1,
					Line:   r.line,
					Reason: fmt.Sprintf("text %q does not match passage %q at [%d,%d)", a.Text, got, a.Start, a.End),
				}
			}
		}
		anns = append(anns, a)
	}
	return contract.Document{ID: src.ID, Kind: src.Kind, Passage: passage, Annotations: anns}, nil
}

// row 为 .a1 的一行：ID<TAB>LABEL START[ ...] END<TAB>TEXT。
type row struct {
	line          int
	id            string
	label         string
	start, end    int
	discontinuous bool
	text          string
}

func (r row) entity() bool {
	return strings.HasPrefix(r.id, "T") && r.label != labelTitle && r.label != labelParagraph
}

func parseRows(file contract.FileID, lines []string) ([]row, error) {
	rows := make([]row, 0, len(lines))
	for i, l := range lines {
		ln := i + 1
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		cols := strings.Split(l, "\t")
		// 非 T 行（关系、事件、归一化等）不参与
		if !strings.HasPrefix(cols[0], "T") {
			continue
		}
		if len(cols) < 3 {
			return nil, &contract.MalformedAnnotationError{File: file, Line: ln, Reason: fmt.Sprintf("expected 3 tab-separated columns, got %d", len(cols))}
		}
		spec := strings.Fields(cols[1])
		if len(spec) < 3 {
			return nil, &contract.MalformedAnnotationError{File: file, Line: ln, Reason: fmt.Sprintf("span %q needs label, start and end", cols[1])}
		}
		start, err := strconv.Atoi(spec[1])
		if err != nil {
			return nil, &contract.MalformedAnnotationError{File: file, Line: ln, Reason: fmt.Sprintf("start %q is not an integer", spec[1])}
		}
		end, err := strconv.Atoi(spec[len(spec)-1])
		if err != nil {
			return nil, &contract.MalformedAnnotationError{File: file, Line: ln, Reason: fmt.Sprintf("end %q is not an integer", spec[len(spec)-1])}
		}
		rows = append(rows, row{
			line:          ln,
			id:            cols[0],
			label:         spec[0],
			start:         start,
			end:           end,
			discontinuous: strings.Contains(cols[1], ";"),
			text:          strings.TrimSpace(cols[2]),
		})
	}
	return rows, nil
}

// abstractPassage 拼接 Title 与 Paragraph 文本（先全部 Title，再全部 Paragraph）。
func abstractPassage(rows []row) string {
	var titles, paras []string
	for _, r := range rows {
		switch r.label {
		case labelTitle:
			titles = append(titles, r.text)
		case labelParagraph:
			paras = append(paras, r.text)
		}
	}
	return strings.Join(append(titles, paras...), " ")
}

// splitLines 校验 UTF-8，归一 CRLF，按行切分（末尾换行不产生空行）。
func splitLines(id contract.FileID, b []byte) ([]string, error) {
	if !utf8.Valid(b) {
		return nil, fmt.Errorf("%w: %s is not valid UTF-8", contract.ErrInvalidInput, id)
	}
	s := strings.ReplaceAll(string(b), "\r\n", "\n")
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil, nil
	}
	return strings.Split(s, "\n"), nil
}

// countLines 与逐行读取的计数一致：末行无换行也计一行。
func countLines(b []byte) int {
	if len(b) == 0 {
		return 0
	}
	n := strings.Count(string(b), "\n")
	if b[len(b)-1] != '\n' {
		n++
	}
	return n
}

func ctxErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
