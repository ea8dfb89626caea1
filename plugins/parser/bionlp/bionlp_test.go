package bionlp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"bionlptag/pkg/contract"
)

const abstractA1 = "T1\tTitle 0 17\tBacteria in soil.\n" +
	"T2\tParagraph 18 34\tS. aureus grows.\n" +
	"T3\tMicroorganism 0 8\tBacteria\n" +
	"T4\tHabitat 12 16\tsoil\n" +
	"T5\tMicroorganism 18 27\tS. aureus\n" +
	"N1\tNCBI_Taxonomy Annotation:T3 Referent:2\tBacteria\n"

const passageTxt = "Cells produce\r\nbeta glucan.\r\n"

const passageA1 = "T1\tPhenotype 14 25\tbeta glucan\n" +
	"T2\tHabitat 0 5;14 18\tCells beta\n"

func mustNew(t *testing.T, opts *Options) *Parser {
	t.Helper()
	p, err := New(opts)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return p
}

// TestDiscover 格式识别、配对、不可用文件与顺序
func TestDiscover(t *testing.T) {
	files := contract.Files{
		"d/BB-norm-1.a1":        []byte(abstractA1),
		"d/BB-norm-Z1.a1":       []byte(abstractA1),
		"d/BB-norm-2.a1":        []byte("T1\tTitle 0 3\tabc\n"),
		"d/BB-norm-F-9-001.a1":  []byte(passageA1),
		"d/BB-norm-F-9-001.txt": []byte(passageTxt),
		"d/BB-norm-F-9-002.a1":  []byte(passageA1),
		"d/README.txt":          []byte("ignored"),
		"d/BB-norm-F-9-0001.a1": []byte(passageA1),
	}
	srcs, unusable, err := mustNew(t, nil).Discover(context.Background(), files)
	if err != nil {
		t.Fatal(err)
	}
	want := []contract.Source{
		{ID: "d/BB-norm-1", Kind: contract.KindAbstract, A1: "d/BB-norm-1.a1"},
		{ID: "d/BB-norm-Z1", Kind: contract.KindAbstract, A1: "d/BB-norm-Z1.a1"},
		{ID: "d/BB-norm-F-9-001", Kind: contract.KindPassage, A1: "d/BB-norm-F-9-001.a1", Text: "d/BB-norm-F-9-001.txt"},
	}
	if diff := cmp.Diff(want, srcs); diff != "" {
		t.Fatalf("sources (-want +got):\n%s", diff)
	}
	wantU := []contract.FileID{"d/BB-norm-2.a1", "d/BB-norm-F-9-002.a1"}
	if diff := cmp.Diff(wantU, unusable); diff != "" {
		t.Fatalf("unusable (-want +got):\n%s", diff)
	}
}

// TestDiscoverStdin STDIN 流按 Format 1 处理
func TestDiscoverStdin(t *testing.T) {
	files := contract.Files{contract.StdinFileID: []byte(abstractA1)}
	srcs, unusable, err := mustNew(t, nil).Discover(context.Background(), files)
	if err != nil {
		t.Fatal(err)
	}
	want := []contract.Source{{ID: "stdin", Kind: contract.KindAbstract, A1: contract.StdinFileID}}
	if diff := cmp.Diff(want, srcs); diff != "" || len(unusable) != 0 {
		t.Fatalf("sources (-want +got):\n%s unusable=%v", diff, unusable)
	}
}

// TestDiscoverCtxCancel 取消的 ctx 直接返回
func TestDiscoverCtxCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := mustNew(t, nil).Discover(ctx, contract.Files{"BB-norm-1.a1": []byte(abstractA1)})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want Canceled, got %v", err)
	}
}

// TestParseAbstract Format 1：Title + Paragraph 拼接，非 T 行跳过
func TestParseAbstract(t *testing.T) {
	files := contract.Files{"BB-norm-1.a1": []byte(abstractA1)}
	src := contract.Source{ID: "BB-norm-1", Kind: contract.KindAbstract, A1: "BB-norm-1.a1"}
	doc, err := mustNew(t, nil).Parse(context.Background(), src, files)
	if err != nil {
		t.Fatal(err)
	}
	want := contract.Document{
		ID:      "BB-norm-1",
		Kind:    contract.KindAbstract,
		Passage: "Bacteria in soil. S. aureus grows.",
		Annotations: []contract.EntityAnnotation{
			{Start: 0, End: 8, Category: contract.Microorganism, Text: "Bacteria"},
			{Start: 12, End: 16, Category: contract.Habitat, Text: "soil"},
			{Start: 18, End: 27, Category: contract.Microorganism, Text: "S. aureus"},
		},
	}
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Fatalf("doc (-want +got):\n%s", diff)
	}
}

// TestParsePassage Format 2：.txt 逐行去空白后以单空格拼接；不连续区间取首尾
func TestParsePassage(t *testing.T) {
	files := contract.Files{"a.a1": []byte(passageA1), "a.txt": []byte(passageTxt)}
	src := contract.Source{ID: "a", Kind: contract.KindPassage, A1: "a.a1", Text: "a.txt"}
	doc, err := mustNew(t, nil).Parse(context.Background(), src, files)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Passage != "Cells produce beta glucan." {
		t.Fatalf("passage %q", doc.Passage)
	}
	want := []contract.EntityAnnotation{
		{Start: 14, End: 25, Category: contract.Phenotype, Text: "beta glucan"},
		{Start: 0, End: 18, Category: contract.Habitat, Text: "Cells beta"},
	}
	if diff := cmp.Diff(want, doc.Annotations); diff != "" {
		t.Fatalf("annotations (-want +got):\n%s", diff)
	}
}

// TestParseRuneOffsets 偏移按 rune 计，NFC 归一后比较
func TestParseRuneOffsets(t *testing.T) {
	// "é" 以组合字符书写，NFC 后与预组合形式相等
	a1 := "T1\tTitle 0 13\tβ-glucan café\n" +
		"T2\tPhenotype 0 8\tβ-glucan\n" +
		"T3\tHabitat 9 13\tcafe\u0301\n"
	files := contract.Files{"BB-norm-3.a1": []byte(a1)}
	src := contract.Source{ID: "BB-norm-3", Kind: contract.KindAbstract, A1: "BB-norm-3.a1"}
	doc, err := mustNew(t, nil).Parse(context.Background(), src, files)
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Annotations) != 2 {
		t.Fatalf("annotations: %+v", doc.Annotations)
	}
}

// TestParseCaseFolding 类别名大小写不敏感
func TestParseCaseFolding(t *testing.T) {
	a1 := "T1\tTitle 0 4\tsoil\nT2\tHABITAT 0 4\tsoil\n"
	files := contract.Files{"BB-norm-4.a1": []byte(a1)}
	src := contract.Source{ID: "BB-norm-4", Kind: contract.KindAbstract, A1: "BB-norm-4.a1"}
	doc, err := mustNew(t, nil).Parse(context.Background(), src, files)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Annotations[0].Category != contract.Habitat {
		t.Fatalf("category %v", doc.Annotations[0].Category)
	}
}

// TestParseErrors 各类错误分支
func TestParseErrors(t *testing.T) {
	head := "T1\tTitle 0 17\tBacteria in soil.\n"
	cases := []struct {
		name string
		a1   string
		want error
		line int
	}{
		{"unknown category", head + "T2\tGeographical 12 16\tsoil\n", contract.ErrUnknownCategory, 0},
		{"too few columns", head + "T2\tHabitat 12 16\n", contract.ErrMalformedAnnotation, 2},
		{"short span", head + "T2\tHabitat 12\tsoil\n", contract.ErrMalformedAnnotation, 2},
		{"bad start", head + "T2\tHabitat x 16\tsoil\n", contract.ErrMalformedAnnotation, 2},
		{"bad end", head + "\nT2\tHabitat 12 y\tsoil\n", contract.ErrMalformedAnnotation, 3},
		{"text mismatch", head + "T2\tHabitat 12 16\tsand\n", contract.ErrMalformedAnnotation, 2},
		{"invalid utf8", head + "T2\tHabitat 12 16\t\xff\n", contract.ErrInvalidInput, 0},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			files := contract.Files{"x.a1": []byte(tt.a1)}
			_, err := mustNew(t, nil).Parse(context.Background(), contract.Source{ID: "x", Kind: contract.KindAbstract, A1: "x.a1"}, files)
			if !errors.Is(err, tt.want) {
				t.Fatalf("want %v, got %v", tt.want, err)
			}
			if tt.line > 0 {
				var me *contract.MalformedAnnotationError
				if !errors.As(err, &me) || me.Line != tt.line || me.File != "x.a1" {
					t.Fatalf("want line %d, got %v", tt.line, err)
				}
			}
		})
	}
}

// TestParseUnknownCategoryLocation 未知类别错误携带文件与行号
func TestParseUnknownCategoryLocation(t *testing.T) {
	a1 := "T1\tTitle 0 4\tsoil\nT2\tGeographical 0 4\tsoil\n"
	_, err := mustNew(t, nil).Parse(context.Background(), contract.Source{ID: "x", Kind: contract.KindAbstract, A1: "x.a1"}, contract.Files{"x.a1": []byte(a1)})
	if err == nil || !strings.Contains(err.Error(), "x.a1:2") {
		t.Fatalf("want location in %v", err)
	}
}

// TestParseVerifyDisabled 关闭校验后不比对正文
func TestParseVerifyDisabled(t *testing.T) {
	off := false
	a1 := "T1\tTitle 0 17\tBacteria in soil.\nT2\tHabitat 12 16\tsand\n"
	doc, err := mustNew(t, &Options{VerifyText: &off}).Parse(context.Background(), contract.Source{ID: "x", Kind: contract.KindAbstract, A1: "x.a1"}, contract.Files{"x.a1": []byte(a1)})
	if err != nil {
		t.Fatal(err)
	}
	if doc.Annotations[0].Text != "sand" {
		t.Fatalf("annotations %+v", doc.Annotations)
	}
}

// TestParseMissingFiles 缺少 .a1/.txt 报 ErrInvalidInput
func TestParseMissingFiles(t *testing.T) {
	p := mustNew(t, nil)
	_, err := p.Parse(context.Background(), contract.Source{ID: "x", Kind: contract.KindAbstract, A1: "x.a1"}, contract.Files{})
	if !errors.Is(err, contract.ErrInvalidInput) {
		t.Fatalf("missing a1: %v", err)
	}
	_, err = p.Parse(context.Background(), contract.Source{ID: "x", Kind: contract.KindPassage, A1: "x.a1", Text: "x.txt"}, contract.Files{"x.a1": []byte(passageA1)})
	if !errors.Is(err, contract.ErrInvalidInput) {
		t.Fatalf("missing txt: %v", err)
	}
}

// TestNewBadPattern 非法正则报错
func TestNewBadPattern(t *testing.T) {
	if _, err := New(&Options{AbstractPattern: "("}); err == nil {
		t.Fatal("want error for abstract_pattern")
	}
	if _, err := New(&Options{PassagePattern: "["}); err == nil {
		t.Fatal("want error for passage_pattern")
	}
}

// TestCountLines 与逐行读取的计数一致
func TestCountLines(t *testing.T) {
	cases := map[string]int{"": 0, "a": 1, "a\n": 1, "a\nb": 2, "a\nb\n": 2, "\n": 1}
	for in, want := range cases {
		if got := countLines([]byte(in)); got != want {
			t.Fatalf("%q: got %d want %d", in, got, want)
		}
	}
}
