package testdata

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/pgzip"

	cfgpkg "bionlptag/internal/config"
	"bionlptag/internal/pipeline"
	"bionlptag/pkg/contract"
)

const (
	abstractA1 = "T1\tTitle 0 14\tBacteria grow.\n" +
		"T2\tParagraph 15 39\tS. aureus lives in soil.\n" +
		"T3\tMicroorganism 0 8\tBacteria\n" +
		"T4\tMicroorganism 15 24\tS. aureus\n" +
		"T5\tHabitat 34 38\tsoil\n" +
		"N1\tNCBI_Taxonomy Annotation:T4 Referent:1280\tS. aureus\n"
	abstractOut = "Bacteria\tB-MORG\ngrow\tO\n.\tO\n\n" +
		"S.\tB-MORG\naureus\tI-MORG\nlives\tO\nin\tO\nsoil\tB-HAB\n.\tO\n\n"

	badA1 = "T1\tTitle 0 12\tSoil sample.\n" +
		"T2\tParagraph 13 20\tIn Oslo.\n" +
		"T3\tGeographical 16 20\tOslo\n"

	passageTxt = "Lactobacillus casei was isolated from cheese.\r\n  It grows at 37 C.\r\n"
	passageA1  = "T1\tMicroorganism 0 19\tLactobacillus casei\n" +
		"T2\tHabitat 38 44\tcheese\n" +
		"T3\tPhenotype 49 54\tgrows\n"
	passageOut = "Lactobacillus\tB-MORG\ncasei\tI-MORG\nwas\tO\nisolated\tO\nfrom\tO\ncheese\tB-HAB\n.\tO\n\n" +
		"It\tO\ngrows\tB-PHE\nat\tO\n37\tO\nC\tO\n.\tO\n\n"
)

func write(t *testing.T, p, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func writeGz(t *testing.T, p, content string) {
	t.Helper()
	f, err := os.Create(p)
	if err != nil {
		t.Fatal(err)
	}
	zw := pgzip.NewWriter(f)
	if _, err := zw.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

// corpus 构造一个混合语料目录：gz 摘要、失败摘要、不可用文件、Format 2 对与无关文件。
func corpus(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "BB-norm_train")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}
	writeGz(t, filepath.Join(root, "BB-norm-10000001.a1.gz"), abstractA1)
	write(t, filepath.Join(root, "BB-norm-10000002.a1"), badA1)
	write(t, filepath.Join(root, "BB-norm-10000003.a1"), "T1\tTitle 0 4\tSoil\n")
	write(t, filepath.Join(root, "F", "BB-norm-F-20000001-001.txt"), passageTxt)
	write(t, filepath.Join(root, "F", "BB-norm-F-20000001-001.a1"), passageA1)
	write(t, filepath.Join(root, "F", "BB-norm-F-20000001-002.a1"), passageA1)
	write(t, filepath.Join(root, "README.md"), "not an annotation\n")
	write(t, filepath.Join(root, ".git", "BB-norm-99999999.a1"), abstractA1)
	return root
}

func baseConfig(input, outDir string) cfgpkg.Config {
	cfg := cfgpkg.DefaultTemplateConfig()
	cfg.Inputs = []string{input}
	cfg.Output = "train.conll"
	cfg.Logging.Level = "error"
	cfg.Options.Writer = json.RawMessage(fmt.Sprintf(`{"output_dir":%q,"atomic":true,"lock":true}`, outDir))
	return cfg
}

func runPipeline(t *testing.T, cfg cfgpkg.Config) (pipeline.Report, error) {
	t.Helper()
	comp, set, err := cfgpkg.Assemble(cfg)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	return pipeline.Run(context.Background(), comp, set, nil)
}

func readLines(t *testing.T, p string) []string {
	t.Helper()
	f, err := os.Open(p)
	if err != nil {
		t.Fatalf("open %s: %v", p, err)
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		out = append(out, sc.Text())
	}
	if err := sc.Err(); err != nil {
		t.Fatal(err)
	}
	return out
}

var tagRe = regexp.MustCompile(`^(O|[BI]-(MORG|HAB|PHE))$`)

// checkProperties 校验输出的结构性质：
// 标签取值合法，句点行恒为 O，空行不连续且不在开头。
// strict 时额外要求 I- 只接在同类 B-/I- 之后（分句器不切断实体时成立）。
func checkProperties(t *testing.T, lines []string, strict bool) {
	t.Helper()
	prev := ""
	for i, l := range lines {
		if l == "" {
			if i == 0 || lines[i-1] == "" {
				t.Fatalf("line %d: misplaced blank line", i+1)
			}
			prev = ""
			continue
		}
		word, tag, ok := strings.Cut(l, "\t")
		if !ok || !tagRe.MatchString(tag) {
			t.Fatalf("line %d: bad tag in %q", i+1, l)
		}
		if strict && strings.HasPrefix(tag, "I-") {
			cat := tag[2:]
			if prev != "B-"+cat && prev != "I-"+cat {
				t.Fatalf("line %d: %s follows %q", i+1, tag, prev)
			}
		}
		if word == "." && tag != contract.OutsideTag {
			t.Fatalf("line %d: sentence period tagged %s", i+1, tag)
		}
		prev = tag
	}
	if n := len(lines); n > 0 && lines[n-1] != "" {
		t.Fatalf("output must end with a blank line")
	}
}

// TestE2E_RuleSegmenter 规则分句：输出逐字节确定。
func TestE2E_RuleSegmenter(t *testing.T) {
	in := corpus(t)
	out := t.TempDir()
	cfg := baseConfig(in, out)
	on := true
	cfg.Report = &on
	rep, err := runPipeline(t, cfg)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(out, "train.conll"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if diff := cmp.Diff(abstractOut+passageOut, string(b)); diff != "" {
		t.Fatalf("output (-want +got):\n%s", diff)
	}
	checkProperties(t, readLines(t, filepath.Join(out, "train.conll")), true)

	wantUnusable := []contract.FileID{
		contract.NormalizeFileID(filepath.Join(in, "BB-norm-10000003.a1")),
		contract.NormalizeFileID(filepath.Join(in, "F", "BB-norm-F-20000001-002.a1")),
	}
	if diff := cmp.Diff(wantUnusable, rep.Unusable); diff != "" {
		t.Fatalf("unusable (-want +got):\n%s", diff)
	}
	if rep.OK != 2 || rep.Failed != 1 {
		t.Fatalf("report: %+v", rep)
	}

	// 报告按处理顺序：摘要（含失败）在前，Format 2 在后
	var recs []pipeline.DocRecord
	for _, l := range readLines(t, filepath.Join(out, "train.conll"+pipeline.ReportSuffix)) {
		var r pipeline.DocRecord
		if err := json.Unmarshal([]byte(l), &r); err != nil {
			t.Fatalf("decode %q: %v", l, err)
		}
		recs = append(recs, r)
	}
	if len(recs) != 3 {
		t.Fatalf("report records: %+v", recs)
	}
	if recs[0].Status != pipeline.StatusOK || recs[0].Kind != "abstract" || recs[0].Entities != 3 {
		t.Fatalf("record 0: %+v", recs[0])
	}
	if recs[1].Status != pipeline.StatusFailed || recs[1].Code != "category" {
		t.Fatalf("record 1: %+v", recs[1])
	}
	if recs[2].Kind != "passage" || recs[2].Words != 13 || recs[2].Entities != 3 {
		t.Fatalf("record 2: %+v", recs[2])
	}
}

// TestE2E_Punkt Punkt 分句：不比对逐字节输出，只校验结构性质。
func TestE2E_Punkt(t *testing.T) {
	in := corpus(t)
	out := t.TempDir()
	cfg := baseConfig(in, out)
	cfg.Components.Segmenter = "punkt"
	rep, err := runPipeline(t, cfg)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rep.OK != 2 {
		t.Fatalf("report: %+v", rep)
	}
	lines := readLines(t, filepath.Join(out, "train.conll"))
	checkProperties(t, lines, false)
	words := 0
	for _, l := range lines {
		if l != "" {
			words++
		}
	}
	// 与分句器无关的下限：每个空格分隔的词至少一行
	if words < 7+11 {
		t.Fatalf("too few word lines: %d", words)
	}
}

// TestE2E_Abort abort 策略：不产生输出文件。
func TestE2E_Abort(t *testing.T) {
	in := corpus(t)
	out := t.TempDir()
	cfg := baseConfig(in, out)
	cfg.OnError = "abort"
	if _, err := runPipeline(t, cfg); err == nil {
		t.Fatalf("want error under abort")
	}
	if _, err := os.Stat(filepath.Join(out, "train.conll")); !os.IsNotExist(err) {
		t.Fatalf("output exists after abort")
	}
}

// TestE2E_Idempotent 同一输入重复运行，输出一致（原子替换覆盖旧文件）。
func TestE2E_Idempotent(t *testing.T) {
	in := corpus(t)
	out := t.TempDir()
	cfg := baseConfig(in, out)
	if _, err := runPipeline(t, cfg); err != nil {
		t.Fatal(err)
	}
	first, _ := os.ReadFile(filepath.Join(out, "train.conll"))
	if _, err := runPipeline(t, cfg); err != nil {
		t.Fatal(err)
	}
	second, _ := os.ReadFile(filepath.Join(out, "train.conll"))
	if string(first) != string(second) || len(first) == 0 {
		t.Fatalf("outputs differ between runs")
	}
}
