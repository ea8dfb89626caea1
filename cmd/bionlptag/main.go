package main

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// 退出码
const (
	exitOK      = 0
	exitFailure = 1
	exitSkipped = 2
	exitConfig  = 3
)

// exitError 携带退出码；消息已在返回前打印时 err 为 nil。
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	// 在任何 ENV 读取前，尝试加载工作目录下的 .env（不覆盖已有 ENV）。
	if err := loadDotEnv(".env"); err != nil {
		fmt.Fprintf(stderr, "提示：.env 读取失败（已跳过）：%v\n", err)
	}
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	err := root.Execute()
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintln(stderr, ee.err)
		}
		return ee.code
	}
	// 旗标/参数解析错误
	fmt.Fprintf(stderr, "参数错误: %v\n", err)
	return exitConfig
}

// globalFlags 为所有子命令共享的旗标。
type globalFlags struct {
	config   string
	logLevel string
	status   bool
}

// convertFlags 为 convert（及根命令默认动作）的旗标。
type convertFlags struct {
	output    string
	segmenter string
	onError   string
	report    bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	g := &globalFlags{}
	cf := &convertFlags{}
	root := &cobra.Command{
		Use:   "bionlptag [roots...]",
		Short: "Convert BioNLP .a1/.txt annotations into word<TAB>IOB-tag training data",
		Long: `bionlptag reads BioNLP Bacteria Biotope annotation files (BB-norm-*.a1 with
optional .txt passages), aligns character-offset entity spans to whitespace
tokens and writes one "word<TAB>tag" line per token with a blank line after
each sentence.

Without a subcommand it behaves like "bionlptag convert".

Examples:
  bionlptag convert BioNLP-OST-2019_BB-norm_train -o train.conll
  bionlptag corpus/dev -o dev.conll --segmenter punkt --report
  bionlptag segment passage.txt
  bionlptag init-config .`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, args, g, cf, stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&g.config, "config", "", "配置文件路径（.json/.toml/.yaml）；缺省读取 ./config.{json,toml,yaml}（若存在）")
	pf.StringVar(&g.logLevel, "log-level", "", "日志级别 debug|info|warn|error（覆盖配置）")
	pf.BoolVar(&g.status, "status", true, "终端状态提示（stderr）。TTY 动态刷新；非 TTY 打点输出")
	addConvertFlags(root, cf)

	root.AddCommand(newConvertCmd(g, cf, stderr))
	root.AddCommand(newSegmentCmd(g, stdout))
	root.AddCommand(newInitConfigCmd(stdout, stderr))
	return root
}

func addConvertFlags(cmd *cobra.Command, cf *convertFlags) {
	f := cmd.Flags()
	f.StringVarP(&cf.output, "output", "o", "", "输出工件 ID（相对 writer.output_dir）")
	f.StringVar(&cf.segmenter, "segmenter", "", "分句器名称 rule|punkt（覆盖配置）")
	f.StringVar(&cf.onError, "on-error", "", "文档失败策略 skip|abort（覆盖配置）")
	f.BoolVar(&cf.report, "report", false, "额外写出 <output>.report.jsonl")
}

func genCorrID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return ""
	}
	return hex.EncodeToString(b[:])
}

// loadDotEnv 读取简单的 .env 文件格式并注入进程环境。
// 规则：
// - 忽略不存在的文件；无法读取时返回错误（但调用处可忽略）。
// - 跳过空行与以 # 开头的行；支持可选的前缀 "export ".
// - 仅按首个 '=' 分割；key 为左侧去空白；value 去首尾空白；
// - 若 value 被成对的单/双引号包裹，则去除外层引号；双引号内常见转义 \n/\t/\\/\" 作最小处理。
// - 不覆盖已存在的环境变量（保持系统/调用者优先）。
func loadDotEnv(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		eq := strings.IndexByte(line, '=')
		if eq <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:eq])
		val := unquote(strings.TrimSpace(line[eq+1:]))
		if key == "" {
			continue
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		_ = os.Setenv(key, val)
	}
	return s.Err()
}

func unquote(val string) string {
	if len(val) < 2 {
		return val
	}
	q := val[0]
	if (q != '\'' && q != '"') || val[len(val)-1] != q {
		return val
	}
	val = val[1 : len(val)-1]
	if q == '"' {
		r := strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\r`, "\r", `\"`, `"`, `\\`, `\`)
		val = r.Replace(val)
	}
	return val
}
