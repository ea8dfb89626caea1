package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	cfgpkg "bionlptag/internal/config"
	"bionlptag/internal/diag"
	"bionlptag/internal/pipeline"
)

var pipelineRun = pipeline.Run

// 缺省配置文件探测顺序
var defaultConfigNames = []string{"config.json", "config.toml", "config.yaml", "config.yml"}

func newConvertCmd(g *globalFlags, cf *convertFlags, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert [roots...]",
		Short: "Convert annotation files under roots into one IOB training file",
		Long: `Convert walks the given roots (files or directories, or "-" for STDIN),
discovers BB-norm abstracts (Format 1) and passage/annotation pairs
(Format 2), and writes the aligned word<TAB>tag lines to the output.

Exit codes:
  0  all documents converted
  1  run failure (or first document failure with --on-error abort)
  2  completed, but some documents failed and were skipped
  3  configuration or assembly error`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, args, g, cf, stderr)
		},
	}
	addConvertFlags(cmd, cf)
	return cmd
}

// loadConfig 按 Defaults → 文件 → CONFIG_JSON → ENV → CLI 的顺序合并配置。
func loadConfig(cmd *cobra.Command, args []string, g *globalFlags, cf *convertFlags) (cfgpkg.Config, error) {
	path := g.config
	if path == "" {
		path = os.Getenv(cfgpkg.EnvPrefix + "CONFIG_FILE")
	}
	if path == "" {
		for _, name := range defaultConfigNames {
			if _, err := os.Stat(name); err == nil {
				path = name
				break
			}
		}
	}
	cfg := cfgpkg.Defaults()
	if path != "" {
		base, err := cfgpkg.Load(path)
		if err != nil {
			return cfg, fmt.Errorf("配置解析失败 %s: %w", path, err)
		}
		cfg = cfgpkg.Merge(cfg, base)
	}
	if s := os.Getenv(cfgpkg.EnvPrefix + "CONFIG_JSON"); s != "" {
		base, err := cfgpkg.LoadJSON("", []byte(s))
		if err != nil {
			return cfg, fmt.Errorf("配置解析失败 %sCONFIG_JSON: %w", cfgpkg.EnvPrefix, err)
		}
		cfg = cfgpkg.Merge(cfg, base)
	}

	overEnv, err := cfgpkg.EnvOverlay(os.Environ())
	if err != nil {
		return cfg, fmt.Errorf("环境变量解析失败: %w", err)
	}
	cfg = cfgpkg.Merge(cfg, overEnv)

	// CLI 覆盖
	var overCLI cfgpkg.Config
	if len(args) > 0 {
		overCLI.Inputs = args
	}
	overCLI.Output = cf.output
	overCLI.OnError = cf.onError
	overCLI.Components.Segmenter = cf.segmenter
	overCLI.Logging.Level = g.logLevel
	if cmd.Flags().Changed("report") {
		v := cf.report
		overCLI.Report = &v
	}
	return cfgpkg.Merge(cfg, overCLI), nil
}

func runConvert(cmd *cobra.Command, args []string, g *globalFlags, cf *convertFlags, stderr io.Writer) error {
	start := time.Now()
	corrID := genCorrID()

	cfg, err := loadConfig(cmd, args, g, cf)
	if err != nil {
		return &exitError{code: exitConfig, err: err}
	}
	if err := cfgpkg.Validate(cfg); err != nil {
		// 提示打印有效配置，便于诊断
		dumpConfig(stderr, cfg)
		return &exitError{code: exitConfig, err: fmt.Errorf("配置校验失败: %w", err)}
	}

	sink := diag.NewFileSink(cfgpkg.SinkOptions(cfg))
	defer sink.Close()
	logger := diag.NewLogger(corrID, cfg.Logging.Level, sink)

	if err := preflightCheckOutputDir(cfg); err != nil {
		logger.Error("pipeline", string(diag.Classify(err)), "preflight: "+err.Error(), &start)
		return &exitError{code: exitConfig, err: fmt.Errorf("输出目录不可写或无法创建: %w", err)}
	}
	comp, set, err := cfgpkg.Assemble(cfg)
	if err != nil {
		logger.Error("pipeline", string(diag.Classify(err)), "assemble: "+err.Error(), &start)
		return &exitError{code: exitConfig, err: fmt.Errorf("装配失败: %w", err)}
	}

	// 终端信息提示（非日志）
	diag.SetTerminal(diag.NewTerminal(stderr, g.status))
	defer diag.SetTerminal(nil)

	logger.Debug("config", "effective", "", map[string]string{
		"inputs_count": strconv.Itoa(len(cfg.Inputs)),
		"output":       cfg.Output,
		"on_error":     string(set.OnError),
		"report":       strconv.FormatBool(set.Report),
		"reader":       cfg.Components.Reader,
		"parser":       cfg.Components.Parser,
		"segmenter":    cfg.Components.Segmenter,
		"renderer":     cfg.Components.Renderer,
		"writer":       cfg.Components.Writer,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	diag.ResetMetrics()
	rep, err := pipelineRun(ctx, comp, set, logger)
	defer logMetrics(logger)
	if err != nil {
		code := string(diag.Classify(err))
		logger.Error("pipeline", code, "first error: "+err.Error(), &start)
		diag.IncOp("pipeline", "error", "error")
		if code != string(diag.CodeUnknown) {
			diag.IncError("pipeline", code)
		}
		if errors.Is(err, context.Canceled) {
			return &exitError{code: exitFailure}
		}
		return &exitError{code: exitFailure, err: fmt.Errorf("运行失败: %w", err)}
	}
	logger.InfoFinish("pipeline", "converted", start, int64(rep.OK))
	diag.IncOp("pipeline", "finish", "success")
	diag.ObserveDuration("pipeline", "finish", time.Since(start).Milliseconds())
	if rep.Failed > 0 {
		return &exitError{code: exitSkipped, err: fmt.Errorf("%d 篇文档失败已跳过（共 %d 篇）", rep.Failed, len(rep.Docs))}
	}
	return nil
}

// logMetrics 将本次运行的计数快照写入日志。
func logMetrics(logger *diag.Logger) {
	kv := map[string]string{}
	for _, m := range diag.Snapshot() {
		kv[m.Name+":"+m.Key] = strconv.FormatInt(m.Value, 10)
	}
	logger.Info("metrics", "snapshot", kv)
}

func dumpConfig(w io.Writer, c cfgpkg.Config) {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return
	}
	fmt.Fprintf(w, "有效配置:\n%s\n", b)
}

// preflightCheckOutputDir: 当 Writer 使用文件系统实现(fs)时，启动前检查输出所在目录可写性。
// 规则：
// - 若目录已存在：尝试创建并删除临时文件；失败则判为不可写。
// - 若目录不存在：向上找到最近的已存在祖先，尝试在其中创建并删除临时目录。
// 仅针对 fs writer 生效；其他 writer 跳过。
func preflightCheckOutputDir(cfg cfgpkg.Config) error {
	writerName := strings.TrimSpace(cfg.Components.Writer)
	if writerName == "" {
		writerName = cfgpkg.Defaults().Components.Writer
	}
	if writerName != "fs" {
		return nil
	}
	var wopts struct {
		OutputDir string `json:"output_dir"`
		Flat      bool   `json:"flat"`
	}
	if len(cfg.Options.Writer) > 0 {
		_ = json.Unmarshal(cfg.Options.Writer, &wopts)
	}
	out := filepath.FromSlash(strings.TrimSpace(cfg.Output))
	if wopts.Flat {
		out = filepath.Base(out)
	}
	dir := filepath.Dir(filepath.Join(strings.TrimSpace(wopts.OutputDir), out))
	if st, err := os.Stat(dir); err == nil {
		if !st.IsDir() {
			return fmt.Errorf("路径存在但不是目录: %s", dir)
		}
		f, err := os.CreateTemp(dir, ".wcheck-*")
		if err != nil {
			return err
		}
		name := f.Name()
		_ = f.Close()
		_ = os.Remove(name)
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	// 目录不存在：检查最近祖先的可写性
	parent := dir
	for {
		next := filepath.Dir(parent)
		if next == parent {
			return fmt.Errorf("无法确定父目录: %s", dir)
		}
		parent = next
		st, err := os.Stat(parent)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
		if !st.IsDir() {
			return fmt.Errorf("父路径不是目录: %s", parent)
		}
		break
	}
	tmpd, err := os.MkdirTemp(parent, ".wcheck-*")
	if err != nil {
		return err
	}
	_ = os.RemoveAll(tmpd)
	return nil
}
