package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "bionlptag/internal/config"
)

func newInitConfigCmd(stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "init-config [dir]",
		Short: "Write a default config.json and .env template (existing files are kept)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
				dir = strings.TrimSpace(args[0])
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return &exitError{code: exitConfig, err: fmt.Errorf("生成默认配置失败: %w", err)}
			}
			cfgPath := filepath.Join(dir, "config.json")
			created, err := writeConfig(cfgPath, cfgpkg.DefaultTemplateConfig())
			if err != nil {
				return &exitError{code: exitConfig, err: fmt.Errorf("生成默认配置失败: %w", err)}
			}
			reportWritten(stdout, cfgPath, created)
			// .env 模板失败不影响退出码
			envPath := filepath.Join(dir, ".env")
			created, err = writeDotEnv(envPath)
			if err != nil {
				fmt.Fprintf(stderr, "提示：.env 生成失败（已跳过）：%v\n", err)
				return nil
			}
			reportWritten(stdout, envPath, created)
			return nil
		},
	}
}

func reportWritten(w io.Writer, path string, created bool) {
	if created {
		fmt.Fprintf(w, "已生成 %s\n", path)
		return
	}
	fmt.Fprintf(w, "已存在，跳过 %s\n", path)
}

// writeConfig 写出配置（不覆盖已存在文件）。返回是否新建。
func writeConfig(path string, c cfgpkg.Config) (bool, error) {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return false, err
	}
	return createExclusive(path, append(b, '\n'))
}

// writeDotEnv 生成 .env 模板（若文件已存在则跳过）。
// 仅创建文件；不覆盖，不合并。
func writeDotEnv(path string) (bool, error) {
	p := cfgpkg.EnvPrefix
	var b strings.Builder
	b.WriteString("# bionlptag .env 模板（由 init-config 生成）\n")
	b.WriteString("# 优先级：CLI > ENV(.env) > 配置文件\n")
	b.WriteString("# 空值表示未设置。\n\n")

	b.WriteString("# 配置来源\n")
	for _, k := range []string{"CONFIG_FILE", "CONFIG_JSON"} {
		b.WriteString(p + k + "=\n")
	}
	b.WriteString("\n# 运行参数覆盖\n")
	for _, k := range []string{"INPUTS", "OUTPUT", "ON_ERROR", "REPORT"} {
		b.WriteString(p + k + "=\n")
	}
	b.WriteString("\n# 日志\n")
	for _, k := range []string{"LOG_LEVEL", "LOG_DIR", "LOG_MAX_SIZE_MB", "LOG_MAX_BACKUPS", "LOG_COMPRESS"} {
		b.WriteString(p + k + "=\n")
	}
	b.WriteString("\n# 组件选择与选项（原样 JSON）\n")
	for _, c := range []string{"READER", "PARSER", "SEGMENTER", "RENDERER", "WRITER"} {
		b.WriteString(p + "COMPONENTS_" + c + "=\n")
	}
	for _, c := range []string{"READER", "PARSER", "SEGMENTER", "RENDERER", "WRITER"} {
		b.WriteString(p + "OPTIONS_" + c + "_JSON=\n")
	}
	b.WriteString("\n# 终端颜色：设置任意值关闭\nNO_COLOR=\n")
	return createExclusive(path, []byte(b.String()))
}

func createExclusive(path string, data []byte) (bool, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return false, nil
		}
		return false, err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return true, err
	}
	return true, f.Close()
}
