package config

import (
	"encoding/json"
)

// Config: 运行期只读配置（一次解析，运行期不变）。
// JSON/TOML/YAML 共用同一 snake_case 字段集；未知字段在解析期失败。
type Config struct {
	Inputs []string `json:"inputs"`
	// Output: 总输出工件 ID（相对 writer.output_dir，或 output_dir 为空时的原样路径）。
	Output string `json:"output"`
	// OnError: 单篇文档失败时 skip（默认）或 abort。
	OnError string `json:"on_error"`
	// Report: 额外写出 <output>.report.jsonl。指针用于区分“未设置”与显式 false。
	Report  *bool   `json:"report,omitempty"`
	Logging Logging `json:"logging"`

	// 组件名选择（空则使用默认名）。
	Components Components `json:"components"`

	// 各组件 Options 子树，原样 JSON 传入工厂。
	Options Options `json:"options"`
}

// Logging: 日志等级与滚动文件参数。
type Logging struct {
	Level      string `json:"level"`
	Dir        string `json:"dir"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	Compress   *bool  `json:"compress,omitempty"`
}

// Components: 组件名选择（注册表中的实现名）。
type Components struct {
	Reader    string `json:"reader"`
	Parser    string `json:"parser"`
	Segmenter string `json:"segmenter"`
	Renderer  string `json:"renderer"`
	Writer    string `json:"writer"`
}

// Options: 各组件的原样 JSON Options。
type Options struct {
	Reader    json.RawMessage `json:"reader,omitempty"`
	Parser    json.RawMessage `json:"parser,omitempty"`
	Segmenter json.RawMessage `json:"segmenter,omitempty"`
	Renderer  json.RawMessage `json:"renderer,omitempty"`
	Writer    json.RawMessage `json:"writer,omitempty"`
}

// ReportEnabled 返回报告开关的生效值（默认关闭）。
func (c Config) ReportEnabled() bool { return c.Report != nil && *c.Report }
