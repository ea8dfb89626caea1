package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// EnvPrefix 为环境变量覆盖前缀。
const EnvPrefix = "BIONLPTAG_"

// Defaults 返回带有安全默认值的 Config 雏形。
// 注意：inputs/output 不设默认（必须由配置/ENV/CLI 提供）。
func Defaults() Config {
	return Config{
		OnError: "skip",
		Logging: Logging{Level: "info"},
		Components: Components{
			Reader:    "fs",
			Parser:    "bionlp",
			Segmenter: "rule",
			Renderer:  "conll",
			Writer:    "fs",
		},
	}
}

// Load 按扩展名选择格式解析配置文件：.json / .toml / .yaml / .yml。
// TOML 与 YAML 先归一为 JSON，再走同一严格解码。
func Load(path string) (Config, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", "":
		return LoadJSON(path, nil)
	case ".toml":
		var m map[string]any
		if _, err := toml.DecodeFile(path, &m); err != nil {
			return Config{}, fmt.Errorf("toml: %w", err)
		}
		return fromMap(m)
	case ".yaml", ".yml":
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		var m map[string]any
		if err := yaml.Unmarshal(b, &m); err != nil {
			return Config{}, fmt.Errorf("yaml: %w", err)
		}
		return fromMap(m)
	default:
		return Config{}, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
}

func fromMap(m map[string]any) (Config, error) {
	if m == nil {
		return Config{}, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return Config{}, fmt.Errorf("normalize config: %w", err)
	}
	return LoadJSON("", b)
}

// LoadJSON 从文件路径或原始 JSON 解析 Config（严格拒绝未知字段）。
func LoadJSON(path string, raw []byte) (Config, error) {
	var cfg Config
	var r io.Reader
	switch {
	case len(raw) > 0:
		r = bytes.NewReader(raw)
	case path != "":
		f, err := os.Open(path)
		if err != nil {
			return cfg, err
		}
		defer f.Close()
		r = f
	default:
		return cfg, errors.New("no config source provided")
	}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Merge 按优先级合并（后者覆盖前者）。
// 仅标量/字符串/原样 JSON 为“替换”；不做深度合并。
func Merge(base, over Config) Config {
	out := base
	if len(over.Inputs) > 0 {
		out.Inputs = cloneStrings(over.Inputs)
	}
	if s := strings.TrimSpace(over.Output); s != "" {
		out.Output = s
	}
	if s := strings.TrimSpace(over.OnError); s != "" {
		out.OnError = s
	}
	if over.Report != nil {
		v := *over.Report
		out.Report = &v
	}

	// Logging
	if s := strings.TrimSpace(over.Logging.Level); s != "" {
		out.Logging.Level = s
	}
	if s := strings.TrimSpace(over.Logging.Dir); s != "" {
		out.Logging.Dir = s
	}
	if over.Logging.MaxSizeMB != 0 {
		out.Logging.MaxSizeMB = over.Logging.MaxSizeMB
	}
	if over.Logging.MaxBackups != 0 {
		out.Logging.MaxBackups = over.Logging.MaxBackups
	}
	if over.Logging.Compress != nil {
		v := *over.Logging.Compress
		out.Logging.Compress = &v
	}

	// 组件名（空不覆盖）
	if over.Components.Reader != "" {
		out.Components.Reader = over.Components.Reader
	}
	if over.Components.Parser != "" {
		out.Components.Parser = over.Components.Parser
	}
	if over.Components.Segmenter != "" {
		out.Components.Segmenter = over.Components.Segmenter
	}
	if over.Components.Renderer != "" {
		out.Components.Renderer = over.Components.Renderer
	}
	if over.Components.Writer != "" {
		out.Components.Writer = over.Components.Writer
	}

	// Options（完整替换对应键）
	if len(over.Options.Reader) > 0 {
		out.Options.Reader = cloneRaw(over.Options.Reader)
	}
	if len(over.Options.Parser) > 0 {
		out.Options.Parser = cloneRaw(over.Options.Parser)
	}
	if len(over.Options.Segmenter) > 0 {
		out.Options.Segmenter = cloneRaw(over.Options.Segmenter)
	}
	if len(over.Options.Renderer) > 0 {
		out.Options.Renderer = cloneRaw(over.Options.Renderer)
	}
	if len(over.Options.Writer) > 0 {
		out.Options.Writer = cloneRaw(over.Options.Writer)
	}
	return out
}

// EnvOverlay 从环境变量构建一个 Config 覆盖（仅解析有限键集合）。
// 规则：前缀 BIONLPTAG_；集合之外的键忽略；空值视为未设置。
// 支持：INPUTS, OUTPUT, ON_ERROR, REPORT, LOG_{LEVEL,DIR,MAX_SIZE_MB,MAX_BACKUPS,COMPRESS},
// COMPONENTS_<NAME> 与 OPTIONS_<NAME>_JSON。
// CONFIG_FILE / CONFIG_JSON 由调用方读取。
func EnvOverlay(environ []string) (Config, error) {
	var over Config
	for _, kv := range environ {
		if !strings.HasPrefix(kv, EnvPrefix) {
			continue
		}
		eq := strings.IndexByte(kv, '=')
		if eq <= len(EnvPrefix) {
			continue
		}
		key := strings.TrimPrefix(kv[:eq], EnvPrefix)
		val := strings.TrimSpace(kv[eq+1:])
		if val == "" {
			continue
		}
		switch key {
		case "INPUTS":
			over.Inputs = splitComma(val)
		case "OUTPUT":
			over.Output = val
		case "ON_ERROR":
			over.OnError = val
		case "REPORT":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return over, fmt.Errorf("%sREPORT: %w", EnvPrefix, err)
			}
			over.Report = &b
		case "LOG_LEVEL":
			over.Logging.Level = val
		case "LOG_DIR":
			over.Logging.Dir = val
		case "LOG_MAX_SIZE_MB":
			if v, err := atoi(val); err == nil {
				over.Logging.MaxSizeMB = v
			}
		case "LOG_MAX_BACKUPS":
			if v, err := atoi(val); err == nil {
				over.Logging.MaxBackups = v
			}
		case "LOG_COMPRESS":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return over, fmt.Errorf("%sLOG_COMPRESS: %w", EnvPrefix, err)
			}
			over.Logging.Compress = &b
		case "COMPONENTS_READER":
			over.Components.Reader = val
		case "COMPONENTS_PARSER":
			over.Components.Parser = val
		case "COMPONENTS_SEGMENTER":
			over.Components.Segmenter = val
		case "COMPONENTS_RENDERER":
			over.Components.Renderer = val
		case "COMPONENTS_WRITER":
			over.Components.Writer = val
		case "OPTIONS_READER_JSON":
			over.Options.Reader = json.RawMessage(val)
		case "OPTIONS_PARSER_JSON":
			over.Options.Parser = json.RawMessage(val)
		case "OPTIONS_SEGMENTER_JSON":
			over.Options.Segmenter = json.RawMessage(val)
		case "OPTIONS_RENDERER_JSON":
			over.Options.Renderer = json.RawMessage(val)
		case "OPTIONS_WRITER_JSON":
			over.Options.Writer = json.RawMessage(val)
		}
	}
	return over, nil
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneRaw(in json.RawMessage) json.RawMessage {
	if len(in) == 0 {
		return nil
	}
	out := make([]byte, len(in))
	copy(out, in)
	return out
}

func splitComma(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func atoi(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}
