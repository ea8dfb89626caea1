package config

import (
	"errors"
	"fmt"
	"strings"

	"bionlptag/internal/diag"
	"bionlptag/internal/pipeline"
	"bionlptag/pkg/contract"
	"bionlptag/pkg/registry"
)

// Validate 对最小必要边界做静态校验。
func Validate(cfg Config) error {
	if len(cfg.Inputs) == 0 {
		return errors.New("config: inputs empty")
	}
	// 输入路径不得为空字符串；"-" 不能与其他根混用
	dash := false
	for _, r := range cfg.Inputs {
		if strings.TrimSpace(r) == "" {
			return errors.New("config: input path cannot be empty")
		}
		if strings.TrimSpace(r) == "-" {
			dash = true
		}
	}
	if dash && len(cfg.Inputs) > 1 {
		return errors.New("config: '-' cannot be mixed with other roots")
	}
	if strings.TrimSpace(cfg.Output) == "" {
		return errors.New("config: output not set")
	}
	switch pipeline.Policy(effName(cfg.OnError, Defaults().OnError)) {
	case pipeline.PolicySkip, pipeline.PolicyAbort:
	default:
		return fmt.Errorf("config: on_error %q must be skip or abort", cfg.OnError)
	}
	if lv := strings.TrimSpace(cfg.Logging.Level); lv != "" && diag.ParseLevel(lv).String() != strings.ToLower(lv) {
		return fmt.Errorf("config: logging.level %q must be debug, info, warn or error", lv)
	}
	if cfg.Logging.MaxSizeMB < 0 || cfg.Logging.MaxBackups < 0 {
		return errors.New("config: logging.max_size_mb and logging.max_backups must be >= 0")
	}
	// 组件名若为空，使用默认名（由 Defaults() 提供）。此处只要最终有值即可。
	d := Defaults().Components
	if name := effName(cfg.Components.Reader, d.Reader); registry.Reader[name] == nil {
		return fmt.Errorf("config: reader %q not registered (have %v)", name, registry.Names(registry.Reader))
	}
	if name := effName(cfg.Components.Parser, d.Parser); registry.Parser[name] == nil {
		return fmt.Errorf("config: parser %q not registered (have %v)", name, registry.Names(registry.Parser))
	}
	if name := effName(cfg.Components.Segmenter, d.Segmenter); registry.Segmenter[name] == nil {
		return fmt.Errorf("config: segmenter %q not registered (have %v)", name, registry.Names(registry.Segmenter))
	}
	if name := effName(cfg.Components.Renderer, d.Renderer); registry.Renderer[name] == nil {
		return fmt.Errorf("config: renderer %q not registered (have %v)", name, registry.Names(registry.Renderer))
	}
	if name := effName(cfg.Components.Writer, d.Writer); registry.Writer[name] == nil {
		return fmt.Errorf("config: writer %q not registered (have %v)", name, registry.Names(registry.Writer))
	}
	return nil
}

// Assemble 构造 Components 与 Settings。
// 严格 Options 解析在 registry（工厂）层进行；此处只传 raw JSON。
func Assemble(cfg Config) (pipeline.Components, pipeline.Settings, error) {
	if err := Validate(cfg); err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}

	// 有效名称
	d := Defaults().Components
	rn := effName(cfg.Components.Reader, d.Reader)
	pn := effName(cfg.Components.Parser, d.Parser)
	sn := effName(cfg.Components.Segmenter, d.Segmenter)
	en := effName(cfg.Components.Renderer, d.Renderer)
	wn := effName(cfg.Components.Writer, d.Writer)

	// 构造实例
	r, err := registry.Reader[rn](cfg.Options.Reader)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("reader %s: %w", rn, err)
	}
	p, err := registry.Parser[pn](cfg.Options.Parser)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("parser %s: %w", pn, err)
	}
	s, err := registry.Segmenter[sn](cfg.Options.Segmenter)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("segmenter %s: %w", sn, err)
	}
	ren, err := registry.Renderer[en](cfg.Options.Renderer)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("renderer %s: %w", en, err)
	}
	w, err := registry.Writer[wn](cfg.Options.Writer)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("writer %s: %w", wn, err)
	}

	comp := pipeline.Components{
		Reader:    r,
		Parser:    p,
		Segmenter: s,
		Renderer:  ren,
		Writer:    w,
	}
	set := pipeline.Settings{
		Inputs:        cloneStrings(cfg.Inputs),
		Output:        contract.ArtifactID(strings.TrimSpace(cfg.Output)),
		OnError:       pipeline.Policy(effName(cfg.OnError, Defaults().OnError)),
		Report:        cfg.ReportEnabled(),
		SegmenterName: sn,
	}
	return comp, set, nil
}

// SinkOptions 将 logging 段映射为滚动文件参数。
func SinkOptions(cfg Config) diag.SinkOptions {
	o := diag.SinkOptions{
		Dir:        cfg.Logging.Dir,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	}
	if cfg.Logging.Compress != nil {
		o.Compress = *cfg.Logging.Compress
	}
	return o
}

func effName(got, def string) string {
	if strings.TrimSpace(got) == "" {
		return def
	}
	return strings.TrimSpace(got)
}
