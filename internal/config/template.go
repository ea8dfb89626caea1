package config

import "encoding/json"

// DefaultTemplateConfig 返回一个“可运行”的默认配置模板：
// - 输入为 BioNLP 训练集目录，输出 out/train.conll；
// - 组件名采用仓库内置实现；
// - 选项包含所有键，值为安全中性默认。
func DefaultTemplateConfig() Config {
	d := Defaults()
	report := false
	compress := false
	cfg := Config{
		Inputs:     []string{"BioNLP-OST-2019_BB-norm_train"},
		Output:     "train.conll",
		OnError:    d.OnError,
		Report:     &report,
		Logging:    Logging{Level: "info", Dir: "logs", MaxSizeMB: 10, MaxBackups: 3, Compress: &compress},
		Components: d.Components,
	}
	cfg.Options.Reader = json.RawMessage(`{
  "buf_size": 65536,
  "exclude_dir_names": [".git"],
  "allow_exts": [".a1", ".txt"],
  "decompress_gz": true
}`)
	cfg.Options.Parser = json.RawMessage(`{
  "abstract_pattern": "",
  "passage_pattern": "",
  "verify_text": true
}`)
	cfg.Options.Segmenter = json.RawMessage(`{
  "extra_abbreviations": []
}`)
	cfg.Options.Renderer = json.RawMessage(`{
  "separator": "\t"
}`)
	cfg.Options.Writer = json.RawMessage(`{
  "output_dir": "out",
  "atomic": true,
  "flat": false,
  "lock": true,
  "perm_file": 0,
  "perm_dir": 0,
  "buf_size": 65536
}`)
	return cfg
}
