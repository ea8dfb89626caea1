package registry

import (
	"bytes"
	"encoding/json"
	"sort"

	"bionlptag/pkg/contract"
	pbio "bionlptag/plugins/parser/bionlp"
	rfs "bionlptag/plugins/reader/filesystem"
	conll "bionlptag/plugins/renderer/conll"
	spunkt "bionlptag/plugins/segmenter/punkt"
	srule "bionlptag/plugins/segmenter/rule"
	wfs "bionlptag/plugins/writer/filesystem"
)

// strictUnmarshal: 使用 DisallowUnknownFields 严格解码，拒绝未知字段。
func strictUnmarshal(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		// 保持零值（默认选项）
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// NewReader 工厂签名：接收原样 JSON Options。
type NewReader func(raw json.RawMessage) (contract.Reader, error)

// NewParser 工厂签名：接收原样 JSON Options。
type NewParser func(raw json.RawMessage) (contract.Parser, error)

// NewSegmenter 工厂签名：接收原样 JSON Options。
type NewSegmenter func(raw json.RawMessage) (contract.Segmenter, error)

// NewRenderer 工厂签名：接收原样 JSON Options。
type NewRenderer func(raw json.RawMessage) (contract.Renderer, error)

// NewWriter 工厂签名：接收原样 JSON Options。
type NewWriter func(raw json.RawMessage) (contract.Writer, error)

// Reader 工厂注册表（显式、零反射）。
var Reader = map[string]NewReader{
	// fs: 文件系统/STDIN Reader（可透明解压 .gz）
	"fs": func(raw json.RawMessage) (contract.Reader, error) {
		var opts rfs.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return rfs.New(&opts), nil
	},
}

// Parser 工厂注册表。
var Parser = map[string]NewParser{
	// bionlp: BioNLP BB-norm .a1/.txt
	"bionlp": func(raw json.RawMessage) (contract.Parser, error) {
		var opts pbio.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return pbio.New(&opts)
	},
}

// Segmenter 工厂注册表。
var Segmenter = map[string]NewSegmenter{
	// rule: 规则切分（生物医学缩写表）
	"rule": func(raw json.RawMessage) (contract.Segmenter, error) {
		var opts srule.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return srule.New(&opts), nil
	},
	// punkt: Punkt 英文模型
	"punkt": func(raw json.RawMessage) (contract.Segmenter, error) {
		var opts spunkt.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return spunkt.New(&opts)
	},
}

// Renderer 工厂注册表。
var Renderer = map[string]NewRenderer{
	// conll: 每行 word<TAB>tag，句间空行
	"conll": func(raw json.RawMessage) (contract.Renderer, error) {
		var opts conll.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return conll.New(&opts)
	},
}

// Writer 工厂注册表。
var Writer = map[string]NewWriter{
	// fs: 文件系统 Writer（原子替换 + 建议锁可配置）
	"fs": func(raw json.RawMessage) (contract.Writer, error) {
		var opts wfs.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return wfs.New(&opts)
	},
}

// Names 返回注册表中的名称（排序），用于帮助信息与校验报错。
func Names[F any](m map[string]F) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
