package contract

// FileID: 逻辑文档ID（通常为路径，需规范化，跨平台一致）。
type FileID string

// Files: 一次运行读入的全部输入（FileID → 原始字节）。
// 输入均为中小型本地文件，整体驻留内存。
type Files map[FileID][]byte

// Kind: 文档来源格式。
type Kind string

const (
	// KindAbstract: 单个 .a1 文件内含 Title/Paragraph 文本行与实体行（Format 1）。
	KindAbstract Kind = "abstract"
	// KindPassage: .txt 正文 + 同名 .a1 实体标注（Format 2）。
	KindPassage Kind = "passage"
)

// Source: 格式发现后得到的一个待处理单元。
// Text 仅在 KindPassage 时非空。
type Source struct {
	ID   FileID
	Kind Kind
	A1   FileID
	Text FileID
}

// EntityAnnotation: 以字符偏移描述的实体标注。
// 约束：
//   - Start/End 为 Passage 内 0 起的 rune 偏移，Start < End；
//   - Text 按单空格切分后的子词以单空格拼接，应还原 [Start, End) 区间文本。
type EntityAnnotation struct {
	Start    int
	End      int
	Category Category
	Text     string
}

// Document: 一篇已解析的文档（正文 + 实体标注）。
type Document struct {
	ID          FileID
	Kind        Kind
	Passage     string
	Annotations []EntityAnnotation
}

// TokenSpan: 实体子词在正文中的位置与 IOB 标签。
// 首个子词为 B-<CAT>，其后为 I-<CAT>。
type TokenSpan struct {
	Offset int
	Token  string
	Tag    string
}

// TaggedLine: 输出单元。Blank 为 true 时表示句间空行，Word/Tag 忽略。
// 注意：Word 可能为空串（单独的 "." 位于句末时被拆分），因此空行需显式标记。
type TaggedLine struct {
	Word  string
	Tag   string
	Blank bool
}

// OutsideTag: 实体外的词标签。
const OutsideTag = "O"

// BlankLine 返回句间空行。
func BlankLine() TaggedLine { return TaggedLine{Blank: true} }
