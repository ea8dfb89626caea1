package contract

import (
	"strings"

	"golang.org/x/text/cases"
)

// Category: 本流水线识别的三类实体。
type Category int

const (
	CategoryUnknown Category = iota
	Microorganism
	Habitat
	Phenotype
)

var categoryCodes = map[Category]string{
	Microorganism: "MORG",
	Habitat:       "HAB",
	Phenotype:     "PHE",
}

var categoryLabels = map[Category]string{
	Microorganism: "Microorganism",
	Habitat:       "Habitat",
	Phenotype:     "Phenotype",
}

// 折叠后的标注名 → Category。
var foldedLabels = func() map[string]Category {
	f := cases.Fold()
	m := make(map[string]Category, len(categoryLabels))
	for c, l := range categoryLabels {
		m[f.String(l)] = c
	}
	return m
}()

// Valid 报告 c 是否属于固定的三类集合。
func (c Category) Valid() bool {
	_, ok := categoryCodes[c]
	return ok
}

// Code 返回 IOB 标签使用的短码（MORG/HAB/PHE）；未知类别返回空串。
func (c Category) Code() string { return categoryCodes[c] }

// String 返回 BioNLP 标注文件中的类别名。
func (c Category) String() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return "Unknown"
}

// BeginTag 返回 "B-<CAT>"。
func (c Category) BeginTag() string { return "B-" + c.Code() }

// InsideTag 返回 "I-<CAT>"。
func (c Category) InsideTag() string { return "I-" + c.Code() }

// ParseCategory 将 BioNLP 标注名映射为 Category（Unicode 大小写折叠后比较）。
// 不在集合内的名称返回 *UnknownCategoryError，不做默认回退。
func ParseCategory(label string) (Category, error) {
	key := cases.Fold().String(strings.TrimSpace(label))
	if c, ok := foldedLabels[key]; ok {
		return c, nil
	}
	return CategoryUnknown, &UnknownCategoryError{Label: label}
}
