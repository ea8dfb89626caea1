package contract

import "fmt"

// 校验库函数（纯函数，无 I/O），偏移均以 rune 计。
// - ValidateAnnotation: Start < End 且 [Start, End) 落在正文内，类别合法
// - ValidateBreaks:     严格递增，且每个值位于 (0, passageLen+1]

// ValidateAnnotation 校验单条标注是否可用于长度为 passageLen 的正文。
func ValidateAnnotation(a EntityAnnotation, passageLen int) error {
	if !a.Category.Valid() {
		return &UnknownCategoryError{Label: a.Category.String()}
	}
	if a.Start < 0 || a.Start >= passageLen {
		return &OutOfRangeError{What: "annotation start", Offset: a.Start, Len: passageLen}
	}
	if a.End > passageLen {
		return &OutOfRangeError{What: "annotation end", Offset: a.End, Len: passageLen}
	}
	if a.Start >= a.End {
		return &MalformedAnnotationError{Reason: fmt.Sprintf("start %d >= end %d", a.Start, a.End)}
	}
	if a.Text == "" {
		return &MalformedAnnotationError{Reason: fmt.Sprintf("empty text at %d", a.Start)}
	}
	return nil
}

// ValidateBreaks 校验句边界偏移序列。
// 末句边界可以等于 passageLen+1（末尾无空格时“虚拟分隔符”之后的位置）。
func ValidateBreaks(breaks []int, passageLen int) error {
	prev := 0
	for i, b := range breaks {
		if b <= 0 || b > passageLen+1 {
			return &OutOfRangeError{What: "sentence break", Offset: b, Len: passageLen + 1}
		}
		if i > 0 && b <= prev {
			return fmt.Errorf("%w: sentence breaks not strictly increasing at %d (%d <= %d)", ErrInvalidInput, i, b, prev)
		}
		prev = b
	}
	return nil
}
