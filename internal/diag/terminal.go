package diag

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// Terminal: 终端信息提示（非日志）。
// - 输出到提供的 io.Writer（默认建议 stderr）。
// - TTY: 单行 \r 覆盖进度，状态标签着色（NO_COLOR 关闭）；非 TTY: 关键节点分行打印。
// - 并发安全；写失败后进入禁用态为 no-op。
type Terminal struct {
	w       io.Writer
	enabled bool
	isTTY   bool

	// 运行期最小状态
	segmenter string
	total     int
	done      int
	failed    int
	runStart  time.Time
	curDoc    string

	// 输出控制
	lastLen   int
	lastFlush time.Time

	tagRun, tagOK, tagFail, tagSkip *color.Color

	mu sync.Mutex
}

// 进程级终端（可选，全局设置后供 pipeline 旁路调用）。
var (
	termMu sync.RWMutex
	global *Terminal
)

// SetTerminal 设置全局终端指针（nil 可清除）。
func SetTerminal(t *Terminal) { termMu.Lock(); global = t; termMu.Unlock() }

// GetTerminal 返回全局终端（可能为 nil）。
func GetTerminal() *Terminal { termMu.RLock(); defer termMu.RUnlock(); return global }

// NewTerminal 构造终端提示器。
// enabled=false 时总是 no-op。
func NewTerminal(w io.Writer, enabled bool) *Terminal {
	if w == nil {
		w = os.Stderr
	}
	t := &Terminal{w: w, enabled: enabled}
	// CI 环境视为非 TTY
	if os.Getenv("CI") == "" {
		if f, ok := w.(*os.File); ok {
			t.isTTY = term.IsTerminal(int(f.Fd()))
		}
	}
	t.setColor(t.isTTY && os.Getenv("NO_COLOR") == "")
	return t
}

func (t *Terminal) setColor(on bool) {
	t.tagRun = color.New(color.FgCyan)
	t.tagOK = color.New(color.FgGreen, color.Bold)
	t.tagFail = color.New(color.FgRed, color.Bold)
	t.tagSkip = color.New(color.FgYellow)
	for _, c := range []*color.Color{t.tagRun, t.tagOK, t.tagFail, t.tagSkip} {
		if on {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
}

// RunStart: 记录运行上下文（文档数、切分器）。
func (t *Terminal) RunStart(total int, segmenter string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	t.segmenter = segmenter
	t.total = total
	t.done, t.failed = 0, 0
	t.runStart = time.Now()
	t.println(fmt.Sprintf("%s 文档=%d | 切分=%s", t.tagRun.Sprint("[run]"), total, safe(segmenter)))
}

// Unusable: 格式发现阶段判定不可用的输入文件。
func (t *Terminal) Unusable(fileID string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	t.clearInline()
	t.println(fmt.Sprintf("%s %s | 不可用", t.tagSkip.Sprint("[skip]"), shortenBase(fileID, 48)))
}

// DocProgress: 单篇文档完成后的进度（TTY only，≥100ms 节流）。
func (t *Terminal) DocProgress(docID string, ok bool) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	t.done++
	if !ok {
		t.failed++
	}
	t.curDoc = shortenBase(docID, 48)
	if !t.isTTY {
		return
	}
	now := time.Now()
	if now.Sub(t.lastFlush) < 100*time.Millisecond && t.done < t.total {
		return
	}
	t.lastFlush = now
	t.printInline(fmt.Sprintf("[doc] %s | 进度 %d/%d | 失败 %d | 用时 %s",
		t.curDoc, t.done, t.total, t.failed, formatSince(t.runStart)))
}

// DocFail: 文档失败（立即换行输出原因）。
func (t *Terminal) DocFail(docID, code, reason string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	t.clearInline()
	t.println(fmt.Sprintf("%s %s | %s | %s", t.tagFail.Sprint("[fail]"), shortenBase(docID, 48), code, safe(reason)))
}

// RunFinish: 结束总览。
func (t *Terminal) RunFinish(ok bool, dur time.Duration) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	tag := t.tagOK.Sprint("[ok]")
	if !ok {
		tag = t.tagFail.Sprint("[fail]")
	}
	t.clearInline()
	t.println(fmt.Sprintf("%s 全部完成 | 文档 %d | 失败 %d | 总用时 %s", tag, t.done, t.failed, formatDur(dur)))
}

// 内部输出工具
func (t *Terminal) println(s string) {
	if t == nil || !t.enabled {
		return
	}
	if _, err := io.WriteString(t.w, s+"\n"); err != nil {
		// 写失败即禁用
		t.enabled = false
	}
	t.lastLen = 0
}

// clearInline 清掉 TTY 上尚未换行的进度行。
func (t *Terminal) clearInline() {
	if t.isTTY && t.lastLen > 0 {
		t.printInline("")
		if t.enabled {
			_, _ = io.WriteString(t.w, "\r")
		}
		t.lastLen = 0
	}
}

func (t *Terminal) printInline(s string) {
	if t == nil || !t.enabled {
		return
	}
	// 若新行比旧短，填充空格覆盖
	pad := 0
	if l := visLen(s); t.lastLen > l {
		pad = t.lastLen - l
	}
	var b strings.Builder
	b.WriteByte('\r')
	b.WriteString(s)
	if pad > 0 {
		b.WriteString(strings.Repeat(" ", pad))
	}
	if _, err := io.WriteString(t.w, b.String()); err != nil {
		t.enabled = false
		return
	}
	t.lastLen = visLen(s)
}

// shortenBase: 取基名并按可见宽度截断（尾部省略号）。
func shortenBase(s string, max int) string {
	if max <= 0 {
		return ""
	}
	base := filepath.Base(strings.TrimSpace(s))
	if visLen(base) <= max {
		return base
	}
	// 预留 1 个字符给省略号
	cut := max - 1
	if cut < 1 {
		cut = 1
	}
	rs := []rune(base)
	return string(rs[:cut]) + "…"
}

func visLen(s string) int { return len([]rune(s)) }

func safe(s string) string {
	// 避免换行等控制字符污染终端
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	return s
}

func formatSince(t0 time.Time) string { return formatDur(time.Since(t0)) }

func formatDur(d time.Duration) string {
	if d < time.Second {
		ms := d.Milliseconds()
		if ms <= 0 {
			ms = 0
		}
		return fmt.Sprintf("%dms", ms)
	}
	// 秒，保留 1 位小数
	s := float64(d.Milliseconds()) / 1000.0
	return fmt.Sprintf("%.1fs", s)
}
