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
)

// Result 为单文件处理结果（终端提示用）。
type Result int

const (
	ResultUnchanged Result = iota
	ResultChanged
	ResultSkipped
	ResultFailed
)

func (r Result) tag() string {
	switch r {
	case ResultChanged:
		return "clean"
	case ResultSkipped:
		return "skip"
	case ResultFailed:
		return "fail"
	default:
		return "same"
	}
}

// Terminal: 终端信息提示（非日志）。
// - 输出到提供的 io.Writer（默认建议 stderr）。
// - TTY: 进度单行 \r 覆盖，状态标签着色；非 TTY: 仅分行打印，无颜色。
// - 并发安全；写失败后进入禁用态为 no-op。
type Terminal struct {
	w       io.Writer
	enabled bool
	isTTY   bool

	concurrency int
	dryRun      bool
	runStart    time.Time
	files       int
	changed     int
	failed      int

	green  *color.Color
	yellow *color.Color
	red    *color.Color

	lastLen   int
	lastFlush time.Time

	mu sync.Mutex
}

// 进程级终端（可选，全局设置后供 pipeline 旁路调用）。
var (
	termMu sync.RWMutex
	term   *Terminal
)

// SetTerminal 设置全局终端指针（nil 可清除）。
func SetTerminal(t *Terminal) { termMu.Lock(); term = t; termMu.Unlock() }

// GetTerminal 返回全局终端（可能为 nil）。
func GetTerminal() *Terminal { termMu.RLock(); defer termMu.RUnlock(); return term }

// NewTerminal 构造终端提示器。
// enabled=false 时总是 no-op。
func NewTerminal(w io.Writer, enabled bool) *Terminal {
	if w == nil {
		w = os.Stderr
	}
	t := &Terminal{
		w:       w,
		enabled: enabled,
		green:   color.New(color.FgGreen),
		yellow:  color.New(color.FgYellow),
		red:     color.New(color.FgRed, color.Bold),
	}
	// CI 环境视为非 TTY
	if os.Getenv("CI") == "" {
		if f, ok := w.(*os.File); ok {
			if fi, err := f.Stat(); err == nil {
				t.isTTY = fi.Mode()&os.ModeCharDevice != 0
			}
		}
	}
	t.setColor(t.isTTY)
	return t
}

func (t *Terminal) setColor(on bool) {
	for _, c := range []*color.Color{t.green, t.yellow, t.red} {
		if on {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
}

// RunStart: 记录运行上下文（并发、是否演练）。
func (t *Terminal) RunStart(concurrency int, dryRun bool) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	t.concurrency = concurrency
	t.dryRun = dryRun
	t.files, t.changed, t.failed = 0, 0, 0
	t.runStart = time.Now()
	mode := "clean"
	if dryRun {
		mode = "dry-run"
	}
	t.println(fmt.Sprintf("[run] 并发=%d | 模式=%s", concurrency, mode))
}

// FileFinish: 单文件结束（立即输出一行）；note 为附加说明（如 "24→4 行"）。
func (t *Terminal) FileFinish(fileID string, res Result, note string, dur time.Duration) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	t.files++
	switch res {
	case ResultChanged:
		t.changed++
	case ResultFailed:
		t.failed++
	}
	if t.isTTY && t.lastLen > 0 {
		t.printInline("")
	}
	line := fmt.Sprintf("%s %s", t.colored(res), shortenBase(fileID, 48))
	if note = safe(strings.TrimSpace(note)); note != "" {
		line += " | " + note
	}
	line += " | 用时 " + formatDur(dur)
	t.println(line)
	t.progress()
}

// progress: TTY 下的运行总览单行（≥100ms 节流）。
func (t *Terminal) progress() {
	if !t.isTTY {
		return
	}
	now := time.Now()
	if now.Sub(t.lastFlush) < 100*time.Millisecond {
		return
	}
	t.lastFlush = now
	t.printInline(fmt.Sprintf("[run] 文件 %d | 变更 %d | 失败 %d | 用时 %s",
		t.files, t.changed, t.failed, formatSince(t.runStart)))
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
	tag := t.green.Sprint("[ok]")
	if !ok {
		tag = t.red.Sprint("[fail]")
	}
	if t.isTTY && t.lastLen > 0 {
		t.printInline("")
	}
	verb := "变更"
	if t.dryRun {
		verb = "待变更"
	}
	t.println(fmt.Sprintf("%s 全部完成 | 文件 %d | %s %d | 失败 %d | 总用时 %s",
		tag, t.files, verb, t.changed, t.failed, formatDur(dur)))
}

func (t *Terminal) colored(res Result) string {
	tag := "[" + res.tag() + "]"
	switch res {
	case ResultChanged:
		return t.green.Sprint(tag)
	case ResultSkipped:
		return t.yellow.Sprint(tag)
	case ResultFailed:
		return t.red.Sprint(tag)
	}
	return tag
}

// 内部输出工具
func (t *Terminal) println(s string) {
	if t == nil || !t.enabled {
		return
	}
	if _, err := io.WriteString(t.w, s+"\n"); err != nil {
		t.enabled = false
	}
	t.lastLen = 0
}

func (t *Terminal) printInline(s string) {
	if t == nil || !t.enabled {
		return
	}
	// 新行比旧行短时以空格覆盖残留
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
	if pad > 0 || s == "" {
		b.WriteByte('\r')
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
	rs := []rune(base)
	return string(rs[:max-1]) + "…"
}

func visLen(s string) int { return len([]rune(s)) }

func safe(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	return s
}

func formatSince(t0 time.Time) string { return formatDur(time.Since(t0)) }

func formatDur(d time.Duration) string {
	if d < time.Second {
		ms := d.Milliseconds()
		if ms < 0 {
			ms = 0
		}
		return fmt.Sprintf("%dms", ms)
	}
	return fmt.Sprintf("%.1fs", float64(d.Milliseconds())/1000.0)
}
