// Package wayback 移除 Wayback Machine 注入到静态资源中的 JS 包装器与归档页脚注释。
package wayback

import (
	"context"
	"strings"

	"wbclean/pkg/contract"
)

// 协议常量：按子串匹配，空白与标点均有意义。
const (
	// WrapperMarker 出现在包装器首行。
	WrapperMarker = "_____WB$wombat$assign$function_____"
	// WrapperHeaderEnd 为包装器头部的最后一行。
	WrapperHeaderEnd = `let opens = _____WB$wombat$assign$function_____("opens");`
	// FooterMarker 位于追加的归档注释块内。
	FooterMarker = "FILE ARCHIVED ON"
	// CommentOpen 为归档注释块的起始记号。
	CommentOpen = "/*"

	closingBrace = "}"
)

// Options 为 wayback Cleaner 的可选配置。
type Options struct {
	// Wrapper: 是否执行包装器裁剪；nil 视为 true。
	Wrapper *bool `json:"wrapper,omitempty"`
	// Footer: 是否执行页脚移除；nil 视为 true。
	Footer *bool `json:"footer,omitempty"`
	// WrapperExts: 需要检查包装器的后缀（大小写敏感）。nil 时默认 [".js"]。
	WrapperExts []string `json:"wrapper_exts,omitempty"`
}

// Cleaner 实现 contract.Cleaner。
type Cleaner struct {
	wrapper     bool
	footer      bool
	wrapperExts []string
}

var _ contract.Cleaner = (*Cleaner)(nil)

// New 创建 Cleaner。
func New(opts *Options) *Cleaner {
	c := &Cleaner{wrapper: true, footer: true, wrapperExts: []string{".js"}}
	if opts == nil {
		return c
	}
	if opts.Wrapper != nil {
		c.wrapper = *opts.Wrapper
	}
	if opts.Footer != nil {
		c.footer = *opts.Footer
	}
	if opts.WrapperExts != nil {
		c.wrapperExts = append([]string(nil), opts.WrapperExts...)
	}
	return c
}

// Clean 依次执行包装器裁剪（仅匹配后缀且首行含标记）与页脚移除。
// 返回值恒为 lines 的连续子区间。
func (c *Cleaner) Clean(ctx context.Context, id contract.FileID, lines []string) ([]string, contract.Report, error) {
	rep := contract.Report{FooterAt: -1, LinesIn: len(lines), LinesOut: len(lines)}
	select {
	case <-ctx.Done():
		return nil, rep, ctx.Err()
	default:
	}
	if len(lines) == 0 {
		return lines, rep, nil
	}
	if c.wrapper && HasWrapper(id, lines, c.wrapperExts...) {
		start, end := WrapperBounds(lines)
		rep.Wrapper = true
		rep.WrapperStart, rep.WrapperEnd = start, end
		if start > end {
			start = end
		}
		lines = lines[start:end]
	}
	if c.footer {
		if at := FooterStart(lines); at >= 0 {
			rep.FooterAt = at
			lines = lines[:at]
		}
	}
	rep.LinesOut = len(lines)
	return lines, rep, nil
}

// HasWrapper 判断 id 后缀匹配且首行含 WrapperMarker。
func HasWrapper(id contract.FileID, lines []string, exts ...string) bool {
	return len(lines) > 0 && id.HasExt(exts...) && strings.Contains(lines[0], WrapperMarker)
}

// WrapperBounds 返回包装器内原始内容的 [start, end)。
//
// start 为首个含 WrapperHeaderEnd 的行之后一行，未找到为 0。
// end 为最后一个含 FooterMarker 的行上方最近的裸 "}" 行；
// 无页脚或其上方无裸 "}" 时为 len(lines)。start 可能大于 end，由调用方处理。
func WrapperBounds(lines []string) (start, end int) {
	for i, l := range lines {
		if strings.Contains(l, WrapperHeaderEnd) {
			start = i + 1
			break
		}
	}
	end = len(lines)
	if i := lastFooter(lines); i >= 0 {
		for j := i - 1; j >= 0; j-- {
			if strings.TrimSpace(lines[j]) == closingBrace {
				end = j
				break
			}
		}
	}
	return start, end
}

// FooterStart 返回归档页脚注释块的起始行；-1 表示无需移除。
// 自最后一个含 FooterMarker 的行（含）向上查找最近的 CommentOpen。
// 有标记但无 "/*" 时同样返回 -1，文件保持不变。
func FooterStart(lines []string) int {
	i := lastFooter(lines)
	if i < 0 {
		return -1
	}
	for j := i; j >= 0; j-- {
		if strings.Contains(lines[j], CommentOpen) {
			return j
		}
	}
	return -1
}

func lastFooter(lines []string) int {
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.Contains(lines[i], FooterMarker) {
			return i
		}
	}
	return -1
}
