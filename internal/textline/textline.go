// Package textline 在字节与“保留行终止符的有序行序列”之间转换。
package textline

import (
	"strings"
	"unicode/utf8"

	"wbclean/pkg/contract"
)

// Split 将 b 拆分为行序列，每行保留其 '\n'（末行可无终止符）。
// 非法 UTF-8 返回 contract.ErrNotUTF8；空输入返回 nil。
// keepCR=false 时采用通用换行：\r\n 与单独的 \r 均归一为 \n。
func Split(b []byte, keepCR bool) ([]string, error) {
	if !utf8.Valid(b) {
		return nil, contract.ErrNotUTF8
	}
	if len(b) == 0 {
		return nil, nil
	}
	s := string(b)
	if !keepCR && strings.IndexByte(s, '\r') >= 0 {
		s = strings.ReplaceAll(s, "\r\n", "\n")
		s = strings.ReplaceAll(s, "\r", "\n")
	}
	out := make([]string, 0, strings.Count(s, "\n")+1)
	for len(s) > 0 {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			out = append(out, s)
			break
		}
		out = append(out, s[:i+1])
		s = s[i+1:]
	}
	return out, nil
}

// Join 顺序拼接行序列（行自带终止符）。
func Join(lines []string) []byte {
	n := 0
	for _, l := range lines {
		n += len(l)
	}
	b := make([]byte, 0, n)
	for _, l := range lines {
		b = append(b, l...)
	}
	return b
}
