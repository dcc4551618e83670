package wayback

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"wbclean/pkg/contract"
)

// 真实结构的归档 JS：包装器头 + 原始内容 + 包装器收尾 + 两段归档注释。
const archivedJS = `var _____WB$wombat$assign$function_____ = function(name) {return (self._wb_wombat && self._wb_wombat.local_init && self._wb_wombat.local_init(name)) || self[name]; };
if (!self.__WB_pmw) { self.__WB_pmw = function(obj) { this.__WB_source = obj; return this; } }
{
  let window = _____WB$wombat$assign$function_____("window");
  let self = _____WB$wombat$assign$function_____("self");
  let document = _____WB$wombat$assign$function_____("document");
  let location = _____WB$wombat$assign$function_____("location");
  let top = _____WB$wombat$assign$function_____("top");
  let parent = _____WB$wombat$assign$function_____("parent");
  let frames = _____WB$wombat$assign$function_____("frames");
  let opens = _____WB$wombat$assign$function_____("opens");
function main() {
  return 1;
}

}
/*
     FILE ARCHIVED ON 10:22:31 Mar 03, 2023 AND RETRIEVED FROM THE
     INTERNET ARCHIVE ON 12:00:00 Jan 01, 2024.
*/
/*
playback timings (ms):
  captures_list: 0.5
*/
`

const archivedCSS = `body { color: red; }
.a { margin: 0; }
/*
     FILE ARCHIVED ON 10:22:31 Mar 03, 2023 AND RETRIEVED FROM THE
     INTERNET ARCHIVE ON 12:00:00 Jan 01, 2024.
*/
`

func split(s string) []string { return strings.SplitAfter(strings.TrimSuffix(s, "\n"), "\n") }

func clean(t *testing.T, id contract.FileID, lines []string) ([]string, contract.Report) {
	t.Helper()
	out, rep, err := New(nil).Clean(context.Background(), id, lines)
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	return out, rep
}

func TestCleanArchivedJS(t *testing.T) {
	out, rep := clean(t, "js/app.js", split(archivedJS))
	want := []string{"function main() {\n", "  return 1;\n", "}\n", "\n"}
	if !reflect.DeepEqual(out, want) {
		t.Fatalf("got %q", out)
	}
	if !rep.Wrapper || rep.WrapperStart != 11 || rep.WrapperEnd != 15 {
		t.Fatalf("report: %+v", rep)
	}
	if rep.FooterAt != -1 || !rep.Changed() {
		t.Fatalf("report: %+v", rep)
	}
}

func TestCleanArchivedCSS(t *testing.T) {
	out, rep := clean(t, "css/site.css", split(archivedCSS))
	want := []string{"body { color: red; }\n", ".a { margin: 0; }\n"}
	if !reflect.DeepEqual(out, want) {
		t.Fatalf("got %q", out)
	}
	if rep.Wrapper || rep.FooterAt != 2 {
		t.Fatalf("report: %+v", rep)
	}
}

// 包装器区间为 [k+1, m)，页脚在其后单独处理。
func TestWrapperSlice(t *testing.T) {
	in := []string{
		"_____WB$wombat$assign$function_____(...)\n",
		"let opens = _____WB$wombat$assign$function_____(\"opens\");\n",
		"var x = 1;\n",
		"}\n",
		"/*\n",
		"FILE ARCHIVED ON 2020\n",
		"*/\n",
	}
	out, rep := clean(t, "a.js", in)
	if !reflect.DeepEqual(out, []string{"var x = 1;\n"}) {
		t.Fatalf("got %q", out)
	}
	if rep.WrapperStart != 2 || rep.WrapperEnd != 3 {
		t.Fatalf("report: %+v", rep)
	}
}

// 首行不含包装器标记时只做页脚移除。
func TestWrapperRequiresFirstLine(t *testing.T) {
	in := []string{
		"header\n",
		"_____WB$wombat$assign$function_____(...)\n",
		"let opens = _____WB$wombat$assign$function_____(\"opens\");\n",
		"var x = 1;\n",
		"}\n",
		"/*\n",
		"FILE ARCHIVED ON 2020\n",
		"*/\n",
	}
	out, rep := clean(t, "a.js", in)
	if !reflect.DeepEqual(out, in[:5]) {
		t.Fatalf("got %q", out)
	}
	if rep.Wrapper || rep.FooterAt != 5 {
		t.Fatalf("report: %+v", rep)
	}
}

func TestCSSSkipsWrapper(t *testing.T) {
	in := []string{
		"_____WB$wombat$assign$function_____\n",
		"let opens = _____WB$wombat$assign$function_____(\"opens\");\n",
		"a { b: c; }\n",
		"}\n",
		"/*\n",
		"FILE ARCHIVED ON 2020\n",
		"*/\n",
	}
	out, rep := clean(t, "x.css", in)
	if !reflect.DeepEqual(out, in[:4]) {
		t.Fatalf("got %q", out)
	}
	if rep.Wrapper {
		t.Fatalf("css 不应执行包装器裁剪")
	}
}

func TestNoMarkersUnchanged(t *testing.T) {
	in := []string{"var a = 1;\n", "/* comment */\n", "}\n"}
	out, rep := clean(t, "a.js", in)
	if !reflect.DeepEqual(out, in) || rep.Changed() {
		t.Fatalf("got %q %+v", out, rep)
	}
}

// 有页脚标记但其上方无 "/*"：保持不变。
func TestFooterWithoutCommentOpen(t *testing.T) {
	in := []string{"a\n", "FILE ARCHIVED ON 2020\n", "b\n"}
	out, rep := clean(t, "a.css", in)
	if !reflect.DeepEqual(out, in) || rep.FooterAt != -1 {
		t.Fatalf("got %q %+v", out, rep)
	}
}

// 标记行本身含 "/*" 时从该行截断。
func TestFooterSameLine(t *testing.T) {
	in := []string{"a\n", "/* FILE ARCHIVED ON 2020 */\n"}
	out, _ := clean(t, "a.css", in)
	if !reflect.DeepEqual(out, in[:1]) {
		t.Fatalf("got %q", out)
	}
}

// 多个页脚标记：以最后一个为准。
func TestFooterLastMarker(t *testing.T) {
	in := []string{"a\n", "// FILE ARCHIVED ON is a phrase\n", "/*\n", "FILE ARCHIVED ON 2020\n", "*/\n"}
	if got := FooterStart(in); got != 2 {
		t.Fatalf("FooterStart = %d", got)
	}
}

func TestWrapperBoundsFallbacks(t *testing.T) {
	// 无头部结束行、无页脚：不裁剪
	in := []string{WrapperMarker + "\n", "x\n", "}\n"}
	if s, e := WrapperBounds(in); s != 0 || e != 3 {
		t.Fatalf("bounds %d %d", s, e)
	}
	// 有页脚但上方无裸 "}"：end 保持全长
	in = []string{WrapperMarker + "\n", WrapperHeaderEnd + "\n", "x\n", "/*\n", "FILE ARCHIVED ON\n"}
	if s, e := WrapperBounds(in); s != 2 || e != 5 {
		t.Fatalf("bounds %d %d", s, e)
	}
	// 选择页脚上方最近的裸 "}"，不做括号配对
	in = []string{WrapperMarker + "\n", WrapperHeaderEnd + "\n", "}\n", "  }  \n", "/*\n", "FILE ARCHIVED ON\n"}
	if _, e := WrapperBounds(in); e != 3 {
		t.Fatalf("end %d", e)
	}
}

// start 越过 end 时结果为空序列。
func TestWrapperInvertedBounds(t *testing.T) {
	in := []string{
		WrapperMarker + "\n",
		"}\n",
		"/*\n",
		"FILE ARCHIVED ON\n",
		WrapperHeaderEnd + "\n",
	}
	out, rep := clean(t, "a.js", in)
	if len(out) != 0 {
		t.Fatalf("got %q", out)
	}
	if rep.WrapperStart != 5 || rep.WrapperEnd != 1 || rep.LinesOut != 0 {
		t.Fatalf("report: %+v", rep)
	}
}

func TestIdempotent(t *testing.T) {
	for _, tc := range []struct {
		id contract.FileID
		in string
	}{{"a.js", archivedJS}, {"a.css", archivedCSS}} {
		once, _ := clean(t, tc.id, split(tc.in))
		twice, rep := clean(t, tc.id, once)
		if !reflect.DeepEqual(once, twice) || rep.Changed() {
			t.Fatalf("%s not idempotent: %q vs %q", tc.id, once, twice)
		}
	}
}

func TestEmpty(t *testing.T) {
	out, rep := clean(t, "a.js", nil)
	if len(out) != 0 || rep.Changed() {
		t.Fatalf("got %q", out)
	}
}

func TestOptions(t *testing.T) {
	off := false
	c := New(&Options{Footer: &off})
	out, _, err := c.Clean(context.Background(), "a.css", split(archivedCSS))
	if err != nil || len(out) != len(split(archivedCSS)) {
		t.Fatalf("footer 关闭后不应裁剪: %v %d", err, len(out))
	}
	c = New(&Options{WrapperExts: []string{".mjs"}})
	in := []string{WrapperMarker + "\n", WrapperHeaderEnd + "\n", "x\n"}
	out, rep, _ := c.Clean(context.Background(), "a.mjs", in)
	if !rep.Wrapper || !reflect.DeepEqual(out, []string{"x\n"}) {
		t.Fatalf("自定义后缀未生效: %q", out)
	}
	c = New(&Options{Wrapper: &off})
	if _, rep, _ := c.Clean(context.Background(), "a.js", in); rep.Wrapper {
		t.Fatalf("wrapper 关闭后不应裁剪")
	}
}

func TestCleanCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := New(nil).Clean(ctx, "a.js", []string{"x\n"}); err == nil {
		t.Fatalf("expect ctx error")
	}
}
