package stress

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	cfgpkg "wbclean/internal/config"
	"wbclean/internal/pipeline"
)

// archivedAsset 生成带包装器与归档页脚的 JS 资源，正文 n 行。
func archivedAsset(n int) string {
	var b strings.Builder
	b.WriteString("var _____WB$wombat$assign$function_____ = function(name) { return self[name]; };\n")
	b.WriteString("{\n")
	b.WriteString("  let opens = _____WB$wombat$assign$function_____(\"opens\");\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "var v%d = %d;\n", i, i)
	}
	b.WriteString("}\n/*\n     FILE ARCHIVED ON 00:00:00 Jan 01, 2020 AND RETRIEVED FROM THE\n*/\n")
	return b.String()
}

// runPipeline 执行完整流水线。
func runPipeline(cfg cfgpkg.Config) (pipeline.Summary, error) {
	comp, set, err := cfgpkg.Assemble(cfg)
	if err != nil {
		return pipeline.Summary{}, err
	}
	return pipeline.Run(context.Background(), comp, set, nil)
}

// TestStress 在不同并发度下运行流水线并记录延迟统计。
func TestStress(t *testing.T) {
	if testing.Short() {
		t.Skip("stress skipped in -short mode")
	}
	const files = 200
	asset := archivedAsset(500)
	levels := []int{1, 4, 8, 16}
	for _, conc := range levels {
		t.Run(fmt.Sprintf("concurrency_%d", conc), func(t *testing.T) {
			const runs = 5
			successes := 0
			latencies := make([]time.Duration, 0, runs)
			for i := 0; i < runs; i++ {
				dir := t.TempDir()
				for f := 0; f < files; f++ {
					if err := os.WriteFile(filepath.Join(dir, fmt.Sprintf("a%03d.js", f)), []byte(asset), 0o644); err != nil {
						t.Fatalf("write: %v", err)
					}
				}
				cfg := cfgpkg.DefaultTemplateConfig()
				cfg.Inputs = []string{dir}
				cfg.Concurrency = conc
				start := time.Now()
				sum, err := runPipeline(cfg)
				dur := time.Since(start)
				if err != nil {
					t.Errorf("run %d: %v", i, err)
					continue
				}
				if sum.Changed != files {
					t.Errorf("run %d: changed %d of %d", i, sum.Changed, files)
					continue
				}
				successes++
				latencies = append(latencies, dur)
			}
			if successes == 0 {
				t.Fatalf("全部运行失败")
			}
			sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
			var total time.Duration
			for _, d := range latencies {
				total += d
			}
			avg := total / time.Duration(len(latencies))
			idx := int(math.Ceil(float64(len(latencies))*0.95)) - 1
			if idx < 0 {
				idx = 0
			}
			p95 := latencies[idx]
			t.Logf("并发%d 成功率%.2f 平均%v 95%%延迟%v", conc, float64(successes)/float64(runs), avg, p95)
		})
	}
}
