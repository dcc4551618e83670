package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	cfgpkg "wbclean/internal/config"
	"wbclean/internal/diag"
	"wbclean/internal/pipeline"
)

var pipelineRun = pipeline.Run

// wbclean [flags] [roots...]
// 位置参数为 roots（目录或文件）；缺省为 ./js 与 ./css。文件原地改写。
func main() {
	os.Exit(run())
}

func run() int {
	start := time.Now()
	corrID := uuid.NewString()
	// 在任何 ENV 读取前，尝试加载工作目录下的 .env（不覆盖已有 ENV）。
	_ = loadDotEnv(".env")
	// 先用默认级别占位，合并配置后按最终 level/dir 重建
	logger := diag.NewLogger(corrID, "info", "")
	defer func() { _ = logger.Close() }()

	var (
		flagConfig      string
		flagConcurrency int
		flagKeepGoing   bool
		flagDryRun      bool
		flagPreserveCR  bool
		flagLogLevel    string
		flagInitDir     string
		flagStatus      bool
	)
	flag.StringVar(&flagConfig, "config", "", "配置文件路径（JSON/YAML）；缺省读取 ./wbclean.json 或 ./wbclean.yaml（若存在）")
	flag.IntVar(&flagConcurrency, "concurrency", 0, "并发文件数（覆盖配置；1 为严格顺序）")
	flag.BoolVar(&flagKeepGoing, "keep-going", false, "单文件失败时继续处理其余文件")
	flag.BoolVar(&flagDryRun, "dry-run", false, "只报告将发生的变更，不写回")
	flag.BoolVar(&flagPreserveCR, "preserve-cr", false, "保留 \\r（默认按通用换行归一）")
	flag.StringVar(&flagLogLevel, "log-level", "", "日志级别 debug|info|warn|error（覆盖配置）")
	flag.StringVar(&flagInitDir, "init-config", "", "在指定目录生成默认配置 wbclean.json 和 .env 模板（若已存在则跳过，不覆盖）；不带值时默认当前目录")
	flag.BoolVar(&flagStatus, "status", true, "终端状态提示（stderr）。TTY 动态刷新；非 TTY 逐行输出")
	normalizeInitArg()
	flag.Parse()

	roots := flag.Args()
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	// --init-config: 生成模板并退出
	if initDir := strings.TrimSpace(flagInitDir); initDir != "" {
		if err := os.MkdirAll(initDir, 0o755); err != nil {
			fprintf(os.Stderr, "生成默认配置失败: %v\n", err)
			logger.Error("config", string(diag.Classify(err)), "init-config", &start)
			return 3
		}
		cfgPath := filepath.Join(initDir, "wbclean.json")
		if err := writeConfig(cfgPath, cfgpkg.DefaultTemplateConfig()); err != nil {
			fprintf(os.Stderr, "生成默认配置失败: %v\n", err)
			logger.Error("config", string(diag.Classify(err)), "init-config", &start)
			return 3
		}
		if err := writeDotEnv(filepath.Join(initDir, ".env")); err != nil {
			fprintf(os.Stderr, "提示：.env 生成失败（已跳过）：%v\n", err)
		}
		return 0
	}

	// 配置文件（--config / WBCLEAN_CONFIG_FILE / 工作目录自动发现）或内联 JSON
	var cfgJSON []byte
	if s := os.Getenv(cfgpkg.EnvPrefix + "CONFIG_JSON"); s != "" {
		cfgJSON = []byte(s)
	}
	if flagConfig == "" {
		flagConfig = os.Getenv(cfgpkg.EnvPrefix + "CONFIG_FILE")
	}
	if flagConfig == "" && len(cfgJSON) == 0 {
		flagConfig = cfgpkg.Discover(".")
	}

	cfg := cfgpkg.Defaults()
	if flagConfig != "" || len(cfgJSON) > 0 {
		var base cfgpkg.Config
		var err error
		if len(cfgJSON) > 0 {
			base, err = cfgpkg.LoadJSON("", cfgJSON)
		} else {
			base, err = cfgpkg.LoadFile(flagConfig)
		}
		if err != nil {
			fprintf(os.Stderr, "配置解析失败: %v\n", err)
			logger.Error("config", string(diag.Classify(err)), "load", &start)
			return 3
		}
		cfg = cfgpkg.Merge(cfg, base)
	}

	overEnv, err := cfgpkg.EnvOverlay(os.Environ())
	if err != nil {
		fprintf(os.Stderr, "环境变量解析失败: %v\n", err)
		logger.Error("config", string(diag.Classify(err)), "env", &start)
		return 3
	}
	cfg = cfgpkg.Merge(cfg, overEnv)

	// CLI 覆盖：布尔旗标仅在显式给出时生效
	var overCLI cfgpkg.Config
	if flagConcurrency != 0 {
		overCLI.Concurrency = flagConcurrency
	}
	if set["keep-going"] {
		overCLI.KeepGoing = &flagKeepGoing
	}
	if set["dry-run"] {
		overCLI.DryRun = &flagDryRun
	}
	if set["preserve-cr"] {
		overCLI.PreserveCR = &flagPreserveCR
	}
	overCLI.Logging.Level = flagLogLevel
	if len(roots) > 0 {
		overCLI.Inputs = roots
	}
	cfg = cfgpkg.Merge(cfg, overCLI)

	if err := cfgpkg.Validate(cfg); err != nil {
		fprintf(os.Stderr, "配置校验失败: %v\n", err)
		_ = dumpConfig(cfg)
		logger.Error("config", string(diag.Classify(err)), "validate", &start)
		return 3
	}

	_ = logger.Close()
	logger = diag.NewLogger(corrID, cfg.Logging.Level, cfg.Logging.Dir)

	if err := preflightCheckOutputDir(cfg); err != nil {
		fprintf(os.Stderr, "输出目录不可写或无法创建: %v\n", err)
		logger.Error("writer", string(diag.Classify(err)), "preflight", &start)
		return 3
	}

	comp, pset, err := cfgpkg.Assemble(cfg)
	if err != nil {
		fprintf(os.Stderr, "装配失败: %v\n", err)
		logger.Error("config", string(diag.Classify(err)), "assemble", &start)
		return 3
	}

	term := diag.NewTerminal(os.Stderr, flagStatus)
	diag.SetTerminal(term)
	defer diag.SetTerminal(nil)
	term.RunStart(pset.Concurrency, pset.DryRun)

	logger.DebugWith("config", "effective", "", map[string]string{
		"inputs":      strings.Join(cfg.Inputs, ","),
		"concurrency": fmt.Sprintf("%d", pset.Concurrency),
		"keep_going":  fmt.Sprintf("%t", pset.KeepGoing),
		"dry_run":     fmt.Sprintf("%t", pset.DryRun),
		"preserve_cr": fmt.Sprintf("%t", pset.PreserveCR),
		"reader":      cfg.Components.Reader,
		"cleaner":     cfg.Components.Cleaner,
		"writer":      cfg.Components.Writer,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	t := logger.Start("pipeline", "run")
	sum, err := pipelineRun(ctx, comp, pset, logger)
	if err != nil {
		code := diag.Classify(err)
		logger.Error("pipeline", string(code), err.Error(), &start)
		diag.CountError("pipeline", code)
		if !errors.Is(err, context.Canceled) {
			fprintf(os.Stderr, "运行失败: %v\n", err)
		}
		term.RunFinish(false, time.Since(start))
		return 1
	}
	t.Finish("run", int64(sum.Files))
	logger.InfoWithKV("pipeline", "summary", "", map[string]string{
		"files":   fmt.Sprintf("%d", sum.Files),
		"changed": fmt.Sprintf("%d", sum.Changed),
		"skipped": fmt.Sprintf("%d", sum.Skipped),
		"failed":  fmt.Sprintf("%d", sum.Failed),
	})
	diag.ObserveDuration("pipeline", "finish", time.Since(start).Milliseconds())
	if sum.Failed > 0 {
		diag.IncOp("pipeline", "finish", "partial")
		term.RunFinish(false, time.Since(start))
		return 1
	}
	diag.IncOp("pipeline", "finish", "success")
	term.RunFinish(true, time.Since(start))
	return 0
}

func fprintf(w *os.File, format string, a ...any) { _, _ = fmt.Fprintf(w, format, a...) }

func dumpConfig(c cfgpkg.Config) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	_, _ = os.Stderr.Write(append([]byte("有效配置:\n"), b...))
	_, _ = os.Stderr.Write([]byte("\n"))
	return nil
}

// writeConfig 写出 JSON 配置；path 为 "-" 时写到 stdout。已存在的文件不覆盖。
func writeConfig(path string, c cfgpkg.Config) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	if path == "-" {
		_, err = os.Stdout.Write(b)
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// loadDotEnv 读取简单的 .env 文件并注入进程环境。
// 跳过空行与 # 注释；支持 "export " 前缀；成对引号去除，双引号内处理 \n \t \r \" \\。
// 不覆盖已存在的环境变量；文件不存在时返回 nil。
func loadDotEnv(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		eq := strings.IndexByte(line, '=')
		if eq <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:eq])
		val := unquote(strings.TrimSpace(line[eq+1:]))
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		_ = os.Setenv(key, val)
	}
	return s.Err()
}

func unquote(val string) string {
	if len(val) < 2 {
		return val
	}
	q := val[0]
	if (q != '\'' && q != '"') || val[len(val)-1] != q {
		return val
	}
	val = val[1 : len(val)-1]
	if q == '"' {
		val = strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\r`, "\r", `\"`, `"`, `\\`, `\`).Replace(val)
	}
	return val
}

// normalizeInitArg: --init-config 未带值（位于末尾或后随其他开关）时补 "."。
func normalizeInitArg() {
	args := os.Args
	if len(args) <= 1 {
		return
	}
	out := make([]string, 0, len(args)+1)
	out = append(out, args[0])
	for i := 1; i < len(args); i++ {
		a := args[i]
		out = append(out, a)
		if a == "--init-config" || a == "-init-config" {
			if i == len(args)-1 || strings.HasPrefix(args[i+1], "-") {
				out = append(out, ".")
			}
		}
	}
	os.Args = out
}

// writeDotEnv 生成 .env 模板；文件已存在时跳过。
func writeDotEnv(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return err
	}
	if _, err := f.WriteString(cfgpkg.DotEnvTemplate()); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// preflightCheckOutputDir: fs writer 配置了 output_dir 时，启动前检查其可写性。
// 原地模式（output_dir 为空）与其他 writer 跳过。
func preflightCheckOutputDir(cfg cfgpkg.Config) error {
	writerName := strings.TrimSpace(cfg.Components.Writer)
	if writerName == "" {
		writerName = cfgpkg.Defaults().Components.Writer
	}
	if writerName != "fs" || cfgpkg.Bool(cfg.DryRun) {
		return nil
	}
	var wopts struct {
		OutputDir string `json:"output_dir"`
	}
	if len(cfg.Options.Writer) > 0 {
		_ = json.Unmarshal(cfg.Options.Writer, &wopts)
	}
	dir := strings.TrimSpace(wopts.OutputDir)
	if dir == "" {
		return nil
	}
	if st, err := os.Stat(dir); err == nil {
		if !st.IsDir() {
			return fmt.Errorf("路径存在但不是目录: %s", dir)
		}
		f, err := os.CreateTemp(dir, ".wcheck-*")
		if err != nil {
			return err
		}
		name := f.Name()
		_ = f.Close()
		_ = os.Remove(name)
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	// 目录不存在：检查父目录可写性
	parent := filepath.Dir(dir)
	if parent == dir {
		return fmt.Errorf("无法确定父目录: %s", dir)
	}
	pst, err := os.Stat(parent)
	if err != nil {
		return err
	}
	if !pst.IsDir() {
		return fmt.Errorf("父路径不是目录: %s", parent)
	}
	tmpd, err := os.MkdirTemp(parent, ".wcheck-*")
	if err != nil {
		return err
	}
	_ = os.RemoveAll(tmpd)
	return nil
}
