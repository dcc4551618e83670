package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvPrefix 为全部环境变量覆盖项的前缀。
const EnvPrefix = "WBCLEAN_"

// DefaultFileNames 为工作目录下自动发现的配置文件名（按顺序）。
var DefaultFileNames = []string{"wbclean.json", "wbclean.yaml", "wbclean.yml"}

// Defaults 返回带有安全默认值的 Config 雏形。
func Defaults() Config {
	return Config{
		Inputs:      []string{"js", "css"},
		Concurrency: 1,
		Logging:     Logging{Level: "info", Dir: "logs"},
		Components: Components{
			Reader:  "fs",
			Cleaner: "wayback",
			Writer:  "fs",
		},
	}
}

// Discover 返回 dir 下第一个存在的默认配置文件；均不存在时返回 ""。
func Discover(dir string) string {
	for _, name := range DefaultFileNames {
		p := filepath.Join(dir, name)
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p
		}
	}
	return ""
}

// LoadJSON 从文件路径或原始 JSON 解析 Config（严格拒绝未知字段）。
func LoadJSON(path string, raw []byte) (Config, error) {
	var cfg Config
	var r io.Reader
	switch {
	case len(raw) > 0:
		r = bytes.NewReader(raw)
	case path != "":
		f, err := os.Open(path)
		if err != nil {
			return cfg, err
		}
		defer f.Close()
		r = f
	default:
		return cfg, errors.New("no config source provided")
	}
	return decodeStrict(r)
}

// LoadYAML 解析 YAML 配置：先解码为通用树，再转为 JSON 走同一严格解码。
func LoadYAML(path string, raw []byte) (Config, error) {
	if len(raw) == 0 {
		if path == "" {
			return Config{}, errors.New("no config source provided")
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		raw = b
	}
	var tree map[string]any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return Config{}, fmt.Errorf("yaml: %w", err)
	}
	if tree == nil {
		return Config{}, nil
	}
	js, err := json.Marshal(tree)
	if err != nil {
		return Config{}, fmt.Errorf("yaml: %w", err)
	}
	return decodeStrict(bytes.NewReader(js))
}

// LoadFile 按后缀选择解码器：.yaml/.yml 走 YAML，其余按 JSON。
func LoadFile(path string) (Config, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(path, nil)
	default:
		return LoadJSON(path, nil)
	}
}

func decodeStrict(r io.Reader) (Config, error) {
	var cfg Config
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Merge 按优先级合并（后者覆盖前者）。
// 仅标量/字符串/原样 JSON 为“替换”；不做深度合并。
func Merge(base, over Config) Config {
	out := base
	if len(over.Inputs) > 0 {
		out.Inputs = cloneStrings(over.Inputs)
	}
	if over.Concurrency != 0 {
		out.Concurrency = over.Concurrency
	}
	if over.KeepGoing != nil {
		out.KeepGoing = boolPtr(*over.KeepGoing)
	}
	if over.DryRun != nil {
		out.DryRun = boolPtr(*over.DryRun)
	}
	if over.PreserveCR != nil {
		out.PreserveCR = boolPtr(*over.PreserveCR)
	}
	if v := strings.TrimSpace(over.Logging.Level); v != "" {
		out.Logging.Level = v
	}
	if v := strings.TrimSpace(over.Logging.Dir); v != "" {
		out.Logging.Dir = v
	}

	// 组件名（空不覆盖）
	if over.Components.Reader != "" {
		out.Components.Reader = over.Components.Reader
	}
	if over.Components.Cleaner != "" {
		out.Components.Cleaner = over.Components.Cleaner
	}
	if over.Components.Writer != "" {
		out.Components.Writer = over.Components.Writer
	}

	// Options（完整替换对应键）
	if len(over.Options.Reader) > 0 {
		out.Options.Reader = cloneRaw(over.Options.Reader)
	}
	if len(over.Options.Cleaner) > 0 {
		out.Options.Cleaner = cloneRaw(over.Options.Cleaner)
	}
	if len(over.Options.Writer) > 0 {
		out.Options.Writer = cloneRaw(over.Options.Writer)
	}
	return out
}

// EnvOverlay 从环境变量构建一个 Config 覆盖（仅解析有限键集合）。
// 支持：INPUTS, CONCURRENCY, KEEP_GOING, DRY_RUN, PRESERVE_CR, LOG_LEVEL, LOG_DIR,
// COMPONENTS_{READER,CLEANER,WRITER}, OPTIONS_{READER,CLEANER,WRITER}_JSON。
// 空值视为未设置；数值/布尔非法时返回错误。
func EnvOverlay(environ []string) (Config, error) {
	var over Config
	for _, kv := range environ {
		if !strings.HasPrefix(kv, EnvPrefix) {
			continue
		}
		eq := strings.IndexByte(kv, '=')
		if eq <= len(EnvPrefix) {
			continue
		}
		key := kv[len(EnvPrefix):eq]
		val := strings.TrimSpace(kv[eq+1:])
		if val == "" {
			continue
		}
		switch key {
		case "INPUTS":
			over.Inputs = splitComma(val)
		case "CONCURRENCY":
			v, err := atoi(val)
			if err != nil {
				return over, fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
			}
			over.Concurrency = v
		case "KEEP_GOING", "DRY_RUN", "PRESERVE_CR":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return over, fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
			}
			switch key {
			case "KEEP_GOING":
				over.KeepGoing = boolPtr(b)
			case "DRY_RUN":
				over.DryRun = boolPtr(b)
			default:
				over.PreserveCR = boolPtr(b)
			}
		case "LOG_LEVEL":
			over.Logging.Level = val
		case "LOG_DIR":
			over.Logging.Dir = val
		case "COMPONENTS_READER":
			over.Components.Reader = val
		case "COMPONENTS_CLEANER":
			over.Components.Cleaner = val
		case "COMPONENTS_WRITER":
			over.Components.Writer = val
		case "OPTIONS_READER_JSON":
			over.Options.Reader = json.RawMessage(val)
		case "OPTIONS_CLEANER_JSON":
			over.Options.Cleaner = json.RawMessage(val)
		case "OPTIONS_WRITER_JSON":
			over.Options.Writer = json.RawMessage(val)
		default:
			// CONFIG_FILE / CONFIG_JSON 由 CLI 读取；其余未知键忽略。
		}
	}
	return over, nil
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneRaw(in json.RawMessage) json.RawMessage {
	if len(in) == 0 {
		return nil
	}
	out := make([]byte, len(in))
	copy(out, in)
	return out
}

func splitComma(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func atoi(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}
