package config

import "encoding/json"

// DefaultTemplateConfig 返回一个“可运行”的默认配置模板：
// 输入为 ./js 与 ./css，原地改写；选项列出全部键并给出中性默认值。
func DefaultTemplateConfig() Config {
	d := Defaults()
	cfg := Config{
		Inputs:      cloneStrings(d.Inputs),
		Concurrency: d.Concurrency,
		KeepGoing:   boolPtr(false),
		DryRun:      boolPtr(false),
		PreserveCR:  boolPtr(false),
		Logging:     d.Logging,
		Components:  d.Components,
	}
	cfg.Options.Reader = json.RawMessage(`{
  "buf_size": 65536,
  "exts": [".js", ".css"],
  "recursive": false,
  "skip_missing": true,
  "exclude_dir_names": [".git", "node_modules"]
}`)
	cfg.Options.Cleaner = json.RawMessage(`{
  "wrapper": true,
  "footer": true,
  "wrapper_exts": [".js"]
}`)
	// output_dir 为空表示原地改写
	cfg.Options.Writer = json.RawMessage(`{
  "output_dir": "",
  "atomic": true,
  "flat": true,
  "buf_size": 65536
}`)
	return cfg
}

// DotEnvTemplate 返回 .env 模板内容（全部受支持的覆盖项，值为空）。
func DotEnvTemplate() string {
	return `# wbclean .env 模板（由 --init-config 生成）
# 优先级：CLI > ENV(.env) > 配置文件 > 默认值
# 空值表示未设置。

# 配置来源（可二选一）
WBCLEAN_CONFIG_FILE=
WBCLEAN_CONFIG_JSON=

# 运行参数覆盖
WBCLEAN_INPUTS=
WBCLEAN_CONCURRENCY=
WBCLEAN_KEEP_GOING=
WBCLEAN_DRY_RUN=
WBCLEAN_PRESERVE_CR=
WBCLEAN_LOG_LEVEL=
WBCLEAN_LOG_DIR=

# 组件选择
WBCLEAN_COMPONENTS_READER=
WBCLEAN_COMPONENTS_CLEANER=
WBCLEAN_COMPONENTS_WRITER=

# 组件 Options（原样 JSON，整体替换）
WBCLEAN_OPTIONS_READER_JSON=
WBCLEAN_OPTIONS_CLEANER_JSON=
WBCLEAN_OPTIONS_WRITER_JSON=
`
}
