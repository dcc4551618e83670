package config

import (
	"encoding/json"
)

// Config: 运行期只读配置（一次解析，运行期不变）。
// JSON/YAML 使用 snake_case；未知字段在解析期失败。
type Config struct {
	Inputs      []string `json:"inputs"`
	Concurrency int      `json:"concurrency"`
	// 布尔项为指针：nil 表示“未覆盖”，以便 Merge 区分显式 false。
	KeepGoing  *bool   `json:"keep_going,omitempty"`
	DryRun     *bool   `json:"dry_run,omitempty"`
	PreserveCR *bool   `json:"preserve_cr,omitempty"`
	Logging    Logging `json:"logging"`

	// 组件名选择（空则使用默认名）。
	Components Components `json:"components"`

	// 各组件 Options 子树，原样 JSON 传入工厂。
	Options Options `json:"options"`
}

// Logging: 日志等级与目录；轮转策略为固定默认。
type Logging struct {
	Level string `json:"level"`
	Dir   string `json:"dir"`
}

// Components: 组件名选择（注册表中的实现名）。
type Components struct {
	Reader  string `json:"reader"`
	Cleaner string `json:"cleaner"`
	Writer  string `json:"writer"`
}

// Options: 各组件的原样 JSON Options。
type Options struct {
	Reader  json.RawMessage `json:"reader,omitempty"`
	Cleaner json.RawMessage `json:"cleaner,omitempty"`
	Writer  json.RawMessage `json:"writer,omitempty"`
}

// Bool 返回 p 的值；nil 时为 false。
func Bool(p *bool) bool { return p != nil && *p }

func boolPtr(v bool) *bool { return &v }
