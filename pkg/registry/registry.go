package registry

import (
	"bytes"
	"encoding/json"

	"wbclean/pkg/contract"
	"wbclean/plugins/cleaner/wayback"
	rfs "wbclean/plugins/reader/filesystem"
	wfs "wbclean/plugins/writer/filesystem"
)

// strictUnmarshal: 使用 DisallowUnknownFields 严格解码，拒绝未知字段。
func strictUnmarshal(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		// 保持零值（默认选项）
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// NewReader 工厂签名：接收原样 JSON Options。
type NewReader func(raw json.RawMessage) (contract.Reader, error)

// NewCleaner 工厂签名：接收原样 JSON Options。
type NewCleaner func(raw json.RawMessage) (contract.Cleaner, error)

// NewWriter 工厂签名：接收原样 JSON Options。
type NewWriter func(raw json.RawMessage) (contract.Writer, error)

// Reader 工厂注册表（显式、零反射）。
var Reader = map[string]NewReader{
	// fs: 按后缀扫描目录的文件系统 Reader
	"fs": func(raw json.RawMessage) (contract.Reader, error) {
		var opts rfs.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return rfs.New(&opts), nil
	},
}

// Cleaner 工厂注册表。
var Cleaner = map[string]NewCleaner{
	// wayback: 去除 Wayback 包装器与归档页脚
	"wayback": func(raw json.RawMessage) (contract.Cleaner, error) {
		var opts wayback.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return wayback.New(&opts), nil
	},
}

// Writer 工厂注册表。
var Writer = map[string]NewWriter{
	// fs: 文件系统 Writer（原地/输出目录；覆盖写/原子替换可配置）
	"fs": func(raw json.RawMessage) (contract.Writer, error) {
		var opts wfs.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return wfs.New(&opts)
	},
}
