package json

import (
	"fmt"
	"io"

	"github.com/bytedance/sonic"
)

// 响应体最大读取长度
const maxBodySize = 16 << 20

// API 全局 sonic 配置：数字解码为 json.Number，不排序 map 键
var API = sonic.Config{
	UseNumber:   true,
	EscapeHTML:  true,
	SortMapKeys: false,
}.Froze()

// Marshal 使用sonic序列化对象到JSON
func Marshal(v interface{}) ([]byte, error) {
	return API.Marshal(v)
}

// Unmarshal 使用sonic反序列化JSON到对象
func Unmarshal(data []byte, v interface{}) error {
	return API.Unmarshal(data, v)
}

// MarshalIndent 序列化对象到格式化的JSON
func MarshalIndent(v interface{}, prefix, indent string) ([]byte, error) {
	return API.MarshalIndent(v, prefix, indent)
}

// DecodeReader 读取 r 的全部内容并反序列化到 v
func DecodeReader(r io.Reader, v interface{}) error {
	data, err := io.ReadAll(io.LimitReader(r, maxBodySize))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if err := API.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}
