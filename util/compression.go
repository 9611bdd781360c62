package util

import (
	"bytes"
	"compress/gzip"
	"strings"

	"github.com/gin-gonic/gin"
)

// bufferedWriter 先把响应体写入缓冲区，处理完成后再决定是否压缩
type bufferedWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *bufferedWriter) Write(b []byte) (int, error) {
	return w.body.Write(b)
}

func (w *bufferedWriter) WriteString(s string) (int, error) {
	return w.body.WriteString(s)
}

// GzipMiddleware 返回一个Gin中间件，响应体不小于 minSize 字节且客户端支持时用 gzip 压缩
func GzipMiddleware(minSize int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !strings.Contains(c.GetHeader("Accept-Encoding"), "gzip") {
			c.Next()
			return
		}

		original := c.Writer
		buffered := &bufferedWriter{ResponseWriter: original, body: &bytes.Buffer{}}
		c.Writer = buffered
		c.Next()
		c.Writer = original

		data := buffered.body.Bytes()
		if len(data) < minSize {
			_, _ = original.Write(data)
			return
		}

		original.Header().Set("Content-Encoding", "gzip")
		original.Header().Add("Vary", "Accept-Encoding")
		original.Header().Del("Content-Length")

		gz, err := gzip.NewWriterLevel(original, gzip.BestSpeed)
		if err != nil {
			_, _ = original.Write(data)
			return
		}
		defer gz.Close()

		_, _ = gz.Write(data)
	}
}
