package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

// TikaPageSource 基于Apache Tika服务器的PDF页面提取器，
// 可作为Eino提取器的替代实现
type TikaPageSource struct {
	// Tika服务器地址，例如 http://localhost:9998
	ServerURL string
	// HTTP客户端，可配置超时等参数
	Client *http.Client
	// 是否提取链接注释文本
	extractAnnotations bool
	// 日志记录
	logger *log.Logger
}

// TikaOption 定义配置选项函数
type TikaOption func(*TikaPageSource)

// WithAnnotations 配置是否提取PDF链接注释文本
func WithAnnotations(extract bool) TikaOption {
	return func(e *TikaPageSource) {
		e.extractAnnotations = extract
	}
}

// WithTikaLogger 配置自定义日志记录器
func WithTikaLogger(logger *log.Logger) TikaOption {
	return func(e *TikaPageSource) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithTikaTimeout 配置HTTP客户端超时时间
func WithTikaTimeout(timeout time.Duration) TikaOption {
	return func(e *TikaPageSource) {
		e.Client.Timeout = timeout
	}
}

var _ PageTextSource = (*TikaPageSource)(nil)

// NewTikaPageSource 创建一个新的Tika页面提取器
func NewTikaPageSource(serverURL string, options ...TikaOption) *TikaPageSource {
	source := &TikaPageSource{
		ServerURL: serverURL,
		Client: &http.Client{
			Timeout: 60 * time.Second,
		},
		extractAnnotations: true,
		logger:             log.New(os.Stderr, "[TikaPDF] ", log.LstdFlags),
	}

	for _, option := range options {
		option(source)
	}
	return source
}

// ExtractPages 通过Tika提取PDF文本并按换页符切分为页
func (e *TikaPageSource) ExtractPages(ctx context.Context, reader io.Reader, uri string) ([]string, error) {
	startTime := time.Now()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("读取PDF内容失败: %w", err)
	}

	url := fmt.Sprintf("%s/tika", e.ServerURL)
	req, err := http.NewRequestWithContext(ctx, "PUT", url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}

	req.Header.Set("Content-Type", "application/pdf")
	req.Header.Set("Accept", "text/plain")
	if uri != "" {
		req.Header.Set("X-Tika-Resource-Name", uri)
	}
	if !e.extractAnnotations {
		req.Header.Set("X-Tika-PDFExtractAnnotationText", "false")
	}

	resp, err := e.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("发送请求到Tika服务器失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tika服务器返回错误状态码: %d", resp.StatusCode)
	}

	textBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取Tika响应失败: %w", err)
	}

	// Tika纯文本输出以换页符分隔各页
	raw := strings.Split(string(textBytes), "\f")
	pages := make([]string, 0, len(raw))
	for _, page := range raw {
		if strings.TrimSpace(page) != "" {
			pages = append(pages, page)
		}
	}

	e.logger.Printf("PDF文本提取完成: 共 %d 页 (用时 %.2f秒)", len(pages), time.Since(startTime).Seconds())
	return pages, nil
}
