package parser

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	einoParser "github.com/cloudwego/eino/components/document/parser"
)

// PageTextSource PDF页面文本提取接口，返回按页序排列的文本片段
type PageTextSource interface {
	ExtractPages(ctx context.Context, reader io.Reader, uri string) ([]string, error)
}

// EinoPDFPageSource 基于Eino框架的PDF页面提取器
type EinoPDFPageSource struct {
	parser *pdf.PDFParser
	logger *log.Logger
}

// EinoPDFOption Eino PDF提取器选项
type EinoPDFOption func(*EinoPDFPageSource)

// WithEinoLogger 设置日志记录器
func WithEinoLogger(logger *log.Logger) EinoPDFOption {
	return func(e *EinoPDFPageSource) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEinoPDFPageSource 创建按页提取的PDF解析器
func NewEinoPDFPageSource(ctx context.Context, opts ...EinoPDFOption) (*EinoPDFPageSource, error) {
	p, err := pdf.NewPDFParser(ctx, &pdf.Config{
		ToPages: true, // 每页一个Document，保持页序
	})
	if err != nil {
		return nil, fmt.Errorf("创建PDF解析器失败: %w", err)
	}

	source := &EinoPDFPageSource{
		parser: p,
		logger: log.New(os.Stderr, "[EinoPDF] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(source)
	}
	return source, nil
}

// ExtractPages 从PDF流中提取每页文本
func (e *EinoPDFPageSource) ExtractPages(ctx context.Context, reader io.Reader, uri string) ([]string, error) {
	startTime := time.Now()

	// 解析超时保护
	timeoutCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	docs, err := e.parser.Parse(timeoutCtx, reader,
		einoParser.WithURI(uri),
		einoParser.WithExtraMeta(map[string]any{
			"source":    "resume-upload",
			"timestamp": time.Now().Unix(),
		}),
	)
	if err != nil {
		e.logger.Printf("PDF解析失败: uri=%s error=%v", uri, err)
		return nil, fmt.Errorf("failed to parse pdf: %w", err)
	}

	pages := make([]string, 0, len(docs))
	for _, doc := range docs {
		pages = append(pages, doc.Content)
	}

	e.logger.Printf("PDF解析完成: uri=%s pages=%d duration=%v", uri, len(pages), time.Since(startTime))
	return pages, nil
}

var _ PageTextSource = (*EinoPDFPageSource)(nil)
