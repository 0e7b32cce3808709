package parser

import (
	"bytes"
	"context"
	"log"
	"os"
	"strings"
	"time"

	"resume-analyzer-go/internal/types"
)

const (
	// DefaultMaxFileSize 默认文件大小上限 10MB
	DefaultMaxFileSize = 10 * 1024 * 1024

	// FormatPDF PDF格式
	FormatPDF = "pdf"
	// FormatDOC 旧版Word格式
	FormatDOC = "doc"
	// FormatDOCX 新版Word格式
	FormatDOCX = "docx"
	// FormatTXT 纯文本格式
	FormatTXT = "txt"
)

// DefaultSupportedFormats 默认支持的简历格式，按校验顺序排列
var DefaultSupportedFormats = []string{FormatPDF, FormatDOC, FormatDOCX, FormatTXT}

// ResumeParser 简历解析器，按文件扩展名分派到对应的提取策略
type ResumeParser struct {
	pdfSource        PageTextSource
	maxFileSize      int64
	supportedFormats []string
	logger           *log.Logger
}

// ResumeParserOption 解析器配置选项
type ResumeParserOption func(*ResumeParser)

// WithPDFSource 设置PDF页面文本提取器，nil表示PDF能力不可用
func WithPDFSource(source PageTextSource) ResumeParserOption {
	return func(p *ResumeParser) {
		p.pdfSource = source
	}
}

// WithMaxFileSize 设置文件大小上限（字节）
func WithMaxFileSize(limit int64) ResumeParserOption {
	return func(p *ResumeParser) {
		if limit > 0 {
			p.maxFileSize = limit
		}
	}
}

// WithSupportedFormats 设置允许的格式列表
func WithSupportedFormats(formats []string) ResumeParserOption {
	return func(p *ResumeParser) {
		if len(formats) > 0 {
			normalized := make([]string, 0, len(formats))
			for _, f := range formats {
				normalized = append(normalized, strings.ToLower(strings.TrimPrefix(f, ".")))
			}
			p.supportedFormats = normalized
		}
	}
}

// WithParserLogger 设置日志记录器
func WithParserLogger(logger *log.Logger) ResumeParserOption {
	return func(p *ResumeParser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewResumeParser 创建简历解析器
func NewResumeParser(opts ...ResumeParserOption) *ResumeParser {
	p := &ResumeParser{
		maxFileSize:      DefaultMaxFileSize,
		supportedFormats: DefaultSupportedFormats,
		logger:           log.New(os.Stderr, "[ResumeParser] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// DetectFormat 从文件名识别格式token：最后一个点之后的部分转小写，无扩展名返回"unknown"
func DetectFormat(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 || idx == len(filename)-1 {
		return "unknown"
	}
	return strings.ToLower(filename[idx+1:])
}

// isSupported 判断格式是否在允许列表内
func (p *ResumeParser) isSupported(format string) bool {
	for _, f := range p.supportedFormats {
		if f == format {
			return true
		}
	}
	return false
}

// ValidateFile 校验上传文件，顺序为：存在性 → 大小 → 格式，第一个失败即返回
func (p *ResumeParser) ValidateFile(file *types.UploadedFile) error {
	if file == nil || (len(file.Content) == 0 && file.Size == 0 && file.Filename == "") {
		return NewMissingFileError()
	}

	// 大小校验在读取内容之前，以声明大小与实际内容取较大者
	size := file.Size
	if int64(len(file.Content)) > size {
		size = int64(len(file.Content))
	}
	if size > p.maxFileSize {
		return NewFileTooLargeError(file.Filename, p.maxFileSize)
	}

	format := DetectFormat(file.Filename)
	if !p.isSupported(format) {
		return NewUnsupportedFormatError(file.Filename, format, p.supportedFormats)
	}
	return nil
}

// ExtractResumeData 解析入口：校验后按格式分派提取，再做字段与章节抽取
func (p *ResumeParser) ExtractResumeData(ctx context.Context, file *types.UploadedFile) (*types.ResumeData, error) {
	startTime := time.Now()

	if err := p.ValidateFile(file); err != nil {
		return nil, err
	}

	format := DetectFormat(file.Filename)

	var (
		rawText   string
		pageCount int
		err       error
	)

	switch format {
	case FormatPDF:
		rawText, pageCount, err = p.extractPDF(ctx, file)
	case FormatDOC, FormatDOCX:
		rawText, err = p.extractWord(ctx, file)
	case FormatTXT:
		rawText, err = p.extractPlainText(file)
	default:
		// 已通过格式校验但允许列表外扩展的格式没有策略
		return nil, NewUnsupportedFormatError(file.Filename, format, p.supportedFormats)
	}
	if err != nil {
		return nil, err
	}

	data := ExtractFields(rawText)
	data.Metadata = types.ResumeMetadata{
		Format:   format,
		FileSize: file.Size,
	}
	if format == FormatPDF {
		data.Metadata.PageCount = pageCount
	}

	p.logger.Printf("简历解析完成: file=%s format=%s chars=%d duration=%v",
		file.Filename, format, len(data.RawText), time.Since(startTime))

	return data, nil
}

// extractPDF 通过PageTextSource提取PDF文本，拼接各页内容
func (p *ResumeParser) extractPDF(ctx context.Context, file *types.UploadedFile) (string, int, error) {
	if p.pdfSource == nil {
		return "", 0, NewPdfLibraryUnavailableError(file.Filename)
	}

	pages, err := p.pdfSource.ExtractPages(ctx, bytes.NewReader(file.Content), file.Filename)
	if err != nil {
		return "", 0, NewPdfParseError(file.Filename, err)
	}

	var sb strings.Builder
	for _, page := range pages {
		sb.WriteString(collapsePageText(page))
		sb.WriteString("\n")
	}
	return NormalizeText(sb.String()), len(pages), nil
}

// extractPlainText 纯文本格式直接规范化
func (p *ResumeParser) extractPlainText(file *types.UploadedFile) (string, error) {
	text, err := decodePlainText(file.Content)
	if err != nil {
		return "", NewReadError(file.Filename, FormatTXT, err)
	}
	return NormalizeText(text), nil
}

// extractWord doc/docx走降级提取路径
func (p *ResumeParser) extractWord(_ context.Context, file *types.UploadedFile) (string, error) {
	text, err := salvageWordText(file.Content)
	if err != nil {
		format := DetectFormat(file.Filename)
		return "", NewReadError(file.Filename, format, err)
	}
	return text, nil
}
