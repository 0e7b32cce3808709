package parser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-analyzer-go/internal/types"
)

// fakePageSource 测试用的页面文本提供者
type fakePageSource struct {
	pages []string
	err   error
	calls int
}

func (f *fakePageSource) ExtractPages(_ context.Context, _ io.Reader, _ string) ([]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.pages, nil
}

func txtFile(name, content string) *types.UploadedFile {
	return &types.UploadedFile{
		Filename:    name,
		Size:        int64(len(content)),
		ContentType: "text/plain",
		Content:     []byte(content),
	}
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, "pdf", DetectFormat("resume.PDF"), "扩展名应转为小写")
	assert.Equal(t, "docx", DetectFormat("my.resume.docx"), "应取最后一个点之后的部分")
	assert.Equal(t, "unknown", DetectFormat("noextension"), "无扩展名应返回unknown")
	assert.Equal(t, "unknown", DetectFormat("trailingdot."), "点结尾应返回unknown")
}

func TestValidateFileOrder(t *testing.T) {
	p := NewResumeParser(WithMaxFileSize(100))

	// 缺失文件优先于其他一切校验
	err := p.ValidateFile(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingFile), "空文件应返回MissingFile")

	// 大小校验先于格式校验：超大的不支持格式文件报FileTooLarge
	big := &types.UploadedFile{
		Filename: "huge.xyz",
		Size:     200,
		Content:  make([]byte, 200),
	}
	err = p.ValidateFile(big)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFileTooLarge), "超限文件应先报FileTooLarge")

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, int64(100), parseErr.Limit, "错误应携带大小上限")

	// 大小合规后才检查格式
	small := &types.UploadedFile{
		Filename: "small.xyz",
		Size:     10,
		Content:  []byte("0123456789"),
	}
	err = p.ValidateFile(small)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, "xyz", parseErr.Detected, "应报告检测到的格式token")
	assert.Equal(t, DefaultSupportedFormats, parseErr.Supported, "应携带支持的格式列表")
}

func TestExtractResumeDataPlainText(t *testing.T) {
	p := NewResumeParser()

	content := "John Smith\r\nEngineer\r\r\n\n\n\nExperience\nBuilt things"
	data, err := p.ExtractResumeData(context.Background(), txtFile("resume.txt", content))
	require.NoError(t, err)

	assert.NotContains(t, data.RawText, "\r", "CRLF与CR应统一为LF")
	assert.NotContains(t, data.RawText, "\n\n\n", "连续空行应被压缩")
	assert.Equal(t, "txt", data.Metadata.Format)
	assert.Equal(t, int64(len(content)), data.Metadata.FileSize)
	assert.Zero(t, data.Metadata.PageCount, "非PDF不应有页数")
}

func TestExtractResumeDataPDF(t *testing.T) {
	source := &fakePageSource{pages: []string{"  first\tpage  text ", "second\n page"}}
	p := NewResumeParser(WithPDFSource(source))

	file := &types.UploadedFile{
		Filename:    "resume.pdf",
		Size:        10,
		ContentType: "application/pdf",
		Content:     []byte("%PDF-fake!"),
	}
	data, err := p.ExtractResumeData(context.Background(), file)
	require.NoError(t, err)
	assert.Equal(t, 1, source.calls)

	// 页内空白压缩为单空格，页间以换行分隔且保持页序
	assert.Equal(t, "first page text\nsecond page", data.RawText)
	assert.Equal(t, 2, data.Metadata.PageCount)
	assert.Equal(t, "pdf", data.Metadata.Format)
}

func TestExtractResumeDataPDFWithoutSource(t *testing.T) {
	p := NewResumeParser() // 未配置PDF提取器

	file := &types.UploadedFile{Filename: "resume.pdf", Size: 4, Content: []byte("%PDF")}
	_, err := p.ExtractResumeData(context.Background(), file)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPdfLibraryUnavailable), "无PDF提取器时应报能力不可用")
}

func TestExtractResumeDataPDFParseFailure(t *testing.T) {
	cause := fmt.Errorf("corrupt xref table")
	p := NewResumeParser(WithPDFSource(&fakePageSource{err: cause}))

	file := &types.UploadedFile{Filename: "broken.pdf", Size: 4, Content: []byte("%PDF")}
	_, err := p.ExtractResumeData(context.Background(), file)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPdfParseFailure))
	assert.Contains(t, err.Error(), "corrupt xref table", "错误应携带底层原因")
}

func TestExtractResumeDataWordSalvage(t *testing.T) {
	p := NewResumeParser()

	// 二进制内容混合少量可打印文本，不足50字符时降级为占位文本
	garbage := append([]byte{0x00, 0x01, 0xD0, 0xCF}, []byte("short")...)
	file := &types.UploadedFile{Filename: "resume.doc", Size: int64(len(garbage)), Content: garbage}
	data, err := p.ExtractResumeData(context.Background(), file)
	require.NoError(t, err, "降级提取不应报错")
	assert.Equal(t, WordSalvagePlaceholder, data.RawText)

	// 可打印内容足够时保留
	readable := []byte("John Smith Experience at Example Corp building backend services since 2015")
	file = &types.UploadedFile{Filename: "resume.docx", Size: int64(len(readable)), Content: readable}
	data, err = p.ExtractResumeData(context.Background(), file)
	require.NoError(t, err)
	assert.Contains(t, data.RawText, "John Smith")
	assert.Equal(t, "docx", data.Metadata.Format)
}

func TestWithSupportedFormatsRestrictsAllowList(t *testing.T) {
	p := NewResumeParser(WithSupportedFormats([]string{".pdf", "TXT"}))

	err := p.ValidateFile(txtFile("resume.doc", strings.Repeat("a", 60)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedFormat), "允许列表外的格式应被拒绝")

	assert.NoError(t, p.ValidateFile(txtFile("resume.txt", "hello")), "列表内格式应通过")
}

func TestNormalizeTextIdempotent(t *testing.T) {
	input := "a\r\nb\r\r\n\n\n\nc   \n"
	once := NormalizeText(input)
	twice := NormalizeText(once)
	assert.Equal(t, once, twice, "规范化应幂等")
}
