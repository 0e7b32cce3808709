package parser

import (
	"errors"
	"fmt"
	"strings"
)

// 定义基础错误类型
var (
	ErrMissingFile           = errors.New("未提供简历文件")
	ErrFileTooLarge          = errors.New("简历文件超过大小限制")
	ErrUnsupportedFormat     = errors.New("不支持的简历文件格式")
	ErrPdfLibraryUnavailable = errors.New("PDF解析能力不可用")
	ErrPdfParseFailure       = errors.New("PDF解析失败")
	ErrReadFailure           = errors.New("读取简历文件失败")
)

// ParseError 包含详细错误信息的自定义错误
type ParseError struct {
	Op       string   // 出错的操作，如 validate / extract
	Filename string   // 相关文件名
	BaseErr  error    // 基础错误类型
	Detail   string   // 补充说明
	Limit    int64    // FileTooLarge时的大小上限（字节）
	Detected string   // UnsupportedFormat时检测到的扩展名token
	Supported []string // UnsupportedFormat时支持的格式列表
	Format   string   // ReadFailure时所处的格式分支
}

func (e *ParseError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (操作:%s, 文件:%s): %s", e.BaseErr, e.Op, e.Filename, e.Detail)
	}
	return fmt.Sprintf("%s (操作:%s, 文件:%s)", e.BaseErr, e.Op, e.Filename)
}

func (e *ParseError) Unwrap() error {
	return e.BaseErr
}

// Is 实现 errors.Is 接口以支持错误比较
func (e *ParseError) Is(target error) bool {
	return errors.Is(e.BaseErr, target)
}

// 错误构造函数

func NewMissingFileError() error {
	return &ParseError{
		Op:      "validate",
		BaseErr: ErrMissingFile,
	}
}

func NewFileTooLargeError(filename string, limit int64) error {
	return &ParseError{
		Op:       "validate",
		Filename: filename,
		BaseErr:  ErrFileTooLarge,
		Detail:   fmt.Sprintf("上限 %dMB", limit/(1024*1024)),
		Limit:    limit,
	}
}

func NewUnsupportedFormatError(filename, detected string, supported []string) error {
	return &ParseError{
		Op:        "validate",
		Filename:  filename,
		BaseErr:   ErrUnsupportedFormat,
		Detail:    fmt.Sprintf("检测到 %q, 支持: %s", detected, strings.Join(supported, ", ")),
		Detected:  detected,
		Supported: supported,
	}
}

func NewPdfLibraryUnavailableError(filename string) error {
	return &ParseError{
		Op:       "extract",
		Filename: filename,
		BaseErr:  ErrPdfLibraryUnavailable,
	}
}

func NewPdfParseError(filename string, cause error) error {
	return &ParseError{
		Op:       "extract",
		Filename: filename,
		BaseErr:  ErrPdfParseFailure,
		Detail:   cause.Error(),
	}
}

func NewReadError(filename, format string, cause error) error {
	return &ParseError{
		Op:       "extract",
		Filename: filename,
		BaseErr:  ErrReadFailure,
		Detail:   cause.Error(),
		Format:   format,
	}
}
