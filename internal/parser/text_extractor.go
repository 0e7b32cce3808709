package parser

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	multiBlankLineRegex = regexp.MustCompile(`\n{3,}`)
	whitespaceRunRegex  = regexp.MustCompile(`\s+`)
)

// NormalizeText 统一换行并压缩多余空行，操作幂等
// CRLF/CR → LF，3个以上连续换行压为2个（即1个空行），首尾去空白
func NormalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = multiBlankLineRegex.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// collapsePageText 单页文本内部空白压缩为单个空格
func collapsePageText(page string) string {
	return strings.TrimSpace(whitespaceRunRegex.ReplaceAllString(page, " "))
}

// decodePlainText 按UTF-8解码纯文本内容
func decodePlainText(content []byte) (string, error) {
	if !utf8.Valid(content) {
		// 容忍非法字节，替换为替换字符而不是失败
		return strings.ToValidUTF8(string(content), string(utf8.RuneError)), nil
	}
	return string(content), nil
}

// WordSalvagePlaceholder 降级提取结果过短时返回的固定提示文本
const WordSalvagePlaceholder = "Resume content - Word document parsing requires additional libraries for full text extraction. Please upload a PDF or TXT file for best results."

// minSalvagedLength 降级提取的最小可用字符数
const minSalvagedLength = 50

// salvageWordText doc/docx的尽力而为提取：
// 保留可打印ASCII与\n\r\t，其余字节替换为空格，再压缩空白；
// 结果过短时返回占位文本而不是报错
func salvageWordText(content []byte) (string, error) {
	if content == nil {
		return "", fmt.Errorf("文件内容为空")
	}

	var sb strings.Builder
	sb.Grow(len(content))
	for _, b := range content {
		if (b >= 0x20 && b <= 0x7E) || b == '\n' || b == '\r' || b == '\t' {
			sb.WriteByte(b)
		} else {
			sb.WriteByte(' ')
		}
	}

	text := strings.TrimSpace(whitespaceRunRegex.ReplaceAllString(sb.String(), " "))
	if len(text) < minSalvagedLength {
		return WordSalvagePlaceholder, nil
	}
	return text, nil
}
