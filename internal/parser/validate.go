package parser

import (
	"regexp"
	"strings"

	"resume-analyzer-go/internal/types"
)

var (
	validEmailRegex    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	validPhoneRegex    = regexp.MustCompile(`^\d{3}[-.]?\d{3}[-.]?\d{4}$`)
	validNameRegex     = regexp.MustCompile(`^[a-zA-Z\s\-'\.]{2,50}$`)
	validURLRegex      = regexp.MustCompile(`^https?://.+`)
	validLinkedInRegex = regexp.MustCompile(`^https?://(www\.)?linkedin\.com/in/.+`)

	jsProtocolRegex   = regexp.MustCompile(`(?i)javascript:`)
	eventHandlerRegex = regexp.MustCompile(`(?i)on\w+=`)
)

// 各格式允许的MIME类型
var formatMIMETypes = map[string]string{
	FormatPDF:  "application/pdf",
	FormatDOC:  "application/msword",
	FormatDOCX: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	FormatTXT:  "text/plain",
}

const (
	maxEmailLength   = 254
	minRawTextLength = 50
	maxRawTextLength = 50000

	// validateExtractedData的质量阈值
	minExperienceChars = 50
	minEducationChars  = 20
	minResumeChars     = 100
	condenseThreshold  = 10000
)

// ValidateEmail 邮箱校验：必填、格式、长度上限254
func ValidateEmail(email string) error {
	if email == "" {
		return newFieldError("email", "邮箱不能为空")
	}
	if !validEmailRegex.MatchString(email) {
		return newFieldError("email", "邮箱格式无效")
	}
	if len(email) > maxEmailLength {
		return newFieldError("email", "邮箱过长")
	}
	return nil
}

// ValidatePhone 电话校验，空值视为合法（可选字段）
func ValidatePhone(phone string) error {
	if phone == "" {
		return nil
	}
	clean := strings.Join(strings.Fields(phone), "")
	if !validPhoneRegex.MatchString(clean) {
		return newFieldError("phone", "电话格式无效，示例: 555-123-4567")
	}
	return nil
}

// ValidateName 姓名校验：2-50字符，仅字母/空格/连字符/撇号/点
func ValidateName(name string) error {
	clean := strings.TrimSpace(name)
	if clean == "" {
		return newFieldError("name", "姓名不能为空")
	}
	if len(clean) < 2 {
		return newFieldError("name", "姓名至少2个字符")
	}
	if len(clean) > 50 {
		return newFieldError("name", "姓名不能超过50个字符")
	}
	if !validNameRegex.MatchString(clean) {
		return newFieldError("name", "姓名仅允许字母、空格、连字符与撇号")
	}
	return nil
}

// ValidateLinkedInURL LinkedIn链接校验，空值视为合法
func ValidateLinkedInURL(url string) error {
	if url == "" {
		return nil
	}
	if !validURLRegex.MatchString(url) {
		return newFieldError("linkedin", "URL格式无效")
	}
	if !validLinkedInRegex.MatchString(url) {
		return newFieldError("linkedin", "LinkedIn链接格式无效，示例: https://linkedin.com/in/username")
	}
	return nil
}

// ValidateMIMEType 校验声明的MIME类型与格式是否匹配
func ValidateMIMEType(format, contentType string) bool {
	expected, ok := formatMIMETypes[format]
	if !ok {
		return false
	}
	return contentType == expected
}

// fieldError 字段级校验错误
type fieldError struct {
	Field  string
	Reason string
}

func (e *fieldError) Error() string {
	return e.Field + ": " + e.Reason
}

func newFieldError(field, reason string) error {
	return &fieldError{Field: field, Reason: reason}
}

// ValidateResumeData 解析结果的结构性校验：
// 正文长度50-50000字符，且至少识别出一个章节
func ValidateResumeData(data *types.ResumeData) types.ValidationResult {
	result := types.ValidationResult{IsValid: true, Warnings: []string{}, Errors: []string{}}

	if data == nil {
		result.IsValid = false
		result.Errors = append(result.Errors, "简历数据为空")
		return result
	}

	switch {
	case data.RawText == "":
		result.Errors = append(result.Errors, "简历正文不能为空")
	case len(data.RawText) < minRawTextLength:
		result.Errors = append(result.Errors, "简历正文过短（至少50字符）")
	case len(data.RawText) > maxRawTextLength:
		result.Errors = append(result.Errors, "简历正文过长（最多50000字符）")
	}

	hasSection := false
	for _, s := range data.Sections {
		if s.Present {
			hasSection = true
			break
		}
	}
	if !hasSection {
		result.Errors = append(result.Errors, "简历至少需要一个可识别章节")
	}

	// 个人信息字段仅在非空时校验
	if data.PersonalInfo.Name != "" {
		if err := ValidateName(data.PersonalInfo.Name); err != nil {
			result.Errors = append(result.Errors, err.Error())
		}
	}
	if data.PersonalInfo.Email != "" {
		if err := ValidateEmail(data.PersonalInfo.Email); err != nil {
			result.Errors = append(result.Errors, err.Error())
		}
	}
	if data.PersonalInfo.Phone != "" {
		if err := ValidatePhone(data.PersonalInfo.Phone); err != nil {
			result.Errors = append(result.Errors, err.Error())
		}
	}

	result.IsValid = len(result.Errors) == 0
	return result
}

// ValidateExtractedData 提取质量评估：warnings不阻断流程，errors表示不可用
func ValidateExtractedData(data *types.ResumeData) types.ValidationResult {
	result := types.ValidationResult{IsValid: true, Warnings: []string{}, Errors: []string{}}
	if data == nil {
		result.IsValid = false
		result.Errors = append(result.Errors, "简历数据为空")
		return result
	}

	if data.PersonalInfo.Name == "" {
		result.Warnings = append(result.Warnings, "未检测到姓名")
	}
	if data.PersonalInfo.Email == "" {
		result.Warnings = append(result.Warnings, "未检测到邮箱")
	}
	if len(data.ExperienceText) < minExperienceChars {
		result.Warnings = append(result.Warnings, "工作经历章节缺失或过短")
	}
	if len(data.EducationText) < minEducationChars {
		result.Warnings = append(result.Warnings, "教育经历章节缺失或过短")
	}

	if len(data.RawText) < minResumeChars {
		result.Errors = append(result.Errors, "简历文本过短")
		result.IsValid = false
	}
	if len(data.RawText) > condenseThreshold {
		result.Warnings = append(result.Warnings, "简历偏长，建议压缩到1-2页")
	}
	return result
}

// SanitizeInput 清理用户输入中的潜在注入内容
func SanitizeInput(input string) string {
	s := strings.TrimSpace(input)
	s = strings.ReplaceAll(s, "<", "")
	s = strings.ReplaceAll(s, ">", "")
	s = jsProtocolRegex.ReplaceAllString(s, "")
	s = eventHandlerRegex.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, `"`, "&quot;")
	s = strings.ReplaceAll(s, "'", "&#x27;")
	return s
}
