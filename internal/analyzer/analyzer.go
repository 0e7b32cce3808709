package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cloudwego/eino/components/model"
	einoschema "github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"resume-analyzer-go/internal/types"
)

// ResumeAnalyzer 基于LLM的简历ATS评估器。
// 模型未配置或调用失败时降级为规则推算
type ResumeAnalyzer struct {
	llmModel       model.ToolCallingChatModel
	promptTemplate string
	logger         *log.Logger
}

// ResumeAnalyzerOption 评估器配置选项
type ResumeAnalyzerOption func(*ResumeAnalyzer)

// WithCustomPromptTemplate 使用自定义Prompt模板，模板需包含一个%s占位简历正文
func WithCustomPromptTemplate(template string) ResumeAnalyzerOption {
	return func(a *ResumeAnalyzer) {
		a.promptTemplate = template
	}
}

// NewResumeAnalyzer 创建简历评估器，llmModel可以为nil（纯降级模式）
func NewResumeAnalyzer(llmModel model.ToolCallingChatModel, logger *log.Logger, options ...ResumeAnalyzerOption) *ResumeAnalyzer {
	a := &ResumeAnalyzer{
		llmModel: llmModel,
		logger:   logger,
	}
	if a.logger == nil {
		a.logger = log.New(os.Stderr, "[ResumeAnalyzer] ", log.LstdFlags)
	}
	a.generatePromptTemplate()
	for _, option := range options {
		option(a)
	}
	return a
}

// generatePromptTemplate 构建默认的ATS评估Prompt
func (a *ResumeAnalyzer) generatePromptTemplate() {
	a.promptTemplate = `You are an expert ATS (Applicant Tracking System) analyzer and career strategist. Analyze this resume and provide comprehensive feedback.

Resume Data:
%s

Please provide detailed analysis in the following JSON format:
{
    "atsScore": number (0-100),
    "categories": {
        "content": number (0-100),
        "formatting": number (0-100),
        "keywords": number (0-100),
        "structure": number (0-100),
        "tone": number (0-100)
    },
    "strengths": ["key strengths identified"],
    "weaknesses": ["key weaknesses identified"],
    "improvements": ["actionable improvement suggestions"],
    "atsCompatibility": "short assessment of ATS compatibility"
}

Focus on:
1. ATS readability and parsing
2. Keyword optimization for common job roles
3. Professional tone and language
4. Quantifiable achievements
5. Structure and formatting best practices
6. Action verb usage
7. Content completeness

Be specific, actionable, and professional in your feedback. Respond with JSON only.`
}

const analyzerSystemMessage = "你是一位资深的ATS简历分析专家，只输出JSON格式的评估结果。"

// Analyze 执行简历评估。LLM不可用或调用失败时返回规则推算结果而不是错误
func (a *ResumeAnalyzer) Analyze(ctx context.Context, data *types.ResumeData) (*types.ResumeAnalysis, error) {
	if data == nil {
		return nil, fmt.Errorf("ResumeAnalyzer: 简历数据为空")
	}

	if a.llmModel == nil {
		a.logger.Printf("[ResumeAnalyzer] 未配置LLM，使用规则推算")
		return a.finalize(a.FallbackAnalysis(data), data), nil
	}

	result, err := a.evaluateWithLLM(ctx, data)
	if err != nil {
		a.logger.Printf("[ResumeAnalyzer] LLM评估失败，降级为规则推算: %v", err)
		return a.finalize(a.FallbackAnalysis(data), data), nil
	}
	return a.finalize(result, data), nil
}

// evaluateWithLLM 调用LLM并解析评估JSON
func (a *ResumeAnalyzer) evaluateWithLLM(ctx context.Context, data *types.ResumeData) (*types.ResumeAnalysis, error) {
	promptContent := fmt.Sprintf(a.promptTemplate, data.RawText)

	messages := []*einoschema.Message{
		einoschema.SystemMessage(analyzerSystemMessage),
		einoschema.UserMessage(promptContent),
	}

	response, err := a.llmModel.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("ResumeAnalyzer: LLM call failed: %w", err)
	}
	if response == nil || response.Content == "" {
		return nil, fmt.Errorf("ResumeAnalyzer: LLM returned empty response")
	}

	// 移除BOM后再解析
	processedContent := strings.TrimPrefix(response.Content, "\uFEFF")

	jsonStr := extractJSONFromAnalyzerResponse(processedContent)
	if jsonStr == "" {
		// 非JSON响应走文本兜底解析
		a.logger.Printf("[ResumeAnalyzer] 响应中未找到JSON，尝试文本解析")
		return parseTextResponse(processedContent), nil
	}

	if !utf8.ValidString(jsonStr) {
		jsonStr = strings.ToValidUTF8(jsonStr, "")
	}

	var result types.ResumeAnalysis
	// ① 正常解析
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		// ② 解析失败 -> 自动修复再试一次
		fixedJsonStr := sanitizeJSON(jsonStr)
		if jsonErr := json.Unmarshal([]byte(fixedJsonStr), &result); jsonErr != nil {
			return nil, fmt.Errorf("ResumeAnalyzer: failed to unmarshal LLM JSON response after sanitization. Original error: %w. Sanitization error: %v", err, jsonErr)
		}
	}

	if err := validateAnalysisResult(&result); err != nil {
		return nil, fmt.Errorf("ResumeAnalyzer: invalid analysis result: %w", err)
	}
	return &result, nil
}

// finalize 补齐评估元信息
func (a *ResumeAnalyzer) finalize(result *types.ResumeAnalysis, data *types.ResumeData) *types.ResumeAnalysis {
	result.AnalysisID = uuid.New().String()
	result.CareerLevel = DetermineCareerLevel(data)
	result.EvaluatedAt = time.Now().Unix()
	return result
}

var atsScoreTextRegex = regexp.MustCompile(`(?i)ATS.*?(\d+)`)

// parseTextResponse 非JSON响应的兜底解析：从文本中找ATS分数，找不到用75
func parseTextResponse(response string) *types.ResumeAnalysis {
	atsScore := 75
	if m := atsScoreTextRegex.FindStringSubmatch(response); len(m) > 1 {
		if n, err := strconv.Atoi(m[1]); err == nil {
			atsScore = n
		}
	}

	return &types.ResumeAnalysis{
		ATSScore: atsScore,
		Categories: types.AnalysisCategories{
			Content:    80,
			Formatting: 85,
			Keywords:   70,
			Structure:  90,
			Tone:       75,
		},
		Strengths:        []string{"Strong experience section", "Good educational background", "Professional presentation"},
		Weaknesses:       []string{"Limited quantifiable achievements", "Could use more keywords", "Summary section needs improvement"},
		Improvements:     []string{"Quantify achievements with numbers", "Use more action verbs", "Add a 2-3 sentence professional summary"},
		ATSCompatibility: "Some formatting may affect ATS parsing; use standard section headers",
	}
}

// FallbackAnalysis 根据章节存在性推算评估结果：
// 四大章节齐全85分，有经历+教育75分，否则70分
func (a *ResumeAnalyzer) FallbackAnalysis(data *types.ResumeData) *types.ResumeAnalysis {
	hasSkills := data.HasSection(types.SectionSkills)
	hasSummary := data.HasSection(types.SectionSummary)
	hasExperience := data.HasSection(types.SectionExperience)
	hasEducation := data.HasSection(types.SectionEducation)

	atsScore := 70
	if hasSkills && hasSummary && hasExperience && hasEducation {
		atsScore = 85
	} else if hasExperience && hasEducation {
		atsScore = 75
	}

	contentScore := 60
	if hasExperience {
		contentScore = 80
	}
	keywordsScore := 50
	if hasSkills {
		keywordsScore = 75
	}
	structureScore := 70
	if hasExperience && hasEducation {
		structureScore = 90
	}

	strengths := []string{"Professional presentation", "Clear contact information"}
	weaknesses := []string{"Could improve keyword usage"}
	if !hasSkills {
		weaknesses = []string{"Missing skills section"}
	}
	improvements := []string{"Quantify achievements", "Use action verbs"}
	if !hasSummary {
		improvements = append(improvements, "Add professional summary")
	}
	if !hasSkills {
		improvements = append(improvements, "Create dedicated skills section")
	}

	return &types.ResumeAnalysis{
		ATSScore: atsScore,
		Categories: types.AnalysisCategories{
			Content:    contentScore,
			Formatting: 85,
			Keywords:   keywordsScore,
			Structure:  structureScore,
			Tone:       75,
		},
		Strengths:        strengths,
		Weaknesses:       weaknesses,
		Improvements:     improvements,
		ATSCompatibility: "Limited keyword optimization; add more industry-specific terms",
		Fallback:         true,
	}
}

// DetermineCareerLevel 从简历文本推断职级
func DetermineCareerLevel(data *types.ResumeData) string {
	text := strings.ToLower(data.RawText)

	switch {
	case strings.Contains(text, "director") || strings.Contains(text, "vp") || strings.Contains(text, "head"):
		return "Executive Level"
	case strings.Contains(text, "senior") || strings.Contains(text, "lead") || strings.Contains(text, "manager"):
		return "Senior Level"
	case strings.Contains(text, "intern") || strings.Contains(text, "junior") || strings.Contains(text, "entry"):
		return "Entry Level"
	default:
		return "Mid Level"
	}
}

// validateAnalysisResult 验证评估结果是否符合要求
func validateAnalysisResult(result *types.ResumeAnalysis) error {
	if result.ATSScore < 0 || result.ATSScore > 100 {
		return fmt.Errorf("atsScore must be between 0 and 100, got %d", result.ATSScore)
	}
	for name, score := range map[string]int{
		"content":    result.Categories.Content,
		"formatting": result.Categories.Formatting,
		"keywords":   result.Categories.Keywords,
		"structure":  result.Categories.Structure,
		"tone":       result.Categories.Tone,
	} {
		if score < 0 || score > 100 {
			return fmt.Errorf("category %s score must be between 0 and 100, got %d", name, score)
		}
	}
	if result.ATSCompatibility == "" {
		return fmt.Errorf("atsCompatibility must not be empty")
	}
	return nil
}

// extractJSONFromAnalyzerResponse 从文本中提取第一个花括号配平的JSON串
func extractJSONFromAnalyzerResponse(text string) string {
	start := strings.Index(text, "{")
	if start == -1 {
		return ""
	}
	level := 0
	for i := start; i < len(text); i++ {
		if text[i] == '{' {
			level++
		} else if text[i] == '}' {
			level--
			if level == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

// sanitizeJSON 会遍历 src，将任何位于字符串字面量内部但并非"真正结束"的双引号写成 \"，
// 以保证整个 JSON 在 Go 端能够正常反序列化。
// 它通过检查下一个非空白字符是否为 :, ], }, 或 , 来判断该 " 是否为字符串的结束
func sanitizeJSON(src string) string {
	var b strings.Builder
	inStr := false
	escaped := false

	for i := 0; i < len(src); i++ {
		c := src[i]

		if c == '"' && !escaped {
			if !inStr {
				inStr = true
				b.WriteByte(c)
			} else {
				j := i + 1
				for j < len(src) && (src[j] == ' ' || src[j] == '\t' || src[j] == '\n' || src[j] == '\r') {
					j++
				}
				if j < len(src) && (src[j] == ':' || src[j] == ',' || src[j] == ']' || src[j] == '}') {
					inStr = false
					b.WriteByte(c)
				} else {
					b.WriteString("\\\"")
				}
			}
			escaped = false

		} else if c == '\\' && !escaped {
			escaped = true
			b.WriteByte(c)

		} else {
			b.WriteByte(c)
			escaped = false
		}
	}

	return b.String()
}
