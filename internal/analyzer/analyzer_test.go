package analyzer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-analyzer-go/internal/agent"
	"resume-analyzer-go/internal/parser"
	"resume-analyzer-go/internal/types"
)

const fullResumeText = `Jane Doe
jane@example.com

Summary
Senior engineer focused on reliability.

Experience
Example Corp, 2018 - 2023

Education
State University

Skills
Go, SQL`

const validAnalysisJSON = `{
  "atsScore": 82,
  "categories": {"content": 80, "formatting": 85, "keywords": 70, "structure": 90, "tone": 75},
  "strengths": ["clear experience"],
  "weaknesses": ["few metrics"],
  "improvements": ["quantify achievements"],
  "atsCompatibility": "Good overall compatibility"
}`

func TestAnalyzeWithLLM(t *testing.T) {
	mock := agent.NewMockChatClient(validAnalysisJSON, nil)
	a := NewResumeAnalyzer(mock, nil)

	data := parser.ExtractFields(fullResumeText)
	result, err := a.Analyze(context.Background(), data)
	require.NoError(t, err)

	assert.Equal(t, 82, result.ATSScore)
	assert.Equal(t, 90, result.Categories.Structure)
	assert.False(t, result.Fallback, "LLM成功时不应标记降级")
	assert.NotEmpty(t, result.AnalysisID)
	assert.NotZero(t, result.EvaluatedAt)
	assert.Equal(t, "Senior Level", result.CareerLevel)

	require.NotEmpty(t, mock.GetReceivedMessages(), "应向LLM发送消息")
	assert.Contains(t, mock.GetReceivedMessages()[1].Content, "Jane Doe", "Prompt应包含简历正文")
}

func TestAnalyzeExtractsJSONFromNoise(t *testing.T) {
	// JSON被解释性文字与BOM包裹时仍应解析成功
	noisy := "\ufeffHere is my analysis:\n" + validAnalysisJSON + "\nHope this helps!"
	mock := agent.NewMockChatClient(noisy, nil)
	a := NewResumeAnalyzer(mock, nil)

	result, err := a.Analyze(context.Background(), parser.ExtractFields(fullResumeText))
	require.NoError(t, err)
	assert.Equal(t, 82, result.ATSScore)
	assert.False(t, result.Fallback)
}

func TestAnalyzeTextFallbackParsing(t *testing.T) {
	// 纯文本响应走兜底解析，提取ATS后的数字
	mock := agent.NewMockChatClient("The resume earns an ATS score of 64 out of 100.", nil)
	a := NewResumeAnalyzer(mock, nil)

	result, err := a.Analyze(context.Background(), parser.ExtractFields(fullResumeText))
	require.NoError(t, err)
	assert.Equal(t, 64, result.ATSScore)

	// 没有任何分数线索时默认75
	mock = agent.NewMockChatClient("Looks fine to me.", nil)
	a = NewResumeAnalyzer(mock, nil)
	result, err = a.Analyze(context.Background(), parser.ExtractFields(fullResumeText))
	require.NoError(t, err)
	assert.Equal(t, 75, result.ATSScore)
}

func TestAnalyzeFallbackOnLLMError(t *testing.T) {
	mock := agent.NewMockChatClient("", errors.New("rate limited"))
	a := NewResumeAnalyzer(mock, nil)

	result, err := a.Analyze(context.Background(), parser.ExtractFields(fullResumeText))
	require.NoError(t, err, "LLM失败应降级而不是报错")
	assert.True(t, result.Fallback)
	assert.Equal(t, 85, result.ATSScore, "四大章节齐全应推算85分")
}

func TestFallbackAnalysisScoring(t *testing.T) {
	a := NewResumeAnalyzer(nil, nil)

	// 四大章节齐全 → 85
	full := parser.ExtractFields(fullResumeText)
	result := a.FallbackAnalysis(full)
	assert.Equal(t, 85, result.ATSScore)
	assert.Equal(t, 80, result.Categories.Content)
	assert.Equal(t, 75, result.Categories.Keywords)
	assert.Equal(t, 90, result.Categories.Structure)

	// 仅经历+教育 → 75
	partial := parser.ExtractFields("Experience\nExample Corp\n\nEducation\nState University")
	result = a.FallbackAnalysis(partial)
	assert.Equal(t, 75, result.ATSScore)

	// 结构缺失 → 70
	bare := parser.ExtractFields("just some text without any headers at all")
	result = a.FallbackAnalysis(bare)
	assert.Equal(t, 70, result.ATSScore)
	assert.Contains(t, result.Weaknesses, "Missing skills section")
	assert.True(t, result.Fallback)
}

func TestAnalyzeWithoutModel(t *testing.T) {
	a := NewResumeAnalyzer(nil, nil)

	result, err := a.Analyze(context.Background(), parser.ExtractFields(fullResumeText))
	require.NoError(t, err)
	assert.True(t, result.Fallback, "无模型时应使用规则推算")
	assert.NotEmpty(t, result.AnalysisID)

	_, err = a.Analyze(context.Background(), nil)
	assert.Error(t, err, "空数据应报错")
}

func TestAnalyzeRejectsInvalidScores(t *testing.T) {
	// 分数越界的JSON应降级为规则推算
	bad := `{"atsScore": 180, "categories": {"content": 80, "formatting": 85, "keywords": 70, "structure": 90, "tone": 75}, "strengths": [], "weaknesses": [], "improvements": [], "atsCompatibility": "ok"}`
	mock := agent.NewMockChatClient(bad, nil)
	a := NewResumeAnalyzer(mock, nil)

	result, err := a.Analyze(context.Background(), parser.ExtractFields(fullResumeText))
	require.NoError(t, err)
	assert.True(t, result.Fallback, "越界分数应触发降级")
}

func TestDetermineCareerLevel(t *testing.T) {
	cases := map[string]string{
		"worked as an intern at a startup":          "Entry Level",
		"senior backend engineer":                   "Senior Level",
		"director of engineering":                   "Executive Level",
		"software engineer building data pipelines": "Mid Level",
	}
	for text, expected := range cases {
		data := &types.ResumeData{RawText: text}
		assert.Equal(t, expected, DetermineCareerLevel(data), "文本: %s", text)
	}
}

func TestSanitizeJSONRepairsInnerQuotes(t *testing.T) {
	broken := `{"atsCompatibility": "use "standard" headers"}`
	fixed := sanitizeJSON(broken)
	assert.Equal(t, `{"atsCompatibility": "use \"standard\" headers"}`, fixed)
}
