package parser

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-analyzer-go/internal/types"
)

const sampleResume = `John Smith
Senior Software Engineer
john.smith@example.com
555-123-4567
Austin, TX
linkedin.com/in/johnsmith

Summary
Seasoned backend engineer with a focus on distributed systems.

Experience
Example Corp, 2018 - 2023
Led the platform team. Project management and mentoring of five engineers.

Education
University of Texas, BS Computer Science

Skills
Go, MySQL, Redis, data analysis, communication`

func TestExtractFieldsPersonalInfo(t *testing.T) {
	data := ExtractFields(sampleResume)

	assert.Equal(t, "John Smith", data.PersonalInfo.Name, "首个非空行应作为姓名")
	assert.Equal(t, "john.smith@example.com", data.PersonalInfo.Email)
	assert.Equal(t, "555-123-4567", data.PersonalInfo.Phone)
	assert.Equal(t, "Austin, TX", data.PersonalInfo.Location, "州缩写所在整行应作为地址")
	assert.Equal(t, "linkedin.com/in/johnsmith", data.PersonalInfo.LinkedIn)
}

func TestExtractFieldsNameRejectsContactLines(t *testing.T) {
	// 首行是邮箱时不应误作姓名
	data := ExtractFields("someone@example.com\nExperience\nworked somewhere")
	assert.Empty(t, data.PersonalInfo.Name, "形似邮箱的首行应放弃姓名提取")

	// 首行是电话时同样放弃
	data = ExtractFields("555-123-4567\nExperience\nworked somewhere")
	assert.Empty(t, data.PersonalInfo.Name, "形似电话的首行应放弃姓名提取")
}

func TestExtractFieldsNameStripsDigits(t *testing.T) {
	data := ExtractFields("John Smith 2024\nSenior Engineer\njohn@example.com")
	assert.Equal(t, "John Smith", data.PersonalInfo.Name, "姓名行中的数字应被剔除")
}

func TestExtractFieldsEmailFirstMatchWins(t *testing.T) {
	text := "Jane Doe\njane.doe@example.com\nReferences\nboss@oldjob.example.org"
	data := ExtractFields(text)
	assert.Equal(t, "jane.doe@example.com", data.PersonalInfo.Email, "多个邮箱时应取最先出现的")
}

func TestExtractFieldsNeverFails(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\n\n", "no structure at all"} {
		data := ExtractFields(input)
		require.NotNil(t, data, "任何输入都应产生结果")
		assert.Len(t, data.Sections, 9, "章节记录应始终覆盖9个分类")
	}

	empty := ExtractFields("")
	assert.Empty(t, empty.PersonalInfo.Email)
	assert.Empty(t, empty.SummaryText)
	assert.Empty(t, empty.ExperienceText)
}

func TestSectionTaxonomyOrder(t *testing.T) {
	data := ExtractFields(sampleResume)

	expected := []types.SectionName{
		types.SectionSummary, types.SectionExperience, types.SectionEducation,
		types.SectionSkills, types.SectionProjects, types.SectionCertifications,
		types.SectionAwards, types.SectionLeadership, types.SectionReferences,
	}
	require.Len(t, data.Sections, len(expected))
	for i, name := range expected {
		assert.Equal(t, name, data.Sections[i].Name, "章节顺序应按规范分类固定")
	}

	assert.True(t, data.HasSection(types.SectionSummary))
	assert.True(t, data.HasSection(types.SectionExperience))
	assert.True(t, data.HasSection(types.SectionEducation))
	assert.True(t, data.HasSection(types.SectionSkills))
	assert.False(t, data.HasSection(types.SectionReferences), "未出现的章节不应标记存在")
}

func TestExtractSectionBodies(t *testing.T) {
	data := ExtractFields(sampleResume)

	assert.Contains(t, data.SummaryText, "distributed systems")
	assert.NotContains(t, data.SummaryText, "Summary", "标题行应被剔除")

	assert.Contains(t, data.ExperienceText, "Example Corp")
	assert.NotContains(t, data.ExperienceText, "University of Texas", "下一章节不应混入")

	assert.Contains(t, data.EducationText, "University of Texas")
	assert.Contains(t, data.SkillsText, "Go, MySQL")
}

func TestExtractSectionMissing(t *testing.T) {
	body := ExtractSection("just some text\nwith no headers", educationKeywords)
	assert.Empty(t, body, "未命中关键词应返回空串")
}

func TestExtractKeywords(t *testing.T) {
	found := ExtractKeywords(sampleResume)
	assert.Contains(t, found, "project management")
	assert.Contains(t, found, "mentoring")
	assert.Contains(t, found, "data analysis")
	assert.Contains(t, found, "communication")
	assert.NotContains(t, found, "budgeting")

	assert.Empty(t, ExtractKeywords(""), "空文本应返回空结果")
}

func TestExtractYearsOfExperience(t *testing.T) {
	// 显式表述优先于日期区间
	years := ExtractYearsOfExperience("10 years of experience\n2000 - 2005 at somewhere")
	assert.Equal(t, 10, years, "显式年限表述应优先")

	years = ExtractYearsOfExperience("worked 2018 - 2023 then 2010-2015")
	assert.Equal(t, 10, years, "多个区间应累加")

	// present算到当前年份
	years = ExtractYearsOfExperience(fmt.Sprintf("%d - present", time.Now().Year()-3))
	assert.Equal(t, 3, years)

	years = ExtractYearsOfExperience("1900 - 2023 consulting")
	assert.Equal(t, 50, years, "累计年限应封顶50")

	assert.Zero(t, ExtractYearsOfExperience("no dates here"))
}

func TestValidateResumeData(t *testing.T) {
	data := ExtractFields(sampleResume)
	result := ValidateResumeData(data)
	assert.True(t, result.IsValid, "完整简历应通过校验: %v", result.Errors)

	short := ExtractFields("too short")
	result = ValidateResumeData(short)
	assert.False(t, result.IsValid)
	assert.NotEmpty(t, result.Errors)
}

func TestValidateExtractedDataWarnings(t *testing.T) {
	data := ExtractFields("555-123-4567\nExperience\nshort stint somewhere in a big enough resume body to pass the length floor of one hundred characters easily")
	result := ValidateExtractedData(data)

	assert.True(t, result.IsValid)
	assert.Contains(t, result.Warnings, "未检测到姓名")
	assert.Contains(t, result.Warnings, "未检测到邮箱")

	tiny := ExtractFields("x")
	result = ValidateExtractedData(tiny)
	assert.False(t, result.IsValid, "过短正文应判定不可用")
}

func TestValidateFieldRules(t *testing.T) {
	assert.NoError(t, ValidateEmail("a@b.co"))
	assert.Error(t, ValidateEmail("not-an-email"))
	assert.Error(t, ValidateEmail(""))

	assert.NoError(t, ValidatePhone(""), "电话为可选字段")
	assert.NoError(t, ValidatePhone("555-123-4567"))
	assert.NoError(t, ValidatePhone("555 123 4567"), "空白应先被剔除")
	assert.Error(t, ValidatePhone("12345"))

	assert.NoError(t, ValidateName("Mary-Jane O'Neil"))
	assert.Error(t, ValidateName("J"))
	assert.Error(t, ValidateName("Robert123"))

	assert.NoError(t, ValidateLinkedInURL(""))
	assert.NoError(t, ValidateLinkedInURL("https://linkedin.com/in/someone"))
	assert.Error(t, ValidateLinkedInURL("https://example.com/in/someone"))
}

func TestSanitizeInput(t *testing.T) {
	out := SanitizeInput(`  <script>alert("hi")</script> javascript:x onclick= normal `)
	assert.NotContains(t, out, "<")
	assert.NotContains(t, out, ">")
	assert.NotContains(t, out, "javascript:")
	assert.NotContains(t, out, "onclick=")
	assert.Contains(t, out, "normal")
}
