package parser

import (
	"regexp"
	"strings"
	"time"

	"resume-analyzer-go/internal/types"
)

var (
	emailRegex    = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`)
	phoneRegex    = regexp.MustCompile(`\b(?:\+?1[-.\s]?)?\(?([0-9]{3})\)?[-.\s]?([0-9]{3})[-.\s]?([0-9]{4})\b`)
	linkedinRegex = regexp.MustCompile(`(?i)(?:linkedin\.com/in/|linkedin\.com/)([a-zA-Z0-9\-]+)`)

	nameDigitsRegex    = regexp.MustCompile(`\d+`)
	nameSymbolRegex    = regexp.MustCompile(`[^\w\s\-']`)
	phoneLikeLineRegex = regexp.MustCompile(`^\d[\d\-\s]*\d$`)

	yearsPhraseRegex = regexp.MustCompile(`(?i)(\d+)\s*(?:years?|yrs?)\s*(?:of\s*)?(?:experience|exp)`)
	dateRangeRegex   = regexp.MustCompile(`(?i)(\d{4})\s*[-–—]\s*(\d{4}|present|current)`)
	digitsOnlyRegex  = regexp.MustCompile(`\d+`)
)

// 美国州缩写，按列表顺序扫描
var usStateAbbreviations = []string{
	"AL", "AK", "AZ", "AR", "CA", "CO", "CT", "DE", "FL", "GA",
	"HI", "ID", "IL", "IN", "IA", "KS", "KY", "LA", "ME", "MD",
	"MA", "MI", "MN", "MS", "MO", "MT", "NE", "NV", "NH", "NJ",
	"NM", "NY", "NC", "ND", "OH", "OK", "OR", "PA", "RI", "SC",
	"SD", "TN", "TX", "UT", "VT", "VA", "WA", "WV", "WI", "WY",
}

// 主要城市列表，州缩写未命中时再扫描
var majorCities = []string{
	"New York", "Los Angeles", "Chicago", "Houston", "Phoenix",
	"Philadelphia", "San Antonio", "San Diego", "Dallas", "San Jose",
}

// 各正文章节的起始关键词
var (
	experienceKeywords = []string{
		"experience", "work", "employment", "career", "professional experience",
		"work experience", "work history", "professional background",
	}
	educationKeywords = []string{
		"education", "academic", "university", "college", "school",
		"academic background", "educational background", "qualifications",
	}
	skillsKeywords = []string{
		"skills", "technical", "competencies", "abilities", "expertise",
		"technical skills", "core competencies", "key skills", "skill set",
	}
	summaryKeywords = []string{
		"summary", "objective", "profile", "overview",
		"professional summary", "career summary", "executive summary",
		"career objective", "professional profile",
	}
)

// majorSectionMarkers 章节边界判定用的主列表
var majorSectionMarkers = []string{
	"experience", "work", "employment", "education", "academic",
	"skills", "technical", "competencies", "summary", "objective",
	"profile", "projects", "certifications", "awards", "interests",
	"references", "activities", "leadership", "volunteer",
}

// sectionTaxonomy 章节存在性识别的规范分类，固定顺序
var sectionTaxonomy = []struct {
	Name     types.SectionName
	Keywords []string
}{
	{types.SectionSummary, []string{"summary", "objective", "profile", "overview"}},
	{types.SectionExperience, []string{"experience", "work", "employment", "career"}},
	{types.SectionEducation, []string{"education", "academic", "university", "college"}},
	{types.SectionSkills, []string{"skills", "technical", "competencies", "abilities"}},
	{types.SectionProjects, []string{"projects", "portfolio", "work samples"}},
	{types.SectionCertifications, []string{"certifications", "certificates", "licenses"}},
	{types.SectionAwards, []string{"awards", "honors", "recognition"}},
	{types.SectionLeadership, []string{"leadership", "activities", "volunteer"}},
	{types.SectionReferences, []string{"references", "referees"}},
}

// commonResumeKeywords 通用技能词表
var commonResumeKeywords = []string{
	"leadership", "management", "communication", "teamwork", "problem solving",
	"project management", "data analysis", "customer service", "sales",
	"marketing", "development", "programming", "design", "research",
	"analytical", "strategic", "planning", "coordination", "training",
	"mentoring", "budgeting", "forecasting", "reporting", "presentation",
}

// maxYearsOfExperience 工作年限上限
const maxYearsOfExperience = 50

// ExtractFields 从规范化文本抽取个人信息与章节内容。
// 不会返回错误：空文本产生全空结果
func ExtractFields(text string) *types.ResumeData {
	cleanText := NormalizeText(text)

	return &types.ResumeData{
		RawText:        cleanText,
		PersonalInfo:   extractPersonalInfo(cleanText),
		Sections:       identifySections(cleanText),
		SummaryText:    ExtractSection(cleanText, summaryKeywords),
		ExperienceText: ExtractSection(cleanText, experienceKeywords),
		EducationText:  ExtractSection(cleanText, educationKeywords),
		SkillsText:     ExtractSection(cleanText, skillsKeywords),
	}
}

// extractPersonalInfo 从文本抽取姓名、邮箱、电话、地址与LinkedIn
func extractPersonalInfo(text string) types.PersonalInfo {
	info := types.PersonalInfo{}

	// 姓名通常在第一个非空行
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		// 在剔除数字前判断：形似邮箱或电话的首行整体放弃，宁缺毋错
		if strings.Contains(trimmed, "@") || phoneLikeLineRegex.MatchString(trimmed) {
			break
		}
		name := nameDigitsRegex.ReplaceAllString(trimmed, "")
		name = nameSymbolRegex.ReplaceAllString(name, " ")
		name = whitespaceRunRegex.ReplaceAllString(name, " ")
		info.Name = strings.TrimSpace(name)
		break
	}

	info.Email = emailRegex.FindString(text)
	info.Phone = phoneRegex.FindString(text)
	info.Location = extractLocation(text)
	info.LinkedIn = linkedinRegex.FindString(text)

	return info
}

// extractLocation 逐行扫描：先匹配州缩写，再匹配主要城市，返回整行
func extractLocation(text string) string {
	for _, line := range strings.Split(text, "\n") {
		cleanLine := strings.TrimSpace(line)
		if cleanLine == "" {
			continue
		}
		for _, state := range usStateAbbreviations {
			if strings.Contains(cleanLine, state) {
				return cleanLine
			}
		}
		for _, city := range majorCities {
			if strings.Contains(cleanLine, city) {
				return cleanLine
			}
		}
	}
	return ""
}

// ExtractSection 提取关键词标识章节的正文。
// 起始行：小写后等于或包含任一关键词；
// 结束行：其后第一个命中主列表且不含当前章节关键词的行；
// 首行包含当前章节关键词时作为标题剔除
func ExtractSection(text string, keywords []string) string {
	lines := strings.Split(text, "\n")
	sectionStart := -1

	for i, line := range lines {
		lowered := strings.ToLower(strings.TrimSpace(line))
		if matchesAnyKeyword(lowered, keywords) {
			sectionStart = i
			break
		}
	}
	if sectionStart == -1 {
		return ""
	}

	sectionEnd := len(lines)
	for i := sectionStart + 1; i < len(lines); i++ {
		lowered := strings.ToLower(strings.TrimSpace(lines[i]))
		if containsAnyKeyword(lowered, keywords) {
			continue
		}
		if matchesAnyKeyword(lowered, majorSectionMarkers) {
			sectionEnd = i
			break
		}
	}

	sectionLines := lines[sectionStart:sectionEnd]
	headerLine := strings.ToLower(strings.TrimSpace(sectionLines[0]))
	if containsAnyKeyword(headerLine, keywords) {
		sectionLines = sectionLines[1:]
	}
	return strings.TrimSpace(strings.Join(sectionLines, "\n"))
}

func matchesAnyKeyword(loweredLine string, keywords []string) bool {
	for _, keyword := range keywords {
		if loweredLine == keyword || strings.Contains(loweredLine, keyword) {
			return true
		}
	}
	return false
}

func containsAnyKeyword(loweredLine string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(loweredLine, keyword) {
			return true
		}
	}
	return false
}

// identifySections 按规范分类顺序输出9个章节的存在性记录
func identifySections(text string) []types.SectionRecord {
	loweredLines := make([]string, 0)
	for _, line := range strings.Split(text, "\n") {
		loweredLines = append(loweredLines, strings.ToLower(strings.TrimSpace(line)))
	}

	records := make([]types.SectionRecord, 0, len(sectionTaxonomy))
	for _, entry := range sectionTaxonomy {
		record := types.SectionRecord{Name: entry.Name}
		for _, keyword := range entry.Keywords {
			for _, line := range loweredLines {
				if line == keyword || strings.Contains(line, keyword) {
					record.Present = true
					record.MatchedKeywords = append(record.MatchedKeywords, keyword)
					break
				}
			}
		}
		records = append(records, record)
	}
	return records
}

// ExtractKeywords 扫描通用技能词表，返回命中的关键词
func ExtractKeywords(text string) []string {
	lowerText := strings.ToLower(text)
	found := make([]string, 0)
	for _, keyword := range commonResumeKeywords {
		if strings.Contains(lowerText, keyword) {
			found = append(found, keyword)
		}
	}
	return found
}

// ExtractYearsOfExperience 提取工作年限：
// 优先"N years of experience"表述，否则按YYYY-YYYY/present区间累加，上限50
func ExtractYearsOfExperience(text string) int {
	if m := yearsPhraseRegex.FindString(text); m != "" {
		if digits := digitsOnlyRegex.FindString(m); digits != "" {
			return atoiSafe(digits)
		}
	}

	matches := dateRangeRegex.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return 0
	}

	totalYears := 0
	currentYear := time.Now().Year()
	for _, m := range matches {
		startYear := atoiSafe(m[1])
		endToken := strings.ToLower(m[2])
		endYear := currentYear
		if endToken != "present" && endToken != "current" {
			endYear = atoiSafe(endToken)
		}
		if endYear > startYear {
			totalYears += endYear - startYear
		}
	}
	if totalYears > maxYearsOfExperience {
		return maxYearsOfExperience
	}
	return totalYears
}

func atoiSafe(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return n
		}
		n = n*10 + int(c-'0')
	}
	return n
}
