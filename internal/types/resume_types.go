package types

// SectionName 表示简历章节的规范名称
type SectionName string

const (
	// SectionSummary 个人摘要章节
	SectionSummary SectionName = "Summary"
	// SectionExperience 工作经历章节
	SectionExperience SectionName = "Experience"
	// SectionEducation 教育经历章节
	SectionEducation SectionName = "Education"
	// SectionSkills 技能章节
	SectionSkills SectionName = "Skills"
	// SectionProjects 项目经历章节
	SectionProjects SectionName = "Projects"
	// SectionCertifications 证书章节
	SectionCertifications SectionName = "Certifications"
	// SectionAwards 获奖章节
	SectionAwards SectionName = "Awards"
	// SectionLeadership 领导力/社团活动章节
	SectionLeadership SectionName = "Leadership"
	// SectionReferences 推荐人章节
	SectionReferences SectionName = "References"
)

// UploadedFile 上传文件的输入描述，内容与声明信息在一次解析调用内不可变
type UploadedFile struct {
	Filename    string // 文件名，扩展名用于格式识别
	Size        int64  // 声明的文件大小（字节）
	ContentType string // 声明的MIME类型
	Content     []byte // 文件内容
}

// PersonalInfo 从简历文本中提取的个人信息，字段缺失以空字符串表示
type PersonalInfo struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
	LinkedIn string `json:"linkedin"`
}

// SectionRecord 章节存在性记录
type SectionRecord struct {
	Name            SectionName `json:"name"`
	Present         bool        `json:"present"`
	MatchedKeywords []string    `json:"matched_keywords"`
}

// ResumeMetadata 解析元数据
type ResumeMetadata struct {
	Format    string `json:"format"`
	FileSize  int64  `json:"file_size"`
	PageCount int    `json:"page_count,omitempty"` // 仅PDF填充
}

// ResumeData 一次解析调用的完整输出
type ResumeData struct {
	RawText        string          `json:"raw_text"`
	PersonalInfo   PersonalInfo    `json:"personal_info"`
	Sections       []SectionRecord `json:"sections"`
	SummaryText    string          `json:"summary"`
	ExperienceText string          `json:"experience"`
	EducationText  string          `json:"education"`
	SkillsText     string          `json:"skills"`
	Metadata       ResumeMetadata  `json:"metadata"`
}

// HasSection 判断指定章节是否被识别为存在
func (r *ResumeData) HasSection(name SectionName) bool {
	for _, s := range r.Sections {
		if s.Name == name && s.Present {
			return true
		}
	}
	return false
}

// AnalysisCategories ATS评估的分项得分 (0-100)
type AnalysisCategories struct {
	Content    int `json:"content"`
	Formatting int `json:"formatting"`
	Keywords   int `json:"keywords"`
	Structure  int `json:"structure"`
	Tone       int `json:"tone"`
}

// ResumeAnalysis LLM或降级规则产生的简历评估结果
type ResumeAnalysis struct {
	ATSScore         int                `json:"atsScore"`
	Categories       AnalysisCategories `json:"categories"`
	Strengths        []string           `json:"strengths"`
	Weaknesses       []string           `json:"weaknesses"`
	Improvements     []string           `json:"improvements"`
	ATSCompatibility string             `json:"atsCompatibility"`

	// 评估元信息
	AnalysisID  string `json:"analysis_id,omitempty"`
	CareerLevel string `json:"career_level,omitempty"`
	Fallback    bool   `json:"fallback,omitempty"` // true表示未经过LLM，由规则推算
	EvaluatedAt int64  `json:"evaluated_at,omitempty"`
}

// ValidationResult 简历数据校验结果，warnings不阻断流程
type ValidationResult struct {
	IsValid  bool     `json:"is_valid"`
	Warnings []string `json:"warnings"`
	Errors   []string `json:"errors"`
}
