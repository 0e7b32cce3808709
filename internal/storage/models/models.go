package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// ResumeSubmission 简历提交/快照表
type ResumeSubmission struct {
	SubmissionUUID      string    `gorm:"type:char(36);primaryKey"`
	SubmissionTimestamp time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);index:idx_rs_submission_timestamp"`
	SourceChannel       string    `gorm:"type:varchar(100)"`
	TargetJobID         *string   `gorm:"type:char(36);index:idx_rs_target_job_id"`
	OriginalFilename    string    `gorm:"type:varchar(255)"`
	OriginalFilePathOSS string    `gorm:"type:varchar(1024)"`
	ParsedTextPathOSS   string    `gorm:"type:varchar(1024)"`
	RawFileMD5          string    `gorm:"type:char(32);index:idx_rs_raw_file_md5"`
	RawTextMD5          string    `gorm:"type:char(32);index:idx_rs_raw_text_md5"`

	// 解析产物
	FileFormat        string         `gorm:"type:varchar(20)"`
	FileSize          int64          `gorm:"type:bigint"`
	PageCount         int            `gorm:"type:int"`
	PersonalInfoJSON  datatypes.JSON `gorm:"type:json"`
	SectionsJSON      datatypes.JSON `gorm:"type:json"`
	KeywordsJSON      datatypes.JSON `gorm:"type:json"`
	YearsOfExperience int            `gorm:"type:int"`

	ProcessingStatus string    `gorm:"type:varchar(50);default:'SUBMITTED_FOR_PROCESSING';index:idx_rs_processing_status"`
	ParserVersion    string    `gorm:"type:varchar(50)"`
	CreatedAt        time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt        time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (ResumeSubmission) TableName() string {
	return "resume_submissions"
}

// ResumeAnalysisRecord ATS评估结果表，按submission_uuid一对一
type ResumeAnalysisRecord struct {
	AnalysisID     string `gorm:"type:char(36);primaryKey"`
	SubmissionUUID string `gorm:"type:char(36);not null;uniqueIndex:idx_ra_submission_uuid"`

	ATSScore        int `gorm:"type:int;not null"`
	ContentScore    int `gorm:"type:int"`
	FormattingScore int `gorm:"type:int"`
	KeywordsScore   int `gorm:"type:int"`
	StructureScore  int `gorm:"type:int"`
	ToneScore       int `gorm:"type:int"`

	StrengthsJSON    datatypes.JSON `gorm:"type:json"`
	WeaknessesJSON   datatypes.JSON `gorm:"type:json"`
	ImprovementsJSON datatypes.JSON `gorm:"type:json"`
	ATSCompatibility string         `gorm:"type:text"`
	CareerLevel      string         `gorm:"type:varchar(50)"`
	Fallback         bool           `gorm:"default:false"`

	EvaluatedAt time.Time `gorm:"type:datetime(6)"`
	CreatedAt   time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt   time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`

	ResumeSubmission *ResumeSubmission `gorm:"foreignKey:SubmissionUUID;references:SubmissionUUID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (ResumeAnalysisRecord) TableName() string {
	return "resume_analyses"
}

// StringToJSON 将字符串转换为datatypes.JSON
func StringToJSON(s string) datatypes.JSON {
	return datatypes.JSON(s)
}

// MapToJSON 将map序列化为datatypes.JSON
func MapToJSON(m map[string]interface{}) (datatypes.JSON, error) {
	bytes, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return bytes, nil
}

// StringSliceToJSON 将字符串切片序列化为datatypes.JSON
func StringSliceToJSON(s []string) (datatypes.JSON, error) {
	if s == nil {
		s = []string{}
	}
	bytes, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return bytes, nil
}
