package processor

import (
	"context"

	"resume-analyzer-go/internal/storage/models"
	"resume-analyzer-go/internal/types"
)

// ResumeExtractor 简历文件校验与文本结构化提取接口
type ResumeExtractor interface {
	// ValidateFile 校验上传文件的存在性、大小和格式
	ValidateFile(file *types.UploadedFile) error

	// ExtractResumeData 提取文本并结构化为简历数据
	ExtractResumeData(ctx context.Context, file *types.UploadedFile) (*types.ResumeData, error)
}

// AnalysisEvaluator ATS评估接口
type AnalysisEvaluator interface {
	// Analyze 对简历数据做ATS评估，LLM不可用时内部降级
	Analyze(ctx context.Context, data *types.ResumeData) (*types.ResumeAnalysis, error)
}

// DedupStore 去重与结果缓存接口，由Redis适配器实现
type DedupStore interface {
	// CheckAndAddParsedTextMD5 原子检查并登记解析文本MD5，返回此前是否已存在
	CheckAndAddParsedTextMD5(ctx context.Context, md5Hex string) (bool, error)

	// CacheAnalysisResult 缓存评估结果
	CacheAnalysisResult(ctx context.Context, submissionUUID string, analysis *types.ResumeAnalysis) error
}

// SubmissionStore 提交记录持久化接口，由MySQL适配器实现
type SubmissionStore interface {
	BatchInsertResumeSubmissions(ctx context.Context, submissions []models.ResumeSubmission) error
	UpdateResumeProcessingStatus(ctx context.Context, submissionUUID string, status string) error
	UpdateResumeSubmissionFields(ctx context.Context, submissionUUID string, updates map[string]interface{}) error
	CompleteAnalysisTx(ctx context.Context, record *models.ResumeAnalysisRecord, status string, outboxMsg *models.OutboxMessage) error
}
