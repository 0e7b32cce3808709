package constants

import "time"

// 简历处理状态流转
const (
	StatusSubmitted            = "SUBMITTED_FOR_PROCESSING"
	StatusDuplicateFileSkipped = "DUPLICATE_FILE_SKIPPED"
	StatusContentDupSkipped    = "CONTENT_DUPLICATE_SKIPPED"
	StatusTextExtracted        = "TEXT_EXTRACTED"
	StatusQueuedForAnalysis    = "QUEUED_FOR_ANALYSIS"
	StatusAnalysisCompleted    = "ANALYSIS_COMPLETED"
	StatusAnalysisFailed       = "ANALYSIS_FAILED"
	StatusParseFailed          = "PARSE_FAILED"
)

// RabbitMQ拓扑
const (
	ResumeEventsExchange = "resume.events"

	RawResumeQueue      = "raw_resume_queue"
	RawResumeRoutingKey = "resume.uploaded"

	AnalysisQueue      = "resume_analysis_queue"
	AnalysisRoutingKey = "resume.parsed"

	AnalysisResultRoutingKey = "resume.analyzed"

	// 死信拓扑，工作队列消费失败且不重新入队的消息落入死信队列
	DeadLetterExchange   = "resume.events.dlx"
	DeadLetterQueue      = "resume_dead_letter_queue"
	DeadLetterRoutingKey = "resume.dead"
)

// 去重与缓存有效期
const (
	MD5RecordTTL       = 90 * 24 * time.Hour
	AnalysisCacheTTL   = 24 * time.Hour
	DefaultParserVer   = "1.0"
	OutboxStatusPend   = "PENDING"
	OutboxStatusSent   = "SENT"
	OutboxStatusFailed = "FAILED"
)
