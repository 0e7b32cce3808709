package storage

// ResumeUploadMessage 简历上传后发往解析队列的消息
type ResumeUploadMessage struct {
	SubmissionUUID      string `json:"submission_uuid"`
	SubmissionTimestamp int64  `json:"submission_timestamp"`
	SourceChannel       string `json:"source_channel,omitempty"`
	TargetJobID         string `json:"target_job_id,omitempty"`
	OriginalFilename    string `json:"original_filename"`
	OriginalFilePathOSS string `json:"original_file_path_oss"`
	RawFileMD5          string `json:"raw_file_md5"`
}

// AnalysisRequestMessage 文本解析完成后发往评估队列的消息
type AnalysisRequestMessage struct {
	SubmissionUUID    string `json:"submission_uuid"`
	TargetJobID       string `json:"target_job_id,omitempty"`
	ParsedTextPathOSS string `json:"parsed_text_path_oss"`
	// ParsedText 仅在文本较短时内联，避免消费侧再走一次对象存储
	ParsedText       string `json:"parsed_text,omitempty"`
	ProcessingStatus string `json:"processing_status"`
}

// AnalysisCompletedEvent 评估完成后通过outbox对外发布的事件
type AnalysisCompletedEvent struct {
	SubmissionUUID string `json:"submission_uuid"`
	AnalysisID     string `json:"analysis_id"`
	ATSScore       int    `json:"ats_score"`
	CareerLevel    string `json:"career_level,omitempty"`
	Fallback       bool   `json:"fallback"`
	EvaluatedAt    int64  `json:"evaluated_at"`
}
