package processor

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"resume-analyzer-go/internal/constants"
	"resume-analyzer-go/internal/parser"
	"resume-analyzer-go/internal/storage"
	"resume-analyzer-go/internal/storage/models"
	"resume-analyzer-go/internal/tracing"
	"resume-analyzer-go/internal/types"
	"resume-analyzer-go/pkg/utils"
)

// HandleUploadMessage 原始简历队列的消费入口。
// 返回true表示Ack，false表示Nack并重新入队
func (rp *ResumeProcessor) HandleUploadMessage(data []byte) bool {
	var msg storage.ResumeUploadMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		rp.logError(err, "上传消息反序列化失败，丢弃该消息")
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := rp.ProcessUploadMessage(ctx, &msg); err != nil {
		rp.logError(err, "处理上传消息失败: uuid=%s", msg.SubmissionUUID)
		// 基础设施错误重新入队重试，确定性失败直接确认
		return !IsTransient(err)
	}
	return true
}

// ProcessUploadMessage 处理一条简历上传消息:
// 入库提交记录、下载原始文件、提取结构化文本、内容去重、
// 上传解析文本并投递评估请求
func (rp *ResumeProcessor) ProcessUploadMessage(ctx context.Context, msg *storage.ResumeUploadMessage) error {
	// 文件名可能含求职者姓名，进span前做脱敏处理
	ctx, span := rp.tracer.Start(ctx, "processor.ProcessUploadMessage",
		trace.WithAttributes(
			attribute.String("submission.uuid", msg.SubmissionUUID),
			attribute.String("submission.filename",
				tracing.SafeAttributeValue("submission.filename", msg.OriginalFilename, tracing.DefaultMaxLength)),
		))
	defer span.End()

	// 提交记录先落库，主键冲突时幂等跳过
	submission := models.ResumeSubmission{
		SubmissionUUID:      msg.SubmissionUUID,
		SubmissionTimestamp: time.Unix(msg.SubmissionTimestamp, 0),
		SourceChannel:       msg.SourceChannel,
		OriginalFilename:    msg.OriginalFilename,
		OriginalFilePathOSS: msg.OriginalFilePathOSS,
		RawFileMD5:          msg.RawFileMD5,
		ProcessingStatus:    constants.StatusSubmitted,
		ParserVersion:       rp.Settings.ParserVersion,
	}
	if msg.TargetJobID != "" {
		submission.TargetJobID = utils.StringPtr(msg.TargetJobID)
	}
	if err := rp.Components.Submissions.BatchInsertResumeSubmissions(ctx, []models.ResumeSubmission{submission}); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return NewDatabaseError(msg.SubmissionUUID, err.Error())
	}

	fileContent, err := rp.Components.ObjectStore.GetResumeFile(ctx, msg.OriginalFilePathOSS)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeMinIO)
		return NewDownloadError(msg.SubmissionUUID, err.Error())
	}

	file := &types.UploadedFile{
		Filename: msg.OriginalFilename,
		Size:     int64(len(fileContent)),
		Content:  fileContent,
	}

	resumeData, err := rp.Components.Parser.ExtractResumeData(ctx, file)
	if err != nil {
		rp.markFailed(ctx, msg.SubmissionUUID, constants.StatusParseFailed)
		tracing.RecordError(span, err, tracing.ErrorTypeValidation)
		return NewParseError(msg.SubmissionUUID, err.Error())
	}

	// 内容级去重: 不同文件解析出相同文本时跳过后续评估
	textMD5 := utils.CalculateMD5([]byte(resumeData.RawText))
	if rp.Components.Dedup != nil {
		exists, dedupErr := rp.Components.Dedup.CheckAndAddParsedTextMD5(ctx, textMD5)
		if dedupErr != nil {
			rp.logWarn("解析文本去重检查失败，继续处理: uuid=%s, err=%v", msg.SubmissionUUID, dedupErr)
		} else if exists {
			rp.logInfo("解析文本内容重复，跳过评估: uuid=%s, md5=%s", msg.SubmissionUUID, textMD5)
			if err := rp.Components.Submissions.UpdateResumeProcessingStatus(ctx, msg.SubmissionUUID, constants.StatusContentDupSkipped); err != nil {
				return NewUpdateError(msg.SubmissionUUID, err.Error())
			}
			span.SetAttributes(attribute.Bool("content.duplicate", true))
			span.SetStatus(codes.Ok, "content duplicate")
			return nil
		}
	}

	validation := parser.ValidateExtractedData(resumeData)
	for _, warning := range validation.Warnings {
		rp.logWarn("提取内容校验警告: uuid=%s, %s", msg.SubmissionUUID, warning)
	}
	if !validation.IsValid {
		rp.logWarn("提取内容不完整，仍继续评估: uuid=%s, errors=%s", msg.SubmissionUUID, strings.Join(validation.Errors, "; "))
	}

	parsedPath, err := rp.Components.ObjectStore.UploadParsedText(ctx, msg.SubmissionUUID, resumeData.RawText)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeMinIO)
		return NewStoreError(msg.SubmissionUUID, err.Error())
	}

	updates := map[string]interface{}{
		"parsed_text_path_oss": parsedPath,
		"raw_text_md5":         textMD5,
		"file_format":          resumeData.Metadata.Format,
		"file_size":            resumeData.Metadata.FileSize,
		"page_count":           resumeData.Metadata.PageCount,
		"years_of_experience":  parser.ExtractYearsOfExperience(resumeData.RawText),
		"processing_status":    constants.StatusQueuedForAnalysis,
		"parser_version":       rp.Settings.ParserVersion,
	}
	if personalJSON, jerr := json.Marshal(resumeData.PersonalInfo); jerr == nil {
		updates["personal_info_json"] = models.StringToJSON(string(personalJSON))
	}
	if sectionsJSON, jerr := json.Marshal(resumeData.Sections); jerr == nil {
		updates["sections_json"] = models.StringToJSON(string(sectionsJSON))
	}
	updates["keywords_json"] = utils.ConvertArrayToJSON(parser.ExtractKeywords(resumeData.RawText))

	if err := rp.Components.Submissions.UpdateResumeSubmissionFields(ctx, msg.SubmissionUUID, updates); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return NewUpdateError(msg.SubmissionUUID, err.Error())
	}

	analysisMsg := storage.AnalysisRequestMessage{
		SubmissionUUID:    msg.SubmissionUUID,
		TargetJobID:       msg.TargetJobID,
		ParsedTextPathOSS: parsedPath,
		ProcessingStatus:  constants.StatusQueuedForAnalysis,
	}
	if len(resumeData.RawText) <= rp.Settings.InlineTextLimit {
		analysisMsg.ParsedText = resumeData.RawText
	}

	if rp.Components.Queue != nil {
		if err := rp.Components.Queue.PublishJSON(ctx, constants.ResumeEventsExchange, constants.AnalysisRoutingKey, analysisMsg, true); err != nil {
			tracing.RecordError(span, err, tracing.ErrorTypeRabbitMQ)
			return NewPublishError(msg.SubmissionUUID, err.Error())
		}
	}

	rp.logInfo("简历解析完成并已投递评估: uuid=%s, pages=%d, textLen=%d",
		msg.SubmissionUUID, resumeData.Metadata.PageCount, len(resumeData.RawText))
	span.SetStatus(codes.Ok, "")
	return nil
}

// markFailed 尽力推进失败状态，本身的错误仅记日志
func (rp *ResumeProcessor) markFailed(ctx context.Context, submissionUUID, status string) {
	if err := rp.Components.Submissions.UpdateResumeProcessingStatus(ctx, submissionUUID, status); err != nil {
		rp.logWarn("更新失败状态出错: uuid=%s, status=%s, err=%v", submissionUUID, status, err)
	}
}
