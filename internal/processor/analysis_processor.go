package processor

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"resume-analyzer-go/internal/constants"
	"resume-analyzer-go/internal/parser"
	"resume-analyzer-go/internal/storage"
	"resume-analyzer-go/internal/storage/models"
	"resume-analyzer-go/internal/tracing"
	"resume-analyzer-go/pkg/utils"
)

// HandleAnalysisMessage 评估队列的消费入口。
// 返回true表示Ack，false表示Nack并重新入队
func (rp *ResumeProcessor) HandleAnalysisMessage(data []byte) bool {
	var msg storage.AnalysisRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		rp.logError(err, "评估消息反序列化失败，丢弃该消息")
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := rp.ProcessAnalysisMessage(ctx, &msg); err != nil {
		rp.logError(err, "处理评估消息失败: uuid=%s", msg.SubmissionUUID)
		return !IsTransient(err)
	}
	return true
}

// ProcessAnalysisMessage 处理一条评估请求:
// 取回解析文本、重建结构化数据、执行ATS评估，
// 并在单个事务中落库结果、推进状态和写入outbox事件
func (rp *ResumeProcessor) ProcessAnalysisMessage(ctx context.Context, msg *storage.AnalysisRequestMessage) error {
	ctx, span := rp.tracer.Start(ctx, "processor.ProcessAnalysisMessage",
		trace.WithAttributes(
			attribute.String("submission.uuid", msg.SubmissionUUID),
		))
	defer span.End()

	text := msg.ParsedText
	if text == "" {
		downloaded, err := rp.Components.ObjectStore.GetParsedText(ctx, msg.ParsedTextPathOSS)
		if err != nil {
			tracing.RecordError(span, err, tracing.ErrorTypeMinIO)
			return NewDownloadError(msg.SubmissionUUID, err.Error())
		}
		text = downloaded
	}
	span.SetAttributes(attribute.String("resume.text_preview", tracing.SafeResumeContent(text)))

	resumeData := parser.ExtractFields(text)

	analysis, err := rp.Components.Analyzer.Analyze(ctx, resumeData)
	if err != nil {
		rp.markFailed(ctx, msg.SubmissionUUID, constants.StatusAnalysisFailed)
		tracing.RecordErrorWithInfo(span, err, tracing.ErrorTypeLLM,
			attribute.Int("resume.text_length", len(text)))
		return NewAnalysisError(msg.SubmissionUUID, err.Error())
	}

	record := &models.ResumeAnalysisRecord{
		AnalysisID:       analysis.AnalysisID,
		SubmissionUUID:   msg.SubmissionUUID,
		ATSScore:         analysis.ATSScore,
		ContentScore:     analysis.Categories.Content,
		FormattingScore:  analysis.Categories.Formatting,
		KeywordsScore:    analysis.Categories.Keywords,
		StructureScore:   analysis.Categories.Structure,
		ToneScore:        analysis.Categories.Tone,
		StrengthsJSON:    utils.ConvertArrayToJSON(analysis.Strengths),
		WeaknessesJSON:   utils.ConvertArrayToJSON(analysis.Weaknesses),
		ImprovementsJSON: utils.ConvertArrayToJSON(analysis.Improvements),
		ATSCompatibility: analysis.ATSCompatibility,
		CareerLevel:      analysis.CareerLevel,
		Fallback:         analysis.Fallback,
		EvaluatedAt:      time.Unix(analysis.EvaluatedAt, 0),
	}

	event := storage.AnalysisCompletedEvent{
		SubmissionUUID: msg.SubmissionUUID,
		AnalysisID:     analysis.AnalysisID,
		ATSScore:       analysis.ATSScore,
		CareerLevel:    analysis.CareerLevel,
		Fallback:       analysis.Fallback,
		EvaluatedAt:    analysis.EvaluatedAt,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return NewAnalysisError(msg.SubmissionUUID, err.Error())
	}
	outboxMsg := &models.OutboxMessage{
		AggregateID:      msg.SubmissionUUID,
		EventType:        "resume.analysis.completed",
		Payload:          string(payload),
		TargetExchange:   constants.ResumeEventsExchange,
		TargetRoutingKey: constants.AnalysisResultRoutingKey,
		Status:           constants.OutboxStatusPend,
	}

	if err := rp.Components.Submissions.CompleteAnalysisTx(ctx, record, constants.StatusAnalysisCompleted, outboxMsg); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return NewDatabaseError(msg.SubmissionUUID, err.Error())
	}

	// 结果缓存失败不影响主流程
	if rp.Components.Dedup != nil {
		if cacheErr := rp.Components.Dedup.CacheAnalysisResult(ctx, msg.SubmissionUUID, analysis); cacheErr != nil {
			rp.logWarn("缓存评估结果失败: uuid=%s, err=%v", msg.SubmissionUUID, cacheErr)
		}
	}

	rp.logInfo("简历评估完成: uuid=%s, score=%d, fallback=%v",
		msg.SubmissionUUID, analysis.ATSScore, analysis.Fallback)
	span.SetAttributes(
		attribute.Int("analysis.ats_score", analysis.ATSScore),
		attribute.Bool("analysis.fallback", analysis.Fallback),
	)
	span.SetStatus(codes.Ok, "")
	return nil
}
