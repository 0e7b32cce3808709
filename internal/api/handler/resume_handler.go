package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/gofrs/uuid/v5"
	"gorm.io/gorm"

	"resume-analyzer-go/internal/config"
	"resume-analyzer-go/internal/constants"
	"resume-analyzer-go/internal/logger"
	"resume-analyzer-go/internal/storage"
	"resume-analyzer-go/internal/storage/models"
	"resume-analyzer-go/internal/types"
	"resume-analyzer-go/pkg/utils"
)

// ErrAnalysisNotFound 评估结果尚未产生或提交不存在
var ErrAnalysisNotFound = errors.New("评估结果不存在")

// FileValidator 上传前的文件校验接口
type FileValidator interface {
	ValidateFile(file *types.UploadedFile) error
}

// FileDedup 原始文件MD5去重接口，由Redis适配器实现
type FileDedup interface {
	CheckRawFileMD5Exists(ctx context.Context, md5Hex string) (bool, error)
	AddRawFileMD5(ctx context.Context, md5Hex string) error
}

// AnalysisCache 评估结果缓存读取接口
type AnalysisCache interface {
	GetCachedAnalysisResult(ctx context.Context, submissionUUID string) (*types.ResumeAnalysis, error)
}

// AnalysisStore 评估结果与提交记录读取接口，由MySQL适配器实现
type AnalysisStore interface {
	GetAnalysisBySubmissionUUID(ctx context.Context, submissionUUID string) (*models.ResumeAnalysisRecord, error)
	GetResumeSubmission(ctx context.Context, submissionUUID string) (*models.ResumeSubmission, error)
}

// ResumeHandler 简历上传与评估查询的HTTP处理器
type ResumeHandler struct {
	cfg         *config.Config
	objectStore storage.ObjectStorage
	queue       storage.MessageQueue
	dedup       FileDedup
	cache       AnalysisCache
	db          AnalysisStore
	validator   FileValidator
}

// NewResumeHandler 从聚合存储构建处理器，未初始化的组件对应能力自动降级
func NewResumeHandler(cfg *config.Config, store *storage.Storage, validator FileValidator) *ResumeHandler {
	h := &ResumeHandler{
		cfg:       cfg,
		validator: validator,
	}
	if store != nil {
		if store.MinIO != nil {
			h.objectStore = store.MinIO
		}
		if store.RabbitMQ != nil {
			h.queue = store.RabbitMQ
		}
		if store.Redis != nil {
			h.dedup = store.Redis
			h.cache = store.Redis
		}
		if store.MySQL != nil {
			h.db = store.MySQL
		}
	}
	return h
}

// newHandlerWithDeps 测试专用构造器
func newHandlerWithDeps(cfg *config.Config, objectStore storage.ObjectStorage, queue storage.MessageQueue,
	dedup FileDedup, cache AnalysisCache, db AnalysisStore, validator FileValidator) *ResumeHandler {
	return &ResumeHandler{
		cfg:         cfg,
		objectStore: objectStore,
		queue:       queue,
		dedup:       dedup,
		cache:       cache,
		db:          db,
		validator:   validator,
	}
}

// ResumeUploadResponse 简历上传响应
type ResumeUploadResponse struct {
	SubmissionUUID string `json:"submission_uuid"`
	Status         string `json:"status"`
}

// HandleResumeUpload 处理简历上传:
// 校验文件、文件级MD5去重、上传MinIO并投递解析消息
func (h *ResumeHandler) HandleResumeUpload(ctx context.Context, reader io.Reader, fileSize int64,
	filename string, contentType string, targetJobID string, sourceChannel string) (*ResumeUploadResponse, error) {

	// reader只能读一次，先整体读入用于MD5和校验
	fileBytes, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("读取上传文件内容失败: %w", err)
	}

	if h.validator != nil {
		file := &types.UploadedFile{
			Filename:    filename,
			Size:        fileSize,
			ContentType: contentType,
			Content:     fileBytes,
		}
		if err := h.validator.ValidateFile(file); err != nil {
			return nil, err
		}
	}

	fileMD5Hex := utils.CalculateMD5(fileBytes)

	if h.dedup != nil {
		exists, err := h.dedup.CheckRawFileMD5Exists(ctx, fileMD5Hex)
		if err != nil {
			logger.Error().
				Err(err).
				Str("md5", fileMD5Hex).
				Msg("查询Redis文件MD5 Set失败")
			return nil, fmt.Errorf("检查文件MD5重复性时Redis查询失败: %w", err)
		}
		if exists {
			logger.Info().
				Str("md5", fileMD5Hex).
				Str("filename", filename).
				Msg("检测到重复的文件MD5，跳过处理")
			return &ResumeUploadResponse{
				SubmissionUUID: "",
				Status:         constants.StatusDuplicateFileSkipped,
			}, nil
		}
	}

	uuidV7, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("生成UUIDv7失败: %w", err)
	}
	submissionUUID := uuidV7.String()

	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".pdf"
	}

	originalObjectKey, err := h.objectStore.UploadResumeFile(ctx, submissionUUID, ext, bytes.NewReader(fileBytes), int64(len(fileBytes)))
	if err != nil {
		return nil, fmt.Errorf("上传简历到MinIO失败: %w", err)
	}

	// 文件已上传成功，MD5登记失败只降级去重能力，不中断流程
	if h.dedup != nil {
		if err := h.dedup.AddRawFileMD5(ctx, fileMD5Hex); err != nil {
			logger.Warn().
				Err(err).
				Str("md5", fileMD5Hex).
				Str("object_key", originalObjectKey).
				Msg("添加文件MD5到Redis Set失败，文件已上传到MinIO")
		}
	}

	message := storage.ResumeUploadMessage{
		SubmissionUUID:      submissionUUID,
		SubmissionTimestamp: time.Now().Unix(),
		SourceChannel:       sourceChannel,
		TargetJobID:         targetJobID,
		OriginalFilename:    filename,
		OriginalFilePathOSS: originalObjectKey,
		RawFileMD5:          fileMD5Hex,
	}

	err = h.queue.PublishJSON(
		ctx,
		h.cfg.RabbitMQ.ResumeEventsExchange,
		h.cfg.RabbitMQ.UploadedRoutingKey,
		message,
		true,
	)
	if err != nil {
		return nil, fmt.Errorf("发布消息到RabbitMQ失败: %w", err)
	}

	logger.Info().
		Str("submission_uuid", submissionUUID).
		Str("filename", filename).
		Int("size", len(fileBytes)).
		Msg("简历已受理并投递解析")

	return &ResumeUploadResponse{
		SubmissionUUID: submissionUUID,
		Status:         constants.StatusSubmitted,
	}, nil
}

// GetAnalysis 查询评估结果，优先走Redis缓存，未命中回源MySQL
func (h *ResumeHandler) GetAnalysis(ctx context.Context, submissionUUID string) (*types.ResumeAnalysis, error) {
	if h.cache != nil {
		cached, err := h.cache.GetCachedAnalysisResult(ctx, submissionUUID)
		if err == nil && cached != nil {
			return cached, nil
		}
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			logger.Warn().
				Err(err).
				Str("submission_uuid", submissionUUID).
				Msg("读取评估结果缓存失败，回源数据库")
		}
	}

	if h.db == nil {
		return nil, ErrAnalysisNotFound
	}

	record, err := h.db.GetAnalysisBySubmissionUUID(ctx, submissionUUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAnalysisNotFound
		}
		return nil, fmt.Errorf("查询评估结果失败: %w", err)
	}

	return analysisFromRecord(record), nil
}

// SubmissionStatusResponse 提交处理状态响应
type SubmissionStatusResponse struct {
	SubmissionUUID   string `json:"submission_uuid"`
	ProcessingStatus string `json:"processing_status"`
	OriginalFilename string `json:"original_filename"`
	ParserVersion    string `json:"parser_version,omitempty"`
	UpdatedAt        int64  `json:"updated_at"`
}

// GetSubmissionStatus 查询提交的处理状态
func (h *ResumeHandler) GetSubmissionStatus(ctx context.Context, submissionUUID string) (*SubmissionStatusResponse, error) {
	if h.db == nil {
		return nil, ErrAnalysisNotFound
	}

	submission, err := h.db.GetResumeSubmission(ctx, submissionUUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAnalysisNotFound
		}
		return nil, fmt.Errorf("查询提交记录失败: %w", err)
	}

	return &SubmissionStatusResponse{
		SubmissionUUID:   submission.SubmissionUUID,
		ProcessingStatus: submission.ProcessingStatus,
		OriginalFilename: submission.OriginalFilename,
		ParserVersion:    submission.ParserVersion,
		UpdatedAt:        submission.UpdatedAt.Unix(),
	}, nil
}

// analysisFromRecord 将数据库记录还原为API返回的评估结构
func analysisFromRecord(record *models.ResumeAnalysisRecord) *types.ResumeAnalysis {
	analysis := &types.ResumeAnalysis{
		ATSScore: record.ATSScore,
		Categories: types.AnalysisCategories{
			Content:    record.ContentScore,
			Formatting: record.FormattingScore,
			Keywords:   record.KeywordsScore,
			Structure:  record.StructureScore,
			Tone:       record.ToneScore,
		},
		ATSCompatibility: record.ATSCompatibility,
		AnalysisID:       record.AnalysisID,
		CareerLevel:      record.CareerLevel,
		Fallback:         record.Fallback,
		EvaluatedAt:      record.EvaluatedAt.Unix(),
	}

	// JSON列损坏时保留空切片，不中断查询
	if len(record.StrengthsJSON) > 0 {
		_ = json.Unmarshal(record.StrengthsJSON, &analysis.Strengths)
	}
	if len(record.WeaknessesJSON) > 0 {
		_ = json.Unmarshal(record.WeaknessesJSON, &analysis.Weaknesses)
	}
	if len(record.ImprovementsJSON) > 0 {
		_ = json.Unmarshal(record.ImprovementsJSON, &analysis.Improvements)
	}
	return analysis
}
