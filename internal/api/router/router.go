package router

import (
	"context"
	"errors"
	"io"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/keyauth"
	"go.opentelemetry.io/otel/trace"

	"resume-analyzer-go/internal/api/handler"
	"resume-analyzer-go/internal/config"
	"resume-analyzer-go/internal/logger"
	"resume-analyzer-go/internal/parser"
	"resume-analyzer-go/internal/tracing"
)

// RegisterRoutes 注册所有HTTP路由
func RegisterRoutes(h *server.Hertz, cfg *config.Config, resumeHandler *handler.ResumeHandler) {
	h.GET("/health", func(ctx context.Context, c *app.RequestContext) {
		c.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})

	v1 := h.Group("/api/v1")

	// API Key鉴权，仅对写入类路由生效
	if cfg.Auth.Enabled {
		v1.Use(apiKeyMiddleware(cfg))
	}

	v1.POST("/resume/upload", uploadHandlerFunc(resumeHandler))
	v1.GET("/resume/:uuid/analysis", analysisHandlerFunc(resumeHandler))
	v1.GET("/resume/:uuid/status", statusHandlerFunc(resumeHandler))
}

// apiKeyMiddleware 基于X-API-Key请求头的鉴权中间件
func apiKeyMiddleware(cfg *config.Config) app.HandlerFunc {
	allowed := make(map[string]bool, len(cfg.Auth.APIKeys))
	for _, key := range cfg.Auth.APIKeys {
		allowed[key] = true
	}
	return keyauth.New(
		keyauth.WithKeyLookUp("header:X-API-Key", ""),
		keyauth.WithValidator(func(ctx context.Context, c *app.RequestContext, key string) (bool, error) {
			return allowed[key], nil
		}),
		keyauth.WithErrorHandler(func(ctx context.Context, c *app.RequestContext, err error) {
			c.JSON(consts.StatusUnauthorized, utils.H{"error": "无效或缺失的API Key"})
			c.Abort()
		}),
	)
}

// uploadHandlerFunc 简历上传路由
func uploadHandlerFunc(resumeHandler *handler.ResumeHandler) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(consts.StatusBadRequest, utils.H{"error": "请求中缺少file字段"})
			return
		}

		targetJobID := c.PostForm("target_job_id")
		sourceChannel := c.PostForm("source_channel")
		if sourceChannel == "" {
			sourceChannel = "web_upload"
		}

		file, err := fileHeader.Open()
		if err != nil {
			logger.Error().Err(err).Str("filename", fileHeader.Filename).Msg("打开上传文件失败")
			c.JSON(consts.StatusInternalServerError, utils.H{"error": "读取上传文件失败"})
			return
		}
		defer file.Close()

		contentType := fileHeader.Header.Get("Content-Type")
		resp, err := resumeHandler.HandleResumeUpload(ctx, file, fileHeader.Size,
			fileHeader.Filename, contentType, targetJobID, sourceChannel)
		if err != nil {
			status, message := mapUploadError(err)
			tracing.RecordHTTPError(trace.SpanFromContext(ctx), err, status)
			if status == consts.StatusInternalServerError {
				logger.Error().Err(err).Str("filename", fileHeader.Filename).Msg("简历上传处理失败")
			}
			c.JSON(status, utils.H{"error": message})
			return
		}

		c.JSON(consts.StatusAccepted, resp)
	}
}

// analysisHandlerFunc 评估结果查询路由
func analysisHandlerFunc(resumeHandler *handler.ResumeHandler) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		submissionUUID := c.Param("uuid")
		if submissionUUID == "" {
			c.JSON(consts.StatusBadRequest, utils.H{"error": "缺少uuid路径参数"})
			return
		}

		analysis, err := resumeHandler.GetAnalysis(ctx, submissionUUID)
		if err != nil {
			if errors.Is(err, handler.ErrAnalysisNotFound) {
				c.JSON(consts.StatusNotFound, utils.H{"error": "评估结果不存在或尚未生成"})
				return
			}
			tracing.RecordHTTPError(trace.SpanFromContext(ctx), err, consts.StatusInternalServerError)
			logger.Error().Err(err).Str("submission_uuid", submissionUUID).Msg("查询评估结果失败")
			c.JSON(consts.StatusInternalServerError, utils.H{"error": "查询评估结果失败"})
			return
		}

		c.JSON(consts.StatusOK, analysis)
	}
}

// statusHandlerFunc 处理状态查询路由
func statusHandlerFunc(resumeHandler *handler.ResumeHandler) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		submissionUUID := c.Param("uuid")
		if submissionUUID == "" {
			c.JSON(consts.StatusBadRequest, utils.H{"error": "缺少uuid路径参数"})
			return
		}

		status, err := resumeHandler.GetSubmissionStatus(ctx, submissionUUID)
		if err != nil {
			if errors.Is(err, handler.ErrAnalysisNotFound) {
				c.JSON(consts.StatusNotFound, utils.H{"error": "提交记录不存在"})
				return
			}
			tracing.RecordHTTPError(trace.SpanFromContext(ctx), err, consts.StatusInternalServerError)
			logger.Error().Err(err).Str("submission_uuid", submissionUUID).Msg("查询处理状态失败")
			c.JSON(consts.StatusInternalServerError, utils.H{"error": "查询处理状态失败"})
			return
		}

		c.JSON(consts.StatusOK, status)
	}
}

// mapUploadError 将校验哨兵错误映射到HTTP状态码
func mapUploadError(err error) (int, string) {
	switch {
	case errors.Is(err, parser.ErrMissingFile):
		return consts.StatusBadRequest, "上传文件为空"
	case errors.Is(err, parser.ErrFileTooLarge):
		return consts.StatusRequestEntityTooLarge, "文件超出大小限制"
	case errors.Is(err, parser.ErrUnsupportedFormat):
		return consts.StatusUnsupportedMediaType, "不支持的文件格式"
	case errors.Is(err, io.ErrUnexpectedEOF):
		return consts.StatusBadRequest, "上传内容不完整"
	default:
		return consts.StatusInternalServerError, "服务器内部错误"
	}
}
