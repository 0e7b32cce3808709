// Package processor 承载简历处理流水线的两个消费侧阶段:
// 原始文件解析入库，以及ATS评估落库与事件发布。
package processor

import (
	"fmt"
	"io"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"resume-analyzer-go/internal/constants"
	"resume-analyzer-go/internal/storage"
)

// Components 聚合流水线的功能组件依赖，便于集中管理和测试替换
type Components struct {
	Parser      ResumeExtractor
	Analyzer    AnalysisEvaluator
	ObjectStore storage.ObjectStorage
	Queue       storage.MessageQueue
	Dedup       DedupStore
	Submissions SubmissionStore
}

// Settings 纯配置项，不包含业务组件
type Settings struct {
	Debug         bool
	Logger        *log.Logger
	ParserVersion string
	// InlineTextLimit 解析文本不超过该字节数时内联进评估消息
	InlineTextLimit int
	TimeLocation    *time.Location
}

// ComponentOpt 组件选项
type ComponentOpt func(*Components)

// SettingOpt 设置选项
type SettingOpt func(*Settings)

// ResumeProcessor 简历处理流水线
type ResumeProcessor struct {
	Components Components
	Settings   Settings
	tracer     trace.Tracer
}

// NewResumeProcessor 组装流水线处理器
func NewResumeProcessor(compOpts []ComponentOpt, setOpts []SettingOpt) (*ResumeProcessor, error) {
	components := Components{}
	for _, opt := range compOpts {
		opt(&components)
	}

	settings := Settings{
		Logger:          log.New(io.Discard, "", 0),
		ParserVersion:   constants.DefaultParserVer,
		InlineTextLimit: 64 * 1024,
		TimeLocation:    time.Local,
	}
	for _, opt := range setOpts {
		opt(&settings)
	}

	if components.Parser == nil {
		return nil, fmt.Errorf("简历解析器不能为空")
	}
	if components.Submissions == nil {
		return nil, fmt.Errorf("提交记录存储不能为空")
	}

	return &ResumeProcessor{
		Components: components,
		Settings:   settings,
		tracer:     otel.Tracer("resume-analyzer-go/processor"),
	}, nil
}

// ----- 组件选项 -----

// WithParser 设置简历解析组件
func WithParser(p ResumeExtractor) ComponentOpt {
	return func(c *Components) {
		c.Parser = p
	}
}

// WithAnalyzer 设置评估组件
func WithAnalyzer(a AnalysisEvaluator) ComponentOpt {
	return func(c *Components) {
		c.Analyzer = a
	}
}

// WithObjectStore 设置对象存储组件
func WithObjectStore(s storage.ObjectStorage) ComponentOpt {
	return func(c *Components) {
		c.ObjectStore = s
	}
}

// WithQueue 设置消息队列组件
func WithQueue(q storage.MessageQueue) ComponentOpt {
	return func(c *Components) {
		c.Queue = q
	}
}

// WithDedup 设置去重与缓存组件
func WithDedup(d DedupStore) ComponentOpt {
	return func(c *Components) {
		c.Dedup = d
	}
}

// WithSubmissions 设置提交记录存储组件
func WithSubmissions(s SubmissionStore) ComponentOpt {
	return func(c *Components) {
		c.Submissions = s
	}
}

// ----- 设置选项 -----

// WithDebug 开启调试日志
func WithDebug(debug bool) SettingOpt {
	return func(s *Settings) {
		s.Debug = debug
	}
}

// WithProcessorLogger 设置日志记录器
func WithProcessorLogger(logger *log.Logger) SettingOpt {
	return func(s *Settings) {
		if logger != nil {
			s.Logger = logger
		} else {
			s.Logger = log.New(io.Discard, "", 0)
		}
	}
}

// WithParserVersion 设置解析器版本标识
func WithParserVersion(version string) SettingOpt {
	return func(s *Settings) {
		if version != "" {
			s.ParserVersion = version
		}
	}
}

// WithInlineTextLimit 设置评估消息内联文本上限
func WithInlineTextLimit(limit int) SettingOpt {
	return func(s *Settings) {
		if limit > 0 {
			s.InlineTextLimit = limit
		}
	}
}

// ----- 日志辅助 -----

func (rp *ResumeProcessor) logDebug(format string, args ...interface{}) {
	if rp.Settings.Debug && rp.Settings.Logger != nil {
		rp.Settings.Logger.Printf(format, args...)
	}
}

func (rp *ResumeProcessor) logInfo(format string, args ...interface{}) {
	if rp.Settings.Logger != nil {
		rp.Settings.Logger.Printf(format, args...)
	}
}

func (rp *ResumeProcessor) logWarn(format string, args ...interface{}) {
	if rp.Settings.Logger != nil {
		rp.Settings.Logger.Printf("[WARN] "+format, args...)
	}
}

func (rp *ResumeProcessor) logError(err error, format string, args ...interface{}) {
	if rp.Settings.Logger != nil {
		if err != nil {
			format = fmt.Sprintf("ERROR: %v - %s", err, format)
		} else {
			format = "ERROR: " + format
		}
		rp.Settings.Logger.Printf(format, args...)
	}
}
