package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	glog "github.com/cloudwego/hertz/pkg/common/hlog"
	hertzadapter "github.com/hertz-contrib/logger/zerolog"

	"resume-analyzer-go/internal/agent"
	"resume-analyzer-go/internal/analyzer"
	"resume-analyzer-go/internal/api/handler"
	"resume-analyzer-go/internal/api/router"
	"resume-analyzer-go/internal/config"
	"resume-analyzer-go/internal/constants"
	"resume-analyzer-go/internal/outbox"
	"resume-analyzer-go/internal/parser"
	"resume-analyzer-go/internal/processor"
	"resume-analyzer-go/internal/storage"
	apptracing "resume-analyzer-go/internal/tracing"
	"resume-analyzer-go/pkg/ratelimit"

	appLogger "resume-analyzer-go/internal/logger"
)

var (
	version     = "1.0.0"           //nolint:gochecknoglobals
	serviceName = "resume-analyzer" //nolint:gochecknoglobals
)

func main() {
	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "internal/config/config.yaml", "配置文件路径")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	initLogger(cfg)
	glog.Infof("%s v%s 配置加载成功", serviceName, version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tracingProvider, err := apptracing.NewProvider(ctx, cfg)
	if err != nil {
		glog.Warnf("初始化链路追踪失败，继续以无追踪模式运行: %v", err)
	}
	if tracingProvider != nil {
		defer func() {
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelShutdown()
			if err := tracingProvider.Shutdown(shutdownCtx); err != nil {
				glog.Warnf("关闭链路追踪失败: %v", err)
			}
		}()
		glog.Info("链路追踪初始化成功")
	}

	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		glog.Fatalf("初始化存储失败: %v", err)
	}
	defer storageManager.Close()
	glog.Info("存储服务初始化成功")

	if storageManager.RabbitMQ != nil {
		if err := setupTopology(cfg, storageManager.RabbitMQ); err != nil {
			glog.Fatalf("初始化RabbitMQ拓扑失败: %v", err)
		}
		glog.Info("RabbitMQ拓扑初始化成功")
	}

	// PDF提取通道: 默认Eino，配置tika时走Tika服务器
	var pageSource parser.PageTextSource
	if cfg.Parser.PDFExtractor == "tika" && cfg.Tika.ServerURL != "" {
		var tikaOptions []parser.TikaOption
		if cfg.Tika.Timeout > 0 {
			tikaOptions = append(tikaOptions, parser.WithTikaTimeout(time.Duration(cfg.Tika.Timeout)*time.Second))
		}
		tikaOptions = append(tikaOptions, parser.WithTikaLogger(log.New(os.Stderr, "[TikaPDF] ", log.LstdFlags)))
		pageSource = parser.NewTikaPageSource(cfg.Tika.ServerURL, tikaOptions...)
		glog.Info("使用Tika PDF提取器")
	} else {
		pageSource, err = parser.NewEinoPDFPageSource(ctx, parser.WithEinoLogger(log.New(os.Stderr, "[EinoPDF] ", log.LstdFlags)))
		if err != nil {
			glog.Fatalf("创建Eino PDF提取器失败: %v", err)
		}
		glog.Info("使用Eino PDF提取器")
	}

	resumeParser := parser.NewResumeParser(
		parser.WithPDFSource(pageSource),
		parser.WithMaxFileSize(cfg.Parser.MaxFileSizeBytes()),
		parser.WithSupportedFormats(cfg.Parser.SupportedFormats),
		parser.WithParserLogger(log.New(appLogger.Logger, "[Parser] ", log.LstdFlags)),
	)
	glog.Info("简历解析器初始化成功")

	// LLM未配置时评估器以规则推算模式运行
	var llmModel model.ToolCallingChatModel
	if cfg.LLM.APIKey != "" {
		llmModel, err = agent.NewOpenAICompatChatModel(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.APIURL)
		if err != nil {
			glog.Fatalf("初始化LLM模型失败: %v", err)
		}
		if cfg.LLM.QPM > 0 {
			llmModel = ratelimit.NewRateLimitedChatModel(llmModel, cfg.LLM.QPM)
			glog.Infof("LLM调用限流已启用: %d QPM", cfg.LLM.QPM)
		}
		glog.Infof("LLM模型初始化成功: %s", cfg.LLM.Model)
	} else {
		glog.Warn("未配置LLM API Key，ATS评估将使用规则推算")
	}

	var analyzerOptions []analyzer.ResumeAnalyzerOption
	if cfg.Analyzer.PromptTemplate != "" {
		analyzerOptions = append(analyzerOptions, analyzer.WithCustomPromptTemplate(cfg.Analyzer.PromptTemplate))
	}
	resumeAnalyzer := analyzer.NewResumeAnalyzer(llmModel,
		log.New(appLogger.Logger, "[Analyzer] ", log.LstdFlags), analyzerOptions...)
	glog.Info("ATS评估器初始化成功")

	processorLogger := log.New(appLogger.Logger, "[Processor] ", log.LstdFlags|log.Lshortfile)
	resumeProcessor, err := processor.NewResumeProcessor(
		[]processor.ComponentOpt{
			processor.WithParser(resumeParser),
			processor.WithAnalyzer(resumeAnalyzer),
			processor.WithObjectStore(storageManager.MinIO),
			processor.WithQueue(storageManager.RabbitMQ),
			processor.WithDedup(storageManager.Redis),
			processor.WithSubmissions(storageManager.MySQL),
		},
		[]processor.SettingOpt{
			processor.WithDebug(cfg.Logger.Level == "debug"),
			processor.WithProcessorLogger(processorLogger),
		},
	)
	if err != nil {
		glog.Fatalf("初始化简历处理器失败: %v", err)
	}
	glog.Info("简历处理器初始化成功")

	// 事务性发件箱中继
	var messageRelay *outbox.MessageRelay
	if storageManager.MySQL != nil && storageManager.RabbitMQ != nil {
		relayLogger := log.New(appLogger.Logger, "[MessageRelay] ", log.LstdFlags|log.Lshortfile)
		messageRelay = outbox.NewMessageRelay(storageManager.MySQL.DB(), storageManager.RabbitMQ, relayLogger)
		messageRelay.Start()
		glog.Info("消息中继服务已启动")
	}

	consumerStops := startConsumers(cfg, storageManager.RabbitMQ, resumeProcessor)

	resumeHandler := handler.NewResumeHandler(cfg, storageManager, resumeParser)
	glog.Info("ResumeHandler初始化成功")

	tracer, tracerCfg := tracing.NewServerTracer()
	h := server.New(
		tracer,
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
	)
	h.Use(tracing.ServerMiddleware(tracerCfg))

	router.RegisterRoutes(h, cfg, resumeHandler)
	glog.Info("HTTP路由注册成功")

	go func() {
		glog.Infof("HTTP服务器启动中，监听地址: %s", cfg.Server.Address)
		if err := h.Run(); err != nil {
			glog.Fatalf("启动HTTP服务器失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	glog.Info("接收到终止信号，正在优雅退出...")

	for _, stopCh := range consumerStops {
		close(stopCh)
	}
	if messageRelay != nil {
		messageRelay.Stop()
		glog.Info("消息中继服务已停止")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		glog.Errorf("服务器关闭失败: %v", err)
	}
	glog.Info("优雅退出完成")
}

// initLogger 初始化zerolog全局日志并接管Hertz日志输出
func initLogger(cfg *config.Config) {
	loggerConfig := appLogger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
	}

	var output io.Writer = os.Stdout
	if cfg.Logger.Format == "pretty" {
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: cfg.Logger.TimeFormat,
		}
	}

	// 配置了文件路径时同时写入文件和控制台
	if cfg.Logger.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logger.FilePath), 0o755); err != nil {
			log.Fatalf("创建日志目录失败: %v", err)
		}
		fileWriter, err := os.OpenFile(cfg.Logger.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			log.Fatalf("无法打开日志文件 %s: %v", cfg.Logger.FilePath, err)
		}
		output = zerolog.MultiLevelWriter(output, fileWriter)
	}

	appLogger.InitWithWriter(loggerConfig, output)

	// 让Hertz框架日志也走zerolog
	glog.SetLogger(hertzadapter.From(appLogger.Logger))
	if cfg.Logger.Level == "debug" {
		glog.SetLevel(glog.LevelDebug)
	}
}

// setupTopology 声明交换机、队列和绑定关系
func setupTopology(cfg *config.Config, mq *storage.RabbitMQ) error {
	exchange := cfg.RabbitMQ.ResumeEventsExchange
	if exchange == "" {
		exchange = constants.ResumeEventsExchange
	}
	if err := mq.EnsureExchange(exchange, "direct", true); err != nil {
		return err
	}

	// 死信拓扑先就绪，工作队列声明时引用死信交换机
	if err := mq.EnsureExchange(constants.DeadLetterExchange, "direct", true); err != nil {
		return err
	}
	if err := mq.EnsureQueue(constants.DeadLetterQueue, true); err != nil {
		return err
	}
	if err := mq.BindQueue(constants.DeadLetterQueue, constants.DeadLetterExchange, constants.DeadLetterRoutingKey); err != nil {
		return err
	}

	rawQueue := cfg.RabbitMQ.RawResumeQueue
	if rawQueue == "" {
		rawQueue = constants.RawResumeQueue
	}
	if err := mq.EnsureQueueWithDLX(rawQueue, true, constants.DeadLetterExchange, constants.DeadLetterRoutingKey); err != nil {
		return err
	}
	if err := mq.BindQueue(rawQueue, exchange, cfg.RabbitMQ.UploadedRoutingKey); err != nil {
		return err
	}

	analysisQueue := cfg.RabbitMQ.AnalysisQueue
	if analysisQueue == "" {
		analysisQueue = constants.AnalysisQueue
	}
	if err := mq.EnsureQueueWithDLX(analysisQueue, true, constants.DeadLetterExchange, constants.DeadLetterRoutingKey); err != nil {
		return err
	}
	if err := mq.BindQueue(analysisQueue, exchange, cfg.RabbitMQ.ParsedRoutingKey); err != nil {
		return err
	}

	return nil
}

// startConsumers 按配置的工作协程数启动两个阶段的消费者
func startConsumers(cfg *config.Config, mq *storage.RabbitMQ, rp *processor.ResumeProcessor) []chan struct{} {
	if mq == nil {
		glog.Warn("RabbitMQ未初始化，跳过消费者启动")
		return nil
	}

	prefetch := cfg.RabbitMQ.PrefetchCount
	if prefetch <= 0 {
		prefetch = 10
	}

	uploadWorkers := 5
	if workers, ok := cfg.RabbitMQ.ConsumerWorkers["upload_consumer_workers"]; ok && workers > 0 {
		uploadWorkers = workers
	}
	analysisWorkers := 3
	if workers, ok := cfg.RabbitMQ.ConsumerWorkers["analysis_consumer_workers"]; ok && workers > 0 {
		analysisWorkers = workers
	}

	rawQueue := cfg.RabbitMQ.RawResumeQueue
	if rawQueue == "" {
		rawQueue = constants.RawResumeQueue
	}
	analysisQueue := cfg.RabbitMQ.AnalysisQueue
	if analysisQueue == "" {
		analysisQueue = constants.AnalysisQueue
	}

	var stops []chan struct{}

	glog.Infof("启动上传消费者，工作协程数: %d", uploadWorkers)
	for i := 0; i < uploadWorkers; i++ {
		stopCh, err := mq.StartConsumer(rawQueue, prefetch, rp.HandleUploadMessage)
		if err != nil {
			glog.Fatalf("启动上传消费者失败: %v", err)
		}
		stops = append(stops, stopCh)
	}

	glog.Infof("启动评估消费者，工作协程数: %d", analysisWorkers)
	for i := 0; i < analysisWorkers; i++ {
		stopCh, err := mq.StartConsumer(analysisQueue, prefetch, rp.HandleAnalysisMessage)
		if err != nil {
			glog.Fatalf("启动评估消费者失败: %v", err)
		}
		stops = append(stops, stopCh)
	}

	glog.Info("所有消费者已启动")
	return stops
}
