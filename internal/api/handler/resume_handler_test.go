package handler

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"resume-analyzer-go/internal/config"
	"resume-analyzer-go/internal/constants"
	"resume-analyzer-go/internal/parser"
	"resume-analyzer-go/internal/storage"
	"resume-analyzer-go/internal/storage/models"
	"resume-analyzer-go/internal/types"
	"resume-analyzer-go/pkg/utils"
)

// ----- 测试替身 -----

type fakeObjectStore struct {
	uploadedUUID string
	uploadedExt  string
	uploadedSize int64
	uploadErr    error
}

func (f *fakeObjectStore) UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (string, error) {
	return objectName, nil
}
func (f *fakeObjectStore) DownloadFile(ctx context.Context, objectName string) ([]byte, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeObjectStore) GetPresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	return "", errors.New("not implemented")
}
func (f *fakeObjectStore) DeleteFile(ctx context.Context, objectName string) error { return nil }
func (f *fakeObjectStore) UploadResumeFile(ctx context.Context, submissionUUID string, ext string, reader io.Reader, size int64) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.uploadedUUID = submissionUUID
	f.uploadedExt = ext
	f.uploadedSize = size
	return "resume/" + submissionUUID + "/original" + ext, nil
}
func (f *fakeObjectStore) UploadParsedText(ctx context.Context, submissionUUID string, text string) (string, error) {
	return "resume/" + submissionUUID + "/parsed_text.txt", nil
}
func (f *fakeObjectStore) GetResumeFile(ctx context.Context, objectKey string) ([]byte, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeObjectStore) GetParsedText(ctx context.Context, objectKey string) (string, error) {
	return "", errors.New("not implemented")
}

type publishedMessage struct {
	Exchange   string
	RoutingKey string
	Payload    interface{}
}

type fakeQueue struct {
	published  []publishedMessage
	publishErr error
}

func (f *fakeQueue) PublishMessage(ctx context.Context, exchange, routingKey string, body []byte, persistent bool) error {
	return f.publishErr
}
func (f *fakeQueue) PublishJSON(ctx context.Context, exchange, routingKey string, payload interface{}, persistent bool) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, publishedMessage{Exchange: exchange, RoutingKey: routingKey, Payload: payload})
	return nil
}
func (f *fakeQueue) EnsureExchange(exchange, kind string, durable bool) error { return nil }
func (f *fakeQueue) EnsureQueue(queueName string, durable bool) error         { return nil }
func (f *fakeQueue) BindQueue(queueName, exchange, routingKey string) error   { return nil }
func (f *fakeQueue) Close() error                                             { return nil }

type fakeDedup struct {
	existing map[string]bool
	added    []string
	checkErr error
	addErr   error
}

func (f *fakeDedup) CheckRawFileMD5Exists(ctx context.Context, md5Hex string) (bool, error) {
	if f.checkErr != nil {
		return false, f.checkErr
	}
	return f.existing[md5Hex], nil
}
func (f *fakeDedup) AddRawFileMD5(ctx context.Context, md5Hex string) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.added = append(f.added, md5Hex)
	return nil
}

type fakeCache struct {
	results map[string]*types.ResumeAnalysis
	getErr  error
}

func (f *fakeCache) GetCachedAnalysisResult(ctx context.Context, submissionUUID string) (*types.ResumeAnalysis, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if result, ok := f.results[submissionUUID]; ok {
		return result, nil
	}
	return nil, storage.ErrNotFound
}

type fakeAnalysisStore struct {
	analyses    map[string]*models.ResumeAnalysisRecord
	submissions map[string]*models.ResumeSubmission
}

func (f *fakeAnalysisStore) GetAnalysisBySubmissionUUID(ctx context.Context, submissionUUID string) (*models.ResumeAnalysisRecord, error) {
	if record, ok := f.analyses[submissionUUID]; ok {
		return record, nil
	}
	return nil, gorm.ErrRecordNotFound
}
func (f *fakeAnalysisStore) GetResumeSubmission(ctx context.Context, submissionUUID string) (*models.ResumeSubmission, error) {
	if submission, ok := f.submissions[submissionUUID]; ok {
		return submission, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeValidator struct {
	err error
}

func (f *fakeValidator) ValidateFile(file *types.UploadedFile) error { return f.err }

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.RabbitMQ.ResumeEventsExchange = constants.ResumeEventsExchange
	cfg.RabbitMQ.UploadedRoutingKey = constants.RawResumeRoutingKey
	return cfg
}

func newTestHandler(store *fakeObjectStore, queue *fakeQueue, dedup *fakeDedup,
	cache *fakeCache, db *fakeAnalysisStore, validator FileValidator) *ResumeHandler {
	// 避免将nil具体指针装入接口后绕过handler的nil判断
	var dedupIface FileDedup
	if dedup != nil {
		dedupIface = dedup
	}
	var cacheIface AnalysisCache
	if cache != nil {
		cacheIface = cache
	}
	var dbIface AnalysisStore
	if db != nil {
		dbIface = db
	}
	return newHandlerWithDeps(testConfig(), store, queue, dedupIface, cacheIface, dbIface, validator)
}

// ----- 上传流程 -----

func TestHandleResumeUploadHappyPath(t *testing.T) {
	store := &fakeObjectStore{}
	queue := &fakeQueue{}
	dedup := &fakeDedup{existing: map[string]bool{}}
	h := newTestHandler(store, queue, dedup, nil, nil, &fakeValidator{})

	content := "%PDF-1.4 fake resume bytes"
	resp, err := h.HandleResumeUpload(context.Background(), strings.NewReader(content),
		int64(len(content)), "resume.pdf", "application/pdf", "job-42", "web_upload")
	require.NoError(t, err, "正常上传不应返回错误")

	assert.Equal(t, constants.StatusSubmitted, resp.Status, "状态应为已受理")
	assert.NotEmpty(t, resp.SubmissionUUID, "应生成提交UUID")
	assert.Equal(t, resp.SubmissionUUID, store.uploadedUUID, "上传对象应使用同一UUID")
	assert.Equal(t, ".pdf", store.uploadedExt)
	assert.Equal(t, int64(len(content)), store.uploadedSize)

	expectedMD5 := utils.CalculateMD5([]byte(content))
	assert.Equal(t, []string{expectedMD5}, dedup.added, "文件MD5应登记到去重集合")

	require.Len(t, queue.published, 1, "应发布一条上传消息")
	assert.Equal(t, constants.ResumeEventsExchange, queue.published[0].Exchange)
	assert.Equal(t, constants.RawResumeRoutingKey, queue.published[0].RoutingKey)
	msg, ok := queue.published[0].Payload.(storage.ResumeUploadMessage)
	require.True(t, ok, "消息类型应为ResumeUploadMessage")
	assert.Equal(t, resp.SubmissionUUID, msg.SubmissionUUID)
	assert.Equal(t, "job-42", msg.TargetJobID)
	assert.Equal(t, "resume.pdf", msg.OriginalFilename)
	assert.Equal(t, expectedMD5, msg.RawFileMD5)
	assert.Equal(t, "resume/"+resp.SubmissionUUID+"/original.pdf", msg.OriginalFilePathOSS)
}

func TestHandleResumeUploadDuplicateFile(t *testing.T) {
	content := "duplicate content"
	md5Hex := utils.CalculateMD5([]byte(content))
	store := &fakeObjectStore{}
	queue := &fakeQueue{}
	dedup := &fakeDedup{existing: map[string]bool{md5Hex: true}}
	h := newTestHandler(store, queue, dedup, nil, nil, &fakeValidator{})

	resp, err := h.HandleResumeUpload(context.Background(), strings.NewReader(content),
		int64(len(content)), "dup.pdf", "application/pdf", "", "web_upload")
	require.NoError(t, err)

	assert.Equal(t, constants.StatusDuplicateFileSkipped, resp.Status, "重复文件应跳过处理")
	assert.Empty(t, resp.SubmissionUUID, "重复文件不分配UUID")
	assert.Empty(t, store.uploadedUUID, "重复文件不应上传到对象存储")
	assert.Empty(t, queue.published, "重复文件不应发布消息")
}

func TestHandleResumeUploadDedupCheckError(t *testing.T) {
	h := newTestHandler(&fakeObjectStore{}, &fakeQueue{},
		&fakeDedup{checkErr: errors.New("redis down")}, nil, nil, &fakeValidator{})

	_, err := h.HandleResumeUpload(context.Background(), strings.NewReader("x"),
		1, "a.pdf", "application/pdf", "", "web_upload")
	require.Error(t, err, "去重查询失败应中止上传")
}

func TestHandleResumeUploadValidationError(t *testing.T) {
	queue := &fakeQueue{}
	h := newTestHandler(&fakeObjectStore{}, queue, nil, nil, nil,
		&fakeValidator{err: parser.ErrFileTooLarge})

	_, err := h.HandleResumeUpload(context.Background(), strings.NewReader("big"),
		3, "huge.pdf", "application/pdf", "", "web_upload")
	require.Error(t, err)
	assert.True(t, errors.Is(err, parser.ErrFileTooLarge), "应透传校验哨兵错误")
	assert.Empty(t, queue.published)
}

func TestHandleResumeUploadAddMD5FailureTolerated(t *testing.T) {
	queue := &fakeQueue{}
	dedup := &fakeDedup{existing: map[string]bool{}, addErr: errors.New("redis write failed")}
	h := newTestHandler(&fakeObjectStore{}, queue, dedup, nil, nil, &fakeValidator{})

	resp, err := h.HandleResumeUpload(context.Background(), strings.NewReader("content"),
		7, "r.pdf", "application/pdf", "", "web_upload")
	require.NoError(t, err, "MD5登记失败不应影响上传结果")
	assert.Equal(t, constants.StatusSubmitted, resp.Status)
	assert.Len(t, queue.published, 1)
}

func TestHandleResumeUploadDefaultExtension(t *testing.T) {
	store := &fakeObjectStore{}
	h := newTestHandler(store, &fakeQueue{}, nil, nil, nil, &fakeValidator{})

	_, err := h.HandleResumeUpload(context.Background(), strings.NewReader("content"),
		7, "noextension", "application/octet-stream", "", "web_upload")
	require.NoError(t, err)
	assert.Equal(t, ".pdf", store.uploadedExt, "无扩展名时默认.pdf")
}

// ----- 评估结果查询 -----

func TestGetAnalysisCacheHit(t *testing.T) {
	cached := &types.ResumeAnalysis{ATSScore: 88, AnalysisID: "cached-analysis"}
	cache := &fakeCache{results: map[string]*types.ResumeAnalysis{"uuid-1": cached}}
	db := &fakeAnalysisStore{}
	h := newTestHandler(nil, nil, nil, cache, db, nil)

	analysis, err := h.GetAnalysis(context.Background(), "uuid-1")
	require.NoError(t, err)
	assert.Equal(t, "cached-analysis", analysis.AnalysisID, "应命中缓存")
	assert.Equal(t, 88, analysis.ATSScore)
}

func TestGetAnalysisCacheMissFallsBackToDB(t *testing.T) {
	evaluatedAt := time.Now().Truncate(time.Second)
	record := &models.ResumeAnalysisRecord{
		AnalysisID:       "db-analysis",
		SubmissionUUID:   "uuid-2",
		ATSScore:         72,
		ContentScore:     70,
		FormattingScore:  75,
		KeywordsScore:    68,
		StructureScore:   80,
		ToneScore:        71,
		StrengthsJSON:    utils.ConvertArrayToJSON([]string{"结构清晰"}),
		WeaknessesJSON:   utils.ConvertArrayToJSON([]string{"关键词不足"}),
		ImprovementsJSON: utils.ConvertArrayToJSON([]string{"补充量化成果"}),
		ATSCompatibility: "整体兼容性良好",
		CareerLevel:      "mid",
		Fallback:         false,
		EvaluatedAt:      evaluatedAt,
	}
	cache := &fakeCache{results: map[string]*types.ResumeAnalysis{}}
	db := &fakeAnalysisStore{analyses: map[string]*models.ResumeAnalysisRecord{"uuid-2": record}}
	h := newTestHandler(nil, nil, nil, cache, db, nil)

	analysis, err := h.GetAnalysis(context.Background(), "uuid-2")
	require.NoError(t, err)
	assert.Equal(t, "db-analysis", analysis.AnalysisID)
	assert.Equal(t, 72, analysis.ATSScore)
	assert.Equal(t, 75, analysis.Categories.Formatting)
	assert.Equal(t, []string{"结构清晰"}, analysis.Strengths)
	assert.Equal(t, []string{"关键词不足"}, analysis.Weaknesses)
	assert.Equal(t, []string{"补充量化成果"}, analysis.Improvements)
	assert.Equal(t, "mid", analysis.CareerLevel)
	assert.Equal(t, evaluatedAt.Unix(), analysis.EvaluatedAt)
}

func TestGetAnalysisNotFound(t *testing.T) {
	h := newTestHandler(nil, nil, nil,
		&fakeCache{results: map[string]*types.ResumeAnalysis{}},
		&fakeAnalysisStore{}, nil)

	_, err := h.GetAnalysis(context.Background(), "missing-uuid")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAnalysisNotFound), "不存在的提交应返回哨兵错误")
}

func TestGetAnalysisCacheErrorFallsBack(t *testing.T) {
	record := &models.ResumeAnalysisRecord{AnalysisID: "db-only", SubmissionUUID: "uuid-3", ATSScore: 60}
	cache := &fakeCache{getErr: errors.New("redis timeout")}
	db := &fakeAnalysisStore{analyses: map[string]*models.ResumeAnalysisRecord{"uuid-3": record}}
	h := newTestHandler(nil, nil, nil, cache, db, nil)

	analysis, err := h.GetAnalysis(context.Background(), "uuid-3")
	require.NoError(t, err, "缓存故障应回源数据库")
	assert.Equal(t, "db-only", analysis.AnalysisID)
}

// ----- 状态查询 -----

func TestGetSubmissionStatus(t *testing.T) {
	updatedAt := time.Now()
	submission := &models.ResumeSubmission{
		SubmissionUUID:   "uuid-4",
		ProcessingStatus: constants.StatusQueuedForAnalysis,
		OriginalFilename: "resume.pdf",
		ParserVersion:    "1.0",
		UpdatedAt:        updatedAt,
	}
	db := &fakeAnalysisStore{submissions: map[string]*models.ResumeSubmission{"uuid-4": submission}}
	h := newTestHandler(nil, nil, nil, nil, db, nil)

	status, err := h.GetSubmissionStatus(context.Background(), "uuid-4")
	require.NoError(t, err)
	assert.Equal(t, constants.StatusQueuedForAnalysis, status.ProcessingStatus)
	assert.Equal(t, "resume.pdf", status.OriginalFilename)
	assert.Equal(t, updatedAt.Unix(), status.UpdatedAt)
}

func TestGetSubmissionStatusNotFound(t *testing.T) {
	h := newTestHandler(nil, nil, nil, nil, &fakeAnalysisStore{}, nil)

	_, err := h.GetSubmissionStatus(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAnalysisNotFound))
}
