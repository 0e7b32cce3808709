package constants

// Redis Key 前缀和格式常量
// 使用统一的命名规范: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "app"

	// FileModulePrefix 文件模块
	FileModulePrefix = "file"
	// AnalysisModulePrefix 评估模块
	AnalysisModulePrefix = "analysis"

	// EntityDedupSet 去重集合实体
	EntityDedupSet = "dedup_set"
	// EntityTextDedupSet 解析文本去重集合实体
	EntityTextDedupSet = "text_dedup_set"
	// EntityResult 评估结果实体
	EntityResult = "result"

	// KeyFileMD5Set 原始文件MD5集合，用于上传去重 (SET)
	// 格式: app:file:dedup_set
	KeyFileMD5Set = AppPrefix + ":" + FileModulePrefix + ":" + EntityDedupSet

	// KeyParsedTextMD5Set 解析文本MD5集合，用于内容去重 (SET)
	// 格式: app:file:text_dedup_set
	KeyParsedTextMD5Set = AppPrefix + ":" + FileModulePrefix + ":" + EntityTextDedupSet

	// KeyAnalysisResult 评估结果缓存 (STRING, JSON值)
	// 格式: app:analysis:result:{submissionUUID}
	KeyAnalysisResult = AppPrefix + ":" + AnalysisModulePrefix + ":" + EntityResult + ":%s"
)
