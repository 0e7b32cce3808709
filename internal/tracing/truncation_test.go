package tracing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskPII(t *testing.T) {
	assert.Equal(t, "", MaskPII(""))
	assert.Equal(t, "*", MaskPII("a"))
	assert.Equal(t, "张*", MaskPII("张三"), "两字姓名保留首字")
	assert.Equal(t, "王*明", MaskPII("王小明"), "三字姓名保留首尾")
	assert.Equal(t, "13*******78", MaskPII("13812345678"), "手机号保留前后两位")

	masked := MaskPII("myemail@example.com")
	assert.True(t, strings.HasPrefix(masked, "my"))
	assert.True(t, strings.HasSuffix(masked, "om"))
	assert.NotContains(t, masked, "@example")
}

func TestSafeAttributeValueMasksSensitiveNames(t *testing.T) {
	assert.Equal(t, "13*******78", SafeAttributeValue("user.phone", "13812345678", 200), "phone属性应掩码")
	assert.Equal(t, "zh**********om", SafeAttributeValue("contact_email", "zhang@test.com", 200), "email属性应掩码")

	plain := SafeAttributeValue("queue.name", "raw_resume_queue", 200)
	assert.Equal(t, "raw_resume_queue", plain, "普通属性不掩码不截断")
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", TruncateString("short", 10))

	long := strings.Repeat("a", 50) + strings.Repeat("b", 50)
	truncated := TruncateString(long, 21)
	assert.Contains(t, truncated, "...", "超长字符串应带省略号")
	assert.LessOrEqual(t, len([]rune(truncated)), 21)

	assert.Equal(t, "abc", TruncateString("abcdef", 3), "极短上限直接截断")
}

func TestSafeResumeContent(t *testing.T) {
	content := strings.Repeat("工作经历", 100)
	safe := SafeResumeContent(content)
	assert.Less(t, len([]rune(safe)), len([]rune(content)), "简历内容应被截断")
	assert.Contains(t, safe, "...")
}
