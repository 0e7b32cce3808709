package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketAllowBurst(t *testing.T) {
	// 容量3，初始满桶，连续3次放行后第4次拒绝
	tb := NewTokenBucket(60, 3)

	for i := 0; i < 3; i++ {
		assert.True(t, tb.Allow(), "桶内有令牌时应放行")
	}
	assert.False(t, tb.Allow(), "令牌耗尽后应拒绝")
}

func TestTokenBucketRefill(t *testing.T) {
	// 每秒10个令牌
	tb := NewTokenBucket(600, 1)
	require.True(t, tb.Allow())
	require.False(t, tb.Allow())

	time.Sleep(150 * time.Millisecond)
	assert.True(t, tb.Allow(), "等待后应补充出新令牌")
}

func TestWaitRespectsContextCancellation(t *testing.T) {
	tb := NewTokenBucket(1, 1)
	require.True(t, tb.Allow(), "先耗尽令牌")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := tb.Wait(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "上下文超时应中断等待")
}

func TestRetryWithBackoffRetriesRetryableError(t *testing.T) {
	tb := NewTokenBucket(6000, 10).WithRetryPolicy(time.Millisecond, 3)

	calls := 0
	err := tb.RetryWithBackoff(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("429 Too Many Requests")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls, "可重试错误应重试到成功")
}

func TestRetryWithBackoffStopsOnPermanentError(t *testing.T) {
	tb := NewTokenBucket(6000, 10).WithRetryPolicy(time.Millisecond, 3)

	calls := 0
	permanent := errors.New("invalid api key")
	err := tb.RetryWithBackoff(context.Background(), func() error {
		calls++
		return permanent
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls, "不可重试错误不应重试")
	assert.Equal(t, permanent, err)
}

func TestIsRetryableError(t *testing.T) {
	assert.True(t, isRetryableError(errors.New("context deadline exceeded")))
	assert.True(t, isRetryableError(errors.New("read: connection reset by peer")))
	assert.True(t, isRetryableError(errors.New("服务器繁忙，请稍后再试")))
	assert.False(t, isRetryableError(errors.New("invalid request payload")))
	assert.False(t, isRetryableError(nil))
}
