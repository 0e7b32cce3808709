package ratelimit

import (
	"context"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// RateLimitedChatModel 包装ToolCallingChatModel，
// 对每次调用做令牌桶限流和可重试错误的退避重试
type RateLimitedChatModel struct {
	inner  model.ToolCallingChatModel
	bucket *TokenBucket
}

// NewRateLimitedChatModel 创建限流代理，qpm为每分钟允许的调用次数
func NewRateLimitedChatModel(inner model.ToolCallingChatModel, qpm int) *RateLimitedChatModel {
	if qpm <= 0 {
		qpm = 30
	}
	return &RateLimitedChatModel{
		inner:  inner,
		bucket: NewTokenBucket(qpm, qpm/2),
	}
}

// WithRetryPolicy 调整重试等待时间和最大重试次数
func (rl *RateLimitedChatModel) WithRetryPolicy(waitTime time.Duration, maxRetries int) *RateLimitedChatModel {
	rl.bucket.WithRetryPolicy(waitTime, maxRetries)
	return rl
}

// Generate 限流后转发Generate调用
func (rl *RateLimitedChatModel) Generate(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.Message, error) {
	var response *schema.Message
	err := rl.bucket.RetryWithBackoff(ctx, func() error {
		var genErr error
		response, genErr = rl.inner.Generate(ctx, messages, options...)
		return genErr
	})
	return response, err
}

// Stream 限流后转发Stream调用
func (rl *RateLimitedChatModel) Stream(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	var stream *schema.StreamReader[*schema.Message]
	err := rl.bucket.RetryWithBackoff(ctx, func() error {
		var streamErr error
		stream, streamErr = rl.inner.Stream(ctx, messages, options...)
		return streamErr
	})
	return stream, err
}

// WithTools 绑定工具后的模型共享同一个令牌桶
func (rl *RateLimitedChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	bound, err := rl.inner.WithTools(tools)
	if err != nil {
		return nil, err
	}
	return &RateLimitedChatModel{
		inner:  bound,
		bucket: rl.bucket,
	}, nil
}
