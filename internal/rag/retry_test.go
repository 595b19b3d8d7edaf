package rag

import (
	"context"
	"errors"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"
)

func TestRetryPolicyDo(t *testing.T) {
	t.Run("前两次失败后成功", func(t *testing.T) {
		policy := RetryPolicy{
			MaxAttempts: 3,
			BaseDelay:   time.Millisecond,
			Retryable:   func(error) bool { return true },
		}

		calls := 0
		err := policy.Do(context.Background(), func(ctx context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("瞬态错误")
			}
			return nil
		})

		require.NoError(t, err)
		require.Equal(t, 3, calls)
	})

	t.Run("重试耗尽返回最后一个错误", func(t *testing.T) {
		policy := RetryPolicy{
			MaxAttempts: 3,
			BaseDelay:   time.Millisecond,
			Retryable:   func(error) bool { return true },
		}

		calls := 0
		lastErr := errors.New("一直失败")
		err := policy.Do(context.Background(), func(ctx context.Context) error {
			calls++
			return lastErr
		})

		require.ErrorIs(t, err, lastErr)
		require.Equal(t, 3, calls)
	})

	t.Run("不可重试错误立即返回", func(t *testing.T) {
		policy := RetryPolicy{
			MaxAttempts: 3,
			BaseDelay:   time.Millisecond,
			Retryable:   func(error) bool { return false },
		}

		calls := 0
		err := policy.Do(context.Background(), func(ctx context.Context) error {
			calls++
			return errors.New("参数错误")
		})

		require.Error(t, err)
		require.Equal(t, 1, calls)
	})

	t.Run("退避按指数增长", func(t *testing.T) {
		policy := RetryPolicy{
			MaxAttempts: 3,
			BaseDelay:   10 * time.Millisecond,
			Retryable:   func(error) bool { return true },
		}

		start := time.Now()
		_ = policy.Do(context.Background(), func(ctx context.Context) error {
			return errors.New("失败")
		})
		elapsed := time.Since(start)

		// 两次退避: 10ms + 20ms
		require.GreaterOrEqual(t, elapsed, 30*time.Millisecond)
	})

	t.Run("上下文取消中断重试", func(t *testing.T) {
		policy := RetryPolicy{
			MaxAttempts: 5,
			BaseDelay:   time.Hour, // 取消必须先于退避结束
			Retryable:   func(error) bool { return true },
		}

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()

		calls := 0
		err := policy.Do(ctx, func(ctx context.Context) error {
			calls++
			return errors.New("失败")
		})

		require.ErrorIs(t, err, context.Canceled)
		require.Equal(t, 1, calls)
	})
}

func TestIsRetryableError(t *testing.T) {
	t.Run("限流与服务端错误可重试", func(t *testing.T) {
		for _, status := range []int{429, 500, 502, 503, 504} {
			err := &openai.APIError{HTTPStatusCode: status}
			require.True(t, IsRetryableError(err), "status %d", status)
		}
	})

	t.Run("客户端错误不可重试", func(t *testing.T) {
		for _, status := range []int{400, 401, 403, 404} {
			err := &openai.APIError{HTTPStatusCode: status}
			require.False(t, IsRetryableError(err), "status %d", status)
		}
	})

	t.Run("超时类消息可重试", func(t *testing.T) {
		require.True(t, IsRetryableError(errors.New("dial tcp: i/o timeout")))
		require.True(t, IsRetryableError(errors.New("read: connection reset by peer")))
	})

	t.Run("nil不可重试", func(t *testing.T) {
		require.False(t, IsRetryableError(nil))
	})
}
