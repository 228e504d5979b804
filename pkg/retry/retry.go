// Package retry provides bounded retries with exponential backoff and jitter
// for calls to external services.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"time"

	"rfp-launchpad-go/pkg/log"
)

// Config 控制重试行为。
type Config struct {
	MaxAttempts int           // 最大尝试次数（含首次）
	BaseDelay   time.Duration // 首次退避时长
	MaxDelay    time.Duration // 退避上限
}

// DefaultConfig 是外部服务调用的默认重试策略。
var DefaultConfig = Config{
	MaxAttempts: 3,
	BaseDelay:   500 * time.Millisecond,
	MaxDelay:    8 * time.Second,
}

// StatusError 表示外部 HTTP 服务返回的非 200 状态。
// 429 与 5xx 视为瞬态错误，可重试。
type StatusError struct {
	Code   int
	Status string
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("unexpected status %s: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("unexpected status %s", e.Status)
}

// permanentError 标记不应重试的错误。
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent 将 err 标记为不可重试，Do 遇到后立即返回。
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Retryable 判断错误是否值得重试：网络层错误、429 与 5xx。
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	var perm *permanentError
	if errors.As(err, &perm) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == 429 || statusErr.Code >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return false
}

// Do 以指数退避加抖动的方式执行 fn，直到成功、错误不可重试或次数耗尽。
// op 仅用于日志标识。
func Do(ctx context.Context, cfg Config, op string, fn func() error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	var err error
	delay := cfg.BaseDelay
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !Retryable(err) {
			return err
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		// 半幅抖动，避免对外部服务形成整齐的重试波
		sleep := delay + time.Duration(rand.Int63n(int64(delay)/2+1))
		log.Warnf("[retry] %s 第 %d 次调用失败, %v 后重试: %v", op, attempt, sleep, err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}

		delay *= 2
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
	return fmt.Errorf("%s: 重试 %d 次后仍然失败: %w", op, cfg.MaxAttempts, err)
}
