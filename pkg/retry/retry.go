package retry

import (
	"context"
	"fmt"
	"time"

	pkgerrors "github.com/HUI135/gc-endoscopy-room-sub001/pkg/errors"
)

// Do 以固定间隔重试 fn，最多 attempts 次
// 全部失败时返回包裹 ErrExternalStore 的最后一次错误；ctx 取消时立即返回
func Do(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for i := 1; i <= attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w: %v", pkgerrors.ErrExternalStore, ctx.Err())
		case <-timer.C:
		}
	}
	return fmt.Errorf("%w: 重试 %d 次后仍失败: %v", pkgerrors.ErrExternalStore, attempts, err)
}
