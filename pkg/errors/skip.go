package errors

import (
	stderrors "errors"
	"fmt"
)

// SkipMessageError 消费者返回此错误表示消息应被确认丢弃而不是重回队列，
// 用于幂等检查命中等不可重试的场景
type SkipMessageError struct {
	Reason string
}

func (e *SkipMessageError) Error() string {
	return fmt.Sprintf("skip message: %s", e.Reason)
}

// IsSkipMessageError 判断错误链上是否带跳过语义
func IsSkipMessageError(err error) bool {
	var skip *SkipMessageError
	return stderrors.As(err, &skip)
}
