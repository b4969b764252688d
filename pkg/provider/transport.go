package provider

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"

	"CekNomor/pkg/errors"
)

// classifyTransportError 把传输层错误归一为业务错误码
func classifyTransportError(err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w", errors.ProviderTimeout)
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w", errors.ProviderTimeout)
	}

	return fmt.Errorf("provider transport failure: %v: %w", err, errors.ProviderError)
}
