package provider

import (
	"context"
	"sync"

	"CekNomor/internal/model"
)

type MockCall struct {
	Target  Target
	Binding *Binding
}

// MockValidator 可配置的校验变体 mock，实现 Validator 接口
type MockValidator struct {
	mu    sync.Mutex
	Calls []MockCall

	PlatformV     model.Platform
	MethodV       model.Method
	CostV         int
	NeedsAccountV bool

	// Results 按号码预置的结果，未命中时返回 Default
	Results map[string]model.Result
	Default model.Result

	// FailNext 置为非 nil 时，下一次调用返回该错误并自动复位
	FailNext error
	// FailAlways 置为非 nil 时每次调用都返回该错误
	FailAlways error
}

func NewMockValidator(platform model.Platform, method model.Method, cost int) *MockValidator {
	return &MockValidator{
		PlatformV: platform,
		MethodV:   method,
		CostV:     cost,
		Results:   make(map[string]model.Result),
		Default:   model.Result{Status: model.ResultActive},
	}
}

func (m *MockValidator) Platform() model.Platform { return m.PlatformV }
func (m *MockValidator) Method() model.Method     { return m.MethodV }
func (m *MockValidator) Cost() int                { return m.CostV }
func (m *MockValidator) NeedsAccount() bool       { return m.NeedsAccountV }

func (m *MockValidator) Validate(ctx context.Context, target Target, binding *Binding) (model.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, MockCall{Target: target, Binding: binding})

	if m.FailAlways != nil {
		return model.Result{Status: model.ResultUnknown}, m.FailAlways
	}
	if m.FailNext != nil {
		err := m.FailNext
		m.FailNext = nil
		return model.Result{Status: model.ResultUnknown}, err
	}

	if result, ok := m.Results[target.Phone]; ok {
		return result, nil
	}
	return m.Default, nil
}

// CallCount 已记录的调用次数
func (m *MockValidator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
