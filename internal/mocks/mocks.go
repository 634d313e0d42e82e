// File: internal/mocks/mocks.go
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/xkilldash9x/hometax-cli/internal/record"
	"github.com/xkilldash9x/hometax-cli/internal/source"
	"github.com/xkilldash9x/hometax-cli/internal/wizard"
)

// -- Page Driver Mock --

// MockDriver mocks wizard.Driver.
type MockDriver struct {
	mock.Mock
}

var _ wizard.Driver = (*MockDriver)(nil)

func (m *MockDriver) SetField(ctx context.Context, id, value string) error {
	args := m.Called(ctx, id, value)
	return args.Error(0)
}

func (m *MockDriver) Click(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDriver) SelectOption(ctx context.Context, id, visibleText string) error {
	args := m.Called(ctx, id, visibleText)
	return args.Error(0)
}

func (m *MockDriver) IsChecked(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockDriver) ReadText(ctx context.Context, id string) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

func (m *MockDriver) Exists(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockDriver) SwitchToDefaultContext(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockDriver) SwitchToWorkingFrame(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockDriver) ScrollToTop(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockDriver) WaitForModal(ctx context.Context, timeout time.Duration) (string, error) {
	args := m.Called(ctx, timeout)
	return args.String(0), args.Error(1)
}

func (m *MockDriver) AcceptModal(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockDriver) DismissModal(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// -- Record Source Mock --

// MockRecordSource mocks the orchestrator's view of a source.Source.
type MockRecordSource struct {
	mock.Mock
}

func (m *MockRecordSource) Next() (source.Result, error) {
	args := m.Called()
	return args.Get(0).(source.Result), args.Error(1)
}

func (m *MockRecordSource) Raw() record.RawRow {
	args := m.Called()
	if raw := args.Get(0); raw != nil {
		return raw.(record.RawRow)
	}
	return nil
}

func (m *MockRecordSource) Row() int {
	args := m.Called()
	return args.Int(0)
}

// -- Form Controller Mock --

// MockFormController mocks the orchestrator's view of a wizard.Controller.
type MockFormController struct {
	mock.Mock
}

func (m *MockFormController) Preflight(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockFormController) Reset(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockFormController) Submit(ctx context.Context, rec record.Record) (wizard.Outcome, error) {
	args := m.Called(ctx, rec)
	return args.Get(0).(wizard.Outcome), args.Error(1)
}
