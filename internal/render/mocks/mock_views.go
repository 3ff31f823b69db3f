package mocks

import (
	"io"

	"github.com/stretchr/testify/mock"
)

// MockViews is a testify mock satisfying fiber.Views.
type MockViews struct {
	mock.Mock
}

func (m *MockViews) Load() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockViews) Render(w io.Writer, name string, binding interface{}, layout ...string) error {
	args := m.Called(w, name, binding)
	if f, ok := args.Get(0).(func(io.Writer) error); ok {
		return f(w)
	}
	return args.Error(0)
}
