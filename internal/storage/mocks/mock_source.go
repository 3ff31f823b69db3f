package mocks

import (
	"context"
	"io"

	"chatpage/internal/storage"

	"github.com/stretchr/testify/mock"
)

type MockSource struct {
	mock.Mock
}

func (m *MockSource) Get(ctx context.Context, key string) (io.ReadCloser, storage.ObjectInfo, error) {
	args := m.Called(ctx, key)
	if f, ok := args.Get(0).(func() io.ReadCloser); ok {
		return f(), args.Get(1).(storage.ObjectInfo), args.Error(2)
	}
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Get(1).(storage.ObjectInfo), args.Error(2)
}
