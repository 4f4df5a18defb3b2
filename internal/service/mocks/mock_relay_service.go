package mocks

import (
	"context"
	"io"

	"filerelay/internal/model"
	"github.com/stretchr/testify/mock"
)

type MockRelayService struct {
	mock.Mock
}

func (m *MockRelayService) Upload(ctx context.Context, r io.Reader, originalFilename string, contentType string, size int64, initiatorID string) (*model.FileRecord, error) {
	args := m.Called(ctx, r, originalFilename, contentType, size, initiatorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FileRecord), args.Error(1)
}

func (m *MockRelayService) List(ctx context.Context) ([]model.FileRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.FileRecord), args.Error(1)
}

func (m *MockRelayService) Open(ctx context.Context, savedName string) (io.ReadCloser, *model.FileRecord, error) {
	args := m.Called(ctx, savedName)
	var rc io.ReadCloser
	if args.Get(0) != nil {
		rc = args.Get(0).(io.ReadCloser)
	}
	if args.Get(1) == nil {
		return rc, nil, args.Error(2)
	}
	return rc, args.Get(1).(*model.FileRecord), args.Error(2)
}
