package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/wrale/wrale-search/internal/wsearchd/upstream"
)

// Source implements a mock upstream.Source
type Source struct {
	mock.Mock
}

var _ upstream.Source = (*Source)(nil)

func (m *Source) Query(ctx context.Context, req upstream.Request) ([]upstream.Row, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]upstream.Row), args.Error(1)
}
