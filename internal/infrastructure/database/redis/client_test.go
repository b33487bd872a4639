package redis

import (
	"context"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"

	"github.com/matsource/matsource/internal/infrastructure/monitoring/logging"
)

func TestClientClosedStateRejectsCommands(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := &Client{rdb: db, logger: logging.NewNopLogger()}

	assert.NoError(t, c.Close())
	// idempotent
	assert.NoError(t, c.Close())

	assert.Equal(t, ErrClientClosed, c.Ping(context.Background()))
	assert.Equal(t, ErrClientClosed, c.Get(context.Background(), "k").Err())
	assert.Equal(t, ErrClientClosed, c.Set(context.Background(), "k", "v", 0).Err())
	assert.Equal(t, ErrClientClosed, c.Del(context.Background(), "k").Err())

	assert.NoError(t, mock.ExpectationsWereMet())
}
