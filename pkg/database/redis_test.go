package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRedisClient_InvalidURL(t *testing.T) {
	client, err := NewRedisClient(context.Background(), "http://not-redis")

	assert.Error(t, err)
	assert.Nil(t, client)
}

func TestNewPgxPool_EmptyURL(t *testing.T) {
	pool, err := NewPgxPool(context.Background(), "", true)

	assert.Error(t, err)
	assert.Nil(t, pool)
}
