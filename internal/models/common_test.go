// internal/models/common_test.go
package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatusTransitions(t *testing.T) {
	// created may move anywhere
	assert.True(t, OrderStatusCreated.CanTransition(OrderStatusFulfilled))
	assert.True(t, OrderStatusCreated.CanTransition(OrderStatusCancelled))

	// a refund cancels even a fulfilled order
	assert.True(t, OrderStatusFulfilled.CanTransition(OrderStatusCancelled))
	assert.False(t, OrderStatusFulfilled.CanTransition(OrderStatusCreated))
	assert.True(t, OrderStatusFulfilled.CanTransition(OrderStatusFulfilled))

	// cancelled is terminal, replays of itself excepted
	assert.True(t, OrderStatusCancelled.CanTransition(OrderStatusCancelled))
	assert.False(t, OrderStatusCancelled.CanTransition(OrderStatusCreated))
	assert.False(t, OrderStatusCancelled.CanTransition(OrderStatusFulfilled))
}
