// internal/services/analytics_service_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShareGuardsZeroDenominator(t *testing.T) {
	assert.Equal(t, 0.0, Share(5, 0))
	assert.Equal(t, 0.0, Share(0, 0))
	assert.Equal(t, 0.0, Share(5, -1))
	assert.InDelta(t, 0.25, Share(1, 4), 1e-9)
}
