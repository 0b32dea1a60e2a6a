package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithBatchTagsEntries(t *testing.T) {
	entry := WithBatch(42)
	assert.Equal(t, int64(42), entry.Data["batch_id"])
}
