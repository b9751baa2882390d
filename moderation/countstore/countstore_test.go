package countstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemCountStoreBasics(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cs := NewMemCountStore()

	c, err := cs.GetCount(ctx, "submission", "author-1", PeriodDay)
	assert.NoError(err)
	assert.Equal(0, c)

	assert.NoError(cs.Increment(ctx, "submission", "author-1"))
	assert.NoError(cs.Increment(ctx, "submission", "author-1"))
	assert.NoError(cs.Increment(ctx, "submission", "author-2"))

	for _, period := range []string{PeriodTotal, PeriodDay, PeriodHour} {
		c, err = cs.GetCount(ctx, "submission", "author-1", period)
		assert.NoError(err)
		assert.Equal(2, c)
	}

	c, err = cs.GetCount(ctx, "submission", "author-2", PeriodDay)
	assert.NoError(err)
	assert.Equal(1, c)
}
