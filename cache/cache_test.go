package cache_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/velodee/vcs/cache"
)

func TestPutUnderMultipleAliasesReturnsIdenticalValue(t *testing.T) {
	c := cache.New(0)
	value := "changeset-42"
	c.Put(value, 42, "deadbeef", "tip")

	for _, key := range []interface{}{42, "deadbeef", "tip"} {
		got, ok := c.Get(key)
		assert.True(t, ok)
		assert.Equal(t, value, got)
	}
}

func TestGetMissReportsFalse(t *testing.T) {
	c := cache.New(0)
	_, ok := c.Get("nope")
	assert.False(t, ok)
}

func TestForgetRemovesOnlyGivenAliasesNotOthers(t *testing.T) {
	c := cache.New(0)
	c.Put("v", "tip", "deadbeef", 7)
	c.Forget("tip")

	_, ok := c.Get("tip")
	assert.False(t, ok)

	got, ok := c.Get("deadbeef")
	assert.True(t, ok)
	assert.Equal(t, "v", got)

	got, ok = c.Get(7)
	assert.True(t, ok)
	assert.Equal(t, "v", got)
}

func TestLenCountsKeysNotValues(t *testing.T) {
	c := cache.New(0)
	c.Put("v", "a", "b", "c")
	assert.Equal(t, 3, c.Len())
}
