package pricecache_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"stockdiff/internal/model"
	"stockdiff/internal/pricecache"
)

func point(price int64) model.PricePoint {
	return model.PricePoint{
		Time:   time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC),
		Price:  decimal.NewFromInt(price),
		Source: "minute_bar",
	}
}

func TestGetSet(t *testing.T) {
	c := pricecache.New(time.Minute)

	_, ok := c.Get("minute:2330.TW:2025-05-20:Asia/Taipei:9:0")
	require.False(t, ok, "cold key must miss")

	c.Set("minute:2330.TW:2025-05-20:Asia/Taipei:9:0", point(823))
	got, ok := c.Get("minute:2330.TW:2025-05-20:Asia/Taipei:9:0")
	require.True(t, ok)
	require.True(t, got.Price.Equal(decimal.NewFromInt(823)))
}

func TestSetOverwrites(t *testing.T) {
	c := pricecache.New(time.Minute)
	c.Set("k", point(1))
	c.Set("k", point(2))

	got, ok := c.Get("k")
	require.True(t, ok)
	require.True(t, got.Price.Equal(decimal.NewFromInt(2)))
}

func TestExpiryIsLazyAndDeletes(t *testing.T) {
	c := pricecache.New(10 * time.Millisecond)
	c.Set("k", point(1))
	require.Equal(t, 1, c.Len())

	time.Sleep(20 * time.Millisecond)
	// Entry is still held until someone reads it.
	require.Equal(t, 1, c.Len())

	_, ok := c.Get("k")
	require.False(t, ok, "expired entry must read as absent")
	require.Equal(t, 0, c.Len(), "expired entry must be reaped by the read")
}

func TestZeroTTLExpiresImmediately(t *testing.T) {
	c := pricecache.New(0)
	c.Set("k", point(1))

	_, ok := c.Get("k")
	require.False(t, ok)
}

func TestClear(t *testing.T) {
	c := pricecache.New(time.Minute)
	c.Set("a", point(1))
	c.Set("b", point(2))

	c.Clear()
	require.Equal(t, 0, c.Len())
	_, ok := c.Get("a")
	require.False(t, ok)
}

func TestConcurrentAccess(t *testing.T) {
	c := pricecache.New(time.Minute)
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func(n int64) {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 200; j++ {
				c.Set("k", point(n))
				c.Get("k")
			}
		}(int64(i))
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	_, ok := c.Get("k")
	require.True(t, ok, "last writer's entry must survive")
}
