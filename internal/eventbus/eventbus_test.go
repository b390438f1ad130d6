package eventbus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type ping struct{ n int }
type pong struct{}

func TestPublishSubscribe(t *testing.T) {
	Use(New())
	defer Use(nil)

	var got []int
	record := func(_ context.Context, e ping) { got = append(got, e.n) }
	unsub1 := Subscribe(record)
	unsub2 := Subscribe(record)
	Subscribe(func(context.Context, pong) { t.Fatal("pong handler called for ping") })

	Publish(context.Background(), ping{1})
	assert.Equal(t, []int{1, 1}, got)

	unsub1()
	Publish(context.Background(), ping{2})
	assert.Equal(t, []int{1, 1, 2}, got)

	unsub2()
	Publish(context.Background(), ping{3})
	assert.Equal(t, []int{1, 1, 2}, got)
}

func TestPublishWithoutBus(t *testing.T) {
	Use(nil)
	called := false
	Subscribe(func(context.Context, ping) { called = true })
	Publish(context.Background(), ping{1})
	assert.False(t, called)
}
