package postgame

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcnats "github.com/testcontainers/testcontainers-go/modules/nats"

	"github.com/mcoot/mahjongtracker/internal/model"
)

type fakeConn struct {
	subject string
	data    []byte
	err     error
	flushed bool
	closed  bool
}

func (c *fakeConn) Publish(subject string, data []byte) error {
	c.subject = subject
	c.data = data
	return c.err
}

func (c *fakeConn) FlushWithContext(ctx context.Context) error {
	c.flushed = true
	return nil
}

func (c *fakeConn) Close() {
	c.closed = true
}

func TestNATSPublisherPublishesJSON(t *testing.T) {
	conn := &fakeConn{}
	publisher := newNATSPublisher(conn, "")

	summary := &Summary{GameID: 3, GameCode: "ABCD", WinnerCounts: map[string]int{"alice": 1}}
	require.NoError(t, publisher.Publish(context.Background(), summary, "ignored"))

	assert.Equal(t, DefaultNATSSubject, conn.subject)
	assert.True(t, conn.flushed)

	var got Summary
	require.NoError(t, json.Unmarshal(conn.data, &got))
	assert.Equal(t, *summary, got)

	publisher.Close()
	assert.True(t, conn.closed)
}

func TestNATSPublisherReturnsPublishError(t *testing.T) {
	conn := &fakeConn{err: errors.New("connection closed")}
	publisher := newNATSPublisher(conn, "custom.subject")

	err := publisher.Publish(context.Background(), &Summary{GameID: 1}, "")
	assert.ErrorContains(t, err, "connection closed")
	assert.Equal(t, "custom.subject", conn.subject)
	assert.False(t, conn.flushed)
}

func TestNATSPublisherAgainstServer(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping nats container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := tcnats.Run(ctx, "nats:2.9.22-alpine")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate nats container: %v", err)
		}
	})

	url, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	sub, err := nats.Connect(url)
	require.NoError(t, err)
	defer sub.Close()
	messages := make(chan *nats.Msg, 1)
	_, err = sub.ChanSubscribe(DefaultNATSSubject, messages)
	require.NoError(t, err)
	require.NoError(t, sub.Flush())

	publisher, err := NewNATSPublisher(url, "")
	require.NoError(t, err)
	defer publisher.Close()

	require.NoError(t, publisher.Publish(ctx, &Summary{GameID: 9, GameCode: "NATS"}, ""))

	select {
	case msg := <-messages:
		var got Summary
		require.NoError(t, json.Unmarshal(msg.Data, &got))
		assert.Equal(t, model.GameID(9), got.GameID)
		assert.Equal(t, model.GameCode("NATS"), got.GameCode)
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for summary message")
	}
}
