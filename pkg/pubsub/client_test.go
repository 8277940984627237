package pubsub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"cloud.google.com/go/pubsub/v2/pstest"
	"github.com/angelmondragon/elitejewels-backend/pkg/config"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func newFakeClient(t *testing.T, cfg config.PubSubConfig, createTopic bool) (*Client, *pstest.Server, error) {
	t.Helper()
	ctx := context.Background()
	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	if createTopic {
		_, err := srv.GServer.CreateTopic(ctx, &pubsubpb.Topic{Name: "projects/jewels-test/topics/" + cfg.OrdersTopic})
		require.NoError(t, err)
	}

	client, err := NewClient(ctx, config.GCPConfig{ProjectID: "jewels-test"}, cfg, nil, option.WithGRPCConn(conn))
	if client != nil {
		t.Cleanup(func() { _ = client.Close() })
	}
	return client, srv, err
}

func TestNewClientRequiresProject(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{}, nil)
	require.ErrorIs(t, err, errProjectIDRequired)
}

func TestNewClientFailsWhenTopicMissing(t *testing.T) {
	_, _, err := newFakeClient(t, config.PubSubConfig{OrdersTopic: "orders"}, false)
	require.Error(t, err)
	require.Contains(t, err.Error(), "does not exist")
}

func TestOrdersPublisherDeliversEncodedEvent(t *testing.T) {
	client, srv, err := newFakeClient(t, config.PubSubConfig{OrdersTopic: "orders"}, true)
	require.NoError(t, err)

	msg, err := EncodeEvent("order.placed", time.Unix(1700000000, 0), map[string]string{"order_id": "ORD1700000000000"})
	require.NoError(t, err)

	pub := client.OrdersPublisher()
	require.NotNil(t, pub)
	defer pub.Stop()

	_, err = pub.Publish(context.Background(), msg).Get(context.Background())
	require.NoError(t, err)

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "order.placed", msgs[0].Attributes["event_type"])

	var env Envelope
	require.NoError(t, json.Unmarshal(msgs[0].Data, &env))
	require.Equal(t, "order.placed", env.Type)
	require.JSONEq(t, `{"order_id":"ORD1700000000000"}`, string(env.Data))
}

func TestTopicResourceName(t *testing.T) {
	c := &Client{projectID: "p"}
	require.Equal(t, "projects/p/topics/orders", c.topicResourceName(" orders "))
	require.Equal(t, "projects/x/topics/y", c.topicResourceName("projects/x/topics/y"))
	require.Equal(t, "", c.topicResourceName(""))
	require.Nil(t, (*Client)(nil).OrdersPublisher())
}

func TestEmitterPublishesThroughOrdersTopic(t *testing.T) {
	client, srv, err := newFakeClient(t, config.PubSubConfig{OrdersTopic: "orders"}, true)
	require.NoError(t, err)

	emitter := NewEmitter(client.OrdersPublisher())
	defer emitter.Stop()
	require.NoError(t, emitter.Emit(context.Background(), "order.placed", map[string]string{"order_id": "ORD1"}))

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "order.placed", msgs[0].Attributes["event_type"])

	require.Error(t, NewEmitter(nil).Emit(context.Background(), "order.placed", nil))
}

func TestEmitAtCarriesEventIDAndTime(t *testing.T) {
	client, srv, err := newFakeClient(t, config.PubSubConfig{OrdersTopic: "orders"}, true)
	require.NoError(t, err)

	emitter := NewEmitter(client.OrdersPublisher())
	defer emitter.Stop()
	at := time.Date(2025, 4, 2, 9, 30, 0, 0, time.UTC)
	require.NoError(t, emitter.EmitAt(context.Background(), "evt-1", "order.placed", at, json.RawMessage(`{"order_id":"ORD7"}`)))

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "evt-1", msgs[0].Attributes["event_id"])

	var env Envelope
	require.NoError(t, json.Unmarshal(msgs[0].Data, &env))
	require.True(t, env.OccurredAt.Equal(at))
	require.JSONEq(t, `{"order_id":"ORD7"}`, string(env.Data))
}
