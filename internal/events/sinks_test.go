package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	natsserver "github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisListSinkAppendsInOrder(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sink := NewRedisListSink(client, "", 0)
	ctx := context.Background()

	require.NoError(t, sink.Emit(ctx, New(NamePageView, map[string]any{"page_path": "/"})))
	require.NoError(t, sink.Emit(ctx, New(NameLeadCaptured, nil)))

	items, err := mr.List("datalayer")
	require.NoError(t, err)
	require.Len(t, items, 2)

	var first Event
	require.NoError(t, json.Unmarshal([]byte(items[0]), &first))
	assert.Equal(t, NamePageView, first.Name)
	assert.Equal(t, "/", first.Payload["page_path"])
	assert.Contains(t, items[1], `"event":"lead_captured"`)
}

func TestRedisListSinkTrims(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sink := NewRedisListSink(client, "queue", 2)
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, sink.Emit(ctx, New(name, nil)))
	}
	items, err := mr.List("queue")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Contains(t, items[0], `"event":"b"`)
}

type fakeSQS struct {
	inputs []*sqs.SendMessageInput
	err    error
}

func (f *fakeSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

func TestSQSSinkStandardQueue(t *testing.T) {
	client := &fakeSQS{}
	sink := NewSQSSink(client, "https://sqs.us-east-1.amazonaws.com/123/landing-events")

	require.NoError(t, sink.Emit(context.Background(), New(NamePageView, nil)))
	require.Len(t, client.inputs, 1)
	in := client.inputs[0]
	assert.Nil(t, in.MessageGroupId)
	assert.Contains(t, aws.ToString(in.MessageBody), `"event":"page_view"`)
	assert.Equal(t, NamePageView, aws.ToString(in.MessageAttributes["event"].StringValue))
}

func TestSQSSinkFIFOGroupsBySession(t *testing.T) {
	client := &fakeSQS{}
	sink := NewSQSSink(client, "https://sqs.us-east-1.amazonaws.com/123/landing-events.fifo")

	evt := New(NameCTAClick, map[string]any{SessionKey: "sess-9"})
	require.NoError(t, sink.Emit(context.Background(), evt))
	in := client.inputs[0]
	assert.Equal(t, "sess-9", aws.ToString(in.MessageGroupId))
	assert.Equal(t, evt.ID, aws.ToString(in.MessageDeduplicationId))
}

func TestSQSSinkWrapsErrors(t *testing.T) {
	sink := NewSQSSink(&fakeSQS{err: errors.New("throttled")}, "https://sqs/q")
	err := sink.Emit(context.Background(), New(NamePageView, nil))
	assert.ErrorContains(t, err, "throttled")
}

func TestNATSSinkPublishesPerEventSubject(t *testing.T) {
	srv := natsserver.RunRandClientPortServer()
	defer srv.Shutdown()

	nc, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err)
	defer nc.Close()

	sub, err := nc.SubscribeSync("landing.events.>")
	require.NoError(t, err)

	sink := NewNATSSink(nc, "")
	evt := New(NameLeadCaptured, map[string]any{"form_source": "hero"})
	require.NoError(t, sink.Emit(context.Background(), evt))
	require.NoError(t, nc.Flush())

	msg, err := sub.NextMsg(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "landing.events.lead_captured", msg.Subject)
	assert.Equal(t, evt.ID, msg.Header.Get("Nats-Msg-Id"))

	var got Event
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	assert.Equal(t, "hero", got.Payload["form_source"])
}

func TestNATSSinkRespectsCanceledContext(t *testing.T) {
	srv := natsserver.RunRandClientPortServer()
	defer srv.Shutdown()
	nc, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err)
	defer nc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, NewNATSSink(nc, "x").Emit(ctx, New(NamePageView, nil)), context.Canceled)
}

func TestPageTrackerMilestonesFireOnce(t *testing.T) {
	tr := NewPageTracker()
	assert.Equal(t, []int{25, 50}, tr.ObserveScroll(60))
	assert.Empty(t, tr.ObserveScroll(55))
	assert.Equal(t, []int{75, 90}, tr.ObserveScroll(100))
	assert.Empty(t, tr.ObserveScroll(100))
	assert.Equal(t, float64(100), tr.MaxProgress())

	assert.Empty(t, tr.ObserveElapsed(10*time.Second))
	assert.Equal(t, []time.Duration{30 * time.Second, 60 * time.Second}, tr.ObserveElapsed(61*time.Second))
	assert.Equal(t, []time.Duration{120 * time.Second, 300 * time.Second}, tr.ObserveElapsed(10*time.Minute))
	assert.Empty(t, tr.ObserveElapsed(time.Hour))
}

func TestTrackerRegistryEvictsIdle(t *testing.T) {
	reg := NewTrackerRegistry(time.Minute)
	first := reg.Get("a")
	assert.Same(t, first, reg.Get("a"))
	reg.Get("b")
	assert.Equal(t, 2, reg.Len())

	assert.Equal(t, 0, reg.Evict(time.Now()))
	assert.Equal(t, 2, reg.Evict(time.Now().Add(2*time.Minute)))
	assert.Equal(t, 0, reg.Len())
}
