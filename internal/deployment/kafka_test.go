package deployment

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr/funcr"
	kafka "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/chainfleet/internal/ledger"
	"github.com/imamik/chainfleet/internal/placement"
)

// fakeReader serves queued messages, then err (or blocks until ctx ends
// when err is nil).
type fakeReader struct {
	mu        sync.Mutex
	messages  []kafka.Message
	err       error
	commitErr error
	committed []int64
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.messages) > 0 {
		msg := r.messages[0]
		r.messages = r.messages[1:]
		r.mu.Unlock()
		return msg, nil
	}
	err := r.err
	r.mu.Unlock()
	if err != nil {
		return kafka.Message{}, err
	}
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return r.commitErr
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *fakeReader) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func eventMessage(t *testing.T, offset int64, key string, ev Event) kafka.Message {
	t.Helper()
	value, err := json.Marshal(ev)
	require.NoError(t, err)
	return kafka.Message{Offset: offset, Key: []byte(key), Value: value}
}

func collect(t *testing.T, ch <-chan Update) []Update {
	t.Helper()
	var out []Update
	timeout := time.After(5 * time.Second)
	for {
		select {
		case u, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, u)
		case <-timeout:
			t.Fatal("stream did not close")
		}
	}
}

func TestEventSource_StreamEndsAfterCompleted(t *testing.T) {
	t.Parallel()
	reader := &fakeReader{messages: []kafka.Message{
		eventMessage(t, 0, "s-1", Event{Type: EventAcknowledged}),
		eventMessage(t, 1, "s-2", Event{Type: EventAcknowledged}),
		eventMessage(t, 2, "s-1", Event{Type: EventClusterDeployed, Cluster: &Cluster{ID: "c-1"}}),
		eventMessage(t, 3, "s-1", Event{Type: EventCompleted, Status: StatusSuccess}),
		eventMessage(t, 4, "s-1", Event{Type: EventResource}),
	}}
	var sessions []string
	source := NewEventSourceFromReader(func(sessionID string) MessageReader {
		sessions = append(sessions, sessionID)
		return reader
	})

	updates := collect(t, source.Stream(context.Background(), "s-1"))
	require.Len(t, updates, 3)
	assert.Equal(t, EventAcknowledged, updates[0].Event.Type)
	assert.Equal(t, "c-1", updates[1].Event.Cluster.ID)
	assert.Equal(t, StatusSuccess, updates[2].Event.Status)
	for _, u := range updates {
		assert.NoError(t, u.Err)
	}

	assert.Equal(t, []string{"s-1"}, sessions)
	assert.Equal(t, []int64{0, 1, 2, 3}, reader.committed, "foreign sessions are committed and skipped")
	assert.True(t, reader.isClosed())
}

func TestEventSource_LogsCommitFailures(t *testing.T) {
	t.Parallel()
	var (
		mu    sync.Mutex
		lines []string
	)
	logger := funcr.New(func(prefix, args string) {
		mu.Lock()
		defer mu.Unlock()
		lines = append(lines, args)
	}, funcr.Options{})
	ctx := log.IntoContext(context.Background(), logger)

	reader := &fakeReader{
		commitErr: errors.New("group rebalanced"),
		messages: []kafka.Message{
			eventMessage(t, 0, "s-2", Event{Type: EventAcknowledged}),
			eventMessage(t, 1, "s-1", Event{Type: EventCompleted, Status: StatusSuccess}),
		},
	}
	source := NewEventSourceFromReader(func(string) MessageReader { return reader })

	updates := collect(t, source.Stream(ctx, "s-1"))
	require.Len(t, updates, 1)
	assert.Equal(t, EventCompleted, updates[0].Event.Type)

	mu.Lock()
	defer mu.Unlock()
	var failures []string
	for _, l := range lines {
		if strings.Contains(l, "failed to commit deployment event") {
			failures = append(failures, l)
		}
	}
	require.Len(t, failures, 2, "skipped and delivered events both report commit failures")
	assert.Contains(t, failures[0], `"offset"=0`)
	assert.Contains(t, failures[1], `"offset"=1`)
}

func TestEventSource_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		reader  *fakeReader
		events  int
		wantErr string
	}{
		{
			name:    "read failure",
			reader:  &fakeReader{err: io.ErrUnexpectedEOF},
			wantErr: "failed to read deployment event: unexpected EOF",
		},
		{
			name: "undecodable event",
			reader: &fakeReader{messages: []kafka.Message{
				eventMessage(t, 0, "s-1", Event{Type: EventAcknowledged}),
				{Offset: 7, Key: []byte("s-1"), Value: []byte("{not json")},
			}},
			events:  1,
			wantErr: "failed to decode deployment event at offset 7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			source := NewEventSourceFromReader(func(string) MessageReader { return tt.reader })

			updates := collect(t, source.Stream(context.Background(), "s-1"))
			require.Len(t, updates, tt.events+1)
			last := updates[len(updates)-1]
			require.Error(t, last.Err)
			assert.Contains(t, last.Err.Error(), tt.wantErr)
			assert.True(t, tt.reader.isClosed())
		})
	}
}

func TestEventSource_ContextCancel(t *testing.T) {
	t.Parallel()
	reader := &fakeReader{}
	source := NewEventSourceFromReader(func(string) MessageReader { return reader })

	ctx, cancel := context.WithCancel(context.Background())
	ch := source.Stream(ctx, "s-1")
	cancel()

	assert.Empty(t, collect(t, ch), "cancellation closes the stream without an error update")
	assert.True(t, reader.isClosed())
}

type fakeWriter struct {
	messages []kafka.Message
	err      error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func TestKafkaProvisioner_CreateCluster(t *testing.T) {
	t.Parallel()
	reader := &fakeReader{messages: []kafka.Message{
		eventMessage(t, 0, "session-1", Event{Type: EventCompleted, Status: StatusFailure}),
	}}
	writer := &fakeWriter{}
	p := NewKafkaProvisioner(writer, "cluster-requests", NewEventSourceFromReader(func(string) MessageReader { return reader }))
	p.newID = func() string { return "session-1" }

	spec, err := placement.Plan(placement.Request{FCount: 1, DeploymentType: placement.Unspecified})
	require.NoError(t, err)
	components, err := placement.ComponentsForLedgerType(ledger.Ethereum)
	require.NoError(t, err)

	updates, err := p.CreateCluster(context.Background(), spec, ModelSpec{BlockchainType: ledger.Ethereum, Components: components})
	require.NoError(t, err)

	require.Len(t, writer.messages, 1)
	msg := writer.messages[0]
	assert.Equal(t, "cluster-requests", msg.Topic)
	assert.Equal(t, "session-1", string(msg.Key))

	var req ClusterRequest
	require.NoError(t, json.Unmarshal(msg.Value, &req))
	assert.Equal(t, "session-1", req.SessionID)
	assert.Equal(t, 4, req.Placement.Size())
	assert.Equal(t, ledger.Ethereum, req.Model.BlockchainType)
	assert.Len(t, req.Model.Components, 3)

	got := collect(t, updates)
	require.Len(t, got, 1)
	assert.Equal(t, StatusFailure, got[0].Event.Status)
}

func TestKafkaProvisioner_PublishFailure(t *testing.T) {
	t.Parallel()
	boom := errors.New("no brokers available")
	p := NewKafkaProvisioner(&fakeWriter{err: boom}, "cluster-requests", NewEventSourceFromReader(func(string) MessageReader {
		t.Fatal("no stream may be opened when publishing fails")
		return nil
	}))

	_, err := p.CreateCluster(context.Background(), &placement.Specification{}, ModelSpec{})
	assert.ErrorIs(t, err, boom)
}
