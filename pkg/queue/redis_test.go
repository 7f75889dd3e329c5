package queue

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var queueNow = time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)

type recordingJob struct {
	typ  string
	err  error
	seen []json.RawMessage
}

func (j *recordingJob) Type() string { return j.typ }

func (j *recordingJob) Handle(_ context.Context, payload json.RawMessage) error {
	j.seen = append(j.seen, payload)
	return j.err
}

func newTestQueue(t *testing.T, cfg Config) (*RedisQueue, redismock.ClientMock) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	q := NewRedisQueue(db, "sg:outcomes", cfg, nil)
	q.now = func() time.Time { return queueNow }
	q.newID = func() string { return "m-1" }
	return q, mock
}

func encode(t *testing.T, msg Message) []byte {
	t.Helper()
	b, err := json.Marshal(msg)
	require.NoError(t, err)
	return b
}

func message(attempts int) Message {
	return Message{
		ID:         "m-1",
		Type:       "signal.outcome",
		Payload:    json.RawMessage(`{"signal_id":"sig-1","result":"WIN"}`),
		Attempts:   attempts,
		EnqueuedAt: queueNow,
	}
}

func TestEnqueueWrapsPayload(t *testing.T) {
	q, mock := newTestQueue(t, Config{})
	mock.ExpectLPush("sg:outcomes:messages", encode(t, message(0))).SetVal(1)

	payload := struct {
		SignalID string `json:"signal_id"`
		Result   string `json:"result"`
	}{"sig-1", "WIN"}
	err := q.Enqueue(context.Background(), "signal.outcome", payload)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessNextHandlesMessage(t *testing.T) {
	q, mock := newTestQueue(t, Config{})
	job := &recordingJob{typ: "signal.outcome"}
	q.RegisterJob(job)

	mock.ExpectBRPop(time.Second, "sg:outcomes:messages").SetVal([]string{"sg:outcomes:messages", string(encode(t, message(0)))})
	ok, err := q.processNext(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	require.Len(t, job.seen, 1)
	assert.JSONEq(t, `{"signal_id":"sig-1","result":"WIN"}`, string(job.seen[0]))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessNextEmptyPoll(t *testing.T) {
	q, mock := newTestQueue(t, Config{})
	mock.ExpectBRPop(time.Second, "sg:outcomes:messages").RedisNil()
	ok, err := q.processNext(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFailedMessageIsScheduledForRetry(t *testing.T) {
	q, mock := newTestQueue(t, Config{RetryLimit: 2, RetryDelay: time.Minute})
	q.RegisterJob(&recordingJob{typ: "signal.outcome", err: errors.New("sink down")})

	mock.ExpectBRPop(time.Second, "sg:outcomes:messages").SetVal([]string{"k", string(encode(t, message(0)))})
	mock.ExpectZAdd("sg:outcomes:retry", redis.Z{
		Score:  float64(queueNow.Add(time.Minute).Unix()),
		Member: encode(t, message(1)),
	}).SetVal(1)

	_, err := q.processNext(context.Background())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExhaustedMessageIsDeadLettered(t *testing.T) {
	q, mock := newTestQueue(t, Config{RetryLimit: 2})
	q.RegisterJob(&recordingJob{typ: "signal.outcome", err: errors.New("sink down")})

	mock.ExpectBRPop(time.Second, "sg:outcomes:messages").SetVal([]string{"k", string(encode(t, message(2)))})
	mock.ExpectLPush("sg:outcomes:dlq", encode(t, message(2))).SetVal(1)

	_, err := q.processNext(context.Background())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnknownTypeAndGarbageAreDeadLettered(t *testing.T) {
	q, mock := newTestQueue(t, Config{})

	mock.ExpectBRPop(time.Second, "sg:outcomes:messages").SetVal([]string{"k", string(encode(t, message(0)))})
	mock.ExpectLPush("sg:outcomes:dlq", encode(t, message(0))).SetVal(1)
	_, err := q.processNext(context.Background())
	require.NoError(t, err)

	mock.ExpectBRPop(time.Second, "sg:outcomes:messages").SetVal([]string{"k", "{not json"})
	mock.ExpectLPush("sg:outcomes:dlq", []byte("{not json")).SetVal(1)
	_, err = q.processNext(context.Background())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessRetriesMovesDueMessages(t *testing.T) {
	q, mock := newTestQueue(t, Config{})
	member := string(encode(t, message(1)))

	mock.ExpectZRangeByScore("sg:outcomes:retry", &redis.ZRangeBy{
		Min: "0",
		Max: strconv.FormatInt(queueNow.Unix(), 10),
	}).SetVal([]string{member})
	mock.ExpectTxPipeline()
	mock.ExpectZRem("sg:outcomes:retry", member).SetVal(1)
	mock.ExpectLPush("sg:outcomes:messages", member).SetVal(1)
	mock.ExpectTxPipelineExec()

	require.NoError(t, q.processRetries(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStartRequiresRedis(t *testing.T) {
	q, mock := newTestQueue(t, Config{})
	mock.ExpectPing().SetErr(errors.New("connection refused"))
	err := q.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.NoError(t, q.Stop(context.Background()))
}

func TestDecode(t *testing.T) {
	type payload struct {
		SignalID string `json:"signal_id"`
	}
	p, err := Decode[payload](json.RawMessage(`{"signal_id":"sig-9"}`))
	require.NoError(t, err)
	assert.Equal(t, "sig-9", p.SignalID)

	_, err = Decode[payload](json.RawMessage(`[`))
	assert.Error(t, err)
}
