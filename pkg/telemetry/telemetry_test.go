package telemetry

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventID_Format(t *testing.T) {
	id := NewEventID()

	s := id.String()
	assert.Len(t, s, 32)
	assert.NotContains(t, s, "-")
	assert.False(t, id.IsZero())
	assert.True(t, NilEventID.IsZero())

	parsed, err := ParseEventID(s)
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestEventID_ParseDashed(t *testing.T) {
	parsed, err := ParseEventID("9ec79c33-ec99-42ab-8353-589fcb2e04dc")
	require.NoError(t, err)
	assert.Equal(t, "9ec79c33ec9942ab8353589fcb2e04dc", parsed.String())

	_, err = ParseEventID("not-a-guid")
	assert.Error(t, err)
}

func TestEvent_JSON(t *testing.T) {
	event := NewEvent(LevelError, "boom")
	event.Tags = map[string]string{"region": "eu"}

	data, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded Event
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, event.EventID, decoded.EventID)
	assert.Equal(t, "boom", decoded.Message)
	assert.Equal(t, "go", decoded.Platform)
	assert.Equal(t, "eu", decoded.Tags["region"])
	assert.Contains(t, string(data), `"event_id":"`+event.EventID.String()+`"`)
}

func TestTransaction_SamplingContextNotInPayload(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tx := NewTransaction("checkout", start, start.Add(time.Second))
	tx.SamplingContext = NewDynamicSamplingContext(map[string]string{"trace_id": "abc"})

	data, err := json.Marshal(tx)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "trace_id")
	assert.Contains(t, string(data), `"transaction":"checkout"`)
	assert.Contains(t, string(data), `"type":"transaction"`)
}

func TestDynamicSamplingContext(t *testing.T) {
	dsc := NewDynamicSamplingContext(map[string]string{
		"trace_id":    "abc",
		"public_key":  "key",
		"environment": "",
	})

	assert.Equal(t, 2, dsc.Len())
	assert.Equal(t, []string{"public_key", "trace_id"}, dsc.Keys())

	items := dsc.Items()
	items["trace_id"] = "changed"
	assert.Equal(t, "abc", dsc.Items()["trace_id"])
}

func TestClientReport_Record(t *testing.T) {
	report := NewClientReport(time.Now())
	report.Record(ReasonQueueOverflow, "error", 1)
	report.Record(ReasonQueueOverflow, "error", 2)
	report.Record(ReasonSampleRate, "transaction", 5)

	assert.Equal(t, []DiscardedEvent{
		{Reason: ReasonQueueOverflow, Category: "error", Quantity: 3},
		{Reason: ReasonSampleRate, Category: "transaction", Quantity: 5},
	}, report.DiscardedEvents)
}

func TestAttachmentContent(t *testing.T) {
	t.Run("bytes", func(t *testing.T) {
		r, err := BytesContent("hello").Open()
		require.NoError(t, err)
		defer r.Close()

		lr, ok := r.(interface{ Len() int })
		require.True(t, ok, "byte streams expose their length")
		assert.Equal(t, 5, lr.Len())

		data, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, "hello", string(data))
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "note.txt")
		require.NoError(t, os.WriteFile(path, []byte("note"), 0600))

		attachment := NewFileAttachment(path, "text/plain")
		assert.Equal(t, "note.txt", attachment.Filename)

		r, err := attachment.Content.Open()
		require.NoError(t, err)
		defer r.Close()
		data, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, "note", string(data))
	})
}
