package envelope

import (
	"bufio"
	"context"
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeserialize_HeaderOnly(t *testing.T) {
	for _, input := range []string{
		`{"event_id":"9ec79c33ec9942ab8353589fcb2e04dc"}` + "\n",
		`{"event_id":"9ec79c33ec9942ab8353589fcb2e04dc"}`,
	} {
		env, err := Deserialize(strings.NewReader(input))
		require.NoError(t, err)
		assert.Equal(t, 0, env.Len())
		_, ok := env.TryGetEventID()
		assert.True(t, ok)
	}
}

func TestDeserialize_MalformedHeader(t *testing.T) {
	testCases := map[string]string{
		"empty stream":    "",
		"blank line":      "\n",
		"not json":        "hello\n",
		"json array":      "[1,2]\n",
		"truncated":       `{"a":` + "\n",
		"header is items": `{"type":"event"} trailing` + "\n",
	}

	for name, input := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := Deserialize(strings.NewReader(input))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedEnvelope)
		})
	}
}

func TestDeserialize_StripsSentAt(t *testing.T) {
	input := `{"sent_at":"2024-01-02T03:04:05.678Z","event_id":"abc"}` + "\n"

	env, err := Deserialize(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{KeyEventID}, env.Header().Keys())
}

func TestDeserialize_ItemsWithAndWithoutLength(t *testing.T) {
	input := "{}\n" +
		`{"type":"attachment","length":10}` + "\n" +
		"0123\n56789\n" +
		`{"type":"event"}` + "\n" +
		`{"message":"no length"}` + "\n" +
		`{"type":"session","length":2}` + "\n" +
		"{}"

	env, err := Deserialize(strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, 3, env.Len())

	items := env.Items()
	assert.Equal(t, []string{TypeAttachment, TypeEvent, TypeSession}, []string{items[0].Type(), items[1].Type(), items[2].Type()})

	p0, _ := items[0].PayloadBytes()
	assert.Equal(t, "0123\n56789", string(p0))
	p1, _ := items[1].PayloadBytes()
	assert.Equal(t, `{"message":"no length"}`, string(p1))
	p2, _ := items[2].PayloadBytes()
	assert.Equal(t, "{}", string(p2))
}

func TestDeserialize_ZeroLengthItem(t *testing.T) {
	input := "{}\n" + `{"type":"attachment","length":0}` + "\n\n"

	env, err := Deserialize(strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, 1, env.Len())
	p, _ := env.Items()[0].PayloadBytes()
	assert.Empty(t, p)
}

func TestDeserialize_TruncatedPayload(t *testing.T) {
	input := "{}\n" + `{"type":"attachment","length":100}` + "\nshort\n"

	_, err := Deserialize(strings.NewReader(input))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedItem)
}

func TestDeserialize_LengthBeyondStream(t *testing.T) {
	testCases := map[string]string{
		"exceeds memory": `{"type":"attachment","length":4611686018427387904}`,
		"max int64":      `{"type":"attachment","length":9223372036854775807}`,
		"two gigabytes":  `{"type":"attachment","length":2000000000}`,
	}

	for name, itemHeader := range testCases {
		t.Run(name, func(t *testing.T) {
			input := "{}\n" + itemHeader + "\nabc\n"

			var err error
			require.NotPanics(t, func() {
				_, err = Deserialize(strings.NewReader(input))
			})
			assert.ErrorIs(t, err, ErrMalformedItem)
		})
	}
}

func TestDeserialize_InvalidItemHeader(t *testing.T) {
	input := "{}\n" + "garbage\n" + "payload\n"

	_, err := Deserialize(strings.NewReader(input))
	assert.ErrorIs(t, err, ErrMalformedItem)
}

func TestDeserialize_NegativeLength(t *testing.T) {
	input := "{}\n" + `{"type":"event","length":-1}` + "\n{}\n"

	_, err := Deserialize(strings.NewReader(input))
	assert.ErrorIs(t, err, ErrMalformedItem)
}

func TestDeserialize_PropagatesReadErrors(t *testing.T) {
	readErr := errors.New("disk on fire")
	r := iotest.ErrReader(readErr)

	_, err := Deserialize(r)
	assert.ErrorIs(t, err, readErr)
	assert.NotErrorIs(t, err, ErrMalformedEnvelope)
}

func TestDeserialize_OneByteReader(t *testing.T) {
	input := "{\"event_id\":\"abc\"}\n" +
		`{"type":"attachment","length":3}` + "\nabc\n" +
		`{"type":"event","length":2}` + "\n{}\n"

	env, err := Deserialize(iotest.OneByteReader(strings.NewReader(input)))
	require.NoError(t, err)
	assert.Equal(t, 2, env.Len())
}

func TestDeserializeContext_CanceledBetweenItems(t *testing.T) {
	input := "{}\n" + `{"type":"event","length":2}` + "\n{}\n"
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := DeserializeContext(ctx, bufio.NewReader(strings.NewReader(input)))
	assert.ErrorIs(t, err, ErrCanceled)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDeserializeContext_HeaderOnlyIgnoresCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	env, err := DeserializeContext(ctx, strings.NewReader("{}\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, env.Len())
}
