package transfer

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(ch chan Progress) []Progress {
	var out []Progress
	for {
		select {
		case p := <-ch:
			out = append(out, p)
		default:
			return out
		}
	}
}

func TestProgressReader_PassThrough(t *testing.T) {
	data := strings.Repeat("abcdefgh", 1000)
	ch := make(chan Progress, 1000)
	r := NewProgressReader(strings.NewReader(data), int64(len(data)), ch, WithJobID(3))

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, data, string(got), "relay must not alter data")
	assert.Equal(t, int64(len(data)), r.Bytes())

	events := collect(ch)
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, JobID(3), last.JobID)
	assert.Equal(t, 100.0, last.Percent)
	for i := 1; i < len(events); i++ {
		assert.GreaterOrEqual(t, events[i].Bytes, events[i-1].Bytes)
	}
}

func TestProgressReader_ZeroTotalSuppressesPercent(t *testing.T) {
	ch := make(chan Progress, 10)
	r := NewProgressReader(strings.NewReader("hello"), 0, ch)

	_, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Empty(t, collect(ch))
	assert.Equal(t, int64(5), r.Bytes())
}

func TestProgressReader_SetTotalEnablesPercent(t *testing.T) {
	ch := make(chan Progress, 10)
	r := NewProgressReader(strings.NewReader("0123456789"), 0, ch)

	buf := make([]byte, 5)
	_, err := io.ReadFull(r, buf)
	require.NoError(t, err)
	assert.Empty(t, collect(ch))

	r.SetTotal(10)
	_, err = io.ReadFull(r, buf)
	require.NoError(t, err)

	events := collect(ch)
	require.Len(t, events, 1)
	assert.Equal(t, 100.0, events[0].Percent)
}

func TestProgressReader_PercentCappedAt100(t *testing.T) {
	ch := make(chan Progress, 10)
	r := NewProgressReader(strings.NewReader("0123456789"), 5, ch)

	_, err := io.ReadAll(r)
	require.NoError(t, err)
	for _, p := range collect(ch) {
		assert.LessOrEqual(t, p.Percent, 100.0)
	}
}

func TestProgressReader_FullChannelDoesNotBlock(t *testing.T) {
	ch := make(chan Progress) // unbuffered, nobody reading
	data := bytes.Repeat([]byte("x"), 64*1024)
	r := NewProgressReader(bytes.NewReader(data), int64(len(data)), ch)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Len(t, got, len(data))
}

func TestProgressReader_SeekResetsCounter(t *testing.T) {
	ch := make(chan Progress, 100)
	r := NewProgressReader(strings.NewReader("0123456789"), 10, ch, WithStartOffset(100))

	_, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, int64(110), r.Bytes())

	pos, err := r.Seek(0, io.SeekStart)
	require.NoError(t, err)
	assert.Zero(t, pos)
	assert.Equal(t, int64(100), r.Bytes(), "rewind returns to the start offset")
}

func TestProgressReader_SeekUnsupported(t *testing.T) {
	r := NewProgressReader(io.LimitReader(strings.NewReader("x"), 1), 1, nil)
	_, err := r.Seek(0, io.SeekStart)
	assert.Error(t, err)
}

func TestProgressWriter_StartOffset(t *testing.T) {
	ch := make(chan Progress, 10)
	var sink bytes.Buffer
	w := NewProgressWriter(&sink, 100, ch, WithStartOffset(50))

	n, err := w.Write(make([]byte, 25))
	require.NoError(t, err)
	assert.Equal(t, 25, n)
	assert.Equal(t, 25, sink.Len())

	events := collect(ch)
	require.Len(t, events, 1)
	assert.Equal(t, int64(75), events[0].Bytes)
	assert.Equal(t, 75.0, events[0].Percent)
}
