package errors

import (
	"log/slog"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAnnotatedError(t *testing.T) {
	err := New("test error", slog.String("id", "123"))
	require.Equal(t, "test error", err.Error())

	// Assert that wrapping sentinel errors work as expected.
	sentinel := NewSentinel("test sentinel")
	require.NotErrorIs(t, err, NewSentinel("test sentinel"))
	wrapped := Wrap(sentinel, "more context", slog.String("key", "value"))
	require.ErrorIs(t, wrapped, sentinel)
	require.Equal(t, "more context: test sentinel", wrapped.Error())

	// Ensure log values are coming through.
	var annotated *annotatedError
	require.True(t, As(err, &annotated))
	group := annotated.LogValue().Group()
	require.Contains(t, group, slog.String("id", "123"))

	// Assert there's a valid source.
	sourceIdx := slices.IndexFunc(group, func(attr slog.Attr) bool {
		return attr.Key == "source"
	})
	require.NotEqual(t, -1, sourceIdx)
	source := group[sourceIdx]
	require.Contains(t, source.Value.String(), "annotatederror_test.go")
}

func TestAnnotatedError_wrappedChain(t *testing.T) {
	inner := New("inner", slog.String("detail", "lost connection"))
	outer := Wrap(inner, "outer")

	require.ErrorIs(t, outer, inner)
	require.Equal(t, "outer: inner", outer.Error())

	// The wrapped annotated error keeps its own attributes in the log value.
	var annotated *annotatedError
	require.True(t, As(outer, &annotated))
	group := annotated.LogValue().Group()
	wrappedIdx := slices.IndexFunc(group, func(attr slog.Attr) bool {
		return attr.Key == "wrapped"
	})
	require.NotEqual(t, -1, wrappedIdx)
	require.Contains(t, group[wrappedIdx].Value.Group(), slog.String("detail", "lost connection"))
}

func TestJoin(t *testing.T) {
	first := NewSentinel("first")
	second := NewSentinel("second")
	joined := Wrap(Join(first, second), "context")

	require.ErrorIs(t, joined, first)
	require.ErrorIs(t, joined, second)
}
