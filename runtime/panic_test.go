package runtime

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrintNumWritesDecimalWithNewline(t *testing.T) {
	e := newTestEngine(t, 8)
	out := capture(e, func() {
		require.Equal(t, int64(0), e.PrintNum(-42))
	})
	require.Equal(t, "-42\n", out)
}

// PrintChar must write the raw low byte of n, not UTF-8-encode it as a
// Unicode code point: for n >= 128, fmt's %c verb would otherwise emit a
// multi-byte sequence instead of the single byte spec.md §4.5 mandates.
func TestPrintCharWritesRawByteNoNewline(t *testing.T) {
	e := newTestEngine(t, 8)

	out := capture(e, func() {
		require.Equal(t, int64(0), e.PrintChar('A'))
	})
	require.Equal(t, []byte{'A'}, []byte(out))

	out = capture(e, func() {
		e.PrintChar(200)
	})
	require.Equal(t, []byte{200}, []byte(out), "high bytes must not be UTF-8 encoded")

	out = capture(e, func() {
		e.PrintChar(0x1_41) // low byte is 'A'; high bits must be discarded
	})
	require.Equal(t, []byte{'A'}, []byte(out))
}

func TestPanicPrintsMessageAndExitsZero(t *testing.T) {
	e := newTestEngine(t, 8)

	var code int
	var exited bool
	e.exit = func(c int) {
		exited = true
		code = c
		panic("test-exit")
	}

	out := capture(e, func() {
		defer func() { recover() }()
		e.Panic("out of memory")
	})

	require.True(t, exited)
	require.Equal(t, 0, code)
	require.Equal(t, "out of memory\n", out)
}
