package window

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/veandco/go-sdl2/sdl"
)

func testWindow() *Window {
	return newWindow(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestResizeFlag(t *testing.T) {
	var flag ResizeFlag
	assert.False(t, flag.Consume())

	flag.Set()
	flag.Set()
	assert.True(t, flag.Consume())
	assert.False(t, flag.Consume())
}

func TestQuitEventCloses(t *testing.T) {
	w := testWindow()
	assert.False(t, w.ShouldClose())

	w.onEvent(&sdl.QuitEvent{})
	assert.True(t, w.ShouldClose())
}

func TestResizeEventRaisesFlag(t *testing.T) {
	w := testWindow()
	w.onEvent(&sdl.WindowEvent{Event: sdl.WINDOWEVENT_RESIZED})
	assert.True(t, w.Resized().Consume())
	assert.False(t, w.Resized().Consume())
}

func TestSizeChangedAloneDoesNotRaiseFlag(t *testing.T) {
	w := testWindow()
	w.onEvent(&sdl.WindowEvent{Event: sdl.WINDOWEVENT_SIZE_CHANGED})
	assert.False(t, w.Resized().Consume())

	// a user resize arrives as SIZE_CHANGED followed by RESIZED; one recreation results
	w.onEvent(&sdl.WindowEvent{Event: sdl.WINDOWEVENT_SIZE_CHANGED})
	w.onEvent(&sdl.WindowEvent{Event: sdl.WINDOWEVENT_RESIZED})
	assert.True(t, w.Resized().Consume())
	assert.False(t, w.Resized().Consume())
}

func TestMinimizeRestore(t *testing.T) {
	w := testWindow()

	w.onEvent(&sdl.WindowEvent{Event: sdl.WINDOWEVENT_MINIMIZED})
	assert.True(t, w.Minimized())
	assert.False(t, w.Resized().Consume())

	w.onEvent(&sdl.WindowEvent{Event: sdl.WINDOWEVENT_RESTORED})
	assert.False(t, w.Minimized())
	assert.False(t, w.ShouldClose())
}
