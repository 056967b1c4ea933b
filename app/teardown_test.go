package app

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vkngwrapper/hellotriangle/config"
)

func TestTeardownRunsInReverse(t *testing.T) {
	stack := teardown{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	var released []string
	for _, name := range []string{"window", "instance", "surface", "device", "swapchain"} {
		name := name
		stack.push(name, func() { released = append(released, name) })
	}

	stack.run()
	assert.Equal(t, []string{"swapchain", "device", "surface", "instance", "window"}, released)

	// a second run releases nothing twice
	stack.run()
	assert.Len(t, released, 5)
}

func TestReleaseWithoutDevice(t *testing.T) {
	app := New(config.Default(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	var released bool
	app.stack.push("window", func() { released = true })
	app.release()

	assert.True(t, released)
}
