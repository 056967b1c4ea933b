// Package frame runs the per-frame loop: wait for a free frame slot, acquire an image,
// record and submit the draw, present, and move to the next slot.
package frame

import (
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/loov/hrtime"
)

// MaxFramesInFlight is how many frames the host may queue before waiting on the device.
const MaxFramesInFlight = 2

var ErrUnexpectedResult = errors.New("unexpected presentation result")

// Backend performs the device work of each state, addressed by frame slot.
type Backend interface {
	// WaitForFence blocks until the slot's previous submission has completed.
	WaitForFence(slot int) error
	AcquireNextImage(slot int) (int, Status, error)
	ResetFence(slot int) error
	// Record re-records the slot's command buffer to draw into image.
	Record(slot, image int) error
	Submit(slot int) error
	Present(slot, image int) (Status, error)
	WaitIdle() error
}

type Recreator interface {
	Recreate() error
}

// ResizeSignal reports, and clears, a pending resize of the presentation surface.
type ResizeSignal interface {
	Consume() bool
}

// Window is polled once per iteration of Run.
type Window interface {
	PollEvents()
	ShouldClose() bool
}

type Synchronizer struct {
	backend   Backend
	recreator Recreator
	resize    ResizeSignal
	logger    *slog.Logger
	stats     *statsReporter

	slot  int
	state State
}

func NewSynchronizer(backend Backend, recreator Recreator, resize ResizeSignal, statsInterval time.Duration, logger *slog.Logger) *Synchronizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synchronizer{
		backend:   backend,
		recreator: recreator,
		resize:    resize,
		logger:    logger,
		stats:     newStatsReporter(statsInterval, logger),
		state:     WaitPriorFrame,
	}
}

// Slot is the frame slot the next iteration will use.
func (s *Synchronizer) Slot() int { return s.slot }

// State is the last state entered.
func (s *Synchronizer) State() State { return s.state }

func (s *Synchronizer) Stats() Stats { return s.stats.stats }

// Frame runs one loop iteration. An out-of-date swapchain at acquire ends the iteration
// early, after recreation, without submitting or advancing.
func (s *Synchronizer) Frame() error {
	start := hrtime.Now()

	var image int
	var recreateAfterPresent bool

	state := WaitPriorFrame
	for {
		s.state = state

		switch state {
		case WaitPriorFrame:
			err := s.backend.WaitForFence(s.slot)
			if err != nil {
				return errors.Wrapf(err, "wait for frame slot %d", s.slot)
			}
			state = AcquireImage

		case AcquireImage:
			var status Status
			var err error
			image, status, err = s.backend.AcquireNextImage(s.slot)
			if err != nil {
				return errors.Wrap(err, "failed to acquire swapchain image")
			}

			switch status {
			case OutOfDate:
				state = RecreateAndRetry
			case Suboptimal:
				recreateAfterPresent = true
				state = RecordAndSubmit
			case Success:
				state = RecordAndSubmit
			default:
				return errors.Wrapf(ErrUnexpectedResult, "acquire returned %s", status)
			}

		case RecreateAndRetry:
			s.stats.stats.Skipped++
			return s.recreate("out of date at acquire")

		case RecordAndSubmit:
			err := s.backend.ResetFence(s.slot)
			if err != nil {
				return errors.Wrapf(err, "reset fence of frame slot %d", s.slot)
			}

			err = s.backend.Record(s.slot, image)
			if err != nil {
				return errors.Wrapf(err, "failed to record command buffer for image %d", image)
			}

			err = s.backend.Submit(s.slot)
			if err != nil {
				return errors.Wrap(err, "failed to submit draw command buffer")
			}
			state = Present

		case Present:
			status, err := s.backend.Present(s.slot, image)
			if err != nil {
				return errors.Wrap(err, "failed to present swapchain image")
			}

			switch status {
			case Success, OutOfDate, Suboptimal:
			default:
				return errors.Wrapf(ErrUnexpectedResult, "present returned %s", status)
			}

			resized := s.resize.Consume()
			switch {
			case status != Success:
				err = s.recreate("present returned " + status.String())
			case resized:
				err = s.recreate("window resized")
			case recreateAfterPresent:
				err = s.recreate("suboptimal at acquire")
			}
			if err != nil {
				return err
			}
			state = Advance

		case Advance:
			s.slot = (s.slot + 1) % MaxFramesInFlight
			s.stats.presented(start)
			return nil

		default:
			return errors.Newf("frame loop entered unknown state %s", state)
		}
	}
}

func (s *Synchronizer) recreate(reason string) error {
	s.logger.Debug("recreating swapchain", "reason", reason)
	s.stats.stats.Recreations++

	err := s.recreator.Recreate()
	if err != nil {
		return errors.Wrap(err, "failed to recreate swapchain")
	}
	return nil
}

// Run drives Frame until the window asks to close, then waits for the device to finish
// all submitted work. A recreation waiting on a minimized window returns early when the
// window closes, and the loop condition picks that up before the next frame.
func (s *Synchronizer) Run(window Window) error {
	for !window.ShouldClose() {
		window.PollEvents()
		if window.ShouldClose() {
			break
		}

		err := s.Frame()
		if err != nil {
			return err
		}
	}

	err := s.backend.WaitIdle()
	if err != nil {
		return errors.Wrap(err, "wait for device idle before teardown")
	}

	stats := s.Stats()
	s.logger.Info("frame loop finished",
		"frames", stats.Frames,
		"skipped", stats.Skipped,
		"recreations", stats.Recreations,
		"lastFrame", stats.LastFrame,
		"meanFrame", stats.MeanFrame)
	return nil
}
