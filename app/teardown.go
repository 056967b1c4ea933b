package app

import "log/slog"

// teardown runs release functions in reverse order of registration.
type teardown struct {
	logger *slog.Logger
	steps  []teardownStep
}

type teardownStep struct {
	name    string
	release func()
}

func (t *teardown) push(name string, release func()) {
	t.steps = append(t.steps, teardownStep{name: name, release: release})
}

func (t *teardown) run() {
	for i := len(t.steps) - 1; i >= 0; i-- {
		step := t.steps[i]
		t.logger.Debug("releasing", "resource", step.name)
		step.release()
	}
	t.steps = nil
}
