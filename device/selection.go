package device

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
)

var (
	ErrNoAccelerator         = errors.New("failed to find GPUs with Vulkan support")
	ErrNoSuitableAccelerator = errors.New("failed to find a suitable GPU")
)

// QueueFamilyIndices maps the graphics and present roles onto queue families. The two
// roles may resolve to the same family or to different ones.
type QueueFamilyIndices struct {
	GraphicsFamily *int
	PresentFamily  *int
}

func (i QueueFamilyIndices) IsComplete() bool {
	return i.GraphicsFamily != nil && i.PresentFamily != nil
}

// Shared reports whether one family serves both roles. Only valid once complete.
func (i QueueFamilyIndices) Shared() bool {
	return *i.GraphicsFamily == *i.PresentFamily
}

func (i QueueFamilyIndices) String() string {
	show := func(idx *int) string {
		if idx == nil {
			return "none"
		}
		return fmt.Sprint(*idx)
	}
	return fmt.Sprintf("graphics=%s present=%s", show(i.GraphicsFamily), show(i.PresentFamily))
}

// QueueFamily is what selection needs to know about one queue family.
type QueueFamily struct {
	Graphics bool
	Present  bool
}

// SwapchainSupport is the surface's view of one accelerator.
type SwapchainSupport struct {
	Capabilities *khr_surface.SurfaceCapabilities
	Formats      []khr_surface.SurfaceFormat
	PresentModes []khr_surface.PresentMode
}

func (s SwapchainSupport) Adequate() bool {
	return len(s.Formats) > 0 && len(s.PresentModes) > 0
}

// Candidate describes one enumerated accelerator for the selection pass.
type Candidate struct {
	Name          string
	QueueFamilies []QueueFamily
	Extensions    map[string]struct{}
	Support       SwapchainSupport
}

// FindQueueFamilies takes the first graphics-capable family and, independently, the
// first family able to present to the surface.
func FindQueueFamilies(families []QueueFamily) QueueFamilyIndices {
	indices := QueueFamilyIndices{}

	for queueFamilyIdx, queueFamily := range families {
		if queueFamily.Graphics && indices.GraphicsFamily == nil {
			indices.GraphicsFamily = new(int)
			*indices.GraphicsFamily = queueFamilyIdx
		}

		if queueFamily.Present && indices.PresentFamily == nil {
			indices.PresentFamily = new(int)
			*indices.PresentFamily = queueFamilyIdx
		}

		if indices.IsComplete() {
			break
		}
	}

	return indices
}

// MissingExtensions lists the names in required that available does not contain.
func MissingExtensions[T any](required []string, available map[string]T) []string {
	var missing []string
	for _, name := range required {
		if _, ok := available[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// Check returns nil if the candidate can drive the presentation pipeline, otherwise an
// error saying why not.
func (c Candidate) Check(requiredExtensions []string) error {
	indices := FindQueueFamilies(c.QueueFamilies)
	if !indices.IsComplete() {
		return errors.Newf("%s: incomplete queue families (%s)", c.Name, indices)
	}

	missing := MissingExtensions(requiredExtensions, c.Extensions)
	if len(missing) > 0 {
		return errors.Newf("%s: missing device extensions %s", c.Name, strings.Join(missing, ", "))
	}

	if !c.Support.Adequate() {
		return errors.Newf("%s: surface reports %d formats and %d present modes",
			c.Name, len(c.Support.Formats), len(c.Support.PresentModes))
	}

	return nil
}

// SelectCandidate picks the first suitable candidate in enumeration order. The rejected
// reasons are returned alongside so callers can log them.
func SelectCandidate(candidates []Candidate, requiredExtensions []string) (int, QueueFamilyIndices, []error, error) {
	if len(candidates) == 0 {
		return -1, QueueFamilyIndices{}, nil, ErrNoAccelerator
	}

	var rejected []error
	for idx, candidate := range candidates {
		err := candidate.Check(requiredExtensions)
		if err != nil {
			rejected = append(rejected, err)
			continue
		}

		return idx, FindQueueFamilies(candidate.QueueFamilies), rejected, nil
	}

	return -1, QueueFamilyIndices{}, rejected, ErrNoSuitableAccelerator
}
