// Package state holds the single source of truth for one session:
// {isAnalyzing, image, result, error} and its transitions.
package state

import (
	"sync"

	"github.com/dyike/fupanxia/models"
)

// Controller serializes every mutation of one session's AppState.
// Each Start or Reset bumps the generation; a completion carrying an older
// generation is dropped.
type Controller struct {
	mu         sync.Mutex
	state      models.AppState
	generation uint64
}

func NewController() *Controller {
	return &Controller{}
}

// Start enters Analyzing with the given image and returns the generation
// the eventual Complete must carry.
func (c *Controller) Start(image string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startLocked(image)
}

// TryStart is Start unless an attempt is already in flight.
func (c *Controller) TryStart(image string) (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.IsAnalyzing {
		return 0, false
	}
	return c.startLocked(image), true
}

func (c *Controller) startLocked(image string) uint64 {
	c.generation++
	img := image
	c.state = models.AppState{
		IsAnalyzing: true,
		Image:       &img,
	}
	return c.generation
}

// Complete applies the outcome of the attempt tagged gen. It reports false,
// leaving the state untouched, when gen is stale or nothing is in flight.
// A failure stores only the normalized message; no partial result survives.
func (c *Controller) Complete(gen uint64, result *models.AnalysisResult, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation || !c.state.IsAnalyzing {
		return false
	}

	c.state.IsAnalyzing = false
	if err == nil && result == nil {
		err = errNoResult
	}
	if err != nil {
		msg := UserMessage(err)
		c.state.Result = nil
		c.state.Error = &msg
		return true
	}
	c.state.Error = nil
	c.state.Result = result.Clone()
	return true
}

// Reset returns to Idle from any state. An in-flight attempt keeps running
// but its completion will be discarded.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	c.state = models.AppState{}
}

// Snapshot returns a deep copy safe to render or encode.
func (c *Controller) Snapshot() models.AppState {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := models.AppState{IsAnalyzing: c.state.IsAnalyzing}
	if c.state.Image != nil {
		img := *c.state.Image
		s.Image = &img
	}
	if c.state.Error != nil {
		msg := *c.state.Error
		s.Error = &msg
	}
	s.Result = c.state.Result.Clone()
	return s
}

func (c *Controller) Mode() models.ViewMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Mode()
}

func (c *Controller) IsAnalyzing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.IsAnalyzing
}

func (c *Controller) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}
