//go:build integration

package steps

import (
	"context"
	"fmt"
	"math"

	"github.com/cucumber/godog"

	"video-trimmer/domain/timecode"
	"video-trimmer/domain/trim"
)

// recordingTransport records what the clamp does to playback
type recordingTransport struct {
	position float64
	moved    bool
	paused   bool
}

func (r *recordingTransport) SetPosition(seconds float64) {
	r.position = seconds
	r.moved = true
}

func (r *recordingTransport) Pause() {
	r.paused = true
}

// rangeContext holds test state for range and clamp scenarios
type rangeContext struct {
	selection *trim.Selection
	clamp     trim.Clamp
	transport *recordingTransport
	playing   bool
}

// SharedRangeContext is reset before each scenario via Before hook
var SharedRangeContext *rangeContext

func InitializeRangeScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		SharedRangeContext = &rangeContext{transport: &recordingTransport{}}
		return c, nil
	})

	ctx.Step(`^a (\d+) second video is loaded$`, aSecondVideoIsLoaded)
	ctx.Step(`^I move the start to (-?[0-9.]+)$`, iMoveTheStartTo)
	ctx.Step(`^I move the end to (-?[0-9.]+)$`, iMoveTheEndTo)
	ctx.Step(`^the selection should be from ([0-9.]+) to ([0-9.]+)$`, theSelectionShouldBeFromTo)
	ctx.Step(`^the selection is from ([0-9.]+) to ([0-9.]+)$`, theSelectionIsFromTo)
	ctx.Step(`^playback is (playing|paused)$`, playbackIs)
	ctx.Step(`^the playback position reaches ([0-9.]+)$`, thePlaybackPositionReaches)
	ctx.Step(`^the position should jump to ([0-9.]+)$`, thePositionShouldJumpTo)
	ctx.Step(`^the position should not change$`, thePositionShouldNotChange)
	ctx.Step(`^playback should still be playing$`, playbackShouldStillBePlaying)
	ctx.Step(`^playback should be paused$`, playbackShouldBePaused)
	ctx.Step(`^the displayed time should be "([^"]*)"$`, theDisplayedTimeShouldBe)
}

func aSecondVideoIsLoaded(seconds int) error {
	SharedRangeContext.selection = trim.NewSelection(float64(seconds))
	return nil
}

func iMoveTheStartTo(v float64) error {
	SharedRangeContext.selection.UpdateStart(v)
	return nil
}

func iMoveTheEndTo(v float64) error {
	SharedRangeContext.selection.UpdateEnd(v)
	return nil
}

func theSelectionShouldBeFromTo(start, end float64) error {
	r := SharedRangeContext.selection.Range()
	if math.Abs(r.Start-start) > 1e-9 || math.Abs(r.End-end) > 1e-9 {
		return fmt.Errorf("expected selection %v-%v, got %v-%v", start, end, r.Start, r.End)
	}
	return nil
}

func theSelectionIsFromTo(start, end float64) error {
	s := SharedRangeContext.selection
	s.UpdateEnd(end)
	s.UpdateStart(start)
	return theSelectionShouldBeFromTo(start, end)
}

func playbackIs(state string) error {
	SharedRangeContext.playing = state == "playing"
	return nil
}

func thePlaybackPositionReaches(pos float64) error {
	t := SharedRangeContext
	t.clamp.OnTimeUpdate(pos, t.playing, t.transport, t.selection.Range())
	if t.transport.paused {
		t.playing = false
	}
	return nil
}

func thePositionShouldJumpTo(expected float64) error {
	tr := SharedRangeContext.transport
	if !tr.moved {
		return fmt.Errorf("position was not changed")
	}
	if math.Abs(tr.position-expected) > 1e-9 {
		return fmt.Errorf("expected position %v, got %v", expected, tr.position)
	}
	return nil
}

func thePositionShouldNotChange() error {
	if tr := SharedRangeContext.transport; tr.moved {
		return fmt.Errorf("position was moved to %v", tr.position)
	}
	return nil
}

func playbackShouldStillBePlaying() error {
	if SharedRangeContext.transport.paused {
		return fmt.Errorf("playback was paused")
	}
	return nil
}

func playbackShouldBePaused() error {
	if !SharedRangeContext.transport.paused {
		return fmt.Errorf("playback was not paused")
	}
	return nil
}

func theDisplayedTimeShouldBe(expected string) error {
	if got := timecode.Format(SharedRangeContext.clamp.DisplayTime()); got != expected {
		return fmt.Errorf("expected display %q, got %q", expected, got)
	}
	return nil
}
