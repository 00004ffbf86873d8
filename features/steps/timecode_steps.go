//go:build integration

package steps

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/cucumber/godog"

	"video-trimmer/domain/timecode"
)

// timecodeContext holds test state for time code scenarios
type timecodeContext struct {
	formatted string
	parsed    float64
	err       error
}

// SharedTimecodeContext is reset before each scenario via Before hook
var SharedTimecodeContext *timecodeContext

func InitializeTimecodeScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		SharedTimecodeContext = &timecodeContext{}
		return c, nil
	})

	ctx.Step(`^I format ([0-9.]+) seconds$`, iFormatSeconds)
	ctx.Step(`^the time code should be "([^"]*)"$`, theTimeCodeShouldBe)
	ctx.Step(`^I parse "([^"]*)"$`, iParse)
	ctx.Step(`^the result should be ([0-9.]+) seconds$`, theResultShouldBeSeconds)
	ctx.Step(`^the text should be rejected$`, theTextShouldBeRejected)
}

func iFormatSeconds(seconds float64) error {
	SharedTimecodeContext.formatted = timecode.Format(seconds)
	return nil
}

func theTimeCodeShouldBe(expected string) error {
	if got := SharedTimecodeContext.formatted; got != expected {
		return fmt.Errorf("expected %q, got %q", expected, got)
	}
	return nil
}

func iParse(text string) error {
	t := SharedTimecodeContext
	t.parsed, t.err = timecode.Parse(text)
	return nil
}

func theResultShouldBeSeconds(expected float64) error {
	t := SharedTimecodeContext
	if t.err != nil {
		return fmt.Errorf("unexpected error: %v", t.err)
	}
	if math.Abs(t.parsed-expected) > 1e-9 {
		return fmt.Errorf("expected %v seconds, got %v", expected, t.parsed)
	}
	return nil
}

func theTextShouldBeRejected() error {
	t := SharedTimecodeContext
	if !errors.Is(t.err, timecode.ErrInvalid) {
		return fmt.Errorf("expected ErrInvalid, got %v (parsed %v)", t.err, t.parsed)
	}
	return nil
}
