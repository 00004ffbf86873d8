//go:build integration

package steps

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cucumber/godog"

	"video-trimmer/cmd"
	"video-trimmer/infrastructure/config"
)

type configContext struct {
	dir        string
	configPath string
	cfg        *config.Config
	err        error
}

// SharedConfigContext is reset before each scenario via Before hook
var SharedConfigContext *configContext

func InitializeConfigScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		dir, err := os.MkdirTemp("", "video-trimmer-config-")
		if err != nil {
			return c, err
		}
		SharedConfigContext = &configContext{dir: dir}
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		os.RemoveAll(SharedConfigContext.dir)
		SharedConfigContext = nil
		return c, nil
	})

	ctx.Step(`^no configuration file exists$`, noConfigurationFileExists)
	ctx.Step(`^I load the configuration$`, iLoadTheConfiguration)
	ctx.Step(`^"([^"]*)" should be "([^"]*)"$`, keyShouldBe)
	ctx.Step(`^I set "([^"]*)" to "([^"]*)"$`, iSetTo)
	ctx.Step(`^I try to set "([^"]*)" to "([^"]*)"$`, iTryToSetTo)
	ctx.Step(`^the change should be rejected$`, theChangeShouldBeRejected)
}

func noConfigurationFileExists() error {
	t := SharedConfigContext
	t.configPath = filepath.Join(t.dir, "config", "config.yaml")
	t.cfg = config.Defaults()
	return nil
}

func iLoadTheConfiguration() error {
	t := SharedConfigContext
	t.cfg, t.err = config.LoadOrDefault(t.configPath)
	if t.err != nil {
		return fmt.Errorf("failed to load: %v", t.err)
	}
	return nil
}

func keyShouldBe(key, expected string) error {
	t := SharedConfigContext
	var out bytes.Buffer
	if err := cmd.RunConfigGetWithDependencies(t.cfg, t.configPath, key, &out); err != nil {
		return err
	}
	if got := strings.TrimSpace(out.String()); got != expected {
		return fmt.Errorf("expected %s = %q, got %q", key, expected, got)
	}
	return nil
}

func iSetTo(key, value string) error {
	t := SharedConfigContext
	if err := os.MkdirAll(filepath.Dir(t.configPath), 0755); err != nil {
		return err
	}
	return cmd.RunConfigSetWithDependencies(t.cfg, t.configPath, key, value, &bytes.Buffer{})
}

func iTryToSetTo(key, value string) error {
	t := SharedConfigContext
	t.err = cmd.RunConfigSetWithDependencies(t.cfg, t.configPath, key, value, &bytes.Buffer{})
	return nil
}

func theChangeShouldBeRejected() error {
	t := SharedConfigContext
	if t.err == nil {
		return fmt.Errorf("expected the change to be rejected")
	}
	if _, err := os.Stat(t.configPath); err == nil {
		return fmt.Errorf("a rejected change must not write %s", t.configPath)
	}
	return nil
}
