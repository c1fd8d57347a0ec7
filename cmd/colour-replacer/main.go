package main

import (
	"errors"
	"fmt"
	"os"

	"colour-replacer/internal/app"
	"colour-replacer/internal/config"
	"colour-replacer/internal/editor"
	"colour-replacer/internal/logger"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "colour-replacer [image-path]",
	Short:         "Replace a colour range in an image with a solid colour",
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func run(_ *cobra.Command, args []string) error {
	cfg, path, err := config.Resolve()
	if err != nil {
		return err
	}

	if len(args) == 1 {
		cfg.ImagePath = args[0]
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.JSON)
	if err != nil {
		return fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}

	log.Debug("Main", "configuration loaded", map[string]interface{}{
		"config_file": path,
		"image":       cfg.ImagePath,
	})

	application, err := app.NewApplication(cfg, log)
	if err != nil {
		log.Error("Main", err, nil)
		return err
	}

	if err := application.Run(); err != nil {
		if !errors.Is(err, editor.ErrAborted) {
			log.Error("Main", err, nil)
		}
		return err
	}

	return nil
}

func message(err error) string {
	if errors.Is(err, editor.ErrAborted) {
		return "aborted"
	}
	return err.Error()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, message(err))
		os.Exit(1)
	}
}
