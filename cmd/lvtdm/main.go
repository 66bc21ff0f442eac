// SPDX-License-Identifier: MIT

// Command lvtdm runs a trip distribution model: destination choice, trip
// balancing and table output, as listed under models in the settings file.
//
//	lvtdm -configs configs -data data -output output [-settings settings.yaml] [-models a,b]
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-git/go-billy/v5/osfs"
	"k8s.io/klog/v2"

	"github.com/katalvlaran/lvtdm/config"
	"github.com/katalvlaran/lvtdm/pipeline"
)

func main() {
	klog.InitFlags(nil)
	var (
		configsDir = flag.String("configs", "configs", "directory holding the settings and spec files")
		dataDir    = flag.String("data", "data", "directory holding zone files, skims and input tables")
		outputDir  = flag.String("output", "output", "directory for output tables and traces")
		settings   = flag.String("settings", config.DefaultSettingsFile, "settings file name inside -configs")
		models     = flag.String("models", "", "comma separated steps to run instead of the settings' models")
	)
	flag.Parse()
	defer klog.Flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configsDir, *dataDir, *outputDir, *settings, *models); err != nil {
		klog.ErrorS(err, "model run failed")
		klog.Flush()
		os.Exit(1)
	}
}

func run(ctx context.Context, configsDir, dataDir, outputDir, settingsFile, models string) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return err
	}
	dirs := pipeline.Dirs{
		Configs:    osfs.New(configsDir),
		Data:       osfs.New(dataDir),
		Output:     osfs.New(outputDir),
		OutputRoot: outputDir,
	}
	s, err := config.LoadSettings(dirs.Configs, settingsFile)
	if err != nil {
		return err
	}
	p, err := pipeline.New(dirs, s)
	if err != nil {
		return err
	}

	var steps []string
	if models != "" {
		for _, m := range strings.Split(models, ",") {
			if m = strings.TrimSpace(m); m != "" {
				steps = append(steps, m)
			}
		}
	}
	klog.InfoS("starting model run", "configs", configsDir, "data", dataDir, "output", outputDir)

	return p.Run(ctx, steps)
}
