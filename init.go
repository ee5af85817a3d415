// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// fileConfig is the layout of .sagafix.yaml.
type fileConfig struct {
	Exclude   []string `yaml:"exclude"`
	Pattern   string   `yaml:"pattern"`
	Factories struct {
		Wrap      string `yaml:"wrap"`
		Subscribe string `yaml:"subscribe"`
		WrapMany  string `yaml:"wrap_many"`
	} `yaml:"factories"`
	Build struct {
		Tags []string `yaml:"tags"`
	} `yaml:"build"`
	Check bool `yaml:"check"`
	Gofmt bool `yaml:"gofmt"`
	Lint  struct {
		Tool     string `yaml:"tool"`
		Parallel int    `yaml:"parallel"`
	} `yaml:"lint"`
	Locator struct {
		CacheSize int `yaml:"cache_size"`
	} `yaml:"locator"`
	Log struct {
		Filename   string `yaml:"filename"`
		Level      string `yaml:"level"`
		Verbose    bool   `yaml:"verbose"`
		MaxSize    int    `yaml:"max_size"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAge     int    `yaml:"max_age"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"log"`
}

// currentConfig returns the settings in v in file layout.
func currentConfig(v *viper.Viper) fileConfig {
	var c fileConfig
	c.Exclude = v.GetStringSlice(excludeKey)
	c.Pattern = v.GetString(patternKey)
	c.Factories.Wrap = v.GetString(wrapKey)
	c.Factories.Subscribe = v.GetString(subscribeKey)
	c.Factories.WrapMany = v.GetString(wrapManyKey)
	c.Build.Tags = v.GetStringSlice(buildTagsKey)
	c.Check = v.GetBool(checkKey)
	c.Gofmt = v.GetBool(gofmtKey)
	c.Lint.Tool = v.GetString(lintToolKey)
	c.Lint.Parallel = v.GetInt(lintParallelKey)
	c.Locator.CacheSize = v.GetInt(locatorCacheSizeKey)
	c.Log.Filename = v.GetString(logFilenameKey)
	c.Log.Level = v.GetString(logLevelKey)
	c.Log.Verbose = v.GetBool(logVerboseKey)
	c.Log.MaxSize = v.GetInt(logMaxSizeKey)
	c.Log.MaxBackups = v.GetInt(logMaxBackupsKey)
	c.Log.MaxAge = v.GetInt(logMaxAgeKey)
	c.Log.Compress = v.GetBool(logCompressKey)
	return c
}

func newInitCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default " + configFileName,
		Long: `Create ` + configFileName + ` in the root directory, populated with the
current settings so it can be edited by hand. An existing file is left alone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			target := filepath.Join(v.GetString(rootKey), configFileName)
			if err := writeConfig(target, currentConfig(v)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", target)
			return nil
		},
	}
}

func writeConfig(target string, c fileConfig) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0666)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%s already exists", target)
	}
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return f.Close()
}
