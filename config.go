// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"rsc.io/sagafix/lint"
	"rsc.io/sagafix/rewrite"
)

const (
	configBaseName = ".sagafix"
	configFileName = configBaseName + ".yaml"
	envPrefix      = "SAGAFIX"

	rootKey             = "root"
	excludeKey          = "exclude"
	patternKey          = "pattern"
	wrapKey             = "factories.wrap"
	subscribeKey        = "factories.subscribe"
	wrapManyKey         = "factories.wrap_many"
	buildTagsKey        = "build.tags"
	checkKey            = "check"
	gofmtKey            = "gofmt"
	diffKey             = "diff"
	lintToolKey         = "lint.tool"
	lintParallelKey     = "lint.parallel"
	locatorCacheSizeKey = "locator.cache_size"

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logVerboseKey    = "log.verbose"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultRoot         = "."
	defaultCheck        = true
	defaultGofmt        = false
	defaultLintTool     = "goimports"
	defaultLintParallel = 4

	defaultLogLevel      = "info"
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
	defaultLogCompress   = true
)

// newConfig returns a viper instance with every key defaulted
// and environment overrides enabled.
func newConfig() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault(rootKey, defaultRoot)
	v.SetDefault(excludeKey, []string{})
	v.SetDefault(patternKey, rewrite.DefaultPattern)
	v.SetDefault(wrapKey, rewrite.DefaultWrap)
	v.SetDefault(subscribeKey, rewrite.DefaultSubscribe)
	v.SetDefault(wrapManyKey, rewrite.DefaultWrapMany)
	v.SetDefault(buildTagsKey, []string{})
	v.SetDefault(checkKey, defaultCheck)
	v.SetDefault(gofmtKey, defaultGofmt)
	v.SetDefault(diffKey, false)
	v.SetDefault(lintToolKey, defaultLintTool)
	v.SetDefault(lintParallelKey, defaultLintParallel)
	v.SetDefault(locatorCacheSizeKey, rewrite.DefaultCacheSize)

	v.SetDefault(logFilenameKey, "")
	v.SetDefault(logLevelKey, defaultLogLevel)
	v.SetDefault(logVerboseKey, false)
	v.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	v.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	v.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	v.SetDefault(logCompressKey, defaultLogCompress)
	return v
}

// readConfig loads .env from the working directory and then the config file:
// the one named explicitly, which must exist, or else .sagafix.yaml
// in the working directory or the root, if there is one.
func readConfig(v *viper.Viper, explicit string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	if explicit != "" {
		v.SetConfigFile(explicit)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config: %w", err)
		}
		return nil
	}

	v.SetConfigName(configBaseName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if root := v.GetString(rootKey); root != "" && root != "." {
		v.AddConfigPath(root)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

// options returns the rewrite options the configuration describes.
func options(v *viper.Viper, logger *slog.Logger) (rewrite.Options, error) {
	root, err := filepath.Abs(v.GetString(rootKey))
	if err != nil {
		return rewrite.Options{}, err
	}
	linter, err := lint.Parse(v.GetString(lintToolKey), v.GetInt(lintParallelKey), root)
	if err != nil {
		return rewrite.Options{}, err
	}
	return rewrite.Options{
		Root:    root,
		Exclude: v.GetStringSlice(excludeKey),
		Pattern: v.GetString(patternKey),
		Factories: rewrite.Factories{
			Wrap:      v.GetString(wrapKey),
			Subscribe: v.GetString(subscribeKey),
			WrapMany:  v.GetString(wrapManyKey),
		},
		BuildTags: v.GetStringSlice(buildTagsKey),
		Check:     v.GetBool(checkKey),
		Gofmt:     v.GetBool(gofmtKey),
		Diff:      v.GetBool(diffKey),
		CacheSize: v.GetInt(locatorCacheSizeKey),
		Linter:    linter,
		Logger:    logger,
	}, nil
}
