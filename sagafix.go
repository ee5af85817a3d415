// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"rsc.io/sagafix/lint"
	"rsc.io/sagafix/rewrite"
)

const rootLongDescription = `Sagafix rewires action type constants passed to saga factories
to the exported declarations that wrap them.

A call such as TakeLatest(FOO_TYPE, handler) becomes
TakeLatest(actions.FOO, handler) when some package declares

	var FOO = CreateAction(FOO_TYPE)

The import of the declaring package is added and the import the
constant came through is dropped once nothing else uses it.
The module is loaded twice; nothing is written unless both loads
agree on the files to rewrite.`

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "sagafix: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := newConfig()
	var configFile string
	cmd := &cobra.Command{
		Use:           "sagafix [flags] [root]",
		Short:         "Rewire action type constants to their declared actions",
		Long:          rootLongDescription,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				v.Set(rootKey, args[0])
			}
			return readConfig(v, configFile)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), v, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	configureFlags(cmd, v, &configFile)
	cmd.AddCommand(newInitCmd(v))
	return cmd
}

func configureFlags(cmd *cobra.Command, v *viper.Viper, configFile *string) {
	pf := cmd.PersistentFlags()
	pf.StringVar(configFile, "config", "", "config file (default "+configFileName+" in the working or root directory)")
	pf.String("root", defaultRoot, "module directory to rewrite")
	bindFlagToConfig(v, pf.Lookup("root"), rootKey)

	f := cmd.Flags()
	f.StringSliceP("exclude", "x", nil, "skip files whose path contains `substring` (can be repeated)")
	bindFlagToConfig(v, f.Lookup("exclude"), excludeKey)
	f.String("pattern", rewrite.DefaultPattern, "`regexp` matching action type constant names")
	bindFlagToConfig(v, f.Lookup("pattern"), patternKey)
	f.String("wrap", rewrite.DefaultWrap, "name of the factory wrapping a single constant")
	bindFlagToConfig(v, f.Lookup("wrap"), wrapKey)
	f.String("subscribe", rewrite.DefaultSubscribe, "name of the subscription factory")
	bindFlagToConfig(v, f.Lookup("subscribe"), subscribeKey)
	f.String("wrap-many", rewrite.DefaultWrapMany, "name of the factory wrapping many constants")
	bindFlagToConfig(v, f.Lookup("wrap-many"), wrapManyKey)
	f.StringSlice("tags", nil, "build `tags` to load with")
	bindFlagToConfig(v, f.Lookup("tags"), buildTagsKey)
	f.Bool("check", defaultCheck, "type-check the rewritten module before writing")
	bindFlagToConfig(v, f.Lookup("check"), checkKey)
	f.Bool("gofmt", defaultGofmt, "gofmt rewritten files, keeping blank lines")
	bindFlagToConfig(v, f.Lookup("gofmt"), gofmtKey)
	f.Bool("diff", false, "print a diff instead of writing files")
	bindFlagToConfig(v, f.Lookup("diff"), diffKey)
	f.String("lint", defaultLintTool, "`tool` to run over rewritten files: goimports, none, or a command line")
	bindFlagToConfig(v, f.Lookup("lint"), lintToolKey)
	f.BoolP("verbose", "v", false, "log every candidate call")
	bindFlagToConfig(v, f.Lookup("verbose"), logVerboseKey)
	f.String("log", "", "log to `file`, rotated, instead of stderr")
	bindFlagToConfig(v, f.Lookup("log"), logFilenameKey)
}

// bindFlagToConfig wires a flag to a viper key so config and env values feed the flag.
func bindFlagToConfig(v *viper.Viper, flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}
	cobra.CheckErr(v.BindPFlag(key, flag))
}

func run(ctx context.Context, v *viper.Viper, stdout, stderr io.Writer) error {
	logger, closeLog := newLogger(v, stderr)
	defer closeLog()

	opts, err := options(v, logger)
	if err != nil {
		return err
	}
	e, err := rewrite.New(opts)
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	res, err := e.Run(ctx)
	if err != nil {
		logger.Error("rewrite failed", "err", err)
		return err
	}

	if opts.Diff {
		stdout.Write(res.Diff)
	}
	if lint.Print(stderr, res.Lint) {
		logger.Warn("lint reported problems")
	}
	printReport(stderr, opts.Root, res)
	return nil
}
