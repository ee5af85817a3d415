// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package refactor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// Config is the build configuration packages are loaded under.
type Config struct {
	// BuildTags are the build tags to load with.
	// A GOOS or GOARCH name sets that variable instead of a tag,
	// "cgo" and "!cgo" set CGO_ENABLED, and "race" adds -race.
	BuildTags []string

	// GoBinary is the go command. Empty means "go".
	GoBinary string
}

func (c Config) goBinary() string {
	if c.GoBinary == "" {
		return "go"
	}
	return c.GoBinary
}

// goosGoarch is one entry of "go tool dist list -json".
type goosGoarch struct {
	GOOS         string
	GOARCH       string
	CgoSupported bool
}

var platformCache struct {
	sync.Mutex
	m map[string][]goosGoarch
}

// platforms lists the GOOS/GOARCH pairs known to goBinary.
func platforms(goBinary string) ([]goosGoarch, error) {
	platformCache.Lock()
	defer platformCache.Unlock()
	if ps, ok := platformCache.m[goBinary]; ok {
		return ps, nil
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.Command(goBinary, "tool", "dist", "list", "-json")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("listing platforms: %w: %s", err, msg)
		}
		return nil, fmt.Errorf("listing platforms: %w", err)
	}
	var ps []goosGoarch
	if err := json.Unmarshal(stdout.Bytes(), &ps); err != nil {
		return nil, fmt.Errorf("listing platforms: %w", err)
	}
	if platformCache.m == nil {
		platformCache.m = make(map[string][]goosGoarch)
	}
	platformCache.m[goBinary] = ps
	return ps, nil
}

// flagsEnvs returns the go list flags and environment
// that load packages under c.
func (c Config) flagsEnvs() (flags, envs []string, err error) {
	if len(c.BuildTags) == 0 {
		return nil, nil, nil
	}
	ps, err := platforms(c.goBinary())
	if err != nil {
		return nil, nil, err
	}
	return c.split(ps)
}

func (c Config) split(ps []goosGoarch) (flags, envs []string, err error) {
	gooses := make(map[string]bool)
	goarches := make(map[string]bool)
	for _, p := range ps {
		gooses[p.GOOS] = true
		goarches[p.GOARCH] = true
	}

	set := make(map[string]string)
	setenv := func(k, v string) error {
		if old, ok := set[k]; ok {
			if old == v {
				return nil
			}
			return fmt.Errorf("build tags set %s to both %s and %s", k, old, v)
		}
		set[k] = v
		envs = append(envs, k+"="+v)
		return nil
	}

	var tags []string
	for _, tag := range c.BuildTags {
		switch {
		case gooses[tag]:
			err = setenv("GOOS", tag)
		case goarches[tag]:
			err = setenv("GOARCH", tag)
		case tag == "cgo":
			err = setenv("CGO_ENABLED", "1")
		case tag == "!cgo":
			err = setenv("CGO_ENABLED", "0")
		case tag == "race":
			flags = append(flags, "-race")
		default:
			tags = append(tags, tag)
		}
		if err != nil {
			return nil, nil, err
		}
	}
	if len(tags) > 0 {
		flags = append(flags, "-tags="+strings.Join(tags, ","))
	}
	return flags, envs, nil
}
