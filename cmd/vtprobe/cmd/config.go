/*
Copyright © 2025 blacktop

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"
)

// scenario describes one validation run against the simulated host.
type scenario struct {
	Carriers int    `yaml:"carriers"`
	VThreads int    `yaml:"vthreads"`
	Duration string `yaml:"duration"`

	duration time.Duration
}

func defaultScenario() scenario {
	return scenario{
		Carriers: 4,
		VThreads: 8,
		duration: 2 * time.Second,
	}
}

// loadScenario reads a YAML scenario file, or returns defaults when path
// is empty.
func loadScenario(path string) (scenario, error) {
	scn := defaultScenario()
	if path == "" {
		return scn, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return scn, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &scn); err != nil {
		return scn, fmt.Errorf("parse config: %w", err)
	}
	if scn.Duration != "" {
		d, err := time.ParseDuration(scn.Duration)
		if err != nil {
			return scn, fmt.Errorf("parse duration %q: %w", scn.Duration, err)
		}
		scn.duration = d
	}
	if scn.Carriers <= 0 || scn.VThreads < 0 {
		return scn, fmt.Errorf("invalid scenario: carriers=%d vthreads=%d", scn.Carriers, scn.VThreads)
	}
	return scn, nil
}
