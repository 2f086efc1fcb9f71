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
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	vtprobe "github.com/blacktop/go-vtprobe"
	"github.com/blacktop/go-vtprobe/simvm"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringP("config", "c", "", "Scenario config file (YAML)")
	runCmd.Flags().Int("carriers", 0, "Number of carrier threads (overrides config)")
	runCmd.Flags().Int("vthreads", 0, "Number of virtual threads (overrides config)")
	runCmd.Flags().Duration("duration", 0, "Scenario duration (overrides config)")
	runCmd.Flags().String("metrics-addr", "", "Expose Prometheus metrics on this address")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a validation scenario against a simulated host",
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := newLogger()
		if err != nil {
			return err
		}
		defer log.Sync()

		path, _ := cmd.Flags().GetString("config")
		scn, err := loadScenario(path)
		if err != nil {
			return err
		}
		if n, _ := cmd.Flags().GetInt("carriers"); n > 0 {
			scn.Carriers = n
		}
		if n, _ := cmd.Flags().GetInt("vthreads"); n > 0 {
			scn.VThreads = n
		}
		if d, _ := cmd.Flags().GetDuration("duration"); d > 0 {
			scn.duration = d
		}

		runID := uuid.NewString()
		log = log.With(zap.String("run", runID))
		log.Info("scenario starting",
			zap.Int("carriers", scn.Carriers),
			zap.Int("vthreads", scn.VThreads),
			zap.Duration("duration", scn.duration))

		if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
			reg := prometheus.NewRegistry()
			reg.MustRegister(vtprobe.NewCollector())
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			go func() {
				if err := http.ListenAndServe(addr, mux); err != nil {
					log.Warn("metrics server stopped", zap.Error(err))
				}
			}()
			log.Info("metrics exposed", zap.String("addr", addr))
		}

		vm := simvm.New(simvm.WithCarriers(scn.Carriers))
		defer vm.Close()

		agent, err := vtprobe.Attach(vm, vtprobe.WithLogger(log))
		if err != nil {
			return fmt.Errorf("attach: %w", err)
		}

		deadline := time.Now().Add(scn.duration)
		for i := 0; i < scn.VThreads; i++ {
			vm.Spawn(fmt.Sprintf("vthread-%d", i), func(t *simvm.Task) {
				for time.Now().Before(deadline) {
					t.Checkpoint()
					time.Sleep(time.Millisecond)
					if !t.Yield() {
						return
					}
				}
			})
		}

		// Asynchronous path: every mount notification validates the
		// mounted virtual thread and records completion.
		for !agent.Completed() && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}
		if !agent.Completed() {
			return fmt.Errorf("mount-notification path never completed a validation")
		}
		log.Info("mount-notification path completed")

		// Synchronous path: exhaustive sweep over all carriers.
		if err := agent.RunSweep(); err != nil {
			return fmt.Errorf("sweep: %w", err)
		}
		log.Info("sweep passed")

		out, err := json.MarshalIndent(vtprobe.GetMetrics(), "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}
