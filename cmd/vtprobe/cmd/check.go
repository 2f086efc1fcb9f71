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

	vtprobe "github.com/blacktop/go-vtprobe"
	"github.com/blacktop/go-vtprobe/simvm"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check capability negotiation against a simulated host",
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := newLogger()
		if err != nil {
			return err
		}
		defer log.Sync()

		if ok, err := simvm.Supported(); ok {
			fmt.Println("thread identity: exact")
		} else {
			fmt.Printf("thread identity: approximate (%v)\n", err)
		}

		vm := simvm.New(simvm.WithCarriers(1))
		defer vm.Close()

		if _, err := vtprobe.Attach(vm, vtprobe.WithLogger(log)); err != nil {
			fmt.Printf("attach: failed: %v\n", err)
			return err
		}

		caps, err := vm.GetCapabilities()
		if err != nil {
			return err
		}
		fmt.Println("attach: ok")
		fmt.Printf("capabilities: %s\n", caps)
		return nil
	},
}
