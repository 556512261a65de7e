// Copyright 2024 The Ice40Opt Authors. All rights reserved.  Use of this
// source code is governed by a license that can be found in the License file.

// Command ice40opt runs post-mapping optimization passes over an iCE40
// netlist dump (JSON or YAML).
//
//	ice40opt cset  -o out.yaml [--threshold 4] design.yaml
//	ice40opt lutdup -o out.yaml design.yaml
//	ice40opt usage design.yaml
package main

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/go-air/ice40opt/cset"
	"github.com/go-air/ice40opt/lutdup"
	"github.com/go-air/ice40opt/netlist"
	"github.com/go-air/ice40opt/usage"
)

var verbose bool

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logrus.Fatal(err)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ice40opt",
		Short:         "post-mapping optimization passes for iCE40 netlists",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug diagnostics")
	root.AddCommand(newCsetCmd(), newLutdupCmd(), newUsageCmd())
	return root
}

func addOutputFlag(fs *pflag.FlagSet, out *string) {
	fs.StringVarP(out, "output", "o", "", "path for the rewritten netlist, - for stdout")
}

func newCsetCmd() *cobra.Command {
	var (
		out       string
		threshold int
	)
	cmd := &cobra.Command{
		Use:   "cset <netlist>",
		Short: "consolidate flip-flop control sets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			nl, err := load(args[0])
			if err != nil {
				return err
			}
			if err := cset.Run(nl, threshold, logrus.StandardLogger()); err != nil {
				return err
			}
			return save(nl, out)
		},
	}
	addOutputFlag(cmd.Flags(), &out)
	cmd.Flags().IntVar(&threshold, "threshold", cset.DefaultThreshold, "minimum viable control set size")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func newLutdupCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "lutdup <netlist>",
		Short: "duplicate luts feeding several flip-flops",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			nl, err := load(args[0])
			if err != nil {
				return err
			}
			if err := lutdup.Run(nl, logrus.StandardLogger()); err != nil {
				return err
			}
			return save(nl, out)
		},
	}
	addOutputFlag(cmd.Flags(), &out)
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func newUsageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "usage <netlist>",
		Short: "report post-pack resource usage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			nl, err := load(args[0])
			if err != nil {
				return err
			}
			return usage.Report(nl, os.Stdout)
		},
	}
}

func load(path string) (*netlist.Netlist, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open netlist")
	}
	defer f.Close()
	return netlist.Load(f)
}

func save(nl *netlist.Netlist, out string) error {
	var w io.Writer = os.Stdout
	if out != "-" {
		f, err := os.Create(out)
		if err != nil {
			return errors.Wrap(err, "write netlist")
		}
		defer f.Close()
		w = f
	}
	return nl.Save(w)
}
