// Copyright 2025 TextKit Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Command textkit is the TextKit command line interface: list the
// registered pretrained models, fetch their artifacts into the local
// cache, and inspect serialized weight files.
package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/textkit-ml/textkit/internal/serialization"
	"github.com/textkit-ml/textkit/models/mini"
	"github.com/textkit-ml/textkit/pretrained"
)

const version = "0.1.0"

// archs lists every registered architecture family the CLI knows about.
var archs = []*pretrained.Arch{
	mini.ModelArch,
}

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	c := &cobra.Command{
		Use:           "textkit",
		Short:         "TextKit pretrained model tooling",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
		},
	}
	c.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	c.AddCommand(newModelsCmd())
	c.AddCommand(newFetchCmd())
	c.AddCommand(newInspectCmd())
	c.AddCommand(newVersionCmd())
	return c
}

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the registered pretrained model identifiers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var names []string
			for _, arch := range archs {
				for _, name := range arch.ModelNames() {
					names = append(names, fmt.Sprintf("%s\t%s", name, arch.Name))
				}
			}
			sort.Strings(names)
			for _, line := range names {
				cmd.Println(line)
			}
			return nil
		},
	}
}

func newFetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch MODEL",
		Short: "Download a pretrained model's artifacts into the local cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			arch := archForModel(name)
			if arch == nil {
				return fmt.Errorf("unknown model %q, run \"textkit models\" for the registered identifiers", name)
			}

			m, err := arch.BaseClass().FromPretrained(name, nil, nil)
			if err != nil {
				return err
			}
			cmd.Printf("fetched %s (%s, %d parameters) into %s\n",
				name, m.Class().Name, parameterCount(m), pretrained.ModelHome())
			return nil
		},
	}
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE" + serialization.FileSuffix,
		Short: "Print the header of a serialized weight file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reader, err := serialization.NewReader(args[0])
			if err != nil {
				return err
			}
			defer func() {
				_ = reader.Close()
			}()

			header := reader.Header()
			cmd.Printf("model type:  %s\n", header.ModelType)
			cmd.Printf("format:      v%d (textkit %s)\n", header.FormatVersion, header.TextKitVersion)
			cmd.Printf("created at:  %s\n", header.CreatedAt.Format("2006-01-02 15:04:05 MST"))
			cmd.Printf("tensors:     %d\n", len(header.Tensors))
			for _, meta := range header.Tensors {
				cmd.Printf("  %-40s %-8s %v\n", meta.Name, meta.DType, meta.Shape)
			}
			for key, value := range header.Metadata {
				cmd.Printf("metadata %s = %s\n", key, value)
			}
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the textkit version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println("textkit " + version)
		},
	}
}

func archForModel(name string) *pretrained.Arch {
	for _, arch := range archs {
		if _, ok := arch.PretrainedConfigs[name]; ok {
			return arch
		}
	}
	return nil
}

func parameterCount(m pretrained.Model) int {
	total := 0
	for _, raw := range m.StateDict() {
		total += raw.NumElements()
	}
	return total
}
