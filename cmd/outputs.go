package cmd

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/urfave/cli/v2"

	"github.com/storacha/sasurl/pkg/config"
	"github.com/storacha/sasurl/pkg/store"
)

var OutputsCmd = &cli.Command{
	Name:  "outputs",
	Usage: "List the outputs recorded for a stack.",
	Flags: flagsOf(ConfigFlags),
	Subcommands: []*cli.Command{
		{
			Name:      "get",
			Usage:     "Print a single recorded output.",
			ArgsUsage: "<name>",
			Flags:     flagsOf(ConfigFlags),
			Action: func(cCtx *cli.Context) error {
				name := cCtx.Args().First()
				if name == "" {
					return errors.New("output name is required")
				}
				cfg, err := config.LoadConfig(cCtx)
				if err != nil {
					return err
				}
				s, closeStore, err := OpenOutputStore(cfg)
				if err != nil {
					return err
				}
				defer closeStore()

				value, err := s.Get(cCtx.Context, cfg.Stack, name)
				if err != nil {
					if errors.Is(err, store.ErrNotFound) {
						return fmt.Errorf("no output %q recorded for stack %q", name, cfg.Stack)
					}
					return err
				}
				fmt.Println(value)
				return nil
			},
		},
	},
	Action: func(cCtx *cli.Context) error {
		cfg, err := config.LoadConfig(cCtx)
		if err != nil {
			return err
		}
		s, closeStore, err := OpenOutputStore(cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		outputs, err := s.List(cCtx.Context, cfg.Stack)
		if err != nil {
			return err
		}
		for _, name := range slices.Sorted(maps.Keys(outputs)) {
			fmt.Printf("%s\t%s\n", name, outputs[name])
		}
		return nil
	},
}
