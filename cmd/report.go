package cmd

import "github.com/urfave/cli/v2"

// WithErrorReporting wraps the actions of commands and their subcommands so a
// failing action is passed to report along with the full command name, e.g.
// "outputs get". Global flags before the command do not affect the name.
func WithErrorReporting(commands []*cli.Command, report func(command string, err error)) []*cli.Command {
	for _, c := range commands {
		wrapAction(c, c.Name, report)
	}
	return commands
}

func wrapAction(c *cli.Command, name string, report func(command string, err error)) {
	if action := c.Action; action != nil {
		c.Action = func(cCtx *cli.Context) error {
			err := action(cCtx)
			if err != nil {
				report(name, err)
			}
			return err
		}
	}
	for _, sub := range c.Subcommands {
		wrapAction(sub, name+" "+sub.Name, report)
	}
}
