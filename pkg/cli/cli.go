package cli

import (
	"context"

	"github.com/urfave/cli/v3"
)

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	cmd := &cli.Command{
		Name:  "karmaspark",
		Usage: "Step-by-step reasoning assistant with persistent memory",
		Commands: []*cli.Command{
			askCommand(),
			chatCommand(),
			memoryCommand(),
			remindCommand(),
			summarizeCommand(),
			moderateCommand(),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}
