package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
	"github.com/wkalt/outline/cli/util"
)

const shellPrompt = "outline # "

// pagedCommands write enough output to be worth paging in the shell.
var pagedCommands = map[string]bool{
	"show":        true,
	"export":      true,
	"descendants": true,
}

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Run an interactive shell against the server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runShell(cmd)
	},
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".outline_history")
}

func runShell(cmd *cobra.Command) error {
	l, err := readline.NewEx(&readline.Config{
		Prompt:          shellPrompt,
		HistoryFile:     historyFile(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer l.Close()
	l.CaptureExitSignal()

	// flags given to the shell itself apply to every line.
	persistent := []string{"--server-url", serverURL}
	if sharedKey != "" {
		persistent = append(persistent, "--shared-key", sharedKey)
	}

	fmt.Fprintln(l.Stdout(), `Type "help" for help.`)
	for {
		line, err := l.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		args, err := splitArgs(line)
		if err != nil {
			printError(l.Stderr(), err)
			continue
		}
		if len(args) == 0 {
			continue
		}
		switch args[0] {
		case "exit", "quit", "\\q":
			return nil
		case "help", "\\h":
			args = append([]string{"help"}, args[1:]...)
		case "shell", "server":
			printError(l.Stderr(), fmt.Errorf("%s is not available in the shell", args[0]))
			continue
		}
		pager := ""
		if pagedCommands[args[0]] {
			pager = util.MaybePager()
		}
		err = util.WithPaging(l.Stdout(), pager, func(w io.Writer) error {
			rootCmd.SetOut(w)
			defer rootCmd.SetOut(nil)
			return execute(cmd.Context(), append(args, persistent...))
		})
		if err != nil {
			printError(l.Stderr(), err)
		}
	}
}

func printError(w io.Writer, err error) {
	fmt.Fprintln(w, "ERROR: "+err.Error())
}

// splitArgs splits a shell line into arguments. Single and double quotes
// group words; inside double quotes a backslash escapes the next character.
func splitArgs(line string) ([]string, error) {
	args := []string{}
	var sb strings.Builder
	inArg := false
	var quote rune
	escaped := false
	for _, r := range line {
		switch {
		case escaped:
			sb.WriteRune(r)
			escaped = false
		case quote != 0:
			switch {
			case r == quote:
				quote = 0
			case r == '\\' && quote == '"':
				escaped = true
			default:
				sb.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inArg = true
		case r == ' ' || r == '\t':
			if inArg {
				args = append(args, sb.String())
				sb.Reset()
				inArg = false
			}
		default:
			sb.WriteRune(r)
			inArg = true
		}
	}
	if quote != 0 || escaped {
		return nil, errors.New("unterminated quote")
	}
	if inArg {
		args = append(args, sb.String())
	}
	return args, nil
}

func init() {
	rootCmd.AddCommand(shellCmd)
}
