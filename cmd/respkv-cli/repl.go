package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pior/respkv"
	"github.com/spf13/cobra"
)

var replCommands = map[string]handler{
	"keys":    doKeys,
	"exists":  doExists,
	"get":     doGet,
	"getraw":  doGetRaw,
	"set":     doSet,
	"setjson": doSetJSON,
	"del":     doDelete,
	"delete":  doDelete,
}

const replHelp = `Commands:
  keys                  - List all keys
  exists <key>          - Report whether a key exists
  get <key>             - Fetch and decode a value
  getraw <key>          - Fetch the stored bytes
  set <key> <value>     - Store a string value
  setjson <key> <json>  - Store a JSON object or array
  del <key>             - Delete a key
  connect               - Reconnect after a connection failure
  stats                 - Show client statistics
  quit                  - Exit the CLI`

func runREPL(cmd *cobra.Command) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Connected to %s (lazy). Type 'help' for commands.\n", s.client.Addr())
	return repl(s, cmd.InOrStdin(), out)
}

func repl(s *session, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}

		parts, err := splitArgs(scanner.Text())
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		if len(parts) == 0 {
			continue
		}

		command := strings.ToLower(parts[0])
		switch command {
		case "quit", "exit":
			fmt.Fprintln(out, "Goodbye!")
			return nil

		case "help":
			fmt.Fprintln(out, replHelp)

		case "stats":
			st := s.client.Stats()
			fmt.Fprintf(out, "keys=%d exists=%d gets=%d hits=%d sets=%d deletes=%d errors=%d connects=%d\n",
				st.Keys, st.Exists, st.Gets, st.GetHits, st.Sets, st.Deletes, st.Errors, st.Connects)

		case "connect":
			ctx, cancel := s.ctx()
			err := s.client.Connect(ctx)
			cancel()
			if err != nil {
				fmt.Fprintf(out, "Error: %v\n", err)
			} else {
				fmt.Fprintln(out, "OK")
			}

		default:
			h, ok := replCommands[command]
			if !ok {
				fmt.Fprintf(out, "Unknown command: %s. Type 'help' for available commands.\n", command)
				continue
			}

			start := time.Now()
			ctx, cancel := s.ctx()
			err := h(ctx, s.client, out, parts[1:])
			cancel()
			if err != nil {
				fmt.Fprintf(out, "Error: %v\n", err)
				if errors.Is(err, respkv.ErrConnectionBroken) {
					fmt.Fprintln(out, "Type 'connect' to reconnect.")
				}
				continue
			}
			s.logger.Debug("command done", "command", command, "took", time.Since(start))
		}
	}

	return scanner.Err()
}

// splitArgs splits a line on whitespace. Double quotes group words and
// support \" and \\ escapes.
func splitArgs(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inQuote bool
		escaped bool
		hasArg  bool
	)

	for _, r := range line {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case inQuote && r == '\\':
			escaped = true
		case r == '"':
			inQuote = !inQuote
			hasArg = true
		case !inQuote && (r == ' ' || r == '\t'):
			if hasArg {
				args = append(args, cur.String())
				cur.Reset()
				hasArg = false
			}
		default:
			cur.WriteRune(r)
			hasArg = true
		}
	}

	if inQuote {
		return nil, errors.New("unterminated quote")
	}
	if hasArg {
		args = append(args, cur.String())
	}
	return args, nil
}
