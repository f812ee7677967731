package resp

// Command is a request frame: the verb followed by its binary-safe arguments.
// A Command is not modified after construction and is written exactly once.
type Command struct {
	args [][]byte
}

// NewCommand builds a command from a verb and raw arguments.
//
// Usage:
//
//	cmd := NewCommand(CmdSet, []byte("key"), []byte("value"))
func NewCommand(verb string, args ...[]byte) *Command {
	all := make([][]byte, 0, len(args)+1)
	all = append(all, []byte(verb))
	all = append(all, args...)
	return &Command{args: all}
}

// NewStringCommand is NewCommand for string arguments.
func NewStringCommand(verb string, args ...string) *Command {
	all := make([][]byte, 0, len(args)+1)
	all = append(all, []byte(verb))
	for _, a := range args {
		all = append(all, []byte(a))
	}
	return &Command{args: all}
}

// Verb returns the command name.
func (c *Command) Verb() string {
	if len(c.args) == 0 {
		return ""
	}
	return string(c.args[0])
}

// Args returns the arguments after the verb.
// The returned slices must not be modified.
func (c *Command) Args() [][]byte {
	if len(c.args) == 0 {
		return nil
	}
	return c.args[1:]
}

// Len returns the number of elements in the frame, verb included.
func (c *Command) Len() int {
	return len(c.args)
}
