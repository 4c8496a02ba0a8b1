package tui

import "strings"

// Command represents a parsed command.
type Command struct {
	Name string
	Args string
}

// Command names understood by the prompt.
const (
	CmdNew    = "new"
	CmdGroup  = "group"
	CmdDelete = "delete"
	CmdStatus = "status"
	CmdLogout = "logout"
	CmdHelp   = "help"
	CmdQuit   = "quit"
)

var aliases = map[string]string{
	"n":    CmdNew,
	"chat": CmdNew,
	"g":    CmdGroup,
	"del":  CmdDelete,
	"rm":   CmdDelete,
	"st":   CmdStatus,
	"h":    CmdHelp,
	"q":    CmdQuit,
	"q!":   CmdQuit,
	"exit": CmdQuit,
}

// ParseCommand parses a command string (without the leading ':') and
// resolves aliases.
func ParseCommand(input string) Command {
	input = strings.TrimSpace(input)
	parts := strings.SplitN(input, " ", 2)
	cmd := Command{Name: strings.ToLower(parts[0])}
	if full, ok := aliases[cmd.Name]; ok {
		cmd.Name = full
	}
	if len(parts) > 1 {
		cmd.Args = strings.TrimSpace(parts[1])
	}
	return cmd
}

// Commands returns the command names offered for completion.
func Commands() []string {
	return []string{CmdNew, CmdGroup, CmdDelete, CmdStatus, CmdLogout, CmdHelp, CmdQuit}
}
