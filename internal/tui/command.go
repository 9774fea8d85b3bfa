package tui

import (
	"fmt"
	"sort"
	"strings"
)

// Command represents a parsed command.
type Command struct {
	Name string
	Args string
}

// ParseCommand parses a command string (without the leading ':'). Short
// aliases resolve to their full name.
func ParseCommand(input string) Command {
	input = strings.TrimSpace(input)
	name, args, _ := strings.Cut(input, " ")
	cmd := Command{Name: strings.ToLower(name), Args: strings.TrimSpace(args)}
	if full, ok := aliases[cmd.Name]; ok {
		cmd.Name = full
	}
	return cmd
}

var aliases = map[string]string{
	"q": "quit",
	"h": "help",
	"o": "open",
	"r": "refresh",
}

// argCommands must carry an argument.
var argCommands = map[string]string{
	"open":    "name",
	"connect": "profile",
	"accept":  "connection",
	"decline": "connection",
	"block":   "connection",
}

var knownCommands = map[string]bool{
	"quit": true, "help": true, "refresh": true, "requests": true,
	"open": true, "connect": true, "accept": true, "decline": true, "block": true,
}

// Validate reports an unknown command or a missing argument.
func (c Command) Validate() error {
	if !knownCommands[c.Name] {
		return fmt.Errorf("unknown command %q", c.Name)
	}
	if arg, ok := argCommands[c.Name]; ok && c.Args == "" {
		return fmt.Errorf("usage: :%s <%s>", c.Name, arg)
	}
	return nil
}

// CommandNames lists every command by its full name.
func CommandNames() []string {
	names := make([]string, 0, len(knownCommands))
	for name := range knownCommands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
