package shell

import (
	"strconv"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/samber/lo"

	"github.com/domino14/connect4/config"
)

// ShellCompleter completes command names, their -options and the values of
// a few arguments. It implements readline.AutoCompleter.
type ShellCompleter struct {
	sc *ShellController
}

func NewShellCompleter(sc *ShellController) *ShellCompleter {
	return &ShellCompleter{sc: sc}
}

// CommandMetadata lists what may follow a command.
type CommandMetadata struct {
	Options []string
	Args    []string
}

var commandMetadata = map[string]CommandMetadata{
	"new":     {Options: []string{"-width", "-height"}},
	"random":  {Options: []string{"-plies"}},
	"solve":   {Options: []string{"-maxtime"}},
	"analyze": {Options: []string{"-maxtime"}},
	"best":    {Options: []string{"-maxtime"}},
	"minimax": {Options: []string{"-maximize", "-maxtime"}},
	"set":     {Args: settableKeys},
	"help":    {Args: []string{"scores", "solve"}},
}

var commandNames = []string{
	"new", "play", "undo", "seq", "random", "show", "solve", "analyze",
	"best", "minimax", "nodes", "reset", "set", "help", "exit",
}

var boolValues = []string{"true", "false"}

// candidates returns what the word being typed could become, given the
// complete words before it.
func (c *ShellCompleter) candidates(done []string) []string {
	if len(done) == 0 {
		return commandNames
	}
	cmd, prev := done[0], done[len(done)-1]
	if cmd == "play" || cmd == "p" {
		return c.playableColumns()
	}
	if prev == "-maximize" || (cmd == "set" && len(done) == 2 && prev == config.ConfigDebug) {
		return boolValues
	}
	meta, ok := commandMetadata[cmd]
	if !ok {
		return nil
	}
	if cmd == "set" {
		if len(done) == 1 {
			return meta.Args
		}
		return nil
	}
	if len(meta.Args) > 0 {
		return meta.Args
	}
	return meta.Options
}

func (c *ShellCompleter) playableColumns() []string {
	var cols []string
	for col := 0; col < c.sc.pos.Dims().Width; col++ {
		if c.sc.pos.CanPlay(col) {
			cols = append(cols, strconv.Itoa(col+1))
		}
	}
	return cols
}

func splitFields(text string) []string {
	fields, err := shellquote.Split(text)
	if err != nil {
		fields = strings.Fields(text)
	}
	return fields
}

func (c *ShellCompleter) Do(line []rune, pos int) ([][]rune, int) {
	text := string(line[:pos])
	fields := splitFields(text)

	word := ""
	if len(fields) > 0 && !strings.HasSuffix(text, " ") {
		word = fields[len(fields)-1]
		fields = fields[:len(fields)-1]
	}
	matches := lo.FilterMap(c.candidates(fields), func(cand string, _ int) ([]rune, bool) {
		return []rune(strings.TrimPrefix(cand, word)), strings.HasPrefix(cand, word)
	})
	return matches, len([]rune(word))
}
