package shell

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
)

//go:embed helptext/*.txt
var helptext embed.FS

// writeHelp writes the text for topic; the empty topic is the command list.
func writeHelp(w io.Writer, topic string) error {
	name := topic
	if name == "" {
		name = "usage"
	}
	dat, err := helptext.ReadFile("helptext/" + name + ".txt")
	if errors.Is(err, fs.ErrNotExist) {
		_, err = fmt.Fprintf(w, "There is no help text for the topic %s\n", topic)
		return err
	} else if err != nil {
		return fmt.Errorf("loading help text: %w", err)
	}
	_, err = w.Write(dat)
	return err
}

func (sc *ShellController) help(cmd *shellcmd) (*Response, error) {
	topic := ""
	if len(cmd.args) > 0 {
		topic = cmd.args[0]
	}
	return nil, writeHelp(sc.out, topic)
}
