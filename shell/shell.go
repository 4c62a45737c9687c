package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog/log"

	"github.com/domino14/connect4/board"
	"github.com/domino14/connect4/book"
	"github.com/domino14/connect4/config"
	"github.com/domino14/connect4/negamax"
)

var (
	errNoData            = errors.New("no data in this line")
	errWrongOptionSyntax = errors.New("wrong format; all options need arguments")
	errExit              = errors.New("exit requested")
)

type shellcmd struct {
	cmd     string
	args    []string
	options CmdOptions
}

type Response struct {
	message string
}

func msg(message string) *Response {
	return &Response{message: message}
}

// ShellController holds the state of an interactive session: the current
// position, the moves that led to it and the solver.
type ShellController struct {
	l      *readline.Instance
	out    io.Writer
	config *config.Config

	pos      board.Position
	sequence string

	solver    *negamax.Solver
	book      *book.Book
	solverLog *os.File

	ctx    context.Context
	cancel context.CancelFunc
}

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func writeln(msg string, w io.Writer) {
	io.WriteString(w, msg)
	io.WriteString(w, "\n")
}

func (sc *ShellController) showMessage(msg string) {
	writeln(msg, sc.out)
}

func (sc *ShellController) showError(err error) {
	sc.showMessage("Error: " + err.Error())
}

// NewShellController creates a shell that reads commands with readline.
func NewShellController(cfg *config.Config) (*ShellController, error) {
	sc, err := newController(cfg, nil)
	if err != nil {
		return nil, err
	}
	l, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[33mconnect4>\033[0m ",
		HistoryFile:     "/tmp/connect4-readline.tmp",
		AutoComplete:    NewShellCompleter(sc),
		EOFPrompt:       "exit",
		InterruptPrompt: "^C",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		sc.Cleanup()
		return nil, err
	}
	sc.l = l
	sc.out = l.Stderr()
	return sc, nil
}

// newController sets up everything but the line editor. Output goes to out.
func newController(cfg *config.Config, out io.Writer) (*ShellController, error) {
	ctx, cancel := context.WithCancel(context.Background())
	sc := &ShellController{config: cfg, out: out, ctx: ctx, cancel: cancel}
	d, err := cfg.Dims()
	if err != nil {
		cancel()
		return nil, err
	}
	sc.newGame(d)
	if err := sc.openBook(); err != nil {
		cancel()
		return nil, err
	}
	if err := sc.openSolverLog(); err != nil {
		sc.Cleanup()
		return nil, err
	}
	return sc, nil
}

func (sc *ShellController) newGame(d *board.Dims) {
	sc.pos = board.NewPosition(d)
	sc.sequence = ""
	if sc.solver == nil || sc.solver.Dims().Width != d.Width || sc.solver.Dims().Height != d.Height {
		sc.newSolver(d)
	}
}

func (sc *ShellController) newSolver(d *board.Dims) {
	sc.solver = negamax.NewSolver(d, sc.config.GetInt(config.ConfigTTableSize))
	if sc.solverLog != nil {
		sc.solver.SetLogStream(sc.solverLog)
	}
}

func (sc *ShellController) openBook() error {
	if sc.book != nil {
		sc.book.Close()
		sc.book = nil
	}
	path := sc.config.GetString(config.ConfigBookPath)
	if path == "" {
		return nil
	}
	b, err := book.Open(sc.ctx, path)
	if err != nil {
		return err
	}
	sc.book = b
	return nil
}

func (sc *ShellController) openSolverLog() error {
	if sc.solverLog != nil {
		sc.solverLog.Close()
		sc.solverLog = nil
	}
	sc.solver.SetLogStream(nil)
	path := sc.config.GetString(config.ConfigSolverLogPath)
	if path == "" {
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	sc.solverLog = f
	sc.solver.SetLogStream(f)
	return nil
}

// Cleanup closes the book and the solver log.
func (sc *ShellController) Cleanup() {
	sc.cancel()
	if sc.book != nil {
		sc.book.Close()
	}
	if sc.solverLog != nil {
		sc.solverLog.Close()
	}
}

func extractFields(line string) (*shellcmd, error) {
	fields, err := shellquote.Split(line)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, errNoData
	}
	cmd := fields[0]
	var args []string
	options := CmdOptions{}
	for idx := 1; idx < len(fields); idx++ {
		if strings.HasPrefix(fields[idx], "-") && len(fields[idx]) > 1 {
			// an option; its value is the next field.
			if idx == len(fields)-1 {
				return nil, errWrongOptionSyntax
			}
			key := fields[idx][1:]
			options[key] = append(options[key], fields[idx+1])
			idx++
			continue
		}
		args = append(args, fields[idx])
	}
	return &shellcmd{cmd: cmd, args: args, options: options}, nil
}

func (sc *ShellController) handle(line string) (*Response, error) {
	cmd, err := extractFields(line)
	if err != nil {
		return nil, err
	}
	switch cmd.cmd {
	case "exit", "quit":
		return nil, errExit
	case "help", "h":
		return sc.help(cmd)
	case "new", "n":
		return sc.newCmd(cmd)
	case "play", "p":
		return sc.play(cmd)
	case "undo", "u":
		return sc.undo(cmd)
	case "seq", "sequence":
		return sc.seq(cmd)
	case "show", "s", "b":
		return sc.show(cmd)
	case "solve":
		return sc.solve(cmd)
	case "analyze", "a":
		return sc.analyze(cmd)
	case "best", "hint":
		return sc.best(cmd)
	case "minimax":
		return sc.minimax(cmd)
	case "nodes":
		return sc.nodes(cmd)
	case "reset":
		return sc.reset(cmd)
	case "set":
		return sc.set(cmd)
	case "random":
		return sc.random(cmd)
	default:
		msg := fmt.Sprintf("command %v not found", strconv.Quote(cmd.cmd))
		log.Info().Msg(msg)
		return nil, errors.New(msg)
	}
}

// Execute runs a single command line, as given on the command line.
func (sc *ShellController) Execute(sig chan os.Signal, line string) {
	resp, err := sc.handle(line)
	if err != nil && !errors.Is(err, errExit) {
		sc.showError(err)
	} else if resp != nil {
		sc.showMessage(resp.message)
	}
}

func (sc *ShellController) Loop(sig chan os.Signal) {

	defer sc.l.Close()

	for {
		line, err := sc.l.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				sig <- syscall.SIGINT
				break
			} else {
				continue
			}
		} else if err == io.EOF {
			sig <- syscall.SIGINT
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		resp, err := sc.handle(line)
		if errors.Is(err, errExit) {
			sig <- syscall.SIGINT
			break
		} else if err != nil {
			sc.showError(err)
		} else if resp != nil {
			sc.showMessage(resp.message)
		}
	}
	log.Debug().Msgf("Exiting readline loop...")
}
