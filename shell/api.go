package shell

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/domino14/connect4/board"
	"github.com/domino14/connect4/config"
	"github.com/domino14/connect4/negamax"
)

const defaultRandomPlies = 8

type CmdOptions map[string][]string

func (c CmdOptions) String(key string) string {
	v := c[key]
	if len(v) > 0 {
		return v[0]
	}
	return ""
}

func (c CmdOptions) Int(key string) (int, error) {
	v := c[key]
	if len(v) == 0 {
		return 0, errors.New(key + " not found in options")
	}
	return strconv.Atoi(v[0])
}

func (c CmdOptions) IntDefault(key string, defaultI int) (int, error) {
	v := c[key]
	if len(v) == 0 {
		return defaultI, nil
	}
	return strconv.Atoi(v[0])
}

func (c CmdOptions) BoolDefault(key string, defaultB bool) bool {
	v := c[key]
	if len(v) == 0 {
		return defaultB
	}
	return strings.ToLower(v[0]) == "true"
}

func (sc *ShellController) stoneToMove() rune {
	if sc.pos.Ply()%2 == 0 {
		return board.FirstPlayerStone
	}
	return board.SecondPlayerStone
}

// describeScore explains a score given from the point of view of the side
// to move.
func (sc *ShellController) describeScore(score int) string {
	me := sc.stoneToMove()
	them := board.FirstPlayerStone
	if me == board.FirstPlayerStone {
		them = board.SecondPlayerStone
	}
	switch {
	case score > 0:
		return fmt.Sprintf("%c wins", me)
	case score < 0:
		return fmt.Sprintf("%c wins", them)
	}
	return "draw"
}

func (sc *ShellController) display() string {
	var sb strings.Builder
	sb.WriteString(sc.pos.ToDisplayText())
	if sc.sequence != "" {
		sb.WriteString("moves: " + sc.sequence + "\n")
	}
	return sb.String()
}

func (sc *ShellController) newCmd(cmd *shellcmd) (*Response, error) {
	d := sc.pos.Dims()
	width, err := cmd.options.IntDefault("width", d.Width)
	if err != nil {
		return nil, err
	}
	height, err := cmd.options.IntDefault("height", d.Height)
	if err != nil {
		return nil, err
	}
	if width != d.Width || height != d.Height {
		if d, err = board.NewDims(width, height); err != nil {
			return nil, err
		}
		sc.config.Set(config.ConfigBoardWidth, width)
		sc.config.Set(config.ConfigBoardHeight, height)
	}
	sc.newGame(d)
	return msg(sc.display()), nil
}

// play plays one or more columns, given as digits, e.g. `play 4 4 5` or
// `play 445`. It refuses a move that would end the game.
func (sc *ShellController) play(cmd *shellcmd) (*Response, error) {
	moves := strings.Join(cmd.args, "")
	if moves == "" {
		return nil, errors.New("usage: play <column> [column...]")
	}
	for i := 0; i < len(moves); i++ {
		col := int(moves[i]) - '1'
		switch {
		case col < 0 || col >= sc.pos.Dims().Width:
			return nil, fmt.Errorf("%q is not a column", moves[i])
		case !sc.pos.CanPlay(col):
			return nil, fmt.Errorf("column %d is full", col+1)
		case sc.pos.IsWinning(col):
			return msg(fmt.Sprintf("%c wins by playing column %d. Game over; use `undo` or `new`.",
				sc.stoneToMove(), col+1)), nil
		}
		sc.pos.Play(col)
		sc.sequence += string(moves[i])
	}
	return msg(sc.display()), nil
}

func (sc *ShellController) undo(cmd *shellcmd) (*Response, error) {
	if sc.sequence == "" {
		return nil, errors.New("nothing to undo")
	}
	sc.sequence = sc.sequence[:len(sc.sequence)-1]
	sc.pos, _ = board.FromSequence(sc.pos.Dims(), sc.sequence)
	return msg(sc.display()), nil
}

func (sc *ShellController) seq(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) != 1 {
		return nil, errors.New("usage: seq <moves>")
	}
	seq := cmd.args[0]
	pos, n := board.FromSequence(sc.pos.Dims(), seq)
	sc.pos = pos
	sc.sequence = seq[:n]
	out := sc.display()
	if n != len(seq) {
		out += fmt.Sprintf("stopped after %d of %d moves\n", n, len(seq))
	}
	return msg(out), nil
}

func (sc *ShellController) random(cmd *shellcmd) (*Response, error) {
	plies, err := cmd.options.IntDefault("plies", defaultRandomPlies)
	if err != nil {
		return nil, err
	}
	sc.sequence = board.RandomSequence(sc.pos.Dims(), plies)
	sc.pos, _ = board.FromSequence(sc.pos.Dims(), sc.sequence)
	return msg(sc.display()), nil
}

func (sc *ShellController) show(cmd *shellcmd) (*Response, error) {
	return msg(sc.display()), nil
}

// searchContext limits a search to -maxtime seconds, if given.
func (sc *ShellController) searchContext(cmd *shellcmd) (context.Context, context.CancelFunc, error) {
	maxtime, err := cmd.options.IntDefault("maxtime", 0)
	if err != nil {
		return nil, nil, err
	}
	if maxtime > 0 {
		ctx, cancel := context.WithTimeout(sc.ctx, time.Duration(maxtime)*time.Second)
		return ctx, cancel, nil
	}
	ctx, cancel := context.WithCancel(sc.ctx)
	return ctx, cancel, nil
}

func (sc *ShellController) solve(cmd *shellcmd) (*Response, error) {
	ctx, cancel, err := sc.searchContext(cmd)
	if err != nil {
		return nil, err
	}
	defer cancel()

	tstart := time.Now()
	before := sc.solver.Nodes()
	var score int
	source := "solved"
	if sc.book != nil {
		e, cached, err := sc.book.Solve(ctx, sc.solver, sc.pos, sc.sequence)
		if err != nil {
			return nil, err
		}
		score = e.Score
		if cached {
			source = "from book"
		}
	} else {
		score, err = sc.solver.Solve(ctx, sc.pos)
		if err != nil {
			return nil, err
		}
	}
	return msg(fmt.Sprintf("score %d: %s (%s, %d nodes, %.3fs)",
		score, sc.describeScore(score), source, sc.solver.Nodes()-before,
		time.Since(tstart).Seconds())), nil
}

func (sc *ShellController) analyze(cmd *shellcmd) (*Response, error) {
	ctx, cancel, err := sc.searchContext(cmd)
	if err != nil {
		return nil, err
	}
	defer cancel()

	scores, err := sc.solver.Analyze(ctx, sc.pos)
	if err != nil {
		return nil, err
	}
	cols := lo.Map(scores, func(_ int, i int) string {
		return fmt.Sprintf("%4d", i+1)
	})
	vals := lo.Map(scores, func(s int, _ int) string {
		if s == negamax.InvalidMove {
			return "   -"
		}
		return fmt.Sprintf("%4d", s)
	})
	return msg("column" + strings.Join(cols, "") + "\nscore " + strings.Join(vals, "")), nil
}

func (sc *ShellController) best(cmd *shellcmd) (*Response, error) {
	ctx, cancel, err := sc.searchContext(cmd)
	if err != nil {
		return nil, err
	}
	defer cancel()

	col, score, err := sc.solver.BestMove(ctx, sc.pos)
	if err != nil {
		return nil, err
	}
	return msg(fmt.Sprintf("best move: column %d, score %d: %s",
		col+1, score, sc.describeScore(score))), nil
}

func (sc *ShellController) minimax(cmd *shellcmd) (*Response, error) {
	ctx, cancel, err := sc.searchContext(cmd)
	if err != nil {
		return nil, err
	}
	defer cancel()

	maximize := cmd.options.BoolDefault("maximize", true)
	score, err := sc.solver.Minimax(ctx, sc.pos, maximize)
	if err != nil {
		return nil, err
	}
	return msg(fmt.Sprintf("minimax %d (maximize %v)", score, maximize)), nil
}

func (sc *ShellController) nodes(cmd *shellcmd) (*Response, error) {
	st := sc.solver.TableStats()
	return msg(fmt.Sprintf("nodes: %d\nttable: %d stored, %d lookups, %d hits, %d collisions",
		sc.solver.Nodes(), st.Created, st.Lookups, st.Hits, st.T2Collisions)), nil
}

func (sc *ShellController) reset(cmd *shellcmd) (*Response, error) {
	sc.solver.Reset()
	return msg("solver reset"), nil
}

var settableKeys = []string{
	config.ConfigTTableSize,
	config.ConfigBookPath,
	config.ConfigSolverLogPath,
	config.ConfigDebug,
}

func (sc *ShellController) settings() string {
	var sb strings.Builder
	sb.WriteString("Settings:\n")
	for _, key := range settableKeys {
		sb.WriteString("  " + key + ": " + sc.config.GetString(key) + "\n")
	}
	return sb.String()
}

func (sc *ShellController) set(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 {
		return msg(sc.settings()), nil
	}
	key := cmd.args[0]
	if !lo.Contains(settableKeys, key) {
		return nil, fmt.Errorf("no such setting: %s", key)
	}
	if len(cmd.args) == 1 {
		return msg(key + ": " + sc.config.GetString(key)), nil
	}
	value := cmd.args[1]
	switch key {
	case config.ConfigTTableSize:
		size, err := strconv.Atoi(value)
		if err != nil || size < 1 {
			return nil, fmt.Errorf("bad table size %q", value)
		}
		sc.config.Set(key, size)
		sc.newSolver(sc.pos.Dims())
	case config.ConfigBookPath:
		sc.config.Set(key, value)
		if err := sc.openBook(); err != nil {
			return nil, err
		}
	case config.ConfigSolverLogPath:
		sc.config.Set(key, value)
		if err := sc.openSolverLog(); err != nil {
			return nil, err
		}
	case config.ConfigDebug:
		on := strings.ToLower(value) == "true"
		sc.config.Set(key, on)
		if on {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		} else {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
		}
	}
	return msg("set " + key + " to " + sc.config.GetString(key)), nil
}
