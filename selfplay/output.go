package selfplay

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	exampleenc "github.com/gorgonia/selfplay/encoding/example"
	"github.com/gorgonia/selfplay/encoding/sgf"
	"github.com/gorgonia/selfplay/game"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// OutputThread consumes the orchestrator's output queue in strictly
// increasing game-id order until the nil-game sentinel, writing each
// game's SGF and training examples (§4.8). The first failed write is
// fatal: Run returns that error and no later game is written - training
// data corruption must not be silent.
type OutputThread struct {
	cfg *Config
	in  <-chan outputItem

	pending map[int]*SelfplayGame
	next    int
}

// NewOutputThread builds a thread that drains in according to cfg's
// sgf_dir/output_dir/holdout_dir settings.
func NewOutputThread(cfg *Config, in <-chan outputItem) *OutputThread {
	return &OutputThread{cfg: cfg, in: in, pending: make(map[int]*SelfplayGame)}
}

// Run drains the queue until the sentinel, writing games in id order, and
// returns the first write error encountered (if any).
func (o *OutputThread) Run() error {
	for item := range o.in {
		if item.game == nil {
			break
		}
		o.pending[item.id] = item.game
		for next, ok := o.pending[o.next]; ok; next, ok = o.pending[o.next] {
			if err := o.write(o.next, next); err != nil {
				return err
			}
			delete(o.pending, o.next)
			o.next++
		}
	}
	if len(o.pending) != 0 {
		return errors.Errorf("output queue drained with %d games missing a predecessor id", len(o.pending))
	}
	return nil
}

// write implements §4.8's per-game handling: annotate, optionally log,
// write clean/full SGF, write training examples.
func (o *OutputThread) write(gameID int, g *SelfplayGame) error {
	now := time.Now()
	name := GetOutputName(now, gameID)

	record := buildSGF(g)
	record.AddComment("models: " + strings.Join(g.ModelsUsed(), ","))

	if o.cfg.Verbose {
		log.Info().
			Int("game_id", gameID).
			Str("output_name", name).
			Int("moves", len(g.Moves())).
			Dur("duration", g.Duration()).
			Bool("resigned", g.Resigned()).
			Msg("game finished")
	}

	if o.cfg.SgfDir != "" {
		if err := writeSGF(o.cfg.SgfDir, "clean", now, name, record, false); err != nil {
			return errors.Wrap(err, "write clean sgf")
		}
		if err := writeSGF(o.cfg.SgfDir, "full", now, name, record, true); err != nil {
			return errors.Wrap(err, "write full sgf")
		}
	}

	exampleDir := o.cfg.OutputDir
	if g.Opts.IsHoldout {
		exampleDir = o.cfg.HoldoutDir
	}
	if exampleDir != "" {
		if err := writeExamples(exampleDir, now, name, g); err != nil {
			return errors.Wrap(err, "write training examples")
		}
	}
	return nil
}

func buildSGF(g *SelfplayGame) *sgf.Game {
	size := g.Opts.BoardSize
	record := &sgf.Game{
		BoardSize: size,
		Komi:      g.Opts.Komi,
		Result:    formatResult(g),
	}
	for _, ply := range g.Moves() {
		m := sgf.Move{
			Black:   ply.Player == game.Player(game.Black),
			Pass:    ply.Move.IsPass() || ply.Move.IsResignation(),
			Comment: fmt.Sprintf("Q=%.3f final=%.0f", ply.Q, ply.FinalValue),
		}
		if !m.Pass {
			m.X, m.Y = int(ply.Move)%size, int(ply.Move)/size
		}
		record.AddMove(m)
	}
	return record
}

func formatResult(g *SelfplayGame) string {
	if g.Resigned() {
		if g.Winner() == game.Player(game.Black) {
			return "B+R"
		}
		return "W+R"
	}
	score := g.Tree().CalculateScore(float32(g.Opts.Komi))
	switch {
	case score > 0:
		return fmt.Sprintf("B+%.1f", score)
	case score < 0:
		return fmt.Sprintf("W+%.1f", -score)
	default:
		return "Void"
	}
}

func writeSGF(root, variant string, now time.Time, name string, record *sgf.Game, full bool) error {
	dir := GetOutputDir(now, filepath.Join(root, variant))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, name+".sgf"), []byte(record.Render(full)), 0o644)
}

func writeExamples(root string, now time.Time, name string, g *SelfplayGame) error {
	dir := GetOutputDir(now, root)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(dir, name+".examples"), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	examples := make([]exampleenc.Example, 0, len(g.Moves()))
	for _, ply := range g.Moves() {
		if !ply.Trainable {
			continue
		}
		examples = append(examples, exampleenc.Example{
			BoardSize: g.Opts.BoardSize,
			Board:     ply.Features,
			Policy:    ply.SearchPi,
			Value:     ply.FinalValue,
		})
	}
	return exampleenc.WriteAll(f, examples)
}
