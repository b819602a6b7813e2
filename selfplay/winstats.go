package selfplay

import (
	"github.com/gorgonia/selfplay/game"
	"github.com/rs/zerolog/log"
)

// WinStats tracks per-model win/loss/draw counts across a run, generalizing
// the teacher's Statistics (statistics.go: Wins/Losses/Draws maps keyed by
// agent identity, dumped as a CSV win-rate table at the end of a run). Here
// the key is a model name rather than a pointer-formatted agent address, and
// the dump is one structured zerolog line per model instead of a CSV
// file, since there is no training-loop consumer of a file on disk for this
// engine.
type WinStats struct {
	wins, losses, draws map[string]int
}

// NewWinStats returns an empty tracker.
func NewWinStats() *WinStats {
	return &WinStats{
		wins:   make(map[string]int),
		losses: make(map[string]int),
		draws:  make(map[string]int),
	}
}

// Record attributes g's outcome to every model that contributed an
// inference to it: a Black win counts as a win and a White win as a loss
// (Black's perspective), or a draw if
// the game ended without either side controlling the board (Score == 0 and
// no resignation).
func (s *WinStats) Record(g *SelfplayGame) {
	models := g.ModelsUsed()
	if len(models) == 0 {
		models = []string{""}
	}

	var draw bool
	var winner game.Player
	if g.Resigned() {
		winner = g.Winner()
	} else {
		score := g.Tree().CalculateScore(float32(g.Opts.Komi))
		draw = score == 0
		winner = g.Winner()
	}

	for _, m := range models {
		switch {
		case draw:
			s.draws[m]++
		case winner == game.Player(game.Black):
			s.wins[m]++
		default:
			s.losses[m]++
		}
	}
}

// Log emits one structured summary line per model that played a game in
// this run.
func (s *WinStats) Log() {
	for model := range union(s.wins, s.losses, s.draws) {
		w, l, d := s.wins[model], s.losses[model], s.draws[model]
		total := w + l + d
		var winRate float64
		if total > 0 {
			winRate = float64(w) / float64(total)
		}
		log.Info().
			Str("model", model).
			Int("wins", w).
			Int("losses", l).
			Int("draws", d).
			Float64("win_rate", winRate).
			Msg("win stats")
	}
}

func union(maps ...map[string]int) map[string]struct{} {
	out := make(map[string]struct{})
	for _, m := range maps {
		for k := range m {
			out[k] = struct{}{}
		}
	}
	return out
}
