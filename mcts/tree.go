package mcts

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/chewxy/math32"
	"github.com/gorgonia/selfplay/game"
	"github.com/gorgonia/selfplay/game/symmetry"
)

// Tree is the MctsTree collaborator: a PUCT search tree held in a node
// arena, moved forward by an external caller's select/incorporate/play
// cycle rather than by any search loop of its own.
type Tree struct {
	Config
	MoveLimit int // 0 means unlimited

	nodes    []Node
	children [][]naughty
	freelist []naughty

	root naughty

	lumberjack
}

// New creates a Tree rooted at root. cfg is copied once and never mutated -
// the "flag set as an immutable configuration value" design note.
func New(root game.State, cfg Config, moveLimit int) *Tree {
	t := &Tree{
		Config:     cfg,
		MoveLimit:  moveLimit,
		nodes:      make([]Node, 0, 4096),
		children:   make([][]naughty, 0, 4096),
		lumberjack: makeLumberJack(),
	}
	t.root = t.alloc(nilNode, Pass, 1.0, root, symmetry.Canonical(root.Board(), boardSize(root)))
	t.node(t.root).Activate()
	return t
}

func boardSize(s game.State) int {
	m, _ := s.BoardSize()
	return m
}

func (t *Tree) node(n naughty) *Node { return &t.nodes[int(n)] }

func (t *Tree) alloc(parent naughty, move game.Single, prior float32, position game.State, sym symmetry.Symmetry) naughty {
	var id naughty
	if l := len(t.freelist); l > 0 {
		id = t.freelist[l-1]
		t.freelist = t.freelist[:l-1]
	} else {
		id = naughty(len(t.nodes))
		t.nodes = append(t.nodes, Node{})
		t.children = append(t.children, nil)
	}

	n := t.node(id)
	n.id = id
	n.tree = t
	n.parent = parent
	n.move = move
	n.prior = prior
	n.position = position
	n.canonicalSymmetry = sym
	n.status = Active
	n.visits = 0
	n.virtualLosses = 0
	n.nnValue = 0
	n.valueSum = 0
	t.children[id] = t.children[id][:0]
	return id
}

func (t *Tree) free(n naughty) {
	t.node(n).reset()
	t.children[n] = t.children[n][:0]
	t.freelist = append(t.freelist, n)
}

// Root returns the index of the root node.
func (t *Tree) Root() naughty { return t.root }

func (t *Tree) RootNode() *Node { return t.node(t.root) }

// Node looks up the node behind a leaf handle returned by SelectLeaf. The
// returned *Node is only valid until the next mutating Tree call (backup,
// expansion, pruning may move it to a different slot or invalidate it).
func (t *Tree) Node(l Leaf) *Node { return t.node(l) }

// ToPlay is the player to move at the root.
func (t *Tree) ToPlay() game.Player { return t.RootNode().ToPlay() }

func (t *Tree) atMoveLimit(s game.State) bool {
	return t.MoveLimit > 0 && s.MoveNumber() >= t.MoveLimit
}

// IsGameOver reports whether the root position ends the game.
func (t *Tree) IsGameOver() bool { return t.RootNode().GameOver() }

// AtMoveLimit reports whether the root position has reached MoveLimit.
func (t *Tree) AtMoveLimit() bool { return t.atMoveLimit(t.RootNode().position) }

// SelectLeaf descends from the root under PUCT, adding nothing itself - the
// caller is responsible for AddVirtualLoss once it decides to queue the leaf
// for inference. It stops at and returns the first node that is terminal,
// at the move limit, or not yet expanded (an unexpanded or terminal root is
// returned itself). It returns nilNode only when an expanded node has no
// selectable child (every child inactive or excluded by allowPass).
func (t *Tree) SelectLeaf(allowPass bool) naughty {
	cur := t.root
	for {
		n := t.node(cur)
		if n.GameOver() || n.AtMoveLimit() {
			return cur
		}
		if !n.HasChildren() {
			return cur
		}
		_ = t.bensonsRestricted(n) // hook point, see bensonsRestricted
		next := n.selectChild(allowPass)
		if next == nilNode {
			return nilNode
		}
		cur = next
	}
}

// bensonsRestricted reports whether n's descent should be constrained to
// outside Benson's-safe regions - the original engine's restrict_in_bensons
// behavior, which only engages once the position has seen five passes. The
// actual region classification belongs to the Position collaborator, which
// spec.md §1 keeps out of scope, so this conservatively and permanently
// reports "unrestricted" - a wired but currently no-op hook, not a silent
// drop of the flag.
func (t *Tree) bensonsRestricted(n *Node) bool {
	if !t.RestrictInBensons {
		return false
	}
	if n.position.Passes() < 5 {
		return false
	}
	return false
}

// IncorporateResults expands leaf with the given policy (length
// ActionSpace()+1, pass last) and value (leaf-to-move perspective, [-1,1]),
// then backs the value up the path to the root.
func (t *Tree) IncorporateResults(leaf naughty, policy []float32, value float32) {
	n := t.node(leaf)
	t.log("IncorporateResults leaf=%d value=%.3f", leaf, value)
	if n.HasChildren() || n.GameOver() {
		// Already expanded (e.g. reached again through a transposition
		// within the same select_leaves round) or terminal: nothing to
		// expand, but still back up so the visit counts stay meaningful.
		t.backup(leaf, qFromPerspective(value, n.ToPlay()))
		return
	}

	player := n.ToPlay()
	blackValue := qFromPerspective(value, player)
	n.nnValue = blackValue

	policy = t.sharpenPolicy(policy)

	actionSpace := n.position.ActionSpace()
	legal := make([]int, 0, actionSpace+1)
	var legalSum float32
	for i := 0; i < actionSpace; i++ {
		if n.position.Check(game.PlayerMove{Player: player, Single: game.Single(i)}) {
			legal = append(legal, i)
			legalSum += policy[i]
		}
	}
	passIdx := len(policy) - 1
	passLegal := n.position.Check(game.PlayerMove{Player: player, Single: Pass})
	if passLegal {
		legalSum += policy[passIdx]
	}

	norm := func(i int) float32 {
		if legalSum > math32.SmallestNonzeroFloat32 {
			return policy[i] / legalSum
		}
		return 1 / float32(len(legal)+1)
	}

	for _, i := range legal {
		t.expandChild(leaf, game.Single(i), norm(i))
	}
	if passLegal {
		t.expandChild(leaf, Pass, norm(passIdx))
	}

	t.backup(leaf, blackValue)
}

// sharpenPolicy raises every entry to the 1/PolicySoftmaxTemp power - the
// CLI flag's documented purpose (the original engine's comment: "encourage
// diversity in early play"). A temperature below 1.0 sharpens the policy
// (exponent above 1) and one above 1.0 flattens it. A temperature of 0 or 1 is treated
// as a no-op; the result is not renormalized here since IncorporateResults
// already normalizes by legalSum over whatever values it's given.
func (t *Tree) sharpenPolicy(policy []float32) []float32 {
	temp := t.Config.PolicySoftmaxTemp
	if temp == 0 || temp == 1 {
		return policy
	}
	out := make([]float32, len(policy))
	invTemp := 1 / temp
	for i, p := range policy {
		out[i] = math32.Pow(p, invTemp)
	}
	return out
}

func (t *Tree) expandChild(parent naughty, move game.Single, prior float32) naughty {
	p := t.node(parent)
	if existing := p.findChild(move); existing != nilNode {
		return existing
	}
	childState := p.position.Apply(game.PlayerMove{Player: p.ToPlay(), Single: move})
	sym := symmetry.Canonical(childState.Board(), boardSize(childState))
	child := t.alloc(parent, move, prior, childState, sym)
	t.children[parent] = append(t.children[parent], child)
	return child
}

// backup adds blackValue to every node from leaf up to and including the
// root, unmodified - the same scalar the whole way, exactly like the
// teacher's Node.Update propagation. Perspective flips happen only at read
// time (Q/QFromOwnPerspective), never during backup.
func (t *Tree) backup(leaf naughty, blackValue float32) {
	for cur := leaf; cur != nilNode; cur = t.node(cur).parent {
		t.node(cur).backup(blackValue)
	}
}

// IncorporateEndGameResult backs up a terminal outcome without expanding:
// value is again leaf-to-move perspective, [-1,1].
func (t *Tree) IncorporateEndGameResult(leaf naughty, value float32) {
	n := t.node(leaf)
	t.backup(leaf, qFromPerspective(value, n.ToPlay()))
}

// AddVirtualLoss marks one pending inference on leaf, climbing to the root
// so that selection elsewhere in the same select_leaves round is discouraged
// from re-descending into the same subtree.
func (t *Tree) AddVirtualLoss(leaf naughty) {
	for cur := leaf; cur != nilNode; cur = t.node(cur).parent {
		t.node(cur).addVirtualLoss()
	}
}

// RevertVirtualLoss undoes exactly one AddVirtualLoss along the same path.
func (t *Tree) RevertVirtualLoss(leaf naughty) {
	for cur := leaf; cur != nilNode; cur = t.node(cur).parent {
		t.node(cur).revertVirtualLoss()
	}
}

// RootChildrenCount is the number of the root's expanded children, the
// length InjectNoise's caller should size its Dirichlet draw to.
func (t *Tree) RootChildrenCount() int { return len(t.children[t.root]) }

// InjectNoise blends a Dirichlet(alpha) sample into the root's children's
// priors with weight mix: prior = (1-mix)*prior + mix*noise. There is no
// separate renormalization; when the priors and the sample each sum to 1,
// so does the blend. It is a no-op if the root has not been expanded yet
// (nothing to blend into).
func (t *Tree) InjectNoise(dirichlet []float32, mix float32) {
	kids := t.children[t.root]
	if len(kids) == 0 {
		return
	}
	for i, kid := range kids {
		child := t.node(kid)
		noise := dirichlet[i%len(dirichlet)]
		child.prior = (1-mix)*child.prior + mix*noise
	}
}

// PickMove chooses a move from the root's children: soft-pick (proportional
// to visit count) for the early game, argmax-by-visits afterward - the
// standard AlphaZero self-play exploration/exploitation split, delegated
// here exactly as the collaborator contract names it.
func (t *Tree) PickMove(rng *rand.Rand, softPickCutoff int) game.Single {
	kids := t.children[t.root]
	if len(kids) == 0 {
		return Pass
	}

	if t.RootNode().position.MoveNumber() < softPickCutoff {
		var total float32
		for _, kid := range kids {
			total += float32(t.node(kid).N())
		}
		if total > 0 {
			r := rng.Float32() * total
			var accum float32
			for _, kid := range kids {
				accum += float32(t.node(kid).N())
				if r < accum {
					return t.node(kid).move
				}
			}
		}
	}

	best := kids[0]
	for _, kid := range kids[1:] {
		if t.node(kid).N() > t.node(best).N() {
			best = kid
		}
	}
	return t.node(best).move
}

// CalculateSearchPi returns the visit-count policy target over the full
// action space (board moves plus pass), normalized to sum to 1.
func (t *Tree) CalculateSearchPi() []float32 {
	root := t.RootNode()
	pi := make([]float32, root.position.ActionSpace()+1)
	var total float32
	for _, kid := range t.children[t.root] {
		child := t.node(kid)
		n := float32(child.N())
		if child.move.IsPass() {
			pi[len(pi)-1] = n
		} else {
			pi[child.move] = n
		}
		total += n
	}
	if total > 0 {
		for i := range pi {
			pi[i] /= total
		}
	}
	return pi
}

// ReshapeFinalVisits redistributes visit counts among the root's children so
// that, after pruning moves that were never going to be played, the runner-up
// visible to training is consistent with the move actually picked (the
// "target pruning" behavior named in the CLI flags).
func (t *Tree) ReshapeFinalVisits(picked game.Single) {
	kids := t.children[t.root]
	if len(kids) < 2 {
		return
	}
	sort.Slice(kids, func(i, j int) bool {
		return t.node(kids[i]).N() > t.node(kids[j]).N()
	})
	t.children[t.root] = kids

	var pickedNode, runnerUp *Node
	for _, kid := range kids {
		n := t.node(kid)
		if n.move == picked {
			pickedNode = n
		} else if runnerUp == nil {
			runnerUp = n
		}
	}
	if pickedNode == nil || runnerUp == nil {
		return
	}
	if runnerUp.N() >= pickedNode.N() {
		runnerUp.visits = pickedNode.N() - 1
	}
}

// PlayMove advances the tree to the child reached by move, discarding every
// sibling subtree (tree reuse: the old root's other children are pruned,
// exactly what ClearSubtrees does explicitly for the oscillation case).
func (t *Tree) PlayMove(move game.Single) {
	t.log("PlayMove %v", move)
	oldRoot := t.root
	root := t.node(oldRoot)
	child := root.findChild(move)
	if child == nilNode {
		// The move was never expanded (e.g. an unvisited pass forced by the
		// game-over check) - create it directly off the current position.
		newState := root.position.Apply(game.PlayerMove{Player: root.ToPlay(), Single: move})
		sym := symmetry.Canonical(newState.Board(), boardSize(newState))
		child = t.alloc(oldRoot, move, 1, newState, sym)
	}
	t.pruneExcept(oldRoot, child)
	t.node(child).parent = nilNode
	t.root = child
}

// ClearSubtrees discards everything below the root except the root itself,
// without changing what the root is - used when playout-cap oscillation is
// enabled, since statistics collected under noise must not leak into a
// non-noise read and vice versa.
func (t *Tree) ClearSubtrees() {
	t.pruneChildrenOf(t.root)
}

func (t *Tree) pruneExcept(parent, keep naughty) {
	for _, kid := range t.children[parent] {
		if kid == keep {
			continue
		}
		t.pruneChildrenOf(kid)
		t.node(kid).Invalidate()
		t.free(kid)
	}
}

func (t *Tree) pruneChildrenOf(n naughty) {
	for _, kid := range t.children[n] {
		t.pruneChildrenOf(kid)
		t.node(kid).Invalidate()
		t.free(kid)
	}
	t.children[n] = t.children[n][:0]
}

// CalculateScore returns the final Chinese-rules area score at the root
// position, Black minus White minus komi (positive favors Black), matching
// the teacher's combinedScore convention.
func (t *Tree) CalculateScore(komi float32) float32 {
	s := t.RootNode().position
	return s.Score(Black) - s.Score(White) - komi
}

// Describe renders the root's children for verbose logging, most-visited
// first.
func (t *Tree) Describe() string {
	root := t.RootNode()
	kids := append([]naughty(nil), t.children[t.root]...)
	sort.Sort(byVisitsThenScore{of: root.ToPlay(), kids: kids, tree: t})

	out := ""
	for _, kid := range kids {
		out += fmt.Sprintf("%v ", t.node(kid))
	}
	return out
}

// Size is the number of active nodes reachable from the root, for verbose
// per-move logging's tree-size accounting.
func (t *Tree) Size() int {
	return t.RootNode().countChildren() + 1
}
