package mcts

import (
	"fmt"
	"sort"

	"github.com/chewxy/math32"
	"github.com/gorgonia/selfplay/game"
	"github.com/gorgonia/selfplay/game/symmetry"
)

// Node is one position in the search tree. A Tree never hands out *Node
// across goroutines - §5 of the engine's concurrency model guarantees a
// single game's tree is only ever touched by the one thread stepping it
// through select/infer/process/play - so, unlike the teacher's MCTS (which
// ran its own internal worker pool per search), fields here are plain, not
// atomic bit-cast float32s.
type Node struct {
	id     naughty
	parent naughty
	move   game.Single

	position           game.State
	canonicalSymmetry  symmetry.Symmetry

	status Status

	visits        uint32  // N(s, a)
	virtualLosses uint32  // number of in-flight inferences below this node
	prior         float32 // P(s, a): the policy probability of the move leading here
	nnValue       float32 // raw NN value of this position, Black's perspective, set at expansion
	valueSum      float32 // accumulated backed-up value, Black's perspective

	tree *Tree
}

func (n *Node) Format(s fmt.State, c rune) {
	fmt.Fprintf(s, "{Node %d move=%v N=%d Q=%.3f P=%.3f status=%v}", n.id, n.move, n.N(), n.Q(), n.prior, n.status)
}

// N is the visit count.
func (n *Node) N() uint32 { return n.visits }

// Q is the mean backed-up value of this node from Black's perspective,
// including any pending virtual losses (which bias it toward "loss" so that
// concurrent leaf selection within the same select_leaves round spreads out
// instead of piling onto the node everyone is already waiting on).
func (n *Node) Q() float32 {
	n0 := n.visits + n.virtualLosses
	if n0 == 0 {
		return 0
	}
	loss := float32(1)
	if n.ToPlayAtParent() == Black {
		loss = -1
	}
	return (n.valueSum + float32(n.virtualLosses)*loss) / float32(n0)
}

// QFromOwnPerspective returns Q oriented to this node's own mover, ToPlay() -
// as opposed to Q's Black-absolute convention. The resignation check needs
// this at the root: the player deciding whether to resign is the one to
// move at the root, not some parent the root (having none) doesn't have.
func (n *Node) QFromOwnPerspective() float32 {
	return qFromPerspective(n.Q(), n.ToPlay())
}

// ToPlayAtParent is the player who made the move leading into this node -
// equivalently, the player to move at the parent. The root has no parent;
// for it this is just a sign convention for attributing the root's own
// pending virtual losses, and is never compared against another node.
func (n *Node) ToPlayAtParent() game.Player { return opponent(n.ToPlay()) }

// ToPlay is the player to move at this node's position.
func (n *Node) ToPlay() game.Player { return n.position.ToMove() }

// Move is the move that was played to reach this node from its parent.
func (n *Node) Move() game.Single { return n.move }

// Parent is the index of this node's parent, or nilNode for the root.
func (n *Node) Parent() naughty { return n.parent }

// Position is the board position at this node.
func (n *Node) Position() game.State { return n.position }

// CanonicalSymmetry is the symmetry that was used to canonicalize this
// node's position when it was looked up in (or stored to) the inference
// cache.
func (n *Node) CanonicalSymmetry() symmetry.Symmetry { return n.canonicalSymmetry }

// GameOver reports whether the position at this node ends the game (either
// by two consecutive passes or because a resignation move led here).
func (n *Node) GameOver() bool {
	ended, _ := n.position.Ended()
	return ended
}

// AtMoveLimit reports whether this node's move number has reached the
// configured cap. The cap itself lives with the game (out of scope for the
// tree itself, per the Position collaborator), so this defers to it.
func (n *Node) AtMoveLimit() bool {
	return n.tree.atMoveLimit(n.position)
}

// IsNotVisited reports whether this node has never been backed up, the
// condition selectChild uses to fall back to the parent's FPU estimate
// instead of this child's own (nonexistent) Q.
func (n *Node) IsNotVisited() bool { return n.visits == 0 }

func (n *Node) HasChildren() bool { return len(n.tree.children[n.id]) > 0 }

func (n *Node) IsActive() bool { return n.status == Active }

func (n *Node) Activate()   { n.status = Active }
func (n *Node) Prune()      { n.status = Pruned }
func (n *Node) Invalidate() { n.status = Invalid }

// addVirtualLoss adds one pending inference's worth of virtual loss at this
// single node (Tree.AddVirtualLoss climbs the whole path to the root).
func (n *Node) addVirtualLoss() { n.virtualLosses++ }

func (n *Node) revertVirtualLoss() {
	if n.virtualLosses > 0 {
		n.virtualLosses--
	}
}

// backup adds blackValue (already oriented to Black's perspective) to this
// node's running total and increments its visit count. Tree.backup calls
// this on every node from a leaf up to the root with the same value, exactly
// as the teacher's Node.Update propagates one score unmodified up the path.
func (n *Node) backup(blackValue float32) {
	n.visits++
	n.valueSum += blackValue
}

// selectChild runs the PUCT rule over this node's children and returns the
// best one. allowPass excludes the Pass child from consideration (it is
// still tracked for policy purposes) so that select_leaf(allow_pass=false)
// never descends into it.
func (n *Node) selectChild(allowPass bool) naughty {
	tree := n.tree
	children := tree.children[n.id]

	var parentVisits uint32
	for _, kid := range children {
		child := tree.node(kid)
		parentVisits += child.N() + child.virtualLosses
	}

	player := n.ToPlay()
	// First play urgency: parent value - penalty * colour (Black-perspective),
	// clamped to [-1, 1], then oriented to the mover.
	fpuBlack := n.nnValue - tree.Config.ValueInitPenalty*sign(player)
	if fpuBlack < -1 {
		fpuBlack = -1
	} else if fpuBlack > 1 {
		fpuBlack = 1
	}
	fpu := qFromPerspective(fpuBlack, player)
	numerator := math32.Sqrt(float32(parentVisits) + 1)

	best := nilNode
	var bestValue float32 = math32.Inf(-1)
	for _, kid := range children {
		child := tree.node(kid)
		if !child.IsActive() {
			continue
		}
		if !allowPass && child.move.IsPass() {
			continue
		}

		qsa := fpu
		if !child.IsNotVisited() || child.virtualLosses > 0 {
			qsa = qFromPerspective(child.Q(), player)
		}
		denom := 1 + float32(child.N()) + float32(child.virtualLosses)
		puct := tree.Config.PUCT * child.prior * (numerator / denom)
		usa := qsa + puct
		if usa > bestValue {
			bestValue = usa
			best = kid
		}
	}
	return best
}

// findChild finds the (at most one) child reached by move.
func (n *Node) findChild(move game.Single) naughty {
	for _, kid := range n.tree.children[n.id] {
		if n.tree.node(kid).move == move {
			return kid
		}
	}
	return nilNode
}

// countChildren counts active descendants, used for tree-size accounting in
// logging.
func (n *Node) countChildren() (retVal int) {
	for _, kid := range n.tree.children[n.id] {
		child := n.tree.node(kid)
		if child.IsActive() {
			retVal += child.countChildren()
		}
		retVal++
	}
	return retVal
}

func (n *Node) reset() {
	n.move = 0
	n.parent = nilNode
	n.position = nil
	n.canonicalSymmetry = symmetry.Identity
	n.status = Invalid
	n.visits = 0
	n.virtualLosses = 0
	n.prior = 0
	n.nnValue = 0
	n.valueSum = 0
}

// qFromPerspective reorients a Black-perspective value to player's
// perspective: two-player zero-sum values just negate for White.
func qFromPerspective(blackValue float32, player game.Player) float32 {
	if game.Colour(player) == game.White {
		return -blackValue
	}
	return blackValue
}

func sign(player game.Player) float32 {
	if game.Colour(player) == game.White {
		return -1
	}
	return 1
}

// byVisitsThenScore sorts a node's children with the same "most promising
// first" heuristic the teacher's fancySort used: most visits wins; ties
// between unvisited children are broken by prior, ties between visited
// children by Q from the mover's perspective.
type byVisitsThenScore struct {
	of   game.Player
	kids []naughty
	tree *Tree
}

func (l byVisitsThenScore) Len() int      { return len(l.kids) }
func (l byVisitsThenScore) Swap(i, j int) { l.kids[i], l.kids[j] = l.kids[j], l.kids[i] }
func (l byVisitsThenScore) Less(i, j int) bool {
	li := l.tree.node(l.kids[i])
	lj := l.tree.node(l.kids[j])
	if li.N() != lj.N() {
		return li.N() > lj.N()
	}
	if li.N() == 0 {
		return li.prior > lj.prior
	}
	return qFromPerspective(li.Q(), l.of) > qFromPerspective(lj.Q(), l.of)
}

var _ sort.Interface = byVisitsThenScore{}
