package csm

import (
	set "gopkg.in/fatih/set.v0"

	"github.com/btcrollup/csmnode/xlog"
)

var treeLogger = xlog.NewModuleLogger(xlog.BlockTree)

// blockEntry is one arena node: its parent and its set of attached
// children. The finalized tip's Parent is ZeroBlockID. The root passed to
// NewTree may itself be ZeroBlockID (cmd/csmnode does this), in which case
// the zero id is the finalized tip's key until the first finalization.
// Grounded on the original's BlockEntry /
// UnfinalizedBlockTracker arena design in unfinalized_tracker.rs.
type blockEntry struct {
	Parent   BlockID
	Children map[BlockID]struct{}
}

func newBlockEntry(parent BlockID) *blockEntry {
	return &blockEntry{Parent: parent, Children: make(map[BlockID]struct{})}
}

// Tree is the in-memory DAG of L2 blocks above a finalized root: attach,
// finalize, eviction. Owned exclusively by the CSM worker; every other
// task sees it only through messages and the watched state snapshot (§5).
type Tree struct {
	arena       map[BlockID]*blockEntry
	finalized   BlockID
	tips        *set.Set
}

// NewTree initializes a tree with root as the sole entry and sole tip, the
// analogue of UnfinalizedBlockTracker::new_empty.
func NewTree(root BlockID) *Tree {
	t := &Tree{
		arena:     make(map[BlockID]*blockEntry),
		finalized: root,
		tips:      set.New(),
	}
	t.arena[root] = newBlockEntry(ZeroBlockID)
	t.tips.Add(root)
	return t
}

// FinalizedTip returns the current finalized tip block id.
func (t *Tree) FinalizedTip() BlockID { return t.finalized }

// Tips returns the current set of unfinalized tips (leaves), plus the
// finalized tip iff no pending blocks exist.
func (t *Tree) Tips() []BlockID {
	out := make([]BlockID, 0, t.tips.Size())
	for _, v := range t.tips.List() {
		out = append(out, v.(BlockID))
	}
	return out
}

// Attach inserts blkid as a child of header.ParentID. Fails BlockAlreadyAttached
// if blkid is known, AttachMissingParent if the parent is not in the tree.
// Returns true iff the parent was NOT previously a tip — i.e. this attach
// created a new fork off a non-tip block.
func (t *Tree) Attach(blkid BlockID, header L2BlockHeader) (createdNewFork bool, err error) {
	if _, ok := t.arena[blkid]; ok {
		return false, newErr(BlockAlreadyAttached, blkid)
	}
	parentEntry, ok := t.arena[header.ParentID]
	if !ok {
		return false, newErr(AttachMissingParent, blkid, header.ParentID)
	}

	wasTip := t.tips.Has(header.ParentID)

	parentEntry.Children[blkid] = struct{}{}
	t.arena[blkid] = newBlockEntry(header.ParentID)

	t.tips.Remove(header.ParentID)
	t.tips.Add(blkid)

	treeLogger.Debug("attached block", "block", blkid, "parent", header.ParentID)
	return !wasTip, nil
}

// FinalizeReport is the result of finalizing a new tip: the previous
// finalized tip, the path that became finalized (oldest-first), and the
// blocks evicted as rejected forks.
type FinalizeReport struct {
	PrevTip   BlockID
	Finalized []BlockID
	Rejected  []BlockID
}

// FinalizeTip moves the finalized tip forward to blkid. Fails MissingBlock
// if blkid is not reachable from the current finalized tip via parent
// pointers. Grounded on UnfinalizedBlockTracker::update_finalized_tip: walk
// the parent chain to build the path, evict every off-path child (and its
// transitive descendants) of every block on that path, then collapse the
// tree so the new tip is the sole root entry.
func (t *Tree) FinalizeTip(blkid BlockID) (FinalizeReport, error) {
	path, err := t.pathToFinalized(blkid)
	if err != nil {
		return FinalizeReport{}, err
	}

	prevTip := t.finalized
	onPath := make(map[BlockID]struct{}, len(path)+1)
	onPath[prevTip] = struct{}{}
	for _, b := range path {
		onPath[b] = struct{}{}
	}

	var rejected []BlockID
	worklist := make([]BlockID, 0)

	for _, b := range append([]BlockID{prevTip}, path...) {
		entry := t.arena[b]
		for child := range entry.Children {
			if _, ok := onPath[child]; !ok {
				worklist = append(worklist, child)
			}
		}
	}

	for len(worklist) > 0 {
		n := len(worklist) - 1
		cur := worklist[n]
		worklist = worklist[:n]
		rejected = append(rejected, cur)
		entry, ok := t.arena[cur]
		if !ok {
			continue
		}
		for child := range entry.Children {
			worklist = append(worklist, child)
		}
	}

	for _, b := range rejected {
		delete(t.arena, b)
		t.tips.Remove(b)
	}
	for _, b := range path[:len(path)-1] {
		delete(t.arena, b)
	}
	delete(t.arena, prevTip)

	newTip := path[len(path)-1]
	t.arena[newTip] = newBlockEntry(ZeroBlockID)
	t.finalized = newTip

	t.tips = set.New()
	t.tips.Add(newTip)

	treeLogger.Info("finalized tip", "prev", prevTip, "new", newTip,
		"finalized_count", len(path), "rejected_count", len(rejected))

	return FinalizeReport{PrevTip: prevTip, Finalized: path, Rejected: rejected}, nil
}

// pathToFinalized walks blkid's parent chain back to (exclusive) the
// current finalized tip, returning the path oldest-first.
func (t *Tree) pathToFinalized(blkid BlockID) ([]BlockID, error) {
	var reversed []BlockID
	cur := blkid
	for {
		entry, ok := t.arena[cur]
		if !ok {
			return nil, newErr(MissingBlock, blkid)
		}
		if cur == t.finalized {
			break
		}
		reversed = append(reversed, cur)
		cur = entry.Parent
		if cur.IsZero() && cur != t.finalized {
			return nil, newErr(MissingBlock, blkid)
		}
	}
	if len(reversed) == 0 {
		return nil, newErr(MissingBlock, blkid)
	}

	path := make([]BlockID, len(reversed))
	for i, b := range reversed {
		path[len(reversed)-1-i] = b
	}
	return path, nil
}
