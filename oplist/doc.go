// Package oplist records draw ops in paint order and merges compatible
// neighbours before they reach the GPU.
//
// Recording offers each new op to the ops recorded just before it. A
// candidate that accepts the op absorbs it; a candidate that refuses and
// overlaps the new op ends the search, because moving the op past it would
// change what ends up on top.
//
//	list := oplist.New(oplist.DefaultConfig())
//	for _, d := range draws {
//	    list.Record(quadbatch.NewOp(d))
//	}
//	list.Finalize()
//	cmds := list.Flush(target)
//
// An OpList is not safe for concurrent use.
package oplist
