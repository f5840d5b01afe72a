// Package compact turns variable-count entity trees into fixed-capacity ones.
//
// FilterK selects, in index order, at most k entities whose mask entry is
// true and writes them into a tree whose leading entity dimension is k. The
// destination of every entity comes from an exclusive prefix sum of the
// mask. Entities that are unselected or beyond capacity are routed to the
// overflow segment k, which segment-sum discards. No step branches on the
// data.
//
// The returned fill mask is true for every slot that received no entity.
// Fill replaces exactly those slots with entities from a default tree, so
// Fill(FilterK(...)) yields a fully defined fixed-size tree.
//
// More than k selected entities is capacity truncation, not an error: the
// excess entities are dropped and Result.Dropped counts them.
package compact
