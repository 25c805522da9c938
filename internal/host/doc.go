// Package host implements the root orchestration instance.
//
// The Instance is the unnamed root of the item tree and the loader.Root
// handed to every loader. A pass runs in this order:
//
//  1. validate the persistence root; a failure is terminal and no loader runs
//  2. invoke registered loaders in ascending rank, merging their items into a
//     staging namespace with the configured collision policy
//  3. hydrate staged items under the configured hydration policy
//  4. swap the staging namespace in atomically
//
// A loader error or a rejected collision aborts the pass before anything is
// committed, so the live namespace is never partially updated. Items that are
// no longer on disk disappear with the swap.
package host
