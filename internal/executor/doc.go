// Package executor implements a breadth-first, batch-friendly GraphQL executor
// with explicit runtime hooks for synchronous resolution, depth-wise batching of
// resolver-backed work, abstract-type resolution, and leaf serialization.
//
// # Execution Model
//
// Fields are split by schema.Field.Async:
//
//   - Synchronous fields are projected from their parent value through
//     Runtime.ResolveSync and completed on the spot. Descending through them
//     never adds batch depth.
//   - Async fields have a registered resolver. They are queued with their
//     response path and resolved together through one Runtime.BatchResolveAsync
//     call per depth.
//
// The executor repeats the cycle until nothing is pending:
//
//	A. Sync expansion: walk the selection set, completing sync fields and
//	   queueing async ones. Async slots hold null until their batch lands.
//	B. Batch: hand every queued task of this depth to the runtime at once.
//	   Results line up with tasks; a missing result becomes a field error.
//	C. Completion: complete each result into the response tree. Objects found
//	   here queue their own async children for the next batch.
//
// For a graph with async depth d, BatchResolveAsync runs exactly d times.
//
// Root fields of a mutation are executed one at a time: each root field and
// everything below it is drained before the next one starts.
//
// # Value Completion
//
//   - Non-Null: complete the inner type; null records an error and propagates.
//   - List: complete each element with an index-aware path. A null element of
//     a Non-Null item type nulls the whole list.
//   - Leaf: Runtime.SerializeLeafValue.
//   - Interface/Union: Runtime.ResolveType, checked against the possible types.
//   - Object: collect subfields. Fragment type conditions match the object
//     type itself or any interface or union it belongs to.
//
// Response objects are OrderedMaps so encoded responses keep query order.
//
// # Errors and Partial Success
//
// Errors carry the message, the source location of the field and the
// response path. A failed nullable field becomes null and its siblings carry
// on. A Non-Null violation under a sync descent nulls the nearest nullable
// object; one that surfaces from a batch nulls the enclosing root field and
// drops tasks still queued beneath it.
package executor
