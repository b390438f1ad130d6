// Package executor runs GraphQL requests against a model.Model.
//
// # Overview
//
// An Engine takes a Request (query text, operation name, variables) through
// the following stages:
//
//  1. Map or retrieve. The query text is looked up in the request cache. On a
//     miss it is parsed (SYNTAX_ERROR on failure) and mapped against the model
//     (BAD_REQUEST or INPUT_ERROR), and the MappedRequest is cached. A mapped
//     request is immutable and shared by all executions of the same text.
//  2. Select the operation by name; an empty name requires a single operation.
//  3. Coerce variables against the operation's variable definitions. Errors
//     here stop the request before any resolver runs; data is absent.
//  4. Execute the root selection and assemble the response.
//
// Subscriptions are mapped but rejected with BAD_REQUEST.
//
// # Execution Model
//
// Every object of the response is an OutputObjectScope: the entity it was
// resolved from, its concrete object type and one slot per response key, laid
// out in request order when the scope is created. Skipped selections get no
// slot; repeated keys share one slot and merge their sub-selections.
//
// Each top-level field is resolved with its whole subtree, level by level:
//
//	A. Dispatch
//	   - Evaluate arguments (static argument lists were evaluated at mapping).
//	   - Run PreviewField of the field handlers: model directives first, then
//	     request directives.
//	   - Call the resolver, or read the value from the parent entity. Batched
//	     fields are called once for all scopes of the level sharing the same
//	     selection, and hand their results back through SetBatchedResults.
//
//	B. Await and complete
//	   - Await Future results honoring cancellation.
//	   - Run PostProcessField, then convert the value: leaves through their
//	     ToOutput, lists per item, objects into child scopes after concrete
//	     type dispatch. Child slots form the next level.
//
// Top-level Query fields run concurrently when parallel queries are enabled;
// Mutation fields run one after another, each to completion.
//
// # Errors and Partial Success
//
// Resolver errors are local to their field: the slot becomes null and the
// error is recorded with its path and extensions.code (RESOLVER_ERROR, or
// OBJECT_NOT_FOUND, CANCELLED or the code chosen by a model.CodedError). A
// failing non-null slot prunes its scope and, while the slots above are
// non-null too, the enclosing scopes; pruned scopes are not resolved further.
//
// The assembler is authoritative for null propagation. A null reaching a
// non-null position nulls the nearest nullable ancestor, and data itself when
// no nullable ancestor exists. Such a null is reported as an error unless one
// was already recorded at or below its path.
//
// Quotas (output objects, depth) and cancellation abort the whole request:
// one error is recorded, no further fields are dispatched and data is null.
package executor
