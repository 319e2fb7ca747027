// Package chatinput implements the state behind a chat input: a text buffer,
// the files attached to it and the rules that decide when the pair may be
// submitted.
//
// An Input runs an event loop (Run) that owns all of its state. Text edits,
// file selections, removals and submissions are posted to the loop and
// processed one at a time, interleaved with upload completions coming from
// the uploads package. Submitting hands a Value to a Sink and resets the
// input.
package chatinput
