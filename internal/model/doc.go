// Package model is the facade the embedding editor drives.
//
// A Model owns one component store and one processor, wired together by
// the drain-and-notify routine: after every completed task the store's
// change buffer is drained, registered observers receive the changed key
// set in registration order, and the follow-up tasks they return are
// scheduled under the completing task's cascade token. Observer cascades
// therefore never recurse; each ProcessTask call executes exactly one
// task, and the cascade unwinds across subsequent calls.
//
// Cascades are identified by correlation tokens. An external Schedule
// draws a fresh token (UUIDv7 in production); everything an observer
// schedules inherits the token of the completion that triggered it, so a
// whole user interaction shares one token in logs and traces. An optional
// step quota bounds how many completions one cascade may execute, which
// turns a runaway observer loop into a reported error instead of a hung
// session.
package model
