// Package repl runs shardmap-cli commands interactively.
//
// Each input line is split into words, honouring single and double quotes,
// and handed to an Executor. The loop keeps a bounded history that can be
// persisted between sessions and offers prefix completion over the command
// tree through the "complete" built-in.
package repl
