// Package command provides the shardmap-cli command tree on urfave/cli/v2.
//
//	bench                                run the concurrent insert benchmark in-process
//	key insert|get|delete|replace        operate on one key over the HTTP API
//	stats                                show bucket occupancy of a running server
//	health                               check a running server
//	config show|save|hash-password       inspect or persist CLI defaults
//	local status|reload                  manage a server over its Unix socket
//	shell                                run commands interactively
//	version                              print build information
package command
