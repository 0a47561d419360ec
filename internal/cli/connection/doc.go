// Package connection provides the shardmap-cli client for the HTTP key API.
package connection
