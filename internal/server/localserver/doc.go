// Package localserver serves the HTTP API on a Unix domain socket.
//
// The socket is created with mode 0600 so file system permissions guard it,
// and shardmap-server mounts the API there without the password. Next to
// the regular API it exposes two management routes:
//
//	GET  /local/status   process status and map occupancy
//	POST /local/reload   re-read the config file now
package localserver
