// Package handler implements the HTTP key API over a string-keyed map.
//
// Routes:
//
//	GET    /health                  liveness
//	GET    /ready                   readiness
//	GET    /v1/stats                bucket occupancy
//	PUT    /v1/keys/{key}           insert (201, 409 if present, 507 if full)
//	GET    /v1/keys/{key}           read (404 if absent)
//	DELETE /v1/keys/{key}           delete (404 if absent)
//	POST   /v1/keys/{key}/replace   replace value of an existing key
//
// Every JSON reply uses the Response envelope.
package handler
