// Package server hosts the Fiber HTTP service: the request middleware chain,
// the admin guard for /-/ endpoints and the read-through render routes for
// parts and menus. Admin and diagnostic endpoints live in server/routes and
// are attached by the caller, so keep exports narrow and accept explicit
// dependencies.
package server
