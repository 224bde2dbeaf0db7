// Package gate enforces endpoint authorization. Every API request passes
// through it in a fixed order: whitelist, authentication, superuser,
// permission-code match.
//
// The whitelist exempts endpoints (login, captcha) from authentication
// before credentials are even considered; entries with enable_datasource
// off additionally exempt the request from data-scope filtering. Denials
// distinguish a missing identity (401) from an authenticated caller
// without the permission (403).
package gate
