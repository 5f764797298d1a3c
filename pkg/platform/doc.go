// Package platform is the HTTP client for the remote federated-computation
// platform API. The console owns no entity data of its own: every
// collaboration, organization, node, user, role, task and algorithm store
// rendered by the console is fetched from (and mutated through) this client.
// It also implements permission.Source, feeding the per-session permission
// evaluator its rule catalog and principal detail.
package platform
