// Package soldash and its sub-packages implement the backend of a Solana dashboard: periodic data panels fed by public
// APIs and the Solana RPC, a cache layer and the services that serve and consume the panels.
/*
soldash provides you with two services:

1) a dashboard service (package dashboard) that refreshes the panels and implements a RESTful API for front-ends to
 read the panel views and resolve explorer searches.

2) a watcher service (package watcher) that consumes the panel events published by the dashboard.

Architecture

Every panel (package panel) owns one data source. It fetches the source on a timer, transforms the raw response into
the panel data, caches it for a freshness window and exposes it in one of three states: loading, error or ready. Each
fetch cycle carries a sequence number and only the result of the latest cycle is applied, so a slow response never
overwrites a newer one. The sources (package sources) are the only source specific code: endpoint, transform and view.

The HTTP and RPC plumbing (packages lib/fetch and lib/block) are shared by the sources. Errors are reported to the
panel as network, response or transform errors.

The cache is a layered implementation (package lib/store) providing a product agnostic interface with memory, Redis,
MongoDB and PostgreSQL backends selected by the config file. The cache is purged when the dashboard stops.

The dashboard and watcher services communicate via a message broker. The dashboard publishes an event for every panel
transition which the watcher, or any other consumer, reads from its own queue per source. The message broker is
implemented as a product agnostic layer (package lib/msg) and is configured via a JSON or YAML config file at service
startup.

The dashboard can also be monitored via a Prometheus API by setting the flag "-m" at startup.

Dashboard

The dashboard service can be started running cmd/dashboard/main.go. Its API provides the views of every panel, of some
of them (/panels?src=<source>) or of one (/panels/<source>), and resolves a transaction signature or account address
to its block explorer page (/search?q=<query>).

Watcher

The watcher service can be started running cmd/watcher/main.go. It logs the events of the enabled sources, or of those
given with the flag "-s".

*/
package soldash
