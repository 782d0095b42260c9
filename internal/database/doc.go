// Package database stores crawl history in SQLite.
//
// Every finished crawl session is saved with its fetched pages and failed
// URLs so that the history command can list past sessions and print any of
// them again. The store is write-only from the crawler's point of view:
// nothing read from it is used to skip URLs in a later session.
//
// The database is a single file (crawlpool.db) opened through the CGO-free
// modernc.org/sqlite driver in WAL mode with one connection.
package database
