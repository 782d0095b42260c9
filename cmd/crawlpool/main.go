// Package main provides the entry point for the crawlpool CLI.
//
// crawlpool crawls web sites from one or more seed URLs with a bounded pool
// of concurrent workers, visits every reachable URL at most once within the
// depth limit, and prints a summary of fetched pages and failures.
//
// Usage:
//
//	crawlpool crawl <seed-url>
//	crawlpool crawl --list seeds.txt
//	crawlpool history
//
// See --help for all available options.
package main

func main() {
	Execute()
}
