// Package report renders crawl summaries.
//
// Three writers are provided:
//   - SimpleWriter: plain text for the terminal
//   - JSONWriter / FullJSONWriter: JSON for other tools
//   - MarkdownWriter: GitHub-flavored Markdown with a mermaid pie chart
//
// All writers implement Writer and can be combined with MultiWriter.
package report
