// Package report renders sector summaries as a bar chart, a PDF document
// and Markdown.
//
// Rendering is the last pipeline stage. Its failures are RENDER AppErrors and
// never affect the stored table.
package report
