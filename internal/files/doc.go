// Package files locates local spreadsheet exports.
//
// When the pipeline source is a directory rather than a file or sheet URL,
// the newest .xlsx or .csv export in it is used.
package files
