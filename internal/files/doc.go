// Package files reads and writes license files on disk.
//
// Writes go through a temporary file in the destination directory and a
// rename, so an interrupted run never leaves a truncated license behind.
// Reads are capped at Manager.MaxSize; license files are a few hundred bytes.
package files
