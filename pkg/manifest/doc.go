/*
Package manifest keeps a SQLite record of site builds.

Each build run gets a row in the builds table with its source and target
directories, its final status and the number of files it produced. Every file
written by the build is stored in build_outputs with the action that produced
it (render or copy), its size and its SHA-256, so a previous build can be
inspected after the target directory has been rebuilt.

The package only uses database/sql; the caller picks and registers the driver.
*/
package manifest
