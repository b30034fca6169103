// Package eventio reads and writes the JSON-lines event streams consumed and
// produced by the pfcluster command. Files ending in .gz or .zst are
// compressed transparently.
package eventio
