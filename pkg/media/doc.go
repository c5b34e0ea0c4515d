// Package media holds the pure building blocks of story resolution:
// picking the best rendition, deriving a destination path and reading
// base URLs out of a broadcast manifest. Nothing here touches the network
// or the filesystem.
package media
