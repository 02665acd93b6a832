// Package catalog loads shows from the Internet Archive's metadata API and from
// JSON catalog files.
//
// Each archive item is one recording of a show. [Client.Album] turns an item
// into an [models.Album] with one song per track; [Merge] folds several
// recordings of the same show into tracks with multiple versions.
package catalog
