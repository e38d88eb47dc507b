// Package tree implements the scene tree (§4.7): a CrdtId-keyed map of
// Groups rooted at (0,1), and the one-pass Builder that assembles it
// from a package block stream.
package tree
