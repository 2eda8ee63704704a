// Package pool provides buffer pooling for streaming reads.
//
// Hashing and upload paths read files in bounded chunks; the pools here let
// concurrent workers reuse those chunks instead of allocating per read.
package pool
