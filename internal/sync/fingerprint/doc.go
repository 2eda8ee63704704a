// Package fingerprint computes, without network access, the ETag S3 assigns to
// an object uploaded with a given part size.
//
// A file that fits in one part gets the hex MD5 of its content. A file split
// into N > 1 parts gets the hex MD5 of the concatenated binary MD5s of its
// parts, suffixed with "-N". Files are streamed through pooled buffers so
// memory use does not grow with file or part size.
package fingerprint
