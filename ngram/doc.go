// Package ngram is a pure-Go word bigram model implementing [beam.Model].
//
// It is small enough to train from a text file in milliseconds and
// deterministic, which makes it the reference backend for exercising beam
// searches without a neural model.
package ngram
