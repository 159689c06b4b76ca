// Package pcm reads RIFF/WAVE files into normalized mono float32 samples.
//
// Integer samples are scaled into [-1, 1] by a divisor fixed per bit depth
// (16, 24 and 32 bits); float samples pass through unchanged. Decoding is all
// or nothing: a read failure never yields a partial Buffer.
package pcm
