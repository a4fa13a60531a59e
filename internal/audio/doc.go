// Package audio holds decoded speech clips and the WAV plumbing around them.
//
// Clips are fully decoded into memory with github.com/gopxl/beep so their
// real length can be measured in milliseconds and so they can be resampled,
// concatenated with silence, and written back out as 16-bit PCM WAV.
package audio
