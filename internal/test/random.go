package test

import "math/rand"

// keyAlphabet holds characters that are safe in HTTP header values.
const keyAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-_"

// RandomKey returns an idempotency key of minLen to maxLen characters.
func RandomKey(minLen, maxLen int) string {
	if minLen <= 0 {
		minLen = 1
	}
	if maxLen < minLen {
		maxLen = minLen
	}
	length := minLen + rand.Intn(maxLen-minLen+1)
	buf := make([]byte, length)
	for i := range buf {
		buf[i] = keyAlphabet[rand.Intn(len(keyAlphabet))]
	}
	return string(buf)
}
