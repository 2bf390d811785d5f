package provider

import (
	"bytes"
	"fmt"
)

// pkcs7Pad appends PKCS#7 padding so the data length is a multiple of
// blockSize. Block-aligned input gains a full padding block.
func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	padText := bytes.Repeat([]byte{byte(padding)}, padding)
	return append(data, padText...)
}

// pkcs7Unpad removes and validates PKCS#7 padding. Invalid padding is the
// usual symptom of decrypting with the wrong key or a corrupted ciphertext.
func pkcs7Unpad(data []byte) ([]byte, error) {
	length := len(data)
	if length == 0 {
		return nil, fmt.Errorf("cannot unpad empty data")
	}

	padding := int(data[length-1])
	if padding == 0 || padding > length || padding > BlockSize {
		return nil, fmt.Errorf("invalid padding size: %d", padding)
	}

	for i := length - padding; i < length; i++ {
		if data[i] != byte(padding) {
			return nil, fmt.Errorf("invalid padding byte at offset %d", i)
		}
	}

	return data[:length-padding], nil
}
