package utils

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// Hash a string and return the first 32 bytes of the hash.
func KeccakHash32(s string) string {
	return KeccakHash32Bytes([]byte(s))
}

func KeccakHash32Bytes(bz []byte) string {
	hash := sha3.NewLegacyKeccak256()

	var buf []byte
	hash.Write(bz)
	buf = hash.Sum(nil)

	encoded := hex.EncodeToString(buf)
	if len(encoded) > 32 {
		encoded = encoded[:32]
	}

	return encoded
}

// RecordId returns a stable id for a record of a campaign. seq is the position of the record in
// the campaign.
func RecordId(campaign uint64, seq int, kind string, logKey string) string {
	return KeccakHash32(fmt.Sprintf("%d/%d/%s/%s", campaign, seq, kind, logKey))
}
