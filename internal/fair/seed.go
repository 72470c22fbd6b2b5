package fair

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// RoundSeed is the committed randomness for one round. The server seed hash is
// published before the round opens; the seed itself stays hidden until the
// round settles, at which point anyone can replay the draws and check the
// published outcome.
type RoundSeed struct {
	ServerSeed     string `json:"-"`
	ServerSeedHash string `json:"server_seed_hash"`
	ClientSeed     string `json:"client_seed"`
	Nonce          int    `json:"nonce"`
}

// NewRoundSeed generates a fresh server seed and its commitment for a round.
func NewRoundSeed(clientSeed string, nonce int) RoundSeed {
	serverSeed := GenerateSeed()
	return RoundSeed{
		ServerSeed:     serverSeed,
		ServerSeedHash: HashCommitment(serverSeed),
		ClientSeed:     clientSeed,
		Nonce:          nonce,
	}
}

// GenerateSeed creates a cryptographically secure random seed
func GenerateSeed() string {
	b := make([]byte, 32)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// HashCommitment creates a SHA256 hash of the seed for commitment
func HashCommitment(seed string) string {
	h := sha256.New()
	h.Write([]byte(seed))
	return hex.EncodeToString(h.Sum(nil))
}

// Draw derives the index-th float in [0,1) from a seed triple using
// HMAC-SHA256(serverSeed, "clientSeed:nonce:index"). The first 8 bytes of the
// digest are shifted down to 53 bits so the full float64 mantissa is
// exercised and downstream multiplier math sees no quantization steps.
//
// Draw is a pure function: no clock, no hidden state. Varying index yields
// independent values for the same round (crash point, per-bet jitter),
// all replayable from the revealed seed.
func Draw(seed RoundSeed, index uint32) float64 {
	data := fmt.Sprintf("%s:%d:%d", seed.ClientSeed, seed.Nonce, index)
	h := hmac.New(sha256.New, []byte(seed.ServerSeed))
	h.Write([]byte(data))
	sum := h.Sum(nil)

	v := binary.BigEndian.Uint64(sum[:8]) >> 11 // keep 53 bits
	return float64(v) / float64(1<<53)
}
