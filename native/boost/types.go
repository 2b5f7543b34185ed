package boost

import (
	"encoding/binary"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"lukechampine.com/blake3"
)

// ModuleAccount is the address holding the module's reserve-token balances.
// It is derived from a fixed label so every deployment agrees on it.
var ModuleAccount = func() [20]byte {
	var addr [20]byte
	copy(addr[:], ethcrypto.Keccak256([]byte("prizeboost/reserve"))[12:])
	return addr
}()

// ClaimKey identifies a single prize-claim coordinate. A key is marked
// processed the first time it produces a payout, so replaying the same
// coordinate is a no-op.
type ClaimKey [32]byte

// ClaimContext captures everything the distribution caller reports about a
// winning claim.
type ClaimContext struct {
	Source    [20]byte
	Winner    [20]byte
	Recipient [20]byte
	Tier      uint8
	Draw      uint32
	Index     uint32
	Prize     *big.Int
	// Timestamp is the logical time of the claim in unix seconds. The
	// verification window must extend strictly beyond it.
	Timestamp uint64
}

func (ctx *ClaimContext) prizeValue() *big.Int {
	if ctx == nil || ctx.Prize == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(ctx.Prize)
}

// payee resolves the payout destination; an unset recipient pays the winner.
func (ctx *ClaimContext) payee() [20]byte {
	var zero [20]byte
	if ctx.Recipient == zero {
		return ctx.Winner
	}
	return ctx.Recipient
}

// Key hashes the claim coordinates into the processed-set key.
func (ctx *ClaimContext) Key() ClaimKey {
	var buf [49]byte
	copy(buf[0:20], ctx.Source[:])
	copy(buf[20:40], ctx.Winner[:])
	buf[40] = ctx.Tier
	binary.BigEndian.PutUint32(buf[41:45], ctx.Draw)
	binary.BigEndian.PutUint32(buf[45:49], ctx.Index)
	return ClaimKey(blake3.Sum256(buf[:]))
}

// VerificationOracle reports the end of an identity's verification window.
// A winner counts as verified when the reported timestamp lies strictly after
// the claim's logical time.
type VerificationOracle interface {
	VerifiedUntil(addr [20]byte) (uint64, error)
}
