package state

import ethcrypto "github.com/ethereum/go-ethereum/crypto"

var (
	boostConfigKey       = ethcrypto.Keccak256([]byte("boost:config"))
	boostOwnerKey        = ethcrypto.Keccak256([]byte("boost:owner"))
	boostPendingOwnerKey = ethcrypto.Keccak256([]byte("boost:pending-owner"))

	sourcePrefix  = []byte("boost:source:")
	ledgerPrefix  = []byte("boost:received:")
	claimPrefix   = []byte("boost:claim:")
	balancePrefix = []byte("balance:")
)

func sourceKey(source [20]byte) []byte {
	buf := make([]byte, len(sourcePrefix)+len(source))
	copy(buf, sourcePrefix)
	copy(buf[len(sourcePrefix):], source[:])
	return ethcrypto.Keccak256(buf)
}

func ledgerKey(winner [20]byte) []byte {
	buf := make([]byte, len(ledgerPrefix)+len(winner))
	copy(buf, ledgerPrefix)
	copy(buf[len(ledgerPrefix):], winner[:])
	return ethcrypto.Keccak256(buf)
}

func claimKey(key [32]byte) []byte {
	buf := make([]byte, len(claimPrefix)+len(key))
	copy(buf, claimPrefix)
	copy(buf[len(claimPrefix):], key[:])
	return ethcrypto.Keccak256(buf)
}

func balanceKey(addr [20]byte, symbol string) []byte {
	buf := make([]byte, len(balancePrefix)+len(symbol)+1+len(addr))
	copy(buf, balancePrefix)
	copy(buf[len(balancePrefix):], symbol)
	buf[len(balancePrefix)+len(symbol)] = ':'
	copy(buf[len(balancePrefix)+len(symbol)+1:], addr[:])
	return ethcrypto.Keccak256(buf)
}
