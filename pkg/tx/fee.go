package tx

// Size model constants for single-signature P2PKH transactions:
// fixed header/locktime overhead plus a worst-case signed input and a
// standard output.
const (
	sizeOverhead  = 10  // version + varints + locktime
	sizePerInput  = 148 // outpoint + unlock script (sig + pubkey) + sequence
	sizePerOutput = 34  // value + P2PKH lock script
	sizeDataBase  = 10  // OP_RETURN output framing
)

// EstimateSize returns the estimated serialized size in bytes of a
// transaction with the given input/output counts and data payload.
func EstimateSize(numInputs, numOutputs, payloadBytes int) int {
	return sizeOverhead + sizePerInput*numInputs + sizePerOutput*numOutputs + sizeDataBase + payloadBytes
}

// EstimateFee returns the fee in satoshis for a transaction of sizeBytes at
// the given sat/KB rate, rounded up, with a 1-satoshi floor.
func EstimateFee(sizeBytes int, satPerKB uint64) uint64 {
	fee := (uint64(sizeBytes)*satPerKB + 999) / 1000
	if fee < 1 {
		return 1
	}
	return fee
}
