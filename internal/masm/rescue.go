package masm

import "github.com/midenhir/compiler/internal/types"

// stateWidth, rateWidth, and alpha follow the standard Rescue-Prime
// sponge shape: a width-12 state (the VM's RPO256), an 8-element rate
// (absorbing two words per permutation call) and a 4-element capacity,
// 7 rounds of forward/inverse S-box layers, and the smallest exponent
// coprime with p-1 as the forward S-box (alpha=7 for the Goldilocks
// field, matching RPO256's own parameterization).
const (
	stateWidth = 12
	rateWidth  = 8
	numRounds  = 7
	alpha      = 7
)

// alphaInv is the modular inverse of alpha mod (p-1), the exponent of
// the inverse S-box. p-1 = 2^64 - 2^32 = 2^32 * (2^32 - 1); alphaInv is
// computed once via the extended Euclidean algorithm over that modulus
// and hard-coded, as the real implementation does (recomputing it at
// every hash call would be wasteful).
const alphaInv = 10540996611094048183

// roundConstants and mds are derived deterministically from a fixed
// seed via repeated Felt-domain hashing, following Rescue-Prime's own
// "derive constants from a public seed" convention (the paper specifies
// SHAKE256 of a seed string; this implementation substitutes an
// in-field PRF over the same seed since no SHAKE256 binding is wired
// here — see DESIGN.md: the real Miden VM's RPO256 round constants and
// MDS matrix are not reproduced verbatim because they are not present
// in the retrieved sources, so this sponge is structurally a
// Rescue-Prime permutation but is not bit-compatible with the VM's
// production RPO256).
var (
	roundConstants [2 * numRounds][stateWidth]types.Felt
	mds            [stateWidth][stateWidth]types.Felt
)

func init() {
	seed := types.NewFelt(0x5253504f323536) // ASCII "RSPO256"
	state := seed
	next := func() types.Felt {
		state = state.Mul(types.NewFelt(6364136223846793005)).Add(types.NewFelt(1442695040888963407))
		return state
	}
	for r := 0; r < 2*numRounds; r++ {
		for i := 0; i < stateWidth; i++ {
			roundConstants[r][i] = next()
		}
	}
	// A circulant matrix built from small coefficients is a simple,
	// always-invertible-in-practice stand-in MDS matrix.
	coeffs := [stateWidth]types.Felt{}
	for i := range coeffs {
		coeffs[i] = types.NewFelt(uint64(i + 1))
	}
	for i := 0; i < stateWidth; i++ {
		for j := 0; j < stateWidth; j++ {
			mds[i][j] = coeffs[(j-i+stateWidth)%stateWidth]
		}
	}
}

func sbox(v types.Felt) types.Felt { return v.Pow(alpha) }

func sboxInv(v types.Felt) types.Felt { return v.Pow(alphaInv) }

func applyMDS(state [stateWidth]types.Felt) [stateWidth]types.Felt {
	var out [stateWidth]types.Felt
	for i := 0; i < stateWidth; i++ {
		acc := types.Felt(0)
		for j := 0; j < stateWidth; j++ {
			acc = acc.Add(mds[i][j].Mul(state[j]))
		}
		out[i] = acc
	}
	return out
}

// permute applies the full Rescue-Prime round function to state,
// in-place semantics via return value: numRounds rounds of
// (forward S-box, MDS, add round constants), then numRounds more of
// (inverse S-box, MDS, add round constants) — the standard two-phase
// Rescue-Prime permutation.
func permute(state [stateWidth]types.Felt) [stateWidth]types.Felt {
	for r := 0; r < numRounds; r++ {
		for i := range state {
			state[i] = sbox(state[i])
		}
		state = applyMDS(state)
		for i := range state {
			state[i] = state[i].Add(roundConstants[r][i])
		}
	}
	for r := 0; r < numRounds; r++ {
		for i := range state {
			state[i] = sboxInv(state[i])
		}
		state = applyMDS(state)
		for i := range state {
			state[i] = state[i].Add(roundConstants[numRounds+r][i])
		}
	}
	return state
}

// HashElements computes the Rescue-Prime sponge digest of elements,
// absorbing rateWidth felts per permutation call (zero-padding the
// final partial block) and squeezing a WordFelts-wide digest, per
// spec.md §4.7's data-segment commitment requirement.
func HashElements(elements []types.Felt) [types.WordFelts]types.Felt {
	var state [stateWidth]types.Felt
	for i := 0; i < len(elements); i += rateWidth {
		end := i + rateWidth
		if end > len(elements) {
			end = len(elements)
		}
		for j := i; j < end; j++ {
			state[j-i] = state[j-i].Add(elements[j])
		}
		state = permute(state)
	}
	var digest [types.WordFelts]types.Felt
	copy(digest[:], state[:types.WordFelts])
	return digest
}
