package game

import errorsmod "cosmossdk.io/errors"

const codespace = "zkshuffle"

// State-machine sentinel errors. The ABCI layer maps the registered code into
// the tx result; handlers wrap these with context.
var (
	ErrInvalidRequest        = errorsmod.Register(codespace, 2, "invalid request")
	ErrGameNotFound          = errorsmod.Register(codespace, 3, "game not found")
	ErrGameExists            = errorsmod.Register(codespace, 4, "game already exists")
	ErrInvalidState          = errorsmod.Register(codespace, 5, "operation not allowed in current game state")
	ErrNotYourTurn           = errorsmod.Register(codespace, 6, "caller is not the expected player")
	ErrInvalidPublicKey      = errorsmod.Register(codespace, 7, "public key not on curve")
	ErrInvalidPermutation    = errorsmod.Register(codespace, 8, "malformed permutation")
	ErrIllFormedDelta        = errorsmod.Register(codespace, 9, "decompression delta rejected")
	ErrIllFormedSelector     = errorsmod.Register(codespace, 10, "decompression selector rejected")
	ErrDoubleDeal            = errorsmod.Register(codespace, 11, "player already dealt this card")
	ErrProofFailed           = errorsmod.Register(codespace, 12, "proof verification failed")
	ErrCardNotFullyDecrypted = errorsmod.Register(codespace, 13, "card not fully decrypted")
)
