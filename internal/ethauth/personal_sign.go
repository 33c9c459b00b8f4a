// Package ethauth verifies wallet sign-in messages signed with personal_sign
// (EIP-191).
package ethauth

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

const signatureLength = 65

// SignInMessage is the text the wallet is asked to sign. The nonce makes
// every message single-use.
func SignInMessage(domain, address, nonce string) string {
	return fmt.Sprintf("%s wants you to sign in with your wallet:\n%s\n\nNonce: %s", domain, address, nonce)
}

// VerifyPersonalSign checks that signatureHex is a personal_sign signature of
// message made by address.
func VerifyPersonalSign(address, message, signatureHex string) error {
	if !common.IsHexAddress(address) {
		return fmt.Errorf("invalid address %q", address)
	}

	sig, err := hexutil.Decode(signatureHex)
	if err != nil {
		return fmt.Errorf("invalid signature hex: %w", err)
	}
	if len(sig) != signatureLength {
		return fmt.Errorf("invalid signature length: %d", len(sig))
	}

	// Wallets return V as 27/28; SigToPub expects 0/1.
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return fmt.Errorf("recover signer: %w", err)
	}

	signer := crypto.PubkeyToAddress(*pub)
	if !strings.EqualFold(signer.Hex(), address) {
		return fmt.Errorf("signature is from %s, not %s", signer.Hex(), address)
	}
	return nil
}
