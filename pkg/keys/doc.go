// Package keys stores users' AI provider API keys encrypted at rest.
//
// Keys are sealed with the secrets cipher and stored as the hex triple
// (encrypted_key, iv, auth_tag) in ai_api_keys. Each user has at most one
// active key per provider; adding a key deactivates the previous one in the
// same transaction. Listing never returns ciphertext.
//
// All operations are authorized on the ai_key resource against the key
// owner: the owner and super admins (within the owner's organization) pass,
// everyone else gets a *ForbiddenError.
//
//	key, err := svc.Add(ctx, actor, ownerID, keys.ProviderOpenAI, "sk-...", "")
//	plaintext, err := svc.Resolve(ctx, actor, ownerID, keys.ProviderOpenAI)
//	if errors.Is(err, keys.ErrNoUsableKey) {
//		// ask the user to enter the key again
//	}
package keys
