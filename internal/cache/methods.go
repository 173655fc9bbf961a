package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// cacheableMethods is the fixed allow-list of read-only Starknet query
// methods that are safe to serve from a time-bounded cache. Mutating
// methods (starknet_addInvokeTransaction and friends) must never appear
// here: anything absent from this list always forwards upstream.
var cacheableMethods = map[string]bool{
	"starknet_call":                  true,
	"starknet_getStorageAt":          true,
	"starknet_getTransactionByHash":  true,
	"starknet_getTransactionReceipt": true,
	"starknet_getBlockNumber":        true,
	"starknet_blockHashAndNumber":    true,
	"starknet_chainId":               true,
	"starknet_specVersion":           true,
	"starknet_getNonce":              true,
	"starknet_getClassAt":            true,
	"starknet_getClassHashAt":        true,
	"starknet_getBlockWithTxs":       true,
	"starknet_getBlockWithTxHashes":  true,
	"starknet_getStateUpdate":        true,
	"starknet_getEvents":             true,
	"starknet_estimateFee":           true,
}

// disabledMethods holds methods that should not be cached (configured at runtime)
var disabledMethods = make(map[string]bool)

// SetDisabledMethods sets the list of methods that should not be cached
func SetDisabledMethods(methods []string) {
	disabledMethods = make(map[string]bool)
	for _, method := range methods {
		disabledMethods[method] = true
	}
}

// IsMethodDisabled checks if a method is in the disabled list
func IsMethodDisabled(method string) bool {
	return disabledMethods[method]
}

// IsCacheable checks if a method's responses may be cached. An empty
// method name (envelope without a method field) is never cacheable.
func IsCacheable(method string) bool {
	if method == "" {
		return false
	}
	if disabledMethods[method] {
		return false
	}
	return cacheableMethods[method]
}

// GenerateCacheKey creates a unique cache key for a request.
// Byte-identical (method, params) pairs always produce the same key;
// different params never collide for the same method. Params are hashed
// as-is, so semantically equal envelopes with different key ordering may
// produce distinct keys.
func GenerateCacheKey(method string, params json.RawMessage) string {
	if len(params) == 0 {
		params = []byte("[]")
	}
	hash := sha256.Sum256(params)
	return method + ":" + hex.EncodeToString(hash[:])
}
