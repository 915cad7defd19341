package domain

// Access method tags. Empty means plain REST.
const (
	AccessREST   = "rest"
	AccessEVMRPC = "evm-rpc"
)

// ProviderDescriptor describes one external endpoint able to answer a balance
// query for a single currency. Immutable once registered.
type ProviderDescriptor struct {
	// Name is unique within a currency's provider list.
	Name string
	// URLTemplate is the request URL with an {address} placeholder. For
	// RPC-style access methods it is the bare endpoint URL.
	URLTemplate string
	// APIKey, when set, is appended to the request as an apikey query param.
	APIKey string
	// ResponsePath locates the balance value inside the response body,
	// e.g. "data[0].balance". Ignored for text responses.
	ResponsePath string
	// AccessMethod selects how the provider is queried (AccessREST, AccessEVMRPC).
	AccessMethod string
	// TextResponse marks providers that return the balance as a plain-text body.
	TextResponse bool
	// TokenURLTemplate, when set, enables secondary-token lookups; it may use
	// {address} and {token} placeholders.
	TokenURLTemplate string
	// TokenResponsePath locates the token balance in the token response.
	TokenResponsePath string
}
