package wallet

// TokenBalance is one holding in the portfolio, as reported by the wallet SDK.
type TokenBalance struct {
	TokenName   string `json:"token_name"`
	TokenImage  string `json:"token_image,omitempty"`
	NetworkName string `json:"network_name"`
	Quantity    string `json:"quantity"`
	AmountInINR string `json:"amount_in_inr"`
}

// Portfolio is the SDK's aggregate holdings view.
type Portfolio struct {
	Tokens []TokenBalance `json:"tokens"`
}

// Wallet is one per-network wallet address.
type Wallet struct {
	NetworkName string `json:"network_name"`
	Address     string `json:"address"`
}

// WalletSet is the SDK's full set of wallets for the authenticated user.
// Wallet creation is create-if-absent on the SDK side: repeated creation
// calls return the same set.
type WalletSet struct {
	Wallets []Wallet `json:"wallets"`
}

// TransferRequest is the payload for a token transfer or swap execution.
// It is immutable once submitted.
type TransferRequest struct {
	NetworkName      string `json:"network_name"`
	TokenAddress     string `json:"token_address"`
	Quantity         string `json:"quantity"`
	RecipientAddress string `json:"recipient_address"`
}

// TransferResponse acknowledges a submitted transfer.
type TransferResponse struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

// Order is one historical order entry.
type Order struct {
	OrderID         string `json:"order_id"`
	OrderType       string `json:"order_type,omitempty"`
	Status          string `json:"status"`
	NetworkName     string `json:"network_name,omitempty"`
	TransactionHash string `json:"transaction_hash,omitempty"`
}

// OrderResponse is the order-history lookup result.
type OrderResponse struct {
	Orders []Order `json:"orders"`
}
