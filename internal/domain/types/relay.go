package types

import "github.com/ethereum/go-ethereum/common/hexutil"

// PostRequest is a post request to the relay network. Exactly one of
// SymKeyID or PublicKey selects the encryption.
type PostRequest struct {
	SymKeyID   string        `json:"symKeyID,omitempty"`
	PublicKey  hexutil.Bytes `json:"pubKey,omitempty"`
	Sig        string        `json:"sig,omitempty"`
	TTL        uint32        `json:"ttl"`
	Topic      Topic         `json:"topic"`
	Payload    hexutil.Bytes `json:"payload"`
	Padding    hexutil.Bytes `json:"padding,omitempty"`
	PowTime    uint32        `json:"powTime"`
	PowTarget  float64       `json:"powTarget"`
	TargetPeer string        `json:"targetPeer,omitempty"`
}

// Criteria selects the messages delivered to a relay filter.
type Criteria struct {
	SymKeyID     string  `json:"symKeyID,omitempty"`
	PrivateKeyID string  `json:"privateKeyID,omitempty"`
	Sig          string  `json:"sig,omitempty"`
	MinPow       float64 `json:"minPow"`
	Topics       []Topic `json:"topics"`
	AllowP2P     bool    `json:"allowP2P"`
}

// RelayMessage is a message returned by a relay filter poll.
type RelayMessage struct {
	Sig       hexutil.Bytes `json:"sig,omitempty"`
	TTL       uint32        `json:"ttl"`
	Timestamp uint32        `json:"timestamp"`
	Topic     Topic         `json:"topic"`
	Payload   hexutil.Bytes `json:"payload"`
	Padding   hexutil.Bytes `json:"padding,omitempty"`
	PoW       float64       `json:"pow"`
	Hash      hexutil.Bytes `json:"hash"`
	Dst       hexutil.Bytes `json:"recipientPublicKey,omitempty"`
}
