package types

import "time"

// Snapshot is the persisted form of a session, sufficient to resume
// symmetric messaging without repeating the handshake.
type Snapshot struct {
	SessionID        string            `json:"session_id"`
	Role             Role              `json:"role"`
	OwnTopic         Topic             `json:"own_topic"`
	PeerTopic        Topic             `json:"peer_topic"`
	PeerCode         VaspCode          `json:"peer_code"`
	SharedSecret     SharedSecret      `json:"shared_secret"`
	SessionPublicKey PublicKey         `json:"session_public_key"`
	LastMessage      MessageType       `json:"last_message,omitempty"`
	Transfer         TransferInfo      `json:"transfer"`
	PeerInfo         *VaspInfo         `json:"peer_info,omitempty"`
	Attributes       map[string]string `json:"attributes,omitempty"`
	UpdatedUTC       int64             `json:"updated_utc"`
}

// Touch stamps the snapshot with the current time.
func (s *Snapshot) Touch() { s.UpdatedUTC = time.Now().UTC().Unix() }
