package session

import (
	"testing"

	"github.com/stretchr/testify/require"

	"vaspwire/internal/domain"
)

func TestAllowed(t *testing.T) {
	o, b := domain.RoleOriginator, domain.RoleBeneficiary
	cases := []struct {
		role     domain.Role
		last     domain.MessageType
		next     domain.MessageType
		outgoing bool
		want     bool
	}{
		{o, "", domain.TypeSessionRequest, true, true},
		{o, "", domain.TypeSessionRequest, false, false},
		{b, "", domain.TypeSessionRequest, false, true},
		{b, domain.TypeSessionRequest, domain.TypeSessionReply, true, true},
		{o, domain.TypeSessionRequest, domain.TypeSessionReply, false, true},
		{o, domain.TypeSessionRequest, domain.TypeTransferRequest, true, false},
		{o, domain.TypeSessionReply, domain.TypeTransferRequest, true, true},
		{b, domain.TypeTransferRequest, domain.TypeTransferReply, true, true},
		{o, domain.TypeTransferReply, domain.TypeTransferDispatch, true, true},
		{b, domain.TypeTransferDispatch, domain.TypeTransferConfirmation, true, true},
		{b, domain.TypeTransferDispatch, domain.TypeTransferConfirmation, false, false},
		{o, "", domain.TypeTermination, true, true},
		{b, domain.TypeTransferReply, domain.TypeTermination, false, true},
		{o, domain.TypeTermination, domain.TypeTermination, true, false},
		{o, domain.TypeTransferConfirmation, domain.TypeSessionRequest, true, false},
	}
	for _, c := range cases {
		got := allowed(c.role, c.last, c.next, c.outgoing)
		require.Equal(t, c.want, got, "%s after %q (outgoing=%v) as %s", c.next.Name(), c.last, c.outgoing, c.role)
	}
}

func TestSequenceError_Message(t *testing.T) {
	err := &SequenceError{SessionID: "ab", Role: domain.RoleOriginator, Got: domain.TypeTransferRequest, Outgoing: true}
	require.Equal(t, "session ab (originator): TransferRequest sent after start", err.Error())
}
